package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Record, error)
	AttachContract(ctx context.Context, db *gorm.DB, orgID, id, contractID snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit, offset int) ([]Record, error)
	Totals(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) (SummaryTotals, error)
	FeatureBreakdown(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) ([]BreakdownRow, error)
	ProviderBreakdown(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) ([]BreakdownRow, error)
}
