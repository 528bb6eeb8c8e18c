package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Provision(ctx context.Context, db *gorm.DB, quota *Quota) error
	FindByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Quota, error)
	// ApplyUsage increments the three counters in a single UPDATE so
	// concurrent recordings never lose updates.
	ApplyUsage(ctx context.Context, db *gorm.DB, orgID snowflake.ID, tokens, requests, costMicro int64) error
	Reset(ctx context.Context, db *gorm.DB, orgID snowflake.ID, lastResetAt, nextResetAt time.Time) error
	SetSuspended(ctx context.Context, db *gorm.DB, orgID snowflake.ID, suspended bool, reason string, now time.Time) error
	ListDueForReset(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Quota, error)
}
