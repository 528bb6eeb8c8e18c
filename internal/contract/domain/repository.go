package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	Update(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Contract, error)
	FindByIDAny(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, status string, limit, offset int) ([]Contract, error)
	ListDueForExpiry(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Contract, error)

	InsertParty(ctx context.Context, db *gorm.DB, party *Party) error
	UpdateParty(ctx context.Context, db *gorm.DB, party *Party) error
	FindPartyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Party, error)
	ListParties(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]Party, error)

	InsertField(ctx context.Context, db *gorm.DB, field *Field) error
	UpdateField(ctx context.Context, db *gorm.DB, field *Field) error
	SignField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, signedData string, signedAt time.Time) (bool, error)
	FindFieldByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Field, error)
	FindFieldByToken(ctx context.Context, db *gorm.DB, token string) (*Field, error)
	ListFields(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]Field, error)
	CountUnassignedFields(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (int64, error)
	CountUnsignedRequiredFields(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (int64, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *Event) error
	ListEvents(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]Event, error)
}
