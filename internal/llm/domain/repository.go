package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProvider(ctx context.Context, db *gorm.DB, provider *Provider) error
	InsertModel(ctx context.Context, db *gorm.DB, model *Model) error
	FindProviderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Provider, error)
	FindProviderByName(ctx context.Context, db *gorm.DB, name string) (*Provider, error)
	FindDefaultProvider(ctx context.Context, db *gorm.DB) (*Provider, error)
	FindModelByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Model, error)
	FindDefaultModel(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (*Model, error)
	ListProviders(ctx context.Context, db *gorm.DB) ([]Provider, error)
	ListModels(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]Model, error)
}
