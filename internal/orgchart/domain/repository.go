package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindChartByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Chart, error)
	InsertChart(ctx context.Context, db *gorm.DB, chart *Chart) error
	UpdateChart(ctx context.Context, db *gorm.DB, chart *Chart) error

	ListEntities(ctx context.Context, db *gorm.DB, chartID snowflake.ID) ([]Entity, error)
	ListConnections(ctx context.Context, db *gorm.DB, chartID snowflake.ID) ([]Connection, error)

	InsertEntity(ctx context.Context, db *gorm.DB, entity *Entity) error
	InsertConnection(ctx context.Context, db *gorm.DB, connection *Connection) error
	DeleteChartContents(ctx context.Context, db *gorm.DB, chartID snowflake.ID) error
}
