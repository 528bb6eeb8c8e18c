package repository

import (
	"context"

	domain "github.com/accordly/accordly/internal/orgchart/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) FindChartByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.Chart, error) {
	var chart domain.Chart
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM org_charts WHERE org_id = ? LIMIT 1
	`, orgID).Scan(&chart).Error
	if err != nil {
		return nil, err
	}
	if chart.ID == 0 {
		return nil, nil
	}
	return &chart, nil
}

func (r *repository) InsertChart(ctx context.Context, db *gorm.DB, chart *domain.Chart) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO org_charts (id, org_id, name, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, chart.ID, chart.OrgID, chart.Name, chart.Version, chart.CreatedAt, chart.CreatedAt).Error
}

func (r *repository) UpdateChart(ctx context.Context, db *gorm.DB, chart *domain.Chart) error {
	return db.WithContext(ctx).Exec(`
		UPDATE org_charts SET
			name = ?,
			version = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, chart.Name, chart.Version, chart.ID).Error
}

func (r *repository) ListEntities(ctx context.Context, db *gorm.DB, chartID snowflake.ID) ([]domain.Entity, error) {
	var entities []domain.Entity
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM org_chart_entities WHERE chart_id = ? ORDER BY name
	`, chartID).Scan(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *repository) ListConnections(ctx context.Context, db *gorm.DB, chartID snowflake.ID) ([]domain.Connection, error) {
	var connections []domain.Connection
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM org_chart_connections WHERE chart_id = ? ORDER BY id
	`, chartID).Scan(&connections).Error
	if err != nil {
		return nil, err
	}
	return connections, nil
}

func (r *repository) InsertEntity(ctx context.Context, db *gorm.DB, entity *domain.Entity) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO org_chart_entities (id, chart_id, kind, name, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entity.ID, entity.ChartID, entity.Kind, entity.Name, entity.Attributes, entity.CreatedAt).Error
}

func (r *repository) InsertConnection(ctx context.Context, db *gorm.DB, connection *domain.Connection) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO org_chart_connections (id, chart_id, from_entity_id, to_entity_id, relation, ownership_percent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, connection.ID, connection.ChartID, connection.FromEntityID, connection.ToEntityID,
		connection.Relation, connection.OwnershipPercent, connection.CreatedAt).Error
}

func (r *repository) DeleteChartContents(ctx context.Context, db *gorm.DB, chartID snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`
		DELETE FROM org_chart_connections WHERE chart_id = ?
	`, chartID).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`
		DELETE FROM org_chart_entities WHERE chart_id = ?
	`, chartID).Error
}
