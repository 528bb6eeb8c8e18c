package repository

import (
	"context"
	"time"

	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *usagedomain.Record) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*usagedomain.Record, error) {
	var record usagedomain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM usage_records WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) AttachContract(ctx context.Context, db *gorm.DB, orgID, id, contractID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE usage_records SET contract_id = ? WHERE org_id = ? AND id = ?`,
		contractID,
		orgID,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit, offset int) ([]usagedomain.Record, error) {
	var records []usagedomain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM usage_records
		 WHERE org_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		orgID,
		limit,
		offset,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) (usagedomain.SummaryTotals, error) {
	var totals usagedomain.SummaryTotals
	err := db.WithContext(ctx).Raw(
		`SELECT
		   COUNT(*) AS requests,
		   COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) AS successful_requests,
		   COALESCE(SUM(tokens_total), 0) AS tokens_total,
		   COALESCE(SUM(cost_calculated_micro), 0) AS cost_calculated_micro
		 FROM usage_records
		 WHERE org_id = ? AND created_at >= ?`,
		orgID,
		since,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) FeatureBreakdown(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) ([]usagedomain.BreakdownRow, error) {
	return r.breakdown(ctx, db, "feature", orgID, since)
}

func (r *repo) ProviderBreakdown(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) ([]usagedomain.BreakdownRow, error) {
	return r.breakdown(ctx, db, "provider", orgID, since)
}

func (r *repo) breakdown(ctx context.Context, db *gorm.DB, column string, orgID snowflake.ID, since time.Time) ([]usagedomain.BreakdownRow, error) {
	var rows []usagedomain.BreakdownRow
	err := db.WithContext(ctx).Raw(
		`SELECT
		   `+column+` AS key,
		   COUNT(*) AS requests,
		   COALESCE(SUM(tokens_total), 0) AS tokens_total,
		   COALESCE(SUM(cost_calculated_micro), 0) AS cost_calculated_micro
		 FROM usage_records
		 WHERE org_id = ? AND created_at >= ?
		 GROUP BY `+column+`
		 ORDER BY requests DESC`,
		orgID,
		since,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
