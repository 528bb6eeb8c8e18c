package repository

import (
	"context"
	"time"

	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() quotadomain.Repository {
	return &repo{}
}

func (r *repo) Provision(ctx context.Context, db *gorm.DB, quota *quotadomain.Quota) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoNothing: true,
		}).
		Create(quota).Error
}

func (r *repo) FindByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*quotadomain.Quota, error) {
	var quota quotadomain.Quota
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM quotas WHERE org_id = ?`,
		orgID,
	).Scan(&quota).Error
	if err != nil {
		return nil, err
	}
	if quota.ID == 0 {
		return nil, nil
	}
	return &quota, nil
}

func (r *repo) ApplyUsage(ctx context.Context, db *gorm.DB, orgID snowflake.ID, tokens, requests, costMicro int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotas
		 SET tokens_used_current_month = tokens_used_current_month + ?,
		     requests_used_current_month = requests_used_current_month + ?,
		     cost_used_current_month_micro = cost_used_current_month_micro + ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE org_id = ?`,
		tokens,
		requests,
		costMicro,
		orgID,
	).Error
}

func (r *repo) Reset(ctx context.Context, db *gorm.DB, orgID snowflake.ID, lastResetAt, nextResetAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotas
		 SET tokens_used_current_month = 0,
		     requests_used_current_month = 0,
		     cost_used_current_month_micro = 0,
		     last_reset_at = ?,
		     next_reset_at = ?,
		     updated_at = ?
		 WHERE org_id = ?`,
		lastResetAt,
		nextResetAt,
		lastResetAt,
		orgID,
	).Error
}

func (r *repo) SetSuspended(ctx context.Context, db *gorm.DB, orgID snowflake.ID, suspended bool, reason string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotas
		 SET is_suspended = ?, suspend_reason = ?, updated_at = ?
		 WHERE org_id = ?`,
		suspended,
		reason,
		now,
		orgID,
	).Error
}

func (r *repo) ListDueForReset(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]quotadomain.Quota, error) {
	var quotas []quotadomain.Quota
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM quotas WHERE next_reset_at <= ? ORDER BY next_reset_at ASC LIMIT ?`,
		now,
		limit,
	).Scan(&quotas).Error
	if err != nil {
		return nil, err
	}
	return quotas, nil
}
