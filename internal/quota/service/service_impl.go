package service

import (
	"context"
	"time"

	"github.com/accordly/accordly/internal/clock"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  quotadomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  quotadomain.Repository
}

func New(p Params) quotadomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("quota.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Check evaluates admission in fixed order: suspension, token limit,
// request limit, cost limit. A nil limit never denies.
func (s *Service) Check(ctx context.Context, orgID snowflake.ID, estimatedTokens, estimatedCostMicro int64) (quotadomain.Decision, error) {
	quota, err := s.repo.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return quotadomain.Decision{}, err
	}
	if quota == nil {
		return quotadomain.Decision{}, quotadomain.ErrNotFound
	}

	if quota.IsSuspended {
		return quotadomain.Decision{Allowed: false, Reason: quotadomain.ReasonSuspended}, nil
	}
	if quota.MonthlyTokenLimit != nil && quota.TokensUsed+estimatedTokens > *quota.MonthlyTokenLimit {
		return quotadomain.Decision{Allowed: false, Reason: quotadomain.ReasonTokenLimitExceeded}, nil
	}
	if quota.MonthlyRequestLimit != nil && quota.RequestsUsed+1 > *quota.MonthlyRequestLimit {
		return quotadomain.Decision{Allowed: false, Reason: quotadomain.ReasonRequestLimitExceeded}, nil
	}
	if quota.MonthlyCostLimitMicro != nil && quota.CostUsedMicro+estimatedCostMicro > *quota.MonthlyCostLimitMicro {
		return quotadomain.Decision{Allowed: false, Reason: quotadomain.ReasonCostLimitExceeded}, nil
	}

	return quotadomain.Decision{Allowed: true}, nil
}

func (s *Service) Snapshot(ctx context.Context, orgID snowflake.ID) (*quotadomain.Snapshot, error) {
	quota, err := s.repo.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if quota == nil {
		return nil, quotadomain.ErrNotFound
	}
	return toSnapshot(quota), nil
}

func (s *Service) Reset(ctx context.Context, orgID snowflake.ID) error {
	quota, err := s.repo.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return err
	}
	if quota == nil {
		return quotadomain.ErrNotFound
	}
	now := s.clock.Now()
	return s.repo.Reset(ctx, s.db, orgID, now, quotadomain.NextMonthStart(now))
}

// ResetDue zeroes counters for every quota whose reset instant has passed.
// Used by the scheduler; idempotent because next_reset_at moves forward.
func (s *Service) ResetDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.repo.ListDueForReset(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, quota := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := s.repo.Reset(ctx, s.db, quota.OrgID, now, quotadomain.NextMonthStart(now)); err != nil {
			return processed, err
		}
		processed++
		s.log.Info("quota reset",
			zap.String("org_id", quota.OrgID.String()),
			zap.Time("next_reset_at", quotadomain.NextMonthStart(now)),
		)
	}
	return processed, nil
}

func (s *Service) Suspend(ctx context.Context, orgID snowflake.ID, reason string) error {
	quota, err := s.repo.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return err
	}
	if quota == nil {
		return quotadomain.ErrNotFound
	}
	return s.repo.SetSuspended(ctx, s.db, orgID, true, reason, s.clock.Now())
}

func (s *Service) Resume(ctx context.Context, orgID snowflake.ID) error {
	quota, err := s.repo.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return err
	}
	if quota == nil {
		return quotadomain.ErrNotFound
	}
	return s.repo.SetSuspended(ctx, s.db, orgID, false, "", s.clock.Now())
}

func (s *Service) UpdateLimits(ctx context.Context, orgID snowflake.ID, req quotadomain.UpdateLimitsRequest) (*quotadomain.Snapshot, error) {
	quota, err := s.repo.FindByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if quota == nil {
		return nil, quotadomain.ErrNotFound
	}
	if invalidLimit(req.MonthlyTokenLimit) || invalidLimit(req.MonthlyRequestLimit) || invalidLimit(req.MonthlyCostLimitMicro) {
		return nil, quotadomain.ErrInvalidRequest
	}

	quota.MonthlyTokenLimit = req.MonthlyTokenLimit
	quota.MonthlyRequestLimit = req.MonthlyRequestLimit
	quota.MonthlyCostLimitMicro = req.MonthlyCostLimitMicro
	quota.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Exec(
		`UPDATE quotas
		 SET monthly_token_limit = ?, monthly_request_limit = ?, monthly_cost_limit_micro = ?, updated_at = ?
		 WHERE org_id = ?`,
		quota.MonthlyTokenLimit,
		quota.MonthlyRequestLimit,
		quota.MonthlyCostLimitMicro,
		quota.UpdatedAt,
		orgID,
	).Error
	if err != nil {
		return nil, err
	}
	return toSnapshot(quota), nil
}

func invalidLimit(limit *int64) bool {
	return limit != nil && *limit < 0
}

func toSnapshot(q *quotadomain.Quota) *quotadomain.Snapshot {
	return &quotadomain.Snapshot{
		OrganizationID: q.OrgID.String(),
		Tokens:         dimension(q.MonthlyTokenLimit, q.TokensUsed),
		Requests:       dimension(q.MonthlyRequestLimit, q.RequestsUsed),
		CostMicro:      dimension(q.MonthlyCostLimitMicro, q.CostUsedMicro),
		IsSuspended:    q.IsSuspended,
		SuspendReason:  q.SuspendReason,
		LastResetAt:    q.LastResetAt,
		NextResetAt:    q.NextResetAt,
	}
}

func dimension(limit *int64, used int64) quotadomain.Dimension {
	dim := quotadomain.Dimension{Limit: limit, Used: used}
	if limit != nil && *limit > 0 {
		dim.Percent = float64(used) / float64(*limit) * 100
	}
	return dim
}
