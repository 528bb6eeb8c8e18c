package service

import (
	"context"
	"strings"

	"github.com/accordly/accordly/internal/clock"
	"github.com/accordly/accordly/internal/orgcontext"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/accordly/accordly/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      usagedomain.Repository
	QuotaRepo quotadomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      usagedomain.Repository
	quotaRepo quotadomain.Repository
}

func New(p Params) usagedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("usage.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		quotaRepo: p.QuotaRepo,
	}
}

// Record persists one call outcome. Failures are recorded too; only
// successful calls consume quota, and that consumption happens in the same
// transaction as the insert. A persistence error here is surfaced, never
// swallowed: the provider spend already happened.
func (s *Service) Record(ctx context.Context, req usagedomain.RecordRequest) (*usagedomain.Record, error) {
	if req.OrgID == 0 {
		return nil, usagedomain.ErrInvalidOrg
	}
	if !usagedomain.ValidFeature(req.Feature) {
		return nil, usagedomain.ErrInvalidFeature
	}
	if !usagedomain.ValidStatus(req.Status) {
		return nil, usagedomain.ErrInvalidStatus
	}

	costEstimated := req.CostEstimatedMicro
	if costEstimated == 0 {
		costEstimated = req.CostCalculatedMicro
	}

	record := &usagedomain.Record{
		ID:                  s.genID.Generate(),
		OrgID:               req.OrgID,
		UserID:              req.UserID,
		Provider:            strings.TrimSpace(req.Provider),
		ModelUsed:           strings.TrimSpace(req.ModelUsed),
		Feature:             req.Feature,
		Status:              req.Status,
		TokensPrompt:        req.TokensPrompt,
		TokensCompletion:    req.TokensCompletion,
		TokensTotal:         req.TokensPrompt + req.TokensCompletion,
		CostEstimatedMicro:  costEstimated,
		CostCalculatedMicro: req.CostCalculatedMicro,
		ProviderRequestID:   strings.TrimSpace(req.ProviderRequestID),
		RequestDurationMS:   req.Duration.Milliseconds(),
		InputContext:        usagedomain.TruncateContent(req.InputContext),
		GeneratedContent:    usagedomain.TruncateContent(req.GeneratedContent),
		ErrorMessage:        req.ErrorMessage,
		ErrorCode:           req.ErrorCode,
		Metadata:            req.Metadata,
		CreatedAt:           s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, record); err != nil {
			return err
		}
		if record.Status != usagedomain.StatusSuccess {
			return nil
		}
		return s.quotaRepo.ApplyUsage(ctx, tx, record.OrgID, record.TokensTotal, 1, record.CostCalculatedMicro)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// AttachContract backfills the contract reference, the only mutation a
// usage record permits.
func (s *Service) AttachContract(ctx context.Context, recordID, contractID string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return usagedomain.ErrInvalidOrg
	}

	id, err := usagedomain.ParseID(strings.TrimSpace(recordID))
	if err != nil {
		return usagedomain.ErrInvalidID
	}
	cid, err := usagedomain.ParseID(strings.TrimSpace(contractID))
	if err != nil {
		return usagedomain.ErrInvalidID
	}

	updated, err := s.repo.AttachContract(ctx, s.db, orgID, id, cid)
	if err != nil {
		return err
	}
	if !updated {
		return usagedomain.ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, req usagedomain.ListRequest) ([]usagedomain.Record, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, usagedomain.ErrInvalidOrg
	}

	limit, offset := pagination.Clamp(req.Limit, req.Offset)
	return s.repo.List(ctx, s.db, orgID, limit, offset)
}

func (s *Service) Summary(ctx context.Context, days int) (*usagedomain.SummaryResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, usagedomain.ErrInvalidOrg
	}

	if days <= 0 {
		days = 30
	}
	since := s.clock.Now().AddDate(0, 0, -days)

	totals, err := s.repo.Totals(ctx, s.db, orgID, since)
	if err != nil {
		return nil, err
	}
	byFeature, err := s.repo.FeatureBreakdown(ctx, s.db, orgID, since)
	if err != nil {
		return nil, err
	}
	byProvider, err := s.repo.ProviderBreakdown(ctx, s.db, orgID, since)
	if err != nil {
		return nil, err
	}

	return &usagedomain.SummaryResponse{
		Days:       days,
		Totals:     totals,
		ByFeature:  byFeature,
		ByProvider: byProvider,
	}, nil
}
