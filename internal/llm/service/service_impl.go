package service

import (
	"context"
	"errors"
	"strings"

	"github.com/accordly/accordly/internal/clock"
	domain "github.com/accordly/accordly/internal/llm/domain"
	"github.com/accordly/accordly/internal/llm/providers"
	"github.com/accordly/accordly/internal/observability/metrics"
	"github.com/accordly/accordly/internal/orgcontext"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/accordly/accordly/internal/ratelimit"
	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Providers *providers.Registry
	Quota     quotadomain.Service
	Usage     usagedomain.Service
	Limiter   *ratelimit.ProviderLimiter
	Metrics   *metrics.Metrics
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	providers *providers.Registry
	quota     quotadomain.Service
	usage     usagedomain.Service
	limiter   *ratelimit.ProviderLimiter
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("llm.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		providers: p.Providers,
		quota:     p.Quota,
		usage:     p.Usage,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
	}
}

// Generate runs the full admission pipeline for one call: resolve the
// model, apply the provider rate limit, gate on quota, dispatch, and
// record the outcome. The usage record is written for denials and
// provider failures too.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if !usagedomain.ValidFeature(req.Feature) {
		return nil, usagedomain.ErrInvalidFeature
	}

	provider, model, err := s.resolveModel(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}

	var userID *snowflake.ID
	if trimmed := strings.TrimSpace(req.UserID); trimmed != "" {
		parsed, err := domain.ParseID(trimmed)
		if err != nil {
			return nil, usagedomain.ErrInvalidID
		}
		userID = &parsed
	}

	promptEstimate := estimatePromptTokens(req.Prompt)
	costEstimate := model.Cost(promptEstimate, 0)

	allowed, err := s.limiter.Allow(ctx, provider.Name, provider.RequestsPerMinute)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.metrics.RecordRateLimitDenied(ctx, provider.Name)
		s.metrics.RecordLLMRequest(ctx, provider.Name, req.Feature, usagedomain.StatusRateLimited)
		s.recordOutcome(ctx, usagedomain.RecordRequest{
			OrgID:              orgID,
			UserID:             userID,
			Provider:           provider.Name,
			ModelUsed:          model.Name,
			Feature:            req.Feature,
			Status:             usagedomain.StatusRateLimited,
			CostEstimatedMicro: costEstimate,
			InputContext:       req.Prompt,
			ErrorCode:          "rate_limited",
			ErrorMessage:       "provider rate limit exceeded",
		})
		return nil, domain.ErrRateLimited
	}

	decision, err := s.quota.Check(ctx, orgID, promptEstimate, costEstimate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.metrics.RecordQuotaDenial(ctx, orgID.String(), decision.Reason)
		s.metrics.RecordLLMRequest(ctx, provider.Name, req.Feature, usagedomain.StatusQuotaExceeded)
		s.recordOutcome(ctx, usagedomain.RecordRequest{
			OrgID:              orgID,
			UserID:             userID,
			Provider:           provider.Name,
			ModelUsed:          model.Name,
			Feature:            req.Feature,
			Status:             usagedomain.StatusQuotaExceeded,
			CostEstimatedMicro: costEstimate,
			InputContext:       req.Prompt,
			ErrorCode:          "quota_exceeded",
			ErrorMessage:       decision.Reason,
		})
		return nil, &quotadomain.ExceededError{Reason: decision.Reason}
	}

	client := s.providers.Resolve(provider.Type)
	if client == nil {
		return nil, domain.ErrProviderNotFound
	}

	start := s.clock.Now()
	result, callErr := client.Generate(ctx, model.Name, req.Prompt, req.Parameters)
	duration := s.clock.Now().Sub(start)

	if callErr != nil {
		status := usagedomain.StatusError
		errorCode := "provider_failure"
		if errors.Is(callErr, domain.ErrRateLimited) {
			status = usagedomain.StatusRateLimited
			errorCode = "rate_limited"
		}
		s.metrics.RecordLLMRequest(ctx, provider.Name, req.Feature, status)
		s.recordOutcome(ctx, usagedomain.RecordRequest{
			OrgID:              orgID,
			UserID:             userID,
			Provider:           provider.Name,
			ModelUsed:          model.Name,
			Feature:            req.Feature,
			Status:             status,
			CostEstimatedMicro: costEstimate,
			Duration:           duration,
			InputContext:       req.Prompt,
			ErrorCode:          errorCode,
			ErrorMessage:       callErr.Error(),
		})
		s.log.Warn("generation failed",
			zap.String("provider", provider.Name),
			zap.String("model", model.Name),
			zap.String("feature", req.Feature),
			zap.Error(callErr),
		)
		return nil, callErr
	}

	tokensPrompt := result.TokensPrompt
	if tokensPrompt == 0 {
		tokensPrompt = fallbackTokens(req.Prompt)
	}
	tokensCompletion := result.TokensCompletion
	if tokensCompletion == 0 {
		tokensCompletion = fallbackTokens(result.Content)
	}
	costCalculated := model.Cost(tokensPrompt, tokensCompletion)

	record, err := s.usage.Record(ctx, usagedomain.RecordRequest{
		OrgID:               orgID,
		UserID:              userID,
		Provider:            provider.Name,
		ModelUsed:           model.Name,
		Feature:             req.Feature,
		Status:              usagedomain.StatusSuccess,
		TokensPrompt:        tokensPrompt,
		TokensCompletion:    tokensCompletion,
		CostEstimatedMicro:  costEstimate,
		CostCalculatedMicro: costCalculated,
		ProviderRequestID:   result.RequestID,
		Duration:            duration,
		InputContext:        req.Prompt,
		GeneratedContent:    result.Content,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLLMRequest(ctx, provider.Name, req.Feature, usagedomain.StatusSuccess)
	s.metrics.RecordLLMTokens(ctx, provider.Name, tokensPrompt+tokensCompletion)

	return &domain.GenerateResponse{
		Content:           result.Content,
		Provider:          provider.Name,
		Model:             model.Name,
		ProviderRequestID: result.RequestID,
		DurationMS:        duration.Milliseconds(),
		Usage: domain.UsageBlock{
			TokensPrompt:        tokensPrompt,
			TokensCompletion:    tokensCompletion,
			TokensTotal:         tokensPrompt + tokensCompletion,
			CostCalculatedMicro: costCalculated,
		},
		UsageRecordID: record.ID.String(),
	}, nil
}

func (s *Service) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	return s.repo.ListProviders(ctx, s.db)
}

func (s *Service) ListModels(ctx context.Context, providerID string) ([]domain.Model, error) {
	var id snowflake.ID
	if trimmed := strings.TrimSpace(providerID); trimmed != "" {
		parsed, err := domain.ParseID(trimmed)
		if err != nil {
			return nil, domain.ErrInvalidModel
		}
		id = parsed
	}
	return s.repo.ListModels(ctx, s.db, id)
}

// resolveModel walks the fallback chain: an explicit model id wins,
// otherwise the default model of the default provider.
func (s *Service) resolveModel(ctx context.Context, modelID string) (*domain.Provider, *domain.Model, error) {
	if trimmed := strings.TrimSpace(modelID); trimmed != "" {
		id, err := domain.ParseID(trimmed)
		if err != nil {
			return nil, nil, domain.ErrInvalidModel
		}
		model, err := s.repo.FindModelByID(ctx, s.db, id)
		if err != nil {
			return nil, nil, err
		}
		if model == nil || !model.IsActive {
			return nil, nil, domain.ErrModelNotFound
		}
		provider, err := s.repo.FindProviderByID(ctx, s.db, model.ProviderID)
		if err != nil {
			return nil, nil, err
		}
		if provider == nil {
			return nil, nil, domain.ErrProviderNotFound
		}
		if !provider.IsActive {
			return nil, nil, domain.ErrProviderInactive
		}
		return provider, model, nil
	}

	provider, err := s.repo.FindDefaultProvider(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}
	if provider == nil {
		return nil, nil, domain.ErrProviderNotFound
	}
	model, err := s.repo.FindDefaultModel(ctx, s.db, provider.ID)
	if err != nil {
		return nil, nil, err
	}
	if model == nil {
		return nil, nil, domain.ErrModelNotFound
	}
	return provider, model, nil
}

// recordOutcome persists a non-success outcome. Recording is best effort
// here: the caller's error is the one that matters.
func (s *Service) recordOutcome(ctx context.Context, req usagedomain.RecordRequest) {
	if _, err := s.usage.Record(ctx, req); err != nil {
		s.log.Error("failed to record usage outcome",
			zap.String("status", req.Status),
			zap.String("provider", req.Provider),
			zap.Error(err),
		)
	}
}

// estimatePromptTokens counts whitespace-separated words. Crude, but it
// matches what the admission gate expects to see before dispatch.
func estimatePromptTokens(prompt string) int64 {
	return int64(len(strings.Fields(prompt)))
}

// fallbackTokens is used when the vendor omits token counts.
func fallbackTokens(text string) int64 {
	return domain.EstimateTokens(text)
}
