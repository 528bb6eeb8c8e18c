package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ListProviders(ctx context.Context) ([]Provider, error)
	ListModels(ctx context.Context, providerID string) ([]Model, error)
}

type GenerateRequest struct {
	Prompt     string         `json:"prompt"`
	Feature    string         `json:"feature"`
	ModelID    string         `json:"model_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// UsageBlock reports spend for one generation.
type UsageBlock struct {
	TokensPrompt        int64 `json:"tokens_prompt"`
	TokensCompletion    int64 `json:"tokens_completion"`
	TokensTotal         int64 `json:"tokens_total"`
	CostCalculatedMicro int64 `json:"cost_calculated_micro"`
}

type GenerateResponse struct {
	Content           string     `json:"content"`
	Provider          string     `json:"provider"`
	Model             string     `json:"model"`
	ProviderRequestID string     `json:"provider_request_id,omitempty"`
	DurationMS        int64      `json:"duration_ms"`
	Usage             UsageBlock `json:"usage"`
	UsageRecordID     string     `json:"usage_record_id"`
}

var (
	ErrInvalidPrompt    = errors.New("invalid_prompt")
	ErrInvalidOrg       = errors.New("invalid_organization")
	ErrInvalidModel     = errors.New("invalid_model")
	ErrModelNotFound    = errors.New("model_not_found")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrProviderInactive = errors.New("provider_inactive")
	ErrRateLimited      = errors.New("rate_limited")
	ErrProviderFailure  = errors.New("provider_failure")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
