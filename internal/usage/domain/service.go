package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Record, error)
	AttachContract(ctx context.Context, recordID, contractID string) error
	List(ctx context.Context, req ListRequest) ([]Record, error)
	Summary(ctx context.Context, days int) (*SummaryResponse, error)
}

type RecordRequest struct {
	OrgID  snowflake.ID
	UserID *snowflake.ID

	Provider  string
	ModelUsed string
	Feature   string
	Status    string

	TokensPrompt     int64
	TokensCompletion int64

	CostEstimatedMicro  int64
	CostCalculatedMicro int64

	ProviderRequestID string
	Duration          time.Duration

	InputContext     string
	GeneratedContent string

	ErrorMessage string
	ErrorCode    string

	Metadata map[string]any
}

type ListRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// SummaryTotals aggregates spend over the summary window.
type SummaryTotals struct {
	Requests            int64 `json:"requests"`
	SuccessfulRequests  int64 `json:"successful_requests"`
	TokensTotal         int64 `json:"tokens_total"`
	CostCalculatedMicro int64 `json:"cost_calculated_micro"`
}

// BreakdownRow is one per-feature or per-provider aggregate line.
type BreakdownRow struct {
	Key                 string `gorm:"column:key" json:"key"`
	Requests            int64  `gorm:"column:requests" json:"requests"`
	TokensTotal         int64  `gorm:"column:tokens_total" json:"tokens_total"`
	CostCalculatedMicro int64  `gorm:"column:cost_calculated_micro" json:"cost_calculated_micro"`
}

type SummaryResponse struct {
	Days       int            `json:"days"`
	Totals     SummaryTotals  `json:"totals"`
	ByFeature  []BreakdownRow `json:"by_feature"`
	ByProvider []BreakdownRow `json:"by_provider"`
}

var (
	ErrInvalidFeature = errors.New("invalid_feature")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidOrg     = errors.New("invalid_organization")
	ErrNotFound       = errors.New("usage_record_not_found")
	ErrInvalidID      = errors.New("invalid_id")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
