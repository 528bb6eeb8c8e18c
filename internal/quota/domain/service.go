package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Check is a pure read; callers that get an allow may still race each
	// other before ApplyUsage lands. Admission is advisory, spend is exact.
	Check(ctx context.Context, orgID snowflake.ID, estimatedTokens, estimatedCostMicro int64) (Decision, error)
	Snapshot(ctx context.Context, orgID snowflake.ID) (*Snapshot, error)
	Reset(ctx context.Context, orgID snowflake.ID) error
	ResetDue(ctx context.Context, now time.Time, limit int) (int, error)
	Suspend(ctx context.Context, orgID snowflake.ID, reason string) error
	Resume(ctx context.Context, orgID snowflake.ID) error
	UpdateLimits(ctx context.Context, orgID snowflake.ID, req UpdateLimitsRequest) (*Snapshot, error)
}

// Denial reasons, checked in fixed order.
const (
	ReasonSuspended            = "suspended"
	ReasonTokenLimitExceeded   = "token_limit_exceeded"
	ReasonRequestLimitExceeded = "request_limit_exceeded"
	ReasonCostLimitExceeded    = "cost_limit_exceeded"
)

// Decision is the outcome of a quota admission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Dimension reports one quota dimension with derived utilization.
type Dimension struct {
	Limit   *int64  `json:"limit"`
	Used    int64   `json:"used"`
	Percent float64 `json:"percent"`
}

// Snapshot is the current-month quota view for an organization.
type Snapshot struct {
	OrganizationID string     `json:"organization_id"`
	Tokens         Dimension  `json:"tokens"`
	Requests       Dimension  `json:"requests"`
	CostMicro      Dimension  `json:"cost_micro"`
	IsSuspended    bool       `json:"is_suspended"`
	SuspendReason  string     `json:"suspend_reason,omitempty"`
	LastResetAt    *time.Time `json:"last_reset_at"`
	NextResetAt    time.Time  `json:"next_reset_at"`
}

type UpdateLimitsRequest struct {
	MonthlyTokenLimit     *int64 `json:"monthly_token_limit"`
	MonthlyRequestLimit   *int64 `json:"monthly_request_limit"`
	MonthlyCostLimitMicro *int64 `json:"monthly_cost_limit_micro"`
}

var (
	ErrNotFound       = errors.New("quota_not_found")
	ErrInvalidRequest = errors.New("invalid_request")

	// ErrQuotaExceeded is returned by callers of Check when the decision
	// denies admission; the reason travels alongside.
	ErrQuotaExceeded = errors.New("quota_exceeded")
)

// ExceededError carries the denial reason for HTTP mapping.
type ExceededError struct {
	Reason string
}

func (e *ExceededError) Error() string { return "quota_exceeded: " + e.Reason }

func (e *ExceededError) Is(target error) bool { return target == ErrQuotaExceeded }
