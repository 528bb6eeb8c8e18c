// Package domain contains the append-only LLM usage ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Record is one LLM call outcome, success or failure. Rows are immutable
// once written except for backfilling the contract reference.
type Record struct {
	ID     snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID  snowflake.ID  `gorm:"column:org_id;not null;index:ix_usage_records_org" json:"organization_id"`
	UserID *snowflake.ID `gorm:"column:user_id" json:"user_id"`

	Provider  string `gorm:"type:text;not null" json:"provider"`
	ModelUsed string `gorm:"column:model_used;type:text;not null" json:"model_used"`
	Feature   string `gorm:"type:text;not null" json:"feature"`
	Status    string `gorm:"type:text;not null" json:"status"`

	TokensPrompt     int64 `gorm:"column:tokens_prompt;not null;default:0" json:"tokens_prompt"`
	TokensCompletion int64 `gorm:"column:tokens_completion;not null;default:0" json:"tokens_completion"`
	TokensTotal      int64 `gorm:"column:tokens_total;not null;default:0" json:"tokens_total"`

	CostEstimatedMicro  int64 `gorm:"column:cost_estimated_micro;not null;default:0" json:"cost_estimated_micro"`
	CostCalculatedMicro int64 `gorm:"column:cost_calculated_micro;not null;default:0" json:"cost_calculated_micro"`

	ProviderRequestID string `gorm:"column:provider_request_id;type:text" json:"provider_request_id"`
	RequestDurationMS int64  `gorm:"column:request_duration_ms;not null;default:0" json:"request_duration_ms"`

	InputContext     string `gorm:"column:input_context;type:text" json:"input_context"`
	GeneratedContent string `gorm:"column:generated_content;type:text" json:"generated_content"`

	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
	ErrorCode    string `gorm:"column:error_code;type:text" json:"error_code"`

	ContractID *snowflake.ID     `gorm:"column:contract_id;index" json:"contract_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_usage_records_created" json:"created_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "usage_records" }

// Feature tags mirror the product surfaces that spend tokens.
const (
	FeatureClauseGen        = "clause_gen"
	FeatureEdit             = "edit"
	FeatureReview           = "review"
	FeatureSuggestion       = "suggestion"
	FeatureResearch         = "research"
	FeatureSummary          = "summary"
	FeatureEntityExtraction = "entity_extraction"
	FeatureComplianceCheck  = "compliance_check"
	FeatureRiskAssessment   = "risk_assessment"
)

// Outcome statuses.
const (
	StatusSuccess       = "success"
	StatusError         = "error"
	StatusRateLimited   = "rate_limited"
	StatusQuotaExceeded = "quota_exceeded"
)

// ValidFeature reports whether the feature tag is known.
func ValidFeature(feature string) bool {
	switch feature {
	case FeatureClauseGen, FeatureEdit, FeatureReview, FeatureSuggestion,
		FeatureResearch, FeatureSummary, FeatureEntityExtraction,
		FeatureComplianceCheck, FeatureRiskAssessment:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether the outcome status is known.
func ValidStatus(status string) bool {
	switch status {
	case StatusSuccess, StatusError, StatusRateLimited, StatusQuotaExceeded:
		return true
	default:
		return false
	}
}

// MaxContentLength bounds stored prompt and completion text.
const MaxContentLength = 1000

// TruncateContent caps text at MaxContentLength runes, marking the cut
// with a trailing ellipsis. Counting runes keeps multibyte content from
// being over-truncated or split mid-character.
func TruncateContent(text string) string {
	if len(text) <= MaxContentLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxContentLength {
		return text
	}
	return string(runes[:MaxContentLength]) + "..."
}
