// Package domain contains the monthly usage quota models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Quota tracks monthly metered-usage limits for one organization.
// Limits are nullable; a null limit means the dimension is unlimited.
// Cost values are integer micro-USD so per-1K-token prices stay exact.
type Quota struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;uniqueIndex:ux_quotas_org" json:"organization_id"`

	MonthlyTokenLimit *int64 `gorm:"column:monthly_token_limit" json:"monthly_token_limit"`
	TokensUsed        int64  `gorm:"column:tokens_used_current_month;not null;default:0" json:"tokens_used_current_month"`

	MonthlyRequestLimit *int64 `gorm:"column:monthly_request_limit" json:"monthly_request_limit"`
	RequestsUsed        int64  `gorm:"column:requests_used_current_month;not null;default:0" json:"requests_used_current_month"`

	MonthlyCostLimitMicro *int64 `gorm:"column:monthly_cost_limit_micro" json:"monthly_cost_limit_micro"`
	CostUsedMicro         int64  `gorm:"column:cost_used_current_month_micro;not null;default:0" json:"cost_used_current_month_micro"`

	IsSuspended   bool   `gorm:"column:is_suspended;not null;default:false" json:"is_suspended"`
	SuspendReason string `gorm:"column:suspend_reason;type:text" json:"suspend_reason"`

	LastResetAt *time.Time `gorm:"column:last_reset_at" json:"last_reset_at"`
	NextResetAt time.Time  `gorm:"column:next_reset_at;not null" json:"next_reset_at"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Quota) TableName() string { return "quotas" }

// NextMonthStart returns the first instant of the month after t, in UTC.
func NextMonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
