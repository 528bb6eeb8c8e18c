// Package domain contains the LLM provider and model catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Provider types.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderCustom    = "custom"
)

// Provider is one upstream LLM vendor endpoint. Credentials are sourced
// from config at dispatch time, never stored here.
type Provider struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"type:text;not null;uniqueIndex:ux_llm_providers_name" json:"name"`
	Type string       `gorm:"type:text;not null" json:"type"`

	BaseURL string `gorm:"column:base_url;type:text" json:"base_url"`

	RequestsPerMinute int `gorm:"column:requests_per_minute;not null;default:0" json:"requests_per_minute"`
	TokensPerMinute   int `gorm:"column:tokens_per_minute;not null;default:0" json:"tokens_per_minute"`

	IsActive  bool `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsDefault bool `gorm:"column:is_default;not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Provider) TableName() string { return "llm_providers" }

// Model types.
const (
	ModelTypeChat       = "chat"
	ModelTypeCompletion = "completion"
	ModelTypeEmbedding  = "embedding"
)

// Model is one priced model offered by a provider. Prices are integer
// micro-USD per 1K tokens.
type Model struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ProviderID snowflake.ID `gorm:"column:provider_id;not null;index" json:"provider_id"`

	Name string `gorm:"type:text;not null" json:"name"`
	Type string `gorm:"type:text;not null" json:"type"`

	ContextWindow   int `gorm:"column:context_window;not null;default:0" json:"context_window"`
	MaxOutputTokens int `gorm:"column:max_output_tokens;not null;default:0" json:"max_output_tokens"`

	InputPriceMicro  int64 `gorm:"column:input_price_micro;not null;default:0" json:"input_price_micro"`
	OutputPriceMicro int64 `gorm:"column:output_price_micro;not null;default:0" json:"output_price_micro"`

	IsActive  bool `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsDefault bool `gorm:"column:is_default;not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Model) TableName() string { return "llm_models" }

// Cost prices a call: linear per-1K-token pricing in micro-USD.
func (m Model) Cost(promptTokens, completionTokens int64) int64 {
	return promptTokens*m.InputPriceMicro/1000 + completionTokens*m.OutputPriceMicro/1000
}

// EstimateTokens approximates the token count of text at four characters
// per token, never returning less than one for non-empty text.
func EstimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	estimate := int64(len(text)) / 4
	if estimate < 1 {
		return 1
	}
	return estimate
}
