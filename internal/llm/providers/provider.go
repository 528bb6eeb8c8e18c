// Package providers holds the HTTP adapters for upstream LLM vendors.
package providers

import (
	"context"
	"net/http"

	"github.com/accordly/accordly/internal/config"
	domain "github.com/accordly/accordly/internal/llm/domain"
	"go.uber.org/zap"
)

// Result is the normalized outcome of one upstream generation call.
// Token counts come from the vendor when reported; the caller fills in
// estimates otherwise.
type Result struct {
	Content          string
	TokensPrompt     int64
	TokensCompletion int64
	RequestID        string
}

// Client dispatches a prompt to one vendor API.
type Client interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, params map[string]any) (*Result, error)
}

// Registry resolves vendor clients by provider type. All clients share
// one http.Client so the request timeout is enforced uniformly.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(cfg config.Config, log *zap.Logger) *Registry {
	httpClient := &http.Client{Timeout: cfg.LLM.RequestTimeout}
	log = log.Named("llm.providers")

	clients := map[string]Client{
		domain.ProviderOpenAI:    newOpenAIClient(cfg.LLM, httpClient, log),
		domain.ProviderAnthropic: newAnthropicClient(cfg.LLM, httpClient, log),
		domain.ProviderGoogle:    newGoogleClient(cfg.LLM, httpClient, log),
	}

	return &Registry{clients: clients}
}

// Resolve returns the client for a provider type, nil when the type has
// no adapter.
func (r *Registry) Resolve(providerType string) Client {
	return r.clients[providerType]
}

func maxOutputTokens(params map[string]any, def int) int {
	if params == nil {
		return def
	}
	switch v := params["max_tokens"].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

func temperature(params map[string]any) (float64, bool) {
	if params == nil {
		return 0, false
	}
	if v, ok := params["temperature"].(float64); ok {
		return v, true
	}
	return 0, false
}
