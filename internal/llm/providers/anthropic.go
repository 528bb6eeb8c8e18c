package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/accordly/accordly/internal/config"
	domain "github.com/accordly/accordly/internal/llm/domain"
	"go.uber.org/zap"
)

const anthropicVersion = "2023-06-01"

type anthropicClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func newAnthropicClient(cfg config.LLMConfig, httpClient *http.Client, log *zap.Logger) *anthropicClient {
	return &anthropicClient{
		apiKey:  cfg.AnthropicAPIKey,
		baseURL: strings.TrimRight(cfg.AnthropicBaseURL, "/"),
		http:    httpClient,
		log:     log.Named("anthropic"),
	}
}

func (c *anthropicClient) Name() string { return domain.ProviderAnthropic }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Generate(ctx context.Context, model string, prompt string, params map[string]any) (*Result, error) {
	payload := anthropicRequest{
		Model:     model,
		MaxTokens: maxOutputTokens(params, 4096),
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	if t, ok := temperature(params); ok {
		payload.Temperature = &t
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		message := "unexpected response"
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		c.log.Warn("anthropic request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderFailure, message)
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Result{
		Content:          content.String(),
		TokensPrompt:     parsed.Usage.InputTokens,
		TokensCompletion: parsed.Usage.OutputTokens,
		RequestID:        parsed.ID,
	}, nil
}
