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

type openAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func newOpenAIClient(cfg config.LLMConfig, httpClient *http.Client, log *zap.Logger) *openAIClient {
	return &openAIClient{
		apiKey:  cfg.OpenAIAPIKey,
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		http:    httpClient,
		log:     log.Named("openai"),
	}
}

func (c *openAIClient) Name() string { return domain.ProviderOpenAI }

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *openAIClient) Generate(ctx context.Context, model string, prompt string, params map[string]any) (*Result, error) {
	payload := openAIChatRequest{
		Model:     model,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxOutputTokens(params, 0),
	}
	if t, ok := temperature(params); ok {
		payload.Temperature = &t
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		message := "unexpected response"
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		c.log.Warn("openai request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderFailure, message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", domain.ErrProviderFailure)
	}

	return &Result{
		Content:          parsed.Choices[0].Message.Content,
		TokensPrompt:     parsed.Usage.PromptTokens,
		TokensCompletion: parsed.Usage.CompletionTokens,
		RequestID:        parsed.ID,
	}, nil
}
