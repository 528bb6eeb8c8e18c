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
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type googleClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func newGoogleClient(cfg config.LLMConfig, httpClient *http.Client, log *zap.Logger) *googleClient {
	return &googleClient{
		apiKey:  cfg.GoogleAPIKey,
		baseURL: strings.TrimRight(cfg.GoogleBaseURL, "/"),
		http:    httpClient,
		log:     log.Named("google"),
	}
}

func (c *googleClient) Name() string { return domain.ProviderGoogle }

type googleRequest struct {
	Contents         []googleContent   `json:"contents"`
	GenerationConfig *googleGenConfig  `json:"generationConfig,omitempty"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *googleClient) Generate(ctx context.Context, model string, prompt string, params map[string]any) (*Result, error) {
	payload := googleRequest{
		Contents: []googleContent{{Parts: []googlePart{{Text: prompt}}}},
	}
	genCfg := &googleGenConfig{MaxOutputTokens: maxOutputTokens(params, 0)}
	if t, ok := temperature(params); ok {
		genCfg.Temperature = &t
	}
	if genCfg.MaxOutputTokens > 0 || genCfg.Temperature != nil {
		payload.GenerationConfig = genCfg
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

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

	var parsed googleResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		message := "unexpected response"
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		c.log.Warn("google request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderFailure, message)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("%w: empty candidates", domain.ErrProviderFailure)
	}

	var content strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	// The API does not echo a request id; correlate with our own.
	return &Result{
		Content:          content.String(),
		TokensPrompt:     parsed.UsageMetadata.PromptTokenCount,
		TokensCompletion: parsed.UsageMetadata.CandidatesTokenCount,
		RequestID:        "gg_" + uuid.NewString(),
	}, nil
}
