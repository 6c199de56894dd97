// Package anthropic classifies documents through the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/resilience"
)

const (
	providerName     = "anthropic"
	DefaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 500
)

type Options struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxChars   int
	MaxSlugLen int
	Executor   *resilience.Executor
}

type Classifier struct {
	apiKey     string
	baseURL    string
	model      string
	maxChars   int
	maxSlugLen int
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewClassifier(apiKey string, options Options) *Classifier {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Classifier{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      options.Model,
		maxChars:   options.MaxChars,
		maxSlugLen: options.MaxSlugLen,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	call := func(callCtx context.Context) error {
		text, err := c.send(callCtx, llm.BuildClassificationPrompt(req, c.maxChars), defaultMaxTokens)
		if err != nil {
			return err
		}
		parsed, err := llm.ParseReply(text, c.maxSlugLen)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "classifier."+providerName, call, llm.ClassifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.ClassificationResult{}, llm.Unavailable(providerName, err)
	}
	return result, nil
}

// Ping sends a minimal message to verify the key and model.
func (c *Classifier) Ping(ctx context.Context) error {
	if _, err := c.send(ctx, "Reply with the word ok.", 5); err != nil {
		return llm.Unavailable(providerName, err)
	}
	return nil
}

func (c *Classifier) send(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal messages request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic messages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", llm.NewHTTPStatusError(providerName, resp)
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode messages response: %w", err)
	}
	var b strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
