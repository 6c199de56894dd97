// Package openai classifies documents through an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/resilience"
)

const providerName = "openai"

type Options struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxChars   int
	MaxSlugLen int
	Executor   *resilience.Executor
}

type Classifier struct {
	api        *openai.Client
	model      string
	maxChars   int
	maxSlugLen int
	executor   *resilience.Executor
}

func NewClassifier(apiKey string, options Options) *Classifier {
	cfg := openai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(options.BaseURL, "/")
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	model := options.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Classifier{
		api:        openai.NewClientWithConfig(cfg),
		model:      model,
		maxChars:   options.MaxChars,
		maxSlugLen: options.MaxSlugLen,
		executor:   options.Executor,
	}
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	call := func(callCtx context.Context) error {
		resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: 0,
			MaxTokens:   500,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: llm.BuildClassificationPrompt(req, c.maxChars)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return translateError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("openai returned no choices")
		}
		parsed, err := llm.ParseReply(resp.Choices[0].Message.Content, c.maxSlugLen)
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

// Ping lists models to verify the key and endpoint.
func (c *Classifier) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return llm.Unavailable(providerName, translateError(err))
	}
	return nil
}

// translateError maps go-openai status errors onto llm.HTTPStatusError so
// the breaker classification matches the other providers.
func translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.HTTPStatusError{
			Provider:   providerName,
			StatusCode: apiErr.HTTPStatusCode,
			Status:     http.StatusText(apiErr.HTTPStatusCode),
			Body:       apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.HTTPStatusError{
			Provider:   providerName,
			StatusCode: reqErr.HTTPStatusCode,
			Status:     http.StatusText(reqErr.HTTPStatusCode),
			Body:       reqErr.Error(),
		}
	}
	return err
}
