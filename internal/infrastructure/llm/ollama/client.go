package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/resilience"
)

const providerName = "ollama"

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type Options struct {
	MaxChars   int
	MaxSlugLen int
	Executor   *resilience.Executor
}

// Classifier asks a local Ollama model for a JSON classification.
type Classifier struct {
	client   *Client
	options  Options
	executor *resilience.Executor
}

func NewClassifier(client *Client, options Options) *Classifier {
	return &Classifier{client: client, options: options, executor: options.Executor}
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	call := func(callCtx context.Context) error {
		respText, err := c.client.generateJSON(callCtx, llm.BuildClassificationPrompt(req, c.options.MaxChars))
		if err != nil {
			return err
		}
		parsed, err := llm.ParseReply(respText, c.options.MaxSlugLen)
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

func (c *Classifier) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Ping checks that the server answers and knows the model.
func (c *Client) Ping(ctx context.Context) error {
	var response struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/tags", &response); err != nil {
		return llm.Unavailable(providerName, err)
	}
	for _, m := range response.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return nil
		}
	}
	return llm.Unavailable(providerName, &modelMissingError{model: c.model})
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

type modelMissingError struct {
	model string
}

func (e *modelMissingError) Error() string {
	return "model " + e.model + " is not pulled"
}
