package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/scan-organizer/internal/config"
	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm/anthropic"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/llm/openai"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/resilience"
)

type pingClassifier interface {
	ports.RemoteClassifier
	Ping(ctx context.Context) error
}

func newProvider(cfg config.Config, logger *slog.Logger) (pingClassifier, string, error) {
	provider := cfg.Provider()
	if provider == "" {
		return nil, "", nil
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.BreakerEnabled = cfg.ClassifierBreakerEnabled
	executor := resilience.NewExecutorWithLogger(resilienceCfg, logger)

	switch provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, "", domain.WrapError(domain.ErrInvalidInput, "classifier provider", fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", provider))
		}
		return anthropic.NewClassifier(cfg.AnthropicAPIKey, anthropic.Options{
			BaseURL:    cfg.AnthropicBaseURL,
			Model:      cfg.AnthropicModel,
			Timeout:    cfg.ClassifierTimeout,
			MaxChars:   cfg.ClassifierMaxChars,
			MaxSlugLen: cfg.NameMaxLen,
			Executor:   executor,
		}), provider, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, "", domain.WrapError(domain.ErrInvalidInput, "classifier provider", fmt.Errorf("OPENAI_API_KEY is required for provider %q", provider))
		}
		return openai.NewClassifier(cfg.OpenAIAPIKey, openai.Options{
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Timeout:    cfg.ClassifierTimeout,
			MaxChars:   cfg.ClassifierMaxChars,
			MaxSlugLen: cfg.NameMaxLen,
			Executor:   executor,
		}), provider, nil
	case "ollama":
		if cfg.OllamaURL == "" {
			return nil, "", domain.WrapError(domain.ErrInvalidInput, "classifier provider", fmt.Errorf("OLLAMA_URL is required for provider %q", provider))
		}
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.ClassifierTimeout)
		return ollama.NewClassifier(client, ollama.Options{
			MaxChars:   cfg.ClassifierMaxChars,
			MaxSlugLen: cfg.NameMaxLen,
			Executor:   executor,
		}), provider, nil
	default:
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "classifier provider", fmt.Errorf("unknown provider %q", provider))
	}
}

func newRemoteClassifier(cfg config.Config, logger *slog.Logger) (ports.RemoteClassifier, string, error) {
	remote, provider, err := newProvider(cfg, logger)
	if err != nil || remote == nil {
		return nil, provider, err
	}
	return llm.NewRateLimited(remote, cfg.ClassifierRatePerMinute), provider, nil
}

// CheckResult is one line of the environment report.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Diagnose probes the OCR engines, the configured classifier and the
// optional sinks without touching any scan folder.
func Diagnose(ctx context.Context, cfg config.Config, logger *slog.Logger) []CheckResult {
	var results []CheckResult
	add := func(name string, err error, okDetail string) {
		if err != nil {
			results = append(results, CheckResult{Name: name, Detail: err.Error()})
			return
		}
		results = append(results, CheckResult{Name: name, OK: true, Detail: okDetail})
	}

	add("ocr", newOCR(cfg, logger).Check(ctx), "tesseract and pdftoppm found")

	remote, provider, err := newProvider(cfg, logger)
	switch {
	case err != nil:
		add("classifier", err, "")
	case remote == nil:
		add("classifier", nil, "keyword rules only")
	default:
		add("classifier", remote.Ping(ctx), provider+" reachable")
	}

	if cfg.PostgresDSN != "" {
		_, db, err := OpenJournal(ctx, cfg)
		if err == nil {
			_ = db.Close()
		}
		add("journal", err, "postgres schema ready")
	}
	if cfg.NATSURL != "" {
		publisher, err := OpenPublisher(cfg, logger)
		if err == nil {
			publisher.Close()
		}
		add("events", err, "nats connected, subject "+cfg.NATSSubject)
	}
	return results
}
