package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel  string
	LogFormat string

	ScanFolder     string
	Workers        int
	Debounce       time.Duration
	RetryDelay     time.Duration
	ShutdownGrace  time.Duration
	ProcessTimeout time.Duration

	PageCap          int
	OCRDPI           int
	OCRLanguage      string
	OCRMaxImageWidth int
	PDFTextLayer     bool
	TesseractPath    string
	PdftoppmPath     string

	ClassifierProvider       string
	ClassifierTimeout        time.Duration
	ClassifierMaxChars       int
	ClassifierRatePerMinute  int
	ClassifierMinConfidence  float64
	ClassifierBreakerEnabled bool

	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	OllamaURL      string
	OllamaGenModel string

	KeywordRulesFile string
	NameMaxLen       int

	MetricsPort string

	NATSURL     string
	NATSSubject string

	PostgresDSN string
}

func Load() Config {
	return Config{
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "auto"),

		ScanFolder:     mustEnv("SCAN_FOLDER", ""),
		Workers:        mustEnvInt("WORKERS", 3),
		Debounce:       time.Duration(mustEnvInt("DEBOUNCE_MS", 2000)) * time.Millisecond,
		RetryDelay:     time.Duration(mustEnvInt("RETRY_DELAY_MS", 2000)) * time.Millisecond,
		ShutdownGrace:  time.Duration(mustEnvInt("SHUTDOWN_GRACE_SECONDS", 30)) * time.Second,
		ProcessTimeout: time.Duration(mustEnvInt("PROCESS_TIMEOUT_SECONDS", 300)) * time.Second,

		PageCap:          mustEnvInt("PAGE_CAP", 3),
		OCRDPI:           mustEnvInt("OCR_DPI", 300),
		OCRLanguage:      mustEnv("OCR_LANGUAGE", "eng"),
		OCRMaxImageWidth: mustEnvInt("OCR_MAX_IMAGE_WIDTH", 3000),
		PDFTextLayer:     mustEnvBool("PDF_TEXT_LAYER", true),
		TesseractPath:    mustEnv("TESSERACT_PATH", "tesseract"),
		PdftoppmPath:     mustEnv("PDFTOPPM_PATH", "pdftoppm"),

		ClassifierProvider:       strings.ToLower(mustEnv("CLASSIFIER_PROVIDER", "")),
		ClassifierTimeout:        time.Duration(mustEnvInt("CLASSIFIER_TIMEOUT_SECONDS", 30)) * time.Second,
		ClassifierMaxChars:       mustEnvInt("CLASSIFIER_MAX_CHARS", 3000),
		ClassifierRatePerMinute:  mustEnvInt("CLASSIFIER_RATE_PER_MINUTE", 0),
		ClassifierMinConfidence:  mustEnvFloat("CLASSIFIER_MIN_CONFIDENCE", 0),
		ClassifierBreakerEnabled: mustEnvBool("CLASSIFIER_BREAKER_ENABLED", true),

		AnthropicAPIKey:  mustEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: mustEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicModel:   mustEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		OpenAIAPIKey:  mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   mustEnv("OPENAI_MODEL", "gpt-4o-mini"),

		OllamaURL:      mustEnv("OLLAMA_URL", ""),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		KeywordRulesFile: mustEnv("KEYWORD_RULES_FILE", ""),
		NameMaxLen:       mustEnvInt("NAME_MAX_LEN", 60),

		MetricsPort: mustEnv("METRICS_PORT", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "scans.outcomes"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),
	}
}

// Provider resolves which remote classifier to use. An explicit
// CLASSIFIER_PROVIDER wins; otherwise the first provider with credentials
// is picked. "" means keyword-only mode.
func (c Config) Provider() string {
	switch c.ClassifierProvider {
	case "none", "keyword", "off":
		return ""
	case "anthropic", "openai", "ollama":
		return c.ClassifierProvider
	}
	switch {
	case c.AnthropicAPIKey != "":
		return "anthropic"
	case c.OpenAIAPIKey != "":
		return "openai"
	case c.OllamaURL != "":
		return "ollama"
	default:
		return ""
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
