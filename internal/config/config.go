package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Question providers.
const (
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/philosophers.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	GameName                string        `env:"GAME_NAME" envDefault:"Philosopher's Click"`
	ScoreInterval           time.Duration `env:"SCORE_INTERVAL" envDefault:"1s"`
	QuestionInterval        time.Duration `env:"QUESTION_INTERVAL" envDefault:"10m"`
	ResponseSeconds         int           `env:"RESPONSE_SECONDS" envDefault:"60"`
	PauseScoreWhileAwaiting bool          `env:"PAUSE_SCORE_WHILE_AWAITING" envDefault:"false"`
	AllowManualTrigger      bool          `env:"ALLOW_MANUAL_TRIGGER" envDefault:"false"`

	// IdleSessionTTL ends sessions with no open stream and no requests for
	// this long. Zero keeps them until deleted.
	IdleSessionTTL time.Duration `env:"IDLE_SESSION_TTL" envDefault:"15m"`

	// QuestionProvider is "gemini" or "offline". Left empty, gemini is used
	// when an API key is set.
	QuestionProvider string        `env:"QUESTION_PROVIDER"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"20s"`
	LLMRetries       int           `env:"LLM_RETRIES" envDefault:"1"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Provider resolves the question provider to use.
func (c *Config) Provider() string {
	if c.QuestionProvider != "" {
		return c.QuestionProvider
	}
	if c.GeminiAPIKey != "" {
		return ProviderGemini
	}
	return ProviderOffline
}

func (c *Config) validate() error {
	switch c.Provider() {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("QUESTION_PROVIDER=gemini requires GEMINI_API_KEY")
		}
	case ProviderOffline:
	default:
		return fmt.Errorf("unknown QUESTION_PROVIDER %q", c.QuestionProvider)
	}
	if c.ResponseSeconds <= 0 {
		return fmt.Errorf("RESPONSE_SECONDS must be positive, got %d", c.ResponseSeconds)
	}
	if c.ScoreInterval <= 0 || c.QuestionInterval <= 0 {
		return fmt.Errorf("SCORE_INTERVAL and QUESTION_INTERVAL must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if c.IdleSessionTTL < 0 {
		return fmt.Errorf("IDLE_SESSION_TTL must not be negative, got %s", c.IdleSessionTTL)
	}
	if c.LLMRetries < 0 {
		return fmt.Errorf("LLM_RETRIES must not be negative, got %d", c.LLMRetries)
	}
	return nil
}
