package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// CronDisabled turns the automatic "process due" job off; processing then only runs on /process_due.
const CronDisabled = "off"

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string        `env:"TELEGRAM_TOKEN,required,notEmpty"`
	DatabaseURL        string        `env:"DATABASE_URL,required,notEmpty"`
	AdminTelegramID    int64         `env:"ADMIN_TELEGRAM_ID,required"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	Environment        string        `env:"ENVIRONMENT" envDefault:"development"`
	CronSpecProcessDue string        `env:"CRON_SPEC_PROCESS_DUE" envDefault:"* * * * *"` // every minute
	ProcessBatchSize   int           `env:"PROCESS_BATCH_SIZE" envDefault:"50"`
	ProcessTimeout     time.Duration `env:"PROCESS_TIMEOUT" envDefault:"2m"`
	RunMigrations      bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.CronSpecProcessDue = strings.TrimSpace(cfg.CronSpecProcessDue)

	if cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a non-zero Telegram user ID")
	}
	if cfg.ProcessBatchSize <= 0 {
		return nil, fmt.Errorf("PROCESS_BATCH_SIZE must be positive, got %d", cfg.ProcessBatchSize)
	}
	if cfg.ProcessTimeout <= 0 {
		return nil, fmt.Errorf("PROCESS_TIMEOUT must be positive, got %s", cfg.ProcessTimeout)
	}
	return cfg, nil
}

// AutoProcessEnabled reports whether the cron job for due notifications should run.
func (c *AppConfig) AutoProcessEnabled() bool {
	return CronEnabled(c.CronSpecProcessDue)
}

// CronEnabled reports whether spec schedules a job, i.e. it is neither empty nor CronDisabled.
func CronEnabled(spec string) bool {
	spec = strings.TrimSpace(spec)
	return spec != "" && !strings.EqualFold(spec, CronDisabled)
}
