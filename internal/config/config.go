// Package config содержит логику чтения конфигурации портала.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultRunAddress = "localhost:8080"

// Config содержит параметры конфигурации портала.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	AuthSecret   string `env:"AUTH_SECRET"`
	CookieSecure bool   `env:"COOKIE_SECURE"`

	PaymentGatewayAddress string `env:"PAYMENT_GATEWAY_ADDRESS"`
	PaymentWebhookSecret  string `env:"PAYMENT_WEBHOOK_SECRET"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	TariffCacheTTL time.Duration `env:"TARIFF_CACHE_TTL" envDefault:"5m"`

	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"0 0 * * *"`
	SweepTimeout  time.Duration `env:"SWEEP_TIMEOUT" envDefault:"5m"`
	SweepOnStart  bool          `env:"SWEEP_ON_START" envDefault:"true"`

	LogDev bool `env:"LOG_DEV"`
}

// Parse читает .env из рабочего каталога, флаги командной строки и переменные окружения.
func Parse() (*Config, error) {
	return Load(".env", os.Args[1:])
}

// Load собирает конфигурацию. Приоритет: переменные окружения, затем флаги, затем значения по умолчанию.
// Файл envFile необязателен и не перекрывает уже заданные переменные окружения.
func Load(envFile string, args []string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}

	fset := flag.NewFlagSet("fasthost", flag.ContinueOnError)
	fset.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	fset.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	fset.StringVar(&cfg.AuthSecret, "s", "", "secret for signing session cookies")
	fset.StringVar(&cfg.PaymentGatewayAddress, "p", "", "payment gateway address")

	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	return cfg, nil
}
