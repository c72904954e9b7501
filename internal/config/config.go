package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
)

// Config is the process configuration shared by the commands.
type Config struct {
	DB       string `env:"TRAITS_DB"        envDefault:"traits.db"`
	Bank     string `env:"TRAITS_BANK"      envDefault:"questions.json"`
	Addr     string `env:"TRAITS_ADDR"      envDefault:"127.0.0.1:50061"`
	Mode     string `env:"TRAITS_MODE"      envDefault:"demo"`
	Relaxed  bool   `env:"TRAITS_RELAXED"`
	Seed     uint64 `env:"TRAITS_SEED"` // 0 = time based
	LogLevel string `env:"TRAITS_LOG_LEVEL" envDefault:"info"`
	Lang     string `env:"TRAITS_LANG"      envDefault:"en"`
}

// Load reads dotenv, if it exists, into the environment and then parses
// Config. Variables already set in the environment win over the file.
func Load(dotenv string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	return Parse()
}

// Parse reads Config from the environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Scoring returns the production calibration with the configured mode.
func (c Config) Scoring() scoring.Config {
	cfg := scoring.DefaultConfig()
	cfg.Relaxed = c.Relaxed
	return cfg
}

// Logger builds the process logger at the configured level.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	return logging.NewLogger(w, c.LogLevel)
}
