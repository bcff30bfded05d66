// Package config loads process configuration from ANCHORLINK_* environment
// variables. Command-line flags override what is loaded here.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/game"
)

// Config holds everything the commands need to build a session.
type Config struct {
	Mode          string        `env:"ANCHORLINK_MODE" envDefault:"solo"`
	Players       []string      `env:"ANCHORLINK_PLAYERS" envSeparator:","`
	Opponents     int           `env:"ANCHORLINK_OPPONENTS" envDefault:"1"`
	CatalogPath   string        `env:"ANCHORLINK_CATALOG"`
	Policy        string        `env:"ANCHORLINK_EXHAUSTION_POLICY" envDefault:"reshuffle"`
	Seed          int64         `env:"ANCHORLINK_SEED"`
	ThinkDelay    time.Duration `env:"ANCHORLINK_THINK_DELAY" envDefault:"800ms"`
	RoundDelay    time.Duration `env:"ANCHORLINK_ROUND_DELAY" envDefault:"2s"`
	RulingTimeout time.Duration `env:"ANCHORLINK_RULING_TIMEOUT" envDefault:"30s"`

	JudgeURL     string        `env:"ANCHORLINK_JUDGE_URL"`
	JudgeAPIKey  string        `env:"ANCHORLINK_JUDGE_API_KEY"`
	JudgeTimeout time.Duration `env:"ANCHORLINK_JUDGE_TIMEOUT" envDefault:"15s"`

	DBPath string `env:"ANCHORLINK_DB_PATH"`
	Debug  bool   `env:"ANCHORLINK_DEBUG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a session.
func (c Config) Validate() error {
	if _, err := game.ParsePlayMode(c.Mode); err != nil {
		return err
	}
	if _, err := game.ParseExhaustionPolicy(c.Policy); err != nil {
		return err
	}
	if c.Opponents < 1 || c.Opponents > game.MaxPlayers-1 {
		return fmt.Errorf("opponents must be 1-%d, got %d", game.MaxPlayers-1, c.Opponents)
	}
	if c.RulingTimeout <= 0 || c.JudgeTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// PlayMode returns the parsed play mode.
func (c Config) PlayMode() game.PlayMode {
	m, _ := game.ParsePlayMode(c.Mode)
	return m
}

// ExhaustionPolicy returns the parsed draw-pile policy.
func (c Config) ExhaustionPolicy() game.ExhaustionPolicy {
	p, _ := game.ParseExhaustionPolicy(c.Policy)
	return p
}

// Catalog loads the configured catalog, or the built-in one.
func (c Config) Catalog() (*game.Catalog, error) {
	if c.CatalogPath == "" {
		return game.DefaultCatalog(), nil
	}
	return game.LoadCatalog(c.CatalogPath)
}

// Logger builds the operational logger. Debug mode logs human-readable
// output at debug level.
func (c Config) Logger() (*zap.Logger, error) {
	if c.Debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
