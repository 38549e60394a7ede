// Package logger builds the application's zerolog logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Config struct {
	Level       string `validate:"oneof=debug info warn error"`
	Format      string `validate:"oneof=json console"`
	Env         string `validate:"oneof=dev prod"`
	ServiceName string
	Version     string
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.ServiceName == "" {
		c.ServiceName = "bookshelf"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// New validates cfg (after filling defaults) and returns a logger writing to
// stdout. The level applies to this logger only, not zerolog's global level.
func New(cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	cfg.setDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return zerolog.Nop(), fmt.Errorf("logger config validation error: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version)
	if cfg.Env == "dev" {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}
