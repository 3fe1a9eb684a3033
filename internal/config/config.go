// Package config loads gatekeep and gatekeepd settings from the environment.
//
// A .env file in the working directory is read once, before the first Load;
// variables already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config: nil pointer")
	ErrParsingConfig = errors.New("config: parse environment")
	ErrInvalidValue  = errors.New("config: invalid value")
)

var dotenvOnce sync.Once

// Client configures the gatekeep CLI and TUI.
type Client struct {
	APIURL    string `env:"GATEKEEP_API_URL" envDefault:"http://localhost:3000"`
	Token     string `env:"GATEKEEP_TOKEN"`
	Home      string `env:"GATEKEEP_HOME"`
	Store     string `env:"GATEKEEP_STORE" envDefault:"file"`
	LogLevel  string `env:"GATEKEEP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GATEKEEP_LOG_FORMAT" envDefault:"json"`
}

// Validate reports settings env tags cannot express.
func (c Client) Validate() error {
	switch c.Store {
	case "file", "badger":
	default:
		return fmt.Errorf("%w: GATEKEEP_STORE=%q (want file or badger)", ErrInvalidValue, c.Store)
	}
	if c.APIURL == "" {
		return fmt.Errorf("%w: GATEKEEP_API_URL is empty", ErrInvalidValue)
	}
	return nil
}

// Server configures gatekeepd.
type Server struct {
	Port            int           `env:"PORT" envDefault:"3000"`
	FrontendURL     string        `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	RedisURL        string        `env:"REDIS_URL"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Addr is the listen address for Port.
func (s Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Validate reports settings env tags cannot express.
func (s Server) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%w: PORT=%d", ErrInvalidValue, s.Port)
	}
	return nil
}

// Load fills v from the environment.
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if vv, ok := any(v).(interface{ Validate() error }); ok {
		return vv.Validate()
	}
	return nil
}
