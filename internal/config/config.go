package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	ServiceName    = "pantry-sync"
	ServiceVersion = "0.1.0"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	GRPC        GRPCServer

	Redis    Redis    `envPrefix:"REDIS_"`
	Store    Store    `envPrefix:"STORE_"`
	Identity Identity `envPrefix:"IDENTITY_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	Otel     Otel     `envPrefix:"OTEL_"`
	Cleanup  Cleanup  `envPrefix:"CLEANUP_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type GRPCServer struct {
	Port string `env:"GRPC_PORT" envDefault:"50051"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	PoolSize int    `env:"POOL_SIZE" envDefault:"100"`
}

type Store struct {
	Backend   string `env:"BACKEND" envDefault:"memory"`
	DSN       string `env:"DSN"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"pantry"`
}

type Identity struct {
	Driver     string        `env:"DRIVER" envDefault:"sqlite"`
	DSN        string        `env:"DSN" envDefault:"pantry-identity.db"`
	SigningKey string        `env:"SIGNING_KEY"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	Denylist   string        `env:"DENYLIST" envDefault:"memory"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"pantry-events"`
}

type Otel struct {
	Endpoint   string `env:"ENDPOINT"`
	AuthHeader string `env:"AUTH_HEADER"`
}

type Cleanup struct {
	Workers         int           `env:"WORKERS" envDefault:"2"`
	QueueSize       int           `env:"QUEUE_SIZE" envDefault:"100"`
	MaxRetries      uint64        `env:"MAX_RETRIES" envDefault:"5"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL" envDefault:"500ms"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendMySQL, BackendPostgres, BackendSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("STORE_DSN is required for backend %q", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	if c.Identity.Driver != BackendSQLite && c.Identity.Driver != BackendMySQL {
		errs = append(errs, fmt.Errorf("unknown IDENTITY_DRIVER %q", c.Identity.Driver))
	}
	if c.Identity.SigningKey == "" {
		errs = append(errs, errors.New("IDENTITY_SIGNING_KEY is required"))
	}
	if c.Identity.TokenTTL <= 0 {
		errs = append(errs, errors.New("IDENTITY_TOKEN_TTL must be positive"))
	}
	if c.Identity.Denylist != BackendMemory && c.Identity.Denylist != BackendRedis {
		errs = append(errs, fmt.Errorf("unknown IDENTITY_DENYLIST %q", c.Identity.Denylist))
	}

	if c.Cleanup.Workers < 1 || c.Cleanup.QueueSize < 1 {
		errs = append(errs, errors.New("CLEANUP_WORKERS and CLEANUP_QUEUE_SIZE must be at least 1"))
	}

	return errors.Join(errs...)
}

func (c *Config) HTTPAddr() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}

func (c *Config) GRPCAddr() string {
	return ":" + c.GRPC.Port
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Store.Backend == BackendRedis || c.Identity.Denylist == BackendRedis
}
