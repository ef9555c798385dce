package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // chat timestamps need zone data on minimal images

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DB"`
	JWT      JWTConfig      `envconfig:"JWT"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Chat     ChatConfig     `envconfig:"CHAT"`
	Firebase FirebaseConfig `envconfig:"FIREBASE"`
	Log      LogConfig      `envconfig:"LOG"`
	Internal InternalConfig `envconfig:"INTERNAL"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8099"`
	Env             string        `envconfig:"ENV" default:"development"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"100"`
	RateWindow      time.Duration `envconfig:"RATE_WINDOW" default:"60s"`
}

type DatabaseConfig struct {
	Driver          string        `envconfig:"DRIVER" default:"mysql"` // mysql | postgres | sqlite
	DSN             string        `envconfig:"DSN" default:"hangout:hangout@tcp(localhost:3306)/hangout?charset=utf8mb4&parseTime=True&loc=UTC"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	// Workers bounds how many storage calls run at once on behalf of live connections.
	Workers int64 `envconfig:"WORKERS" default:"16"`
}

type JWTConfig struct {
	AccessSecret string        `envconfig:"ACCESS_SECRET" default:"change-me-in-production"`
	AccessExpiry time.Duration `envconfig:"ACCESS_EXPIRY" default:"15m"`
	Issuer       string        `envconfig:"ISSUER" default:"hangout"`
}

// RedisConfig enables the cross-instance broadcast layer when URL is set.
type RedisConfig struct {
	URL           string `envconfig:"URL"`
	ChannelPrefix string `envconfig:"CHANNEL_PREFIX" default:"hangout:group:"`
}

type ChatConfig struct {
	Timezone             string        `envconfig:"TIMEZONE" default:"Asia/Bangkok"`
	SendBuffer           int           `envconfig:"SEND_BUFFER" default:"256"`
	MaxMessagesPerMinute int           `envconfig:"MAX_MESSAGES_PER_MINUTE" default:"60"`
	WriteWait            time.Duration `envconfig:"WRITE_WAIT" default:"10s"`
	PongWait             time.Duration `envconfig:"PONG_WAIT" default:"60s"`
	MaxFrameBytes        int64         `envconfig:"MAX_FRAME_BYTES" default:"65536"`
}

type FirebaseConfig struct {
	ServiceAccountPath string `envconfig:"SERVICE_ACCOUNT_PATH"`
}

type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"INFO"`
}

type InternalConfig struct {
	// PlanEventsSecret guards the plan lifecycle webhook; the route is disabled when empty.
	PlanEventsSecret string `envconfig:"PLAN_EVENTS_SECRET"`
}

var (
	ErrUnknownDriver   = errors.New("unknown database driver")
	ErrMissingSecret   = errors.New("jwt access secret is required")
	ErrInvalidWorkers  = errors.New("database workers must be positive")
	ErrInvalidTimezone = errors.New("invalid chat timezone")
)

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	if c.JWT.AccessSecret == "" {
		return ErrMissingSecret
	}
	if c.Database.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if _, err := time.LoadLocation(c.Chat.Timezone); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
	}
	return nil
}

// Location returns the zone chat timestamps are rendered in, UTC if it cannot be loaded.
func (c ChatConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
