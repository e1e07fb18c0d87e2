package main

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	auth "github.com/goliatone/go-phone-auth"
)

const (
	driverNone  = "none"
	driverNATS  = "nats"
	driverRedis = "redis"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0" json:"host"`
	Port                int           `env:"PORT,default=8000" json:"port"`
	Debug               bool          `env:"DEBUG,default=true" json:"debug"`
	DatabaseDSN         string        `env:"DATABASE_DSN,default=file:phoneauth.db?cache=shared" json:"-"`
	JWTSecretKey        string        `env:"JWT_SECRET_KEY" json:"-"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL,default=30m" json:"access_token_ttl"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL,default=168h" json:"refresh_token_ttl"`
	SessionTTL          time.Duration `env:"AUTH_SESSION_TTL,default=300s" json:"auth_session_ttl"`
	DefaultRegion       string        `env:"PHONE_DEFAULT_REGION,default=RU" json:"phone_default_region"`
	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN" json:"-"`
	TelegramBotUsername string        `env:"TELEGRAM_BOT_USERNAME" json:"telegram_bot_username"`
	BroadcastDriver     string        `env:"BROADCAST_DRIVER,default=none" json:"broadcast_driver"`
	NATSURL             string        `env:"NATS_URL,default=nats://127.0.0.1:4222" json:"nats_url"`
	RedisAddr           string        `env:"REDIS_ADDR,default=localhost:6379" json:"redis_addr"`
	RedisPassword       string        `env:"REDIS_PASSWORD" json:"-"`
	RedisDB             int           `env:"REDIS_DB,default=0" json:"redis_db"`
}

var _ auth.Config = Config{}

// LoadConfig reads .env when present, then the process environment
func LoadConfig(ctx context.Context) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the HTTP service can not start without
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.JWTSecretKey, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.AccessTokenTTL, validation.Required),
		validation.Field(&c.RefreshTokenTTL, validation.Required),
		validation.Field(&c.SessionTTL, validation.Required),
		validation.Field(&c.BroadcastDriver, validation.In(driverNone, driverNATS, driverRedis)),
	)
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) GetSigningKey() string {
	return c.JWTSecretKey
}

func (c Config) GetAccessTokenTTL() time.Duration {
	return c.AccessTokenTTL
}

func (c Config) GetRefreshTokenTTL() time.Duration {
	return c.RefreshTokenTTL
}

func (c Config) GetSessionTTL() time.Duration {
	return c.SessionTTL
}

func (c Config) GetDefaultRegion() string {
	return c.DefaultRegion
}
