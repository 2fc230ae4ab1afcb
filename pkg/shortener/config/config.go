package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	App      AppConfig      `mapstructure:"app"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AppConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ShortCodeLength   int           `mapstructure:"short_code_length"`
	MaxAllocAttempts  int           `mapstructure:"max_alloc_attempts"`
	CreateRetries     int           `mapstructure:"create_retries"`
	GuestDailyLimit   int64         `mapstructure:"guest_daily_limit"`
	GuestQuotaWindow  time.Duration `mapstructure:"guest_quota_window"`
	BlockSweepEvery   time.Duration `mapstructure:"block_sweep_every"`
	Environment       string        `mapstructure:"environment"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("database.path", "shortener.db")

	viper.SetDefault("app.base_url", "http://localhost:8080")
	viper.SetDefault("app.short_code_length", 7)
	viper.SetDefault("app.max_alloc_attempts", 20)
	viper.SetDefault("app.create_retries", 5)
	viper.SetDefault("app.guest_daily_limit", 10)
	viper.SetDefault("app.guest_quota_window", 24*time.Hour)
	viper.SetDefault("app.block_sweep_every", 10*time.Minute)
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("auth.jwt_secret", "shortener-dev-secret-change-in-production")
	viper.SetDefault("auth.token_duration", 24*time.Hour)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", 300)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SHORTENER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.App.Environment) == "production"
}
