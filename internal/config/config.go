package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the console.
type Config struct {
	API      API      `mapstructure:"api"`
	Server   Server   `mapstructure:"server"`
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
}

// API holds the configuration for the remote trading journal API.
type API struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// ProfileMethod is the verb used to update /me, PUT or PATCH.
	ProfileMethod string `mapstructure:"profile_method"`
}

// Server holds the configuration for the web console.
type Server struct {
	Port int `mapstructure:"port"`
	// CookiePrefix marks cookies owned by the console. They are never
	// forwarded to the API.
	CookiePrefix  string `mapstructure:"cookie_prefix"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
	PageSize      int    `mapstructure:"page_size"`
}

// Database holds the configuration for the local draft database.
type Database struct {
	DSN      string        `mapstructure:"dsn"`
	DraftTTL time.Duration `mapstructure:"draft_ttl"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from an optional config file, a .env file
// and environment variables, in increasing order of precedence.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// API_URL is the variable the browser build used for the base URL.
	if err = v.BindEnv("api.base_url", "API_BASE_URL", "API_URL"); err != nil {
		return
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	if config.API.BaseURL == "" {
		err = errors.New("api.base_url is not set (API_URL)")
	}
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 20)      // requests per second
	v.SetDefault("api.rate_limit_burst", 5) // burst size
	v.SetDefault("api.profile_method", "PUT")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cookie_prefix", "tj_")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.page_size", 25)

	v.SetDefault("database.dsn", "file:drafts.db?cache=shared")
	v.SetDefault("database.draft_ttl", 72*time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}
