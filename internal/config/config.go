// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/ilyakaznacheev/cleanenv"
)

// Supported feed kinds.
const (
	FeedBooru = "booru"
	FeedRSS   = "rss"
)

// Config holds the application configuration.
type Config struct {
	TokenPath  string `env:"TOKEN_PATH" env-default:"token.txt" validate:"required"`
	APIKeyPath string `env:"API_KEY_PATH" env-default:"derpi_api_key.txt"`
	OffsetPath string `env:"OFFSET_PATH" env-default:"update_offset.txt" validate:"required"`
	ChatsPath  string `env:"CHATS_PATH" env-default:"chats.json" validate:"required"`
	ImagesPath string `env:"IMAGES_PATH" env-default:"images.json" validate:"required"`

	Feed     FeedConfig
	Telegram TelegramConfig

	LogLevel    string `env:"LOG_LEVEL" env-default:"info" validate:"in:debug,info,warn,error"`
	LogFormat   string `env:"LOG_FORMAT" env-default:"text" validate:"in:text,json"`
	LogFile     string `env:"LOG_FILE"`
	SentryDSN   string `env:"SENTRY_DSN"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// FeedConfig configures the favourites feed and its polling.
type FeedConfig struct {
	Kind       string        `env:"FEED_KIND" env-default:"booru" validate:"in:booru,rss"`
	BaseURL    string        `env:"FEED_BASE_URL" env-default:"https://derpibooru.org" validate:"required|fullUrl"`
	SearchPath string        `env:"FEED_SEARCH_PATH" env-default:"/api/v1/json/search/images"`
	Query      string        `env:"FEED_QUERY" env-default:"my:faves"`
	RSSURL     string        `env:"FEED_RSS_URL"`
	Interval   time.Duration `env:"FEED_INTERVAL" env-default:"10s"`
	MaxBackoff time.Duration `env:"BOOTSTRAP_MAX_BACKOFF" env-default:"600s"`
}

// TelegramConfig configures the command poller and outbound messages.
type TelegramConfig struct {
	UpdateInterval time.Duration `env:"UPDATE_INTERVAL" env-default:"100ms"`
	UpdateTimeout  int           `env:"UPDATE_TIMEOUT" env-default:"0" validate:"min:0"`
	SendRate       float64       `env:"SEND_RATE" env-default:"20"`
}

// Credentials holds secrets read from files at startup.
type Credentials struct {
	TelegramToken string
	FeedAPIKey    string
}

// Load reads configuration from environment variables, and from the YAML
// file named by CONFIG_PATH when it is set.
func Load() (*Config, error) {
	var cfg Config
	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		help, _ := cleanenv.GetDescription(&cfg, nil)
		return nil, fmt.Errorf("read config: %w\n%s", err, help)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}

	if c.Feed.Kind == FeedRSS && c.Feed.RSSURL == "" {
		return errors.New("invalid config: FEED_RSS_URL is required when FEED_KIND=rss")
	}
	if c.Feed.Interval <= 0 {
		return errors.New("invalid config: FEED_INTERVAL must be positive")
	}
	if c.Feed.MaxBackoff < time.Second {
		return errors.New("invalid config: BOOTSTRAP_MAX_BACKOFF must be at least 1s")
	}
	if c.Telegram.UpdateInterval <= 0 {
		return errors.New("invalid config: UPDATE_INTERVAL must be positive")
	}
	if c.Telegram.SendRate <= 0 {
		return errors.New("invalid config: SEND_RATE must be positive")
	}
	return nil
}

// LoadCredentials reads the Telegram token and, for booru feeds, the feed
// API key. A missing or empty token file is an error.
func (c *Config) LoadCredentials() (*Credentials, error) {
	token, err := readSecret(c.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("telegram token: %w", err)
	}

	creds := &Credentials{TelegramToken: token}
	if c.Feed.Kind == FeedBooru {
		key, err := readSecret(c.APIKeyPath)
		if err != nil {
			return nil, fmt.Errorf("feed api key: %w", err)
		}
		creds.FeedAPIKey = key
	}
	return creds, nil
}

func readSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return s, nil
}
