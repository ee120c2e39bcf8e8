package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	StoreBackend   string
	RedisURL       string
	PebblePath     string
	NATSURL        string
	JWTSecret      string
	FounderUserID  string
	ObserverUserID string
	SendRateLimit  int
	SendRateWindow time.Duration
	MessagePageMax int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PARLEY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Parley API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("store.backend", "redis")
	v.SetDefault("pebble.path", "data/parley")
	v.SetDefault("send.rate_limit", 20)
	v.SetDefault("send.rate_window", "10s")
	v.SetDefault("message.page_max", 100)

	windowString := v.GetString("send.rate_window")
	if windowString == "" {
		windowString = "10s"
	}

	window, err := time.ParseDuration(windowString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid send rate window: %w", err)
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		StoreBackend:   strings.ToLower(v.GetString("store.backend")),
		RedisURL:       v.GetString("redis.url"),
		PebblePath:     v.GetString("pebble.path"),
		NATSURL:        v.GetString("nats.url"),
		JWTSecret:      v.GetString("jwt.secret"),
		FounderUserID:  v.GetString("founder.user_id"),
		ObserverUserID: v.GetString("observer.user_id"),
		SendRateLimit:  v.GetInt("send.rate_limit"),
		SendRateWindow: window,
		MessagePageMax: v.GetInt("message.page_max"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StoreBackend {
	case "redis":
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis url must be provided for the redis backend")
		}
	case "pebble":
		if cfg.PebblePath == "" {
			return Config{}, fmt.Errorf("pebble path must be provided for the pebble backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.SendRateLimit <= 0 {
		cfg.SendRateLimit = 20
	}

	if cfg.MessagePageMax <= 0 {
		cfg.MessagePageMax = 100
	}

	return cfg, nil
}
