package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (PIZZA_ prefix), flags, or YAML config files.
type Config struct {
	Addr                string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL         string `usage:"PostgreSQL connection URL (PIZZA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CatalogURL          string `usage:"Base URL of the catalog service" flag:"catalog-url"`
	StoreDirectoryURL   string `usage:"Base URL of the store directory service" flag:"store-directory-url"`
	NotificationURL     string `default:"" usage:"Base URL of the notification service (empty disables notifications)" flag:"notification-url"`
	APIKeyPepper        string `usage:"HMAC pepper for API key hashing (PIZZA_API_KEY_PEPPER)" flag:"api-key-pepper"`
	CouponCacheCapacity uint   `default:"100000" usage:"Expected number of coupon definitions for the lookup cache" flag:"coupon-cache-capacity"`
	Clients             ClientConfig
	RateLimit           RateLimitConfig
	CORS                CORSConfig
	Graceful            GracefulConfig
}

// ClientConfig bounds the round-trip time of each external collaborator.
type ClientConfig struct {
	CatalogTimeout   time.Duration `default:"5s" usage:"Catalog price fetch timeout" flag:"catalog-timeout"`
	DirectoryTimeout time.Duration `default:"3s" usage:"Store directory timeout" flag:"directory-timeout"`
	NotifyTimeout    time.Duration `default:"3s" usage:"Notification dispatch timeout" flag:"notify-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PIZZA",
		Files:     []string{"config.yaml", "/etc/pizzeria/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set PIZZA_DATABASE_URL or DATABASE_URL")
	}
	if cfg.CatalogURL == "" {
		return nil, errors.New("catalog URL is required: set PIZZA_CATALOG_URL")
	}
	if cfg.StoreDirectoryURL == "" {
		return nil, errors.New("store directory URL is required: set PIZZA_STORE_DIRECTORY_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's PIZZA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
