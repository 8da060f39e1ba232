package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/catalogstore/pkg/config"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"PORT" envDefault:"3001"`

	// CORS whitelist
	FEDevelopmentURL string `env:"FE_DEVELOPMENT_URL"`
	FEProductionURL  string `env:"FE_PRODUCTION_URL"`

	// Document store and images
	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	ImagesDir      string `env:"IMAGES_DIR" envDefault:"./public/productsImgs"`
	ImagesPath     string `env:"IMAGES_PATH" envDefault:"/productsImgs"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Redis
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Rate limiting
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst   int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Forwarding headers are only trusted from these proxies.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// pprof is only reachable from these networks.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.ImagesDir == "" {
		return fmt.Errorf("IMAGES_DIR is required")
	}
	if !strings.HasPrefix(c.ImagesPath, "/") {
		return fmt.Errorf("IMAGES_PATH must start with /, got %q", c.ImagesPath)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.RedisEnabled && (c.RedisPort < 1 || c.RedisPort > 65535) {
		return fmt.Errorf("invalid redis port: %d", c.RedisPort)
	}
	if c.RateLimitEnabled {
		if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
			return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
		}
		if c.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
		}
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if err := checkCIDRs("PPROF_ALLOWED_CIDRS", c.PprofAllowedCIDRs); err != nil {
		return err
	}
	return checkCIDRs("TRUSTED_PROXY_CIDRS", c.TrustedProxyCIDRs)
}

func checkCIDRs(name string, cidrs []string) error {
	for _, cidr := range cidrs {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("invalid %s entry %q: %w", name, cidr, err)
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AllowedOrigins returns the configured front-end origins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range []string{c.FEDevelopmentURL, c.FEProductionURL} {
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ImagesBaseURL is the public URL prefix of stored images.
func (c *Config) ImagesBaseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + c.ImagesPath
}

// RateLimitPerWindow converts the token rate into a fixed-window budget for
// the redis limiter.
func (c *Config) RateLimitPerWindow() int {
	n := int(c.RateLimitRPS * c.RateLimitWindow.Seconds())
	if n < c.RateLimitBurst {
		n = c.RateLimitBurst
	}
	return n
}
