// Package config loads the application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `yaml:"server"`
	Site   SiteConfig   `yaml:"site"`
	DB     DBConfig     `yaml:"database"`
	Mail   MailConfig   `yaml:"mail"`
	Redis  RedisConfig  `yaml:"redis"`
	ISS    ISSConfig    `yaml:"iss"`
	News   NewsConfig   `yaml:"news"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// SiteConfig holds the public-facing site settings used to build the
// verification and unsubscribe links mailed to subscribers.
type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
	// DevMode makes subscribe responses include the verification link so
	// the flow can be exercised without a working mail gateway.
	DevMode bool `yaml:"dev_mode"`
	// AllowedOrigins are the SPA origins permitted by CORS.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	URL string `yaml:"url"`
}

// MailConfig holds outbound transactional mail settings
type MailConfig struct {
	FromEmail      string    `yaml:"from_email"`
	FromName       string    `yaml:"from_name"`
	TimeoutSeconds int       `yaml:"timeout_seconds"`
	SES            SESConfig `yaml:"ses"`
}

// Timeout returns the configured delivery timeout as a duration
func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Enabled   bool   `yaml:"enabled"`
}

// RedisConfig holds Redis connection settings for the news cache
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

// ISSConfig holds settings for the ISS position proxy
type ISSConfig struct {
	PrimaryURL     string `yaml:"primary_url"`
	BackupURL      string `yaml:"backup_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the upstream fetch timeout as a duration
func (c ISSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NewsConfig holds settings for the astronomy news feed
type NewsConfig struct {
	FeedURLs        []string `yaml:"feed_urls"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	MaxItems        int      `yaml:"max_items"`
}

// CacheTTL returns the cache lifetime as a duration
func (c NewsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout returns the feed fetch timeout as a duration
func (c NewsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = "http://localhost:8081"
	}
	if len(cfg.Site.AllowedOrigins) == 0 {
		cfg.Site.AllowedOrigins = []string{"https://cosmoexplorer.space", "http://localhost:8081", "http://localhost:5173"}
	}
	if cfg.Mail.TimeoutSeconds == 0 {
		cfg.Mail.TimeoutSeconds = 10
	}
	if cfg.Mail.SES.Region == "" {
		cfg.Mail.SES.Region = "us-east-1"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.ISS.PrimaryURL == "" {
		cfg.ISS.PrimaryURL = "https://api.wheretheiss.at/v1/satellites/25544"
	}
	if cfg.ISS.TimeoutSeconds == 0 {
		cfg.ISS.TimeoutSeconds = 5
	}
	if len(cfg.News.FeedURLs) == 0 {
		cfg.News.FeedURLs = []string{
			"https://www.nasa.gov/rss/dyn/breaking_news.rss",
			"https://spaceflightnow.com/feed/",
		}
	}
	if cfg.News.CacheTTLSeconds == 0 {
		cfg.News.CacheTTLSeconds = 600
	}
	if cfg.News.TimeoutSeconds == 0 {
		cfg.News.TimeoutSeconds = 10
	}
	if cfg.News.MaxItems == 0 {
		cfg.News.MaxItems = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DB.URL = dbURL
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		cfg.Site.BaseURL = baseURL
	}
	if os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development" {
		cfg.Site.DevMode = true
	}
	if from := os.Getenv("MAIL_FROM_EMAIL"); from != "" {
		cfg.Mail.FromEmail = from
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Mail.SES.AccessKey = accessKey
		cfg.Mail.SES.Enabled = true
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Mail.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Mail.SES.Region = region
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}

	return cfg, nil
}
