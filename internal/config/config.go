package config

import (
	"time"

	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/keyword"
	"keyword-enricher/pkg/logger"
)

type Config struct {
	API         APIConfig           `mapstructure:"api"`
	Batch       BatchConfig         `mapstructure:"batch"`
	Rate        api.RateLimitConfig `mapstructure:"rate"`
	Retry       api.RetryConfig     `mapstructure:"retry"`
	Normalize   keyword.Options     `mapstructure:"normalize"`
	Credentials CredentialsConfig   `mapstructure:"credentials"`
	Logger      logger.Config       `mapstructure:"logger"`
	Server      ServerConfig        `mapstructure:"server"`
}

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	LocationCode int           `mapstructure:"location_code"`
	LanguageCode string        `mapstructure:"language_code"`
	Mode         string        `mapstructure:"mode"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type BatchConfig struct {
	Size int `mapstructure:"size"`
}

// CredentialsConfig is the config-file fallback for the DataForSEO login.
// Environment variables take precedence.
type CredentialsConfig struct {
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	MaxUploadSize int    `mapstructure:"max_upload_size"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
