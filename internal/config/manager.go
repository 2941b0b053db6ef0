package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"keyword-enricher/pkg/api"
)

const envPrefix = "KWENRICH"

type manager struct {
	mu         sync.RWMutex
	config     *Config
	viper      *viper.Viper
	configPath string
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

// Load reads configPath (optional, may be empty), applies KWENRICH_* overrides
// on top of the defaults and validates the result
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configPath = configPath
	m.setupViper()

	return m.read()
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	_, err := m.read()
	return err
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) read() (*Config, error) {
	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m.config = &config
	return &config, nil
}

func (m *manager) setupViper() {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	}

	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	setDefaults(m.viper)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.dataforseo.com")
	v.SetDefault("api.location_code", 2840)
	v.SetDefault("api.language_code", "en")
	v.SetDefault("api.mode", string(api.ModeAds))
	v.SetDefault("api.timeout", 60*time.Second)

	v.SetDefault("batch.size", 100)

	v.SetDefault("rate.min_delay", time.Second)
	v.SetDefault("rate.requests_per_minute", 60)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", time.Second)
	v.SetDefault("retry.max_backoff", 30*time.Second)
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("normalize.min_length", 2)
	v.SetDefault("normalize.max_length", 80)
	v.SetDefault("normalize.max_words", 10)

	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("credentials.login", "")
	v.SetDefault("credentials.password", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.time_format", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_size", 32<<20)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("api.base_url cannot be empty"))
	}
	if c.API.LocationCode <= 0 {
		errs = append(errs, fmt.Errorf("api.location_code must be positive, got: %d", c.API.LocationCode))
	}
	if _, err := api.ParseMode(c.API.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive"))
	}
	if c.Batch.Size <= 0 {
		errs = append(errs, fmt.Errorf("batch.size must be positive, got: %d", c.Batch.Size))
	}
	if c.Rate.MinDelay < 0 {
		errs = append(errs, fmt.Errorf("rate.min_delay cannot be negative"))
	}
	if c.Rate.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate.requests_per_minute cannot be negative"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be positive, got: %d", c.Retry.MaxAttempts))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("retry.multiplier must be at least 1, got: %g", c.Retry.Multiplier))
	}
	if c.Normalize.MinLength < 1 || c.Normalize.MaxLength < c.Normalize.MinLength {
		errs = append(errs, fmt.Errorf("normalize length bounds invalid: min %d, max %d", c.Normalize.MinLength, c.Normalize.MaxLength))
	}
	if c.Normalize.MaxWords <= 0 {
		errs = append(errs, fmt.Errorf("normalize.max_words must be positive, got: %d", c.Normalize.MaxWords))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
