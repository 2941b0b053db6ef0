package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvLogin    = "DATAFORSEO_LOGIN"
	EnvPassword = "DATAFORSEO_PASSWORD"
)

// ConfigurationError is returned when the run cannot start because a
// required setting is missing or malformed
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Credentials is the DataForSEO API login pair
type Credentials struct {
	Login    string
	Password string
}

// LoadDotEnv loads variables from the given .env files without overriding
// the real environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadCredentials takes the login pair from the environment, falling back
// to the credentials section of the config file
func LoadCredentials(cfg *Config) (Credentials, error) {
	creds := Credentials{
		Login:    strings.TrimSpace(os.Getenv(EnvLogin)),
		Password: strings.TrimSpace(os.Getenv(EnvPassword)),
	}
	if cfg != nil {
		if creds.Login == "" {
			creds.Login = strings.TrimSpace(cfg.Credentials.Login)
		}
		if creds.Password == "" {
			creds.Password = strings.TrimSpace(cfg.Credentials.Password)
		}
	}

	switch {
	case creds.Login == "":
		return Credentials{}, &ConfigurationError{Field: EnvLogin, Message: "not set"}
	case creds.Password == "":
		return Credentials{}, &ConfigurationError{Field: EnvPassword, Message: "not set"}
	case strings.Contains(creds.Login, ":"):
		return Credentials{}, &ConfigurationError{Field: EnvLogin, Message: "must not contain ':'"}
	}
	return creds, nil
}
