package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
)

// EnvConfigPath names the environment variable holding the path of the
// configuration file.
const EnvConfigPath = "FS_CONFIG_PATH"

// Load resolves the configuration file path from the environment and parses
// it. All failures are *errors.ConfigurationError.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return nil, &errspkg.ConfigurationError{
			Err: fmt.Errorf("environment variable %s is not set", EnvConfigPath),
		}
	}
	return LoadFile(path)
}

// LoadFile parses and validates the YAML configuration at path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, &errspkg.ConfigurationError{Source: path, Err: err}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, &errspkg.ConfigurationError{Source: path, Err: err}
	}

	conf.ApplyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, &errspkg.ConfigurationError{Source: path, Err: err}
	}

	return conf, nil
}
