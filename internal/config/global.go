// Package config loads the global flotilla configuration and the service
// catalog. Global settings live in TOML under the XDG config directory; the
// catalog of managed services is a YAML file referenced from there.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"flotilla/internal/constants"
	"flotilla/internal/errors"
	"flotilla/internal/xdg"
)

// GlobalConfig represents the global flotilla configuration
type GlobalConfig struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Catalog CatalogConfig `toml:"catalog"`
	Monitor MonitorConfig `toml:"monitor"`
}

type ServerConfig struct {
	Port int `toml:"port"` // API server port (default 8090)
}

type StorageConfig struct {
	DatabasePath string `toml:"database_path"` // SQLite event journal location
}

type CatalogConfig struct {
	Path string `toml:"path"` // Location of services.yaml
}

type MonitorConfig struct {
	CheckInterval       time.Duration `toml:"check_interval"`
	AutoRestart         *bool         `toml:"auto_restart"`
	MaxRestartAttempts  int           `toml:"max_restart_attempts"`
	InitialRestartDelay time.Duration `toml:"initial_restart_delay"`
	BackoffMultiplier   float64       `toml:"backoff_multiplier"`
}

// AutoRestartEnabled resolves the tri-state auto_restart flag, defaulting on
func (m MonitorConfig) AutoRestartEnabled() bool {
	if m.AutoRestart == nil {
		return true
	}
	return *m.AutoRestart
}

// DefaultGlobalConfig returns the default global configuration
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Server: ServerConfig{
			Port: constants.DefaultServerPort,
		},
		Monitor: MonitorConfig{
			CheckInterval:       constants.DefaultCheckInterval,
			MaxRestartAttempts:  constants.DefaultMaxRestartAttempts,
			InitialRestartDelay: constants.DefaultInitialRestartDelay,
			BackoffMultiplier:   constants.DefaultBackoffMultiplier,
		},
	}
}

// LoadGlobalConfig loads config.toml from the XDG config directory. A missing
// file yields defaults; a malformed file is an error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configDir, err := xdg.ConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadGlobalConfigFrom(filepath.Join(configDir, "config.toml"))
}

// LoadGlobalConfigFrom loads a global config from an explicit path
func LoadGlobalConfigFrom(path string) (*GlobalConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultGlobalConfig()
		if err := applyDerivedDefaults(config); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigNotFound(path)
	}

	var config GlobalConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.ConfigParseError(err)
	}

	defaults := DefaultGlobalConfig()
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Monitor.CheckInterval == 0 {
		config.Monitor.CheckInterval = defaults.Monitor.CheckInterval
	}
	if config.Monitor.MaxRestartAttempts == 0 {
		config.Monitor.MaxRestartAttempts = defaults.Monitor.MaxRestartAttempts
	}
	if config.Monitor.InitialRestartDelay == 0 {
		config.Monitor.InitialRestartDelay = defaults.Monitor.InitialRestartDelay
	}
	if config.Monitor.BackoffMultiplier == 0 {
		config.Monitor.BackoffMultiplier = defaults.Monitor.BackoffMultiplier
	}
	if err := applyDerivedDefaults(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDerivedDefaults fills the path settings that depend on XDG directories
func applyDerivedDefaults(config *GlobalConfig) error {
	if config.Catalog.Path == "" {
		configDir, err := xdg.ConfigDir()
		if err != nil {
			return err
		}
		config.Catalog.Path = filepath.Join(configDir, "services.yaml")
	}
	if config.Storage.DatabasePath == "" {
		dataDir, err := xdg.DataDir()
		if err != nil {
			return err
		}
		config.Storage.DatabasePath = filepath.Join(dataDir, "flotilla.db")
	}
	return nil
}
