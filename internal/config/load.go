package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

var ErrConfigNotFound = errors.New("config not found")

const appDir = "whisperdeck"

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, appDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the user config file, falling back to defaults when it does not exist yet.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(configPath)
	if errors.Is(err, ErrConfigNotFound) {
		log.Info().Str("path", configPath).Msg("config: no configuration file, using defaults")
		return DefaultConfig(), nil
	}
	return cfg, err
}

func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Debug().Str("path", configPath).Msg("config: loading configuration")

	// decode on top of defaults so omitted keys keep their default values
	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}

	config.applyThreadsDefault()
	config.applyRealtimeDefaults()

	log.Debug().Msg("config: configuration loaded successfully")
	return config, nil
}

// Save writes cfg to the user config path.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configPath, cfg)
}

func SaveTo(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := configPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close config file: %w", err)
	}

	// rename so the watcher never sees a half-written file
	if err := os.Rename(tmpPath, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// applyThreadsDefault resolves threads = 0 to NumCPU-1
func (c *Config) applyThreadsDefault() {
	if c.Engine.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Engine.Threads = threads
	}
}

func (c *Config) applyRealtimeDefaults() {
	if c.Realtime.Step <= 0 {
		c.Realtime.Step = time.Second
	}
}

// ModelsDir returns the model download directory.
func (c *Config) ModelsDir() (string, error) {
	if c.Model.Dir != "" {
		return c.Model.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appDir, "models"), nil
}

// RecordingsDir returns the directory voice recordings are written to.
func (c *Config) RecordingsDir() (string, error) {
	if c.Recording.Dir != "" {
		return c.Recording.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, "recordings"), nil
}

// APIKey returns the configured key for a provider, falling back to its env var.
func (c *Config) APIKey(provider string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[provider]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}
