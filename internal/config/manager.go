package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Manager owns the live configuration and swaps it when the file changes.
// Running flows keep the snapshot they started with.
type Manager struct {
	mu      sync.RWMutex
	path    string
	config  *Config
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(path)
}

func NewManagerAt(path string) (*Manager, error) {
	config, err := LoadFrom(path)
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			log.Error().Err(err).Msg("config manager: failed to load initial configuration")
			return nil, err
		}
		config = DefaultConfig()
		config.applyThreadsDefault()
	}

	if err := config.Validate(); err != nil {
		log.Warn().Err(err).Msg("config manager: validation warning")
	}

	return &Manager{path: path, config: config}, nil
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	m.watcher = watcher

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Info().Str("path", m.path).Msg("config manager: watching for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Info().Str("file", event.Name).Msg("config manager: change detected, reloading")
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	newConfig, err := LoadFrom(m.path)
	if err != nil {
		log.Error().Err(err).Msg("config manager: failed to reload config")
		return
	}

	if err := newConfig.Validate(); err != nil {
		log.Error().Err(err).Msg("config manager: invalid config after reload")
		return
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	log.Info().Msg("config manager: configuration reloaded")
}
