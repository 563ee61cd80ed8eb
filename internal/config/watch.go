package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Watch reloads the config file on every write and hands the validated result
// to onChange. Invalid edits are logged and ignored.
func Watch(configPath, dataDir string, logger *zap.Logger, onChange func(*Config)) error {
	if configPath == "" {
		return fmt.Errorf("watch requires an explicit config path")
	}
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file %s: %w", configPath, err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(configPath, dataDir)
		if err != nil {
			logger.Warn("Ignoring invalid config change",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("Config reloaded", zap.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}

// WriteDefault writes the built-in configuration as YAML. Existing files are
// left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists", path)
	}

	cfg := Default()
	cfg.Storage = StorageConfig{}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
