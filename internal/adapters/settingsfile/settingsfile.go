// Package settingsfile persists the operator-editable BotSettings
// snapshot as a YAML file, implementing ports.SettingsRepository.
package settingsfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
)

// Store reads and writes the settings snapshot at a fixed path.
type Store struct {
	path   string
	logger ports.Logger
}

// New creates a settings store. The file is created with defaults on
// first load if it does not exist.
func New(path string, logger ports.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for settings store")
	}
	if path == "" {
		path = "./data/settings.yaml"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory '%s': %w", filepath.Dir(path), err)
	}
	return &Store{path: path, logger: logger}, nil
}

// Load returns the persisted settings. A missing file seeds defaults;
// an unparseable file is treated as absence of data, resetting to
// defaults with a warning.
func (s *Store) Load(ctx context.Context) (*domain.BotSettings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			defaults := domain.DefaultSettings()
			if err := s.Save(ctx, defaults); err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "Settings file created with defaults", map[string]interface{}{"path": s.path})
			return defaults, nil
		}
		return nil, fmt.Errorf("read settings file '%s': %w", s.path, err)
	}

	settings := domain.DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		s.logger.Warn(ctx, "Settings file unparseable, resetting to defaults", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		defaults := domain.DefaultSettings()
		if err := s.Save(ctx, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	return settings, nil
}

// Save writes the snapshot atomically (temp file plus rename).
func (s *Store) Save(ctx context.Context, settings *domain.BotSettings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write settings temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
