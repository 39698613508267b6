package service

import (
	"context"
	"encoding/json"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"
)

// ─────────────────────────────────────────────────────────────
// Settings Service: user preferences persisted as one JSON blob
// ─────────────────────────────────────────────────────────────
//
// The blob lives under domain.SettingsKey. A missing or unreadable blob
// yields the built-in defaults; saves are last-write-wins.

var (
	themes        = map[string]bool{"light": true, "dark": true}
	exportFormats = map[string]bool{"csv": true, "json": true, "xlsx": true}
)

// SettingsService loads and saves user preferences.
type SettingsService struct {
	kv      domain.KeyValueStore
	emitter EventEmitter
	log     *logger.Logger
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(kv domain.KeyValueStore, emitter EventEmitter, log *logger.Logger) *SettingsService {
	return &SettingsService{kv: kv, emitter: emitter, log: log.With().Str("component", "settings").Logger()}
}

// Load returns the stored settings merged over the defaults.
func (s *SettingsService) Load(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	raw, found, err := s.kv.GetValue(ctx, domain.SettingsKey)
	if err != nil {
		return settings, err
	}
	if !found {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.log.WarnWith("stored settings are unreadable, using defaults", err, nil)
		return domain.DefaultSettings(), nil
	}
	return settings, nil
}

// Save validates and persists settings.
func (s *SettingsService) Save(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := ValidateSettings(settings); err != nil {
		return settings, err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return settings, errs.Wrap(errs.ErrKindOperationFailed, "encode settings", err)
	}
	if err := s.kv.PutValue(ctx, domain.SettingsKey, string(data)); err != nil {
		return settings, err
	}
	s.emitter.Emit(ctx, EventSettingsChanged, settings)
	return settings, nil
}

// Reset removes the stored blob and returns the defaults.
func (s *SettingsService) Reset(ctx context.Context) (domain.Settings, error) {
	if err := s.kv.DeleteValue(ctx, domain.SettingsKey); err != nil {
		return domain.DefaultSettings(), err
	}
	defaults := domain.DefaultSettings()
	s.emitter.Emit(ctx, EventSettingsChanged, defaults)
	return defaults, nil
}

// Reload re-reads the blob after an out-of-band change and broadcasts it.
func (s *SettingsService) Reload(ctx context.Context, key string) {
	if key != domain.SettingsKey {
		return
	}
	settings, err := s.Load(ctx)
	if err != nil {
		s.log.WarnWith("reload settings", err, nil)
		return
	}
	s.log.Info("settings reloaded from disk")
	s.emitter.Emit(ctx, EventSettingsChanged, settings)
}

// ValidateSettings checks every field against its allowed range.
func ValidateSettings(s domain.Settings) error {
	switch {
	case s.Editor.FontSize < 8 || s.Editor.FontSize > 32:
		return errs.Validation("editor.fontSize must be between 8 and 32")
	case !themes[s.Editor.Theme]:
		return errs.Validation("editor.theme must be light or dark")
	case s.Connection.Timeout <= 0:
		return errs.Validation("connection.timeout must be positive")
	case s.Connection.MaxRetries < 0:
		return errs.Validation("connection.maxRetries must not be negative")
	case s.Results.MaxRows <= 0:
		return errs.Validation("results.maxRows must be positive")
	case s.Results.PageSize <= 0:
		return errs.Validation("results.pageSize must be positive")
	case !exportFormats[s.Results.ExportFormat]:
		return errs.Validation("results.exportFormat must be csv, json or xlsx")
	}
	return nil
}
