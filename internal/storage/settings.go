package storage

import (
	"context"
	"database/sql"
	"errors"

	"datalink/internal/domain"
	"datalink/internal/errs"
)

// SettingsStore is a key/value store over the app_settings table.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a SettingsStore.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

var _ domain.KeyValueStore = (*SettingsStore)(nil)

func (s *SettingsStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.Conn().QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.OperationFailed("get setting", err)
	}
	return value, true, nil
}

func (s *SettingsStore) PutValue(ctx context.Context, key, value string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return errs.OperationFailed("put setting", err)
}

func (s *SettingsStore) DeleteValue(ctx context.Context, key string) error {
	_, err := s.db.Conn().ExecContext(ctx, `DELETE FROM app_settings WHERE key = ?`, key)
	return errs.OperationFailed("delete setting", err)
}
