package domain

import "context"

// SettingsKey is the key the settings blob is stored under.
const SettingsKey = "datalink-settings"

// EditorSettings configures the SQL editor.
type EditorSettings struct {
	FontSize     int    `json:"fontSize"`
	Theme        string `json:"theme"`
	AutoComplete bool   `json:"autoComplete"`
	LineNumbers  bool   `json:"lineNumbers"`
	WordWrap     bool   `json:"wordWrap"`
}

// ConnectionSettings configures connection behaviour.
type ConnectionSettings struct {
	Timeout       int  `json:"timeout"` // seconds
	MaxRetries    int  `json:"maxRetries"`
	AutoReconnect bool `json:"autoReconnect"`
}

// ResultSettings configures result grids and exports.
type ResultSettings struct {
	MaxRows      int    `json:"maxRows"`
	PageSize     int    `json:"pageSize"`
	ExportFormat string `json:"exportFormat"`
}

// Settings is the user preference record, persisted as one JSON blob.
type Settings struct {
	Editor     EditorSettings     `json:"editor"`
	Connection ConnectionSettings `json:"connection"`
	Results    ResultSettings     `json:"results"`
}

// DefaultSettings returns the built-in preferences.
func DefaultSettings() Settings {
	return Settings{
		Editor: EditorSettings{
			FontSize:     14,
			Theme:        "light",
			AutoComplete: true,
			LineNumbers:  true,
			WordWrap:     true,
		},
		Connection: ConnectionSettings{
			Timeout:       30,
			MaxRetries:    3,
			AutoReconnect: true,
		},
		Results: ResultSettings{
			MaxRows:      1000,
			PageSize:     50,
			ExportFormat: "csv",
		},
	}
}

// KeyValueStore persists opaque string values under string keys.
// GetValue reports found=false for a missing key.
type KeyValueStore interface {
	GetValue(ctx context.Context, key string) (value string, found bool, err error)
	PutValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}
