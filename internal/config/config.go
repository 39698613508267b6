// Package config loads DataLink settings from defaults, an optional YAML
// file, DATALINK_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"datalink/internal/errs"
	"datalink/internal/remote"
	"datalink/internal/simulate"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DATALINK_"
	// DefaultFile is looked up in the working directory when no file is given.
	DefaultFile = "datalink.yaml"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Secret backends.
const (
	SecretsMemory   = "memory"
	SecretsKeychain = "keychain"
)

// DefaultSecretsBackend is keychain on macOS, where the security CLI
// exists, and memory elsewhere.
func DefaultSecretsBackend(goos string) string {
	if goos == "darwin" {
		return SecretsKeychain
	}
	return SecretsMemory
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig selects where connections and history live. An empty Path
// means <data_dir>/datalink.db.
type StorageConfig struct {
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
	DataDir string `koanf:"data_dir"`
}

type SecretsConfig struct {
	Backend string `koanf:"backend"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SimulationConfig tunes the simulated database round-trips. Seed 0 means
// a random seed.
type SimulationConfig struct {
	simulate.Policy `koanf:",squash"`
	Seed            uint64 `koanf:"seed"`
}

// SchemaConfig holds the cron schedule for refreshing the active
// connection's schema. Empty disables it.
type SchemaConfig struct {
	RefreshSchedule string `koanf:"refresh_schedule"`
}

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Remote     remote.Config    `koanf:"remote"`
	Secrets    SecretsConfig    `koanf:"secrets"`
	Log        LogConfig        `koanf:"log"`
	Simulation SimulationConfig `koanf:"simulation"`
	Schema     SchemaConfig     `koanf:"schema"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// DatabasePath resolves the SQLite file location.
func (c *Config) DatabasePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(c.Storage.DataDir, "datalink.db")
}

// SettingsDir is where the preferences blob is written.
func (c *Config) SettingsDir() string {
	return filepath.Join(c.Storage.DataDir, "settings")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".datalink"
	}
	return filepath.Join(home, ".local", "share", "datalink")
}

func defaults() map[string]any {
	p := simulate.DefaultPolicy()
	return map[string]any{
		"server.addr":                   "127.0.0.1:8080",
		"server.read_timeout":           15 * time.Second,
		"server.write_timeout":          30 * time.Second,
		"server.shutdown_timeout":       10 * time.Second,
		"storage.backend":               BackendSQLite,
		"storage.path":                  "",
		"storage.data_dir":              defaultDataDir(),
		"remote.base_url":               "",
		"remote.project_id":             "",
		"remote.public_key":             "",
		"remote.timeout":                30 * time.Second,
		"secrets.backend":               DefaultSecretsBackend(runtime.GOOS),
		"log.level":                     "info",
		"log.format":                    "console",
		"simulation.connect_delay":      p.ConnectDelay,
		"simulation.test_delay":         p.TestDelay,
		"simulation.execute_delay_min":  p.ExecuteDelayMin,
		"simulation.execute_delay_max":  p.ExecuteDelayMax,
		"simulation.schema_delay":       p.SchemaDelay,
		"simulation.refresh_delay":      p.RefreshDelay,
		"simulation.table_delay":        p.TableDelay,
		"simulation.test_success_rate":  p.TestSuccessRate,
		"simulation.min_execution_ms":   p.MinExecutionMs,
		"simulation.max_execution_ms":   p.MaxExecutionMs,
		"simulation.max_affected_rows":  p.MaxAffectedRows,
		"simulation.measure_wall_clock": p.MeasureWallClock,
		"simulation.seed":               0,
		"schema.refresh_schedule":       "",
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"backend":    "storage.backend",
	"db":         "storage.path",
	"data-dir":   "storage.data_dir",
	"secrets":    "secrets.backend",
	"log-level":  "log.level",
	"log-format": "log.format",
	"remote-url": "remote.base_url",
	"seed":       "simulation.seed",
	"instant":    "simulation.instant",
}

// envKey turns DATALINK_SECTION_SOME_KEY into section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load reads the configuration. cfgFile may be empty, in which case
// datalink.yaml in the working directory is used when present. flags may be
// nil; only flags the user set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			cfgFile = DefaultFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	instant := false
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
		instant = k.Bool("simulation.instant")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = cfgFile
	if instant {
		cfg.Simulation.Policy = cfg.Simulation.Policy.Instant()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRemote:
		if c.Remote.BaseURL == "" {
			return errs.Validation("remote.base_url is required for the remote backend")
		}
	default:
		return errs.Validation("storage.backend must be sqlite, memory or remote, got %q", c.Storage.Backend)
	}
	switch c.Secrets.Backend {
	case SecretsMemory, SecretsKeychain:
	default:
		return errs.Validation("secrets.backend must be memory or keychain, got %q", c.Secrets.Backend)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.Validation("log.format must be json or console, got %q", c.Log.Format)
	}
	p := c.Simulation.Policy
	if p.TestSuccessRate < 0 || p.TestSuccessRate > 1 {
		return errs.Validation("simulation.test_success_rate must be within [0, 1]")
	}
	if p.ExecuteDelayMax < p.ExecuteDelayMin {
		return errs.Validation("simulation.execute_delay_max must not be below execute_delay_min")
	}
	if p.MaxExecutionMs < p.MinExecutionMs {
		return errs.Validation("simulation.max_execution_ms must not be below min_execution_ms")
	}
	if p.MaxAffectedRows < 1 {
		return errs.Validation("simulation.max_affected_rows must be at least 1")
	}
	return nil
}
