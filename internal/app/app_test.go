package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalink/internal/config"
	"datalink/internal/domain"
	"datalink/internal/logger"
	"datalink/internal/remote"
	"datalink/internal/service"
	"datalink/internal/simulate"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		Server:  config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Storage: config.StorageConfig{Backend: backend, DataDir: t.TempDir()},
		Remote:  remote.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Secrets: config.SecretsConfig{Backend: config.SecretsMemory},
		Simulation: config.SimulationConfig{
			Policy: simulate.DefaultPolicy().Instant(),
			Seed:   42,
		},
	}
}

func TestNew_Memory(t *testing.T) {
	a, err := New(testConfig(t, config.BackendMemory), logger.Nop(), "test")
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	conn, err := a.Connections.Create(ctx, service.ConnectionInput{
		Name: "lite", Kind: domain.KindSQLite, Database: "app.db",
	})
	require.NoError(t, err)
	_, err = a.Connections.Activate(ctx, conn.ID)
	require.NoError(t, err)

	rec, err := a.Queries.Execute(ctx, service.ExecuteInput{SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, conn.ID, rec.ConnectionID)
	assert.Nil(t, a.settingsFile)
}

func TestNew_SQLitePersists(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	ctx := context.Background()

	a, err := New(cfg, nil, "test")
	require.NoError(t, err)
	_, err = a.Connections.Create(ctx, service.ConnectionInput{Name: "lite", Kind: domain.KindSQLite, Database: "x.db"})
	require.NoError(t, err)
	settings := domain.DefaultSettings()
	settings.Editor.Theme = "light"
	_, err = a.Settings.Save(ctx, settings)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.FileExists(t, cfg.DatabasePath())

	b, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer b.Close()
	list, err := b.Connections.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "lite", list[0].Name)
	got, err := b.Settings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "light", got.Editor.Theme)
}

func TestNew_RemoteUsesSettingsFile(t *testing.T) {
	cfg := testConfig(t, config.BackendRemote)
	a, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.settingsFile)

	_, err = a.Settings.Save(context.Background(), domain.DefaultSettings())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.SettingsDir(), domain.SettingsKey+".json"))
	assert.NoError(t, err)
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig(t, "mongo")
	_, err := New(cfg, nil, "test")
	assert.Error(t, err)

	cfg = testConfig(t, config.BackendMemory)
	cfg.Secrets.Backend = "vault"
	_, err = New(cfg, nil, "test")
	assert.Error(t, err)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t, config.BackendRemote)
	cfg.Schema.RefreshSchedule = "@every 1h"
	a, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServe_BadSchedule(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Schema.RefreshSchedule = "every now and then"
	a, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer a.Close()

	assert.Error(t, a.Serve(context.Background()))
}

func TestOpenSecrets_DefaultKeepsPasswords(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("default is the macOS keychain")
	}
	cfg := testConfig(t, config.BackendMemory)
	cfg.Secrets.Backend = ""
	a, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer a.Close()

	c, err := a.Connections.Create(context.Background(), service.ConnectionInput{
		Name: "pg", Kind: domain.KindPostgreSQL, Host: "localhost", Database: "app",
		Username: "postgres", Port: domain.DefaultPort(domain.KindPostgreSQL), Password: "s3cret",
	})
	require.NoError(t, err)
	assert.True(t, c.HasPassword)
}
