package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalink/internal/api"
	"datalink/internal/domain"
	"datalink/internal/logger"
	"datalink/internal/secret"
	"datalink/internal/service"
	"datalink/internal/simulate"
	"datalink/internal/storage"
)

type fixture struct {
	srv   *httptest.Server
	conns *storage.MemoryConnectionStore
}

func newFixture(t *testing.T, seed ...domain.Connection) *fixture {
	t.Helper()
	conns := storage.NewMemoryConnectionStore(seed...)
	queries := storage.NewMemoryQueryLogStore()
	sim := simulate.New(simulate.DefaultPolicy().Instant(), simulate.WithSeed(3))
	emitter := service.NopEmitter{}
	log := logger.Nop()

	schema, err := service.NewSchemaService(conns, sim, emitter, log)
	require.NoError(t, err)
	settings := service.NewSettingsService(storage.NewMemoryKV(), emitter, log)
	connSvc := service.NewConnectionService(conns, secret.NewMemoryStore(), sim, emitter, log)
	connSvc.UseSchemaCache(schema)
	server := api.NewServer(api.Config{}, api.Deps{
		Connections: connSvc,
		Queries:     service.NewQueryService(conns, queries, sim, emitter, log),
		Schema:      schema,
		Settings:    settings,
		Dashboard:   service.NewDashboardService(conns, queries),
		Export:      service.NewExportService(queries, settings, log),
		Log:         log,
		Version:     "test",
	})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, conns: conns}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestConnectionsLifecycle(t *testing.T) {
	f := newFixture(t)

	var created domain.Connection
	status := f.do(t, http.MethodPost, "/api/connections", map[string]any{
		"name": "local", "type": "mysql", "host": "localhost", "database": "shop", "username": "root", "password": "pw",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, created.Port)
	assert.Equal(t, 3306, *created.Port)
	assert.True(t, created.HasPassword)

	var list []domain.Connection
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/connections", nil, &list))
	assert.Len(t, list, 1)

	var renamed domain.Connection
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, "/api/connections/"+created.ID,
		map[string]any{"name": "renamed"}, &renamed))
	assert.Equal(t, "renamed", renamed.Name)

	var active domain.Connection
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/connections/"+created.ID+"/activate", nil, &active))
	assert.True(t, active.IsActive)
	assert.NotNil(t, active.LastConnectedAt)

	var dsn map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/connections/"+created.ID+"/dsn", nil, &dsn))
	assert.Contains(t, dsn["dsn"], "xxxxx")
	assert.NotContains(t, dsn["dsn"], "pw@")

	var inactive domain.Connection
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/connections/"+created.ID+"/deactivate", nil, &inactive))
	assert.False(t, inactive.IsActive)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/connections/"+created.ID, nil, nil))

	var apiErr apiError
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/connections/"+created.ID, nil, &apiErr))
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestCreateConnection_Validation(t *testing.T) {
	f := newFixture(t)
	var apiErr apiError
	status := f.do(t, http.MethodPost, "/api/connections", map[string]any{"name": "", "type": "postgresql"}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", apiErr.Code)

	status = f.do(t, http.MethodPost, "/api/connections", map[string]any{"bogus": true}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestActivateUnknown(t *testing.T) {
	f := newFixture(t, domain.Connection{ID: "1", Name: "a", Kind: domain.KindSQLite, Database: "a.db", IsActive: true})
	var apiErr apiError
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/connections/nope/activate", nil, &apiErr))

	c, err := f.conns.GetConnection(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, c.IsActive)
}

func TestExecuteQuery(t *testing.T) {
	f := newFixture(t)
	var apiErr apiError

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/queries/execute", map[string]string{"sql": "  "}, &apiErr))
	assert.Equal(t, "empty_query", apiErr.Code)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/queries/execute", map[string]string{"sql": "select 1"}, &apiErr))
	assert.Equal(t, "no_active_connection", apiErr.Code)

	require.NoError(t, f.conns.CreateConnection(context.Background(), &domain.Connection{Name: "lite", Kind: domain.KindSQLite, Database: "x.db"}))
	conns, _ := f.conns.ListConnections(context.Background())
	var activated domain.Connection
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/connections/"+conns[0].ID+"/activate", nil, &activated))

	var rec domain.QueryRecord
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/queries/execute", map[string]string{"sql": "SELECT * FROM users"}, &rec))
	assert.Equal(t, 5, rec.RowCount)
	assert.Len(t, rec.Rows, 5)
	assert.Equal(t, conns[0].ID, rec.ConnectionID)

	resp, err := http.Get(f.srv.URL + "/api/queries/" + rec.ID + "/export?format=csv&columns=id,name")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "query-"+rec.ID+".csv")
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Equal(t, "id,name", lines[0])
	assert.Len(t, lines, 6)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/queries/"+rec.ID+"/export?format=xlsx", nil, &apiErr))
	assert.Equal(t, "validation", apiErr.Code)

	var history []domain.QueryRecord
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/queries?limit=10&connectionId="+conns[0].ID, nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/queries?limit=x", nil, &apiErr))

	var updated domain.QueryRecord
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, "/api/queries/"+rec.ID+"/metrics",
		map[string]int{"executionTime": 12, "rowCount": 2}, &updated))
	assert.Equal(t, 12, updated.ExecutionTimeMs)

	var stats service.DashboardStats
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/dashboard", nil, &stats))
	assert.Equal(t, 1, stats.RecentQueries)
	assert.Equal(t, 1, stats.ActiveConnections)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/queries/"+rec.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/queries/"+rec.ID, nil, &apiErr))
}

func TestFormat(t *testing.T) {
	f := newFixture(t)
	var out map[string]string
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/format", map[string]string{"sql": "select a from t where b"}, &out))
	assert.Equal(t, "SELECT a\nFROM t\nWHERE b", out["sql"])
}

func TestSchemaRoutes(t *testing.T) {
	f := newFixture(t, domain.Connection{ID: "pg", Name: "pg", Kind: domain.KindPostgreSQL, Host: "h", Database: "d"})

	var snap domain.SchemaSnapshot
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/schema/pg", nil, &snap))
	assert.Equal(t, "pg", snap.ConnectionID)
	assert.Len(t, snap.Tables, 4)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/schema/pg/refresh", nil, &snap))

	var table domain.Table
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/schema/pg/tables/users", nil, &table))
	assert.Equal(t, "users", table.Name)

	var apiErr apiError
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/schema/pg/tables/ghosts", nil, &apiErr))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/schema/missing", nil, &apiErr))

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/connections/pg", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/schema/pg", nil, &apiErr))
}

func TestSettingsRoutes(t *testing.T) {
	f := newFixture(t)

	var got domain.Settings
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/settings", nil, &got))
	assert.Equal(t, domain.DefaultSettings(), got)

	want := domain.DefaultSettings()
	want.Editor.FontSize = 20
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/settings", want, &got))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/settings", nil, &got))
	assert.Equal(t, 20, got.Editor.FontSize)

	bad := domain.DefaultSettings()
	bad.Editor.FontSize = 100
	var apiErr apiError
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/settings", bad, &apiErr))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/settings", nil, &got))
	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestServeListener_Shutdown(t *testing.T) {
	server := api.NewServer(api.Config{ShutdownTimeout: time.Second}, api.Deps{Version: "x"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
