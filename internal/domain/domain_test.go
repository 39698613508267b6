package domain_test

import (
	"testing"
	"time"

	"datalink/internal/domain"
)

func TestDefaultPort(t *testing.T) {
	if p := domain.DefaultPort(domain.KindPostgreSQL); p == nil || *p != 5432 {
		t.Errorf("postgresql port = %v, want 5432", p)
	}
	if p := domain.DefaultPort(domain.KindMySQL); p == nil || *p != 3306 {
		t.Errorf("mysql port = %v, want 3306", p)
	}
	if p := domain.DefaultPort(domain.KindSQLite); p != nil {
		t.Errorf("sqlite port = %d, want nil", *p)
	}
}

func TestConnectionCloneIsDeep(t *testing.T) {
	now := time.Now()
	orig := &domain.Connection{ID: "1", Port: domain.DefaultPort(domain.KindMySQL), LastConnectedAt: &now}
	cp := orig.Clone()
	*cp.Port = 1
	*cp.LastConnectedAt = time.Time{}

	if *orig.Port != 3306 {
		t.Errorf("clone shares port pointer")
	}
	if orig.LastConnectedAt.IsZero() {
		t.Errorf("clone shares lastConnectedAt pointer")
	}
}

func TestQueryRecordCloneIsDeep(t *testing.T) {
	orig := &domain.QueryRecord{Columns: []string{"id"}, Rows: []domain.Row{{"id": 1}}}
	cp := orig.Clone()
	cp.Columns[0] = "x"
	cp.Rows[0]["id"] = 2

	if orig.Columns[0] != "id" || orig.Rows[0]["id"] != 1 {
		t.Errorf("clone shares result payload: %+v", orig)
	}
}

func TestSchemaSnapshotCloneIsDeep(t *testing.T) {
	n := 3
	orig := &domain.SchemaSnapshot{Tables: []domain.Table{{Name: "users", RowCount: &n, Columns: []domain.Column{{Name: "id"}}}}}
	cp := orig.Clone()
	cp.Tables[0].Columns[0].Name = "x"
	*cp.Tables[0].RowCount = 0

	if orig.Tables[0].Columns[0].Name != "id" || *orig.Tables[0].RowCount != 3 {
		t.Errorf("clone shares table data")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := domain.DefaultSettings()
	if s.Editor.FontSize != 14 || s.Editor.Theme != "light" {
		t.Errorf("editor defaults = %+v", s.Editor)
	}
	if s.Connection.Timeout != 30 || s.Connection.MaxRetries != 3 || !s.Connection.AutoReconnect {
		t.Errorf("connection defaults = %+v", s.Connection)
	}
	if s.Results.MaxRows != 1000 || s.Results.PageSize != 50 || s.Results.ExportFormat != "csv" {
		t.Errorf("results defaults = %+v", s.Results)
	}
}
