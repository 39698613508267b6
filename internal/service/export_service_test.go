package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"
	"datalink/internal/service"
	"datalink/internal/storage"
)

func newExportEnv(t *testing.T) (*service.ExportService, *service.SettingsService) {
	t.Helper()
	queries := storage.NewMemoryQueryLogStore(domain.QueryRecord{
		ID:      "q1",
		SQL:     "SELECT id FROM t",
		Columns: []string{"id"},
		Rows:    []domain.Row{{"id": 1}, {"id": 2}, {"id": 3}},
	})
	settings := service.NewSettingsService(storage.NewMemoryKV(), service.NopEmitter{}, logger.Nop())
	return service.NewExportService(queries, settings, logger.Nop()), settings
}

func TestExport_UsesSettings(t *testing.T) {
	svc, settings := newExportEnv(t)
	ctx := context.Background()

	prefs := domain.DefaultSettings()
	prefs.Results.MaxRows = 2
	prefs.Results.ExportFormat = "json"
	if _, err := settings.Save(ctx, prefs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var buf bytes.Buffer
	res, err := svc.Export(ctx, service.ExportInput{QueryID: "q1"}, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Format != "json" || res.RowsWritten != 2 || !res.Truncated {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "[") {
		t.Errorf("output is not a JSON array: %q", buf.String())
	}
}

func TestExport_ExplicitFormat(t *testing.T) {
	svc, _ := newExportEnv(t)
	var buf bytes.Buffer
	res, err := svc.Export(context.Background(), service.ExportInput{QueryID: "q1", Format: "csv"}, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if buf.String() != "id\n1\n2\n3\n" {
		t.Errorf("csv = %q", buf.String())
	}
	if res.Truncated {
		t.Error("default maxRows should not truncate three rows")
	}
}

func TestExport_Errors(t *testing.T) {
	svc, _ := newExportEnv(t)
	ctx := context.Background()
	var buf bytes.Buffer

	if _, err := svc.Export(ctx, service.ExportInput{QueryID: "missing"}, &buf); !errs.IsNotFound(err) {
		t.Errorf("missing query: err = %v, want not found", err)
	}
	if _, err := svc.Export(ctx, service.ExportInput{QueryID: "q1", Format: "xlsx"}, &buf); !errs.IsValidation(err) {
		t.Errorf("xlsx: err = %v, want validation", err)
	}
}
