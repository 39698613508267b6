package service_test

import (
	"context"
	"testing"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"
	"datalink/internal/service"
	"datalink/internal/storage"
)

func TestSettings_LoadDefaults(t *testing.T) {
	svc := service.NewSettingsService(storage.NewMemoryKV(), service.NopEmitter{}, logger.Nop())
	got, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != domain.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestSettings_SaveLoadReset(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	emitter := &service.MockEmitter{}
	svc := service.NewSettingsService(kv, emitter, logger.Nop())

	s := domain.DefaultSettings()
	s.Editor.FontSize = 18
	s.Editor.Theme = "light"
	s.Results.ExportFormat = "json"
	if _, err := svc.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != s {
		t.Errorf("Load() = %+v, want %+v", got, s)
	}

	reset, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset != domain.DefaultSettings() {
		t.Errorf("Reset() = %+v", reset)
	}
	if _, found, _ := kv.GetValue(ctx, domain.SettingsKey); found {
		t.Error("blob still stored after reset")
	}
	if n := len(emitter.Names()); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}

func TestSettings_PartialBlobMergesOverDefaults(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	_ = kv.PutValue(ctx, domain.SettingsKey, `{"editor":{"fontSize":20}}`)
	svc := service.NewSettingsService(kv, service.NopEmitter{}, logger.Nop())

	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := domain.DefaultSettings()
	want.Editor.FontSize = 20
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSettings_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	_ = kv.PutValue(ctx, domain.SettingsKey, "{not json")
	svc := service.NewSettingsService(kv, service.NopEmitter{}, logger.Nop())

	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != domain.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"font too small", func(s *domain.Settings) { s.Editor.FontSize = 7 }},
		{"font too large", func(s *domain.Settings) { s.Editor.FontSize = 33 }},
		{"unknown theme", func(s *domain.Settings) { s.Editor.Theme = "blue" }},
		{"zero timeout", func(s *domain.Settings) { s.Connection.Timeout = 0 }},
		{"negative retries", func(s *domain.Settings) { s.Connection.MaxRetries = -1 }},
		{"zero max rows", func(s *domain.Settings) { s.Results.MaxRows = 0 }},
		{"zero page size", func(s *domain.Settings) { s.Results.PageSize = 0 }},
		{"unknown export", func(s *domain.Settings) { s.Results.ExportFormat = "pdf" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.DefaultSettings()
			tt.mutate(&s)
			if err := service.ValidateSettings(s); !errs.IsValidation(err) {
				t.Errorf("err = %v, want Validation", err)
			}
		})
	}
	if err := service.ValidateSettings(domain.DefaultSettings()); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestSettings_Reload(t *testing.T) {
	ctx := context.Background()
	emitter := &service.MockEmitter{}
	svc := service.NewSettingsService(storage.NewMemoryKV(), emitter, logger.Nop())

	svc.Reload(ctx, "other-key")
	if len(emitter.Names()) != 0 {
		t.Fatal("reload of unrelated key emitted")
	}
	svc.Reload(ctx, domain.SettingsKey)
	if names := emitter.Names(); len(names) != 1 || names[0] != service.EventSettingsChanged {
		t.Errorf("events = %v", names)
	}
}
