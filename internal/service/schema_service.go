package service

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"
	"datalink/internal/simulate"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ─────────────────────────────────────────────────────────────
// Schema Service: static object tree per connection
// ─────────────────────────────────────────────────────────────

//go:embed fixtures/schema.yaml
var schemaFixture []byte

type schemaTemplate struct {
	Tables     []domain.Table     `yaml:"tables"`
	Views      []domain.View      `yaml:"views"`
	Procedures []domain.Procedure `yaml:"procedures"`
}

// SchemaService serves schema snapshots. Snapshots are cached per
// connection id and replaced wholesale on refresh.
type SchemaService struct {
	conns    domain.ConnectionStore
	sim      *simulate.Simulator
	emitter  EventEmitter
	log      *logger.Logger
	template schemaTemplate

	mu       sync.Mutex
	cache    map[string]*domain.SchemaSnapshot
	inflight inflightGuard
	cron     *cron.Cron
}

// NewSchemaService creates a SchemaService backed by the embedded fixture.
func NewSchemaService(
	conns domain.ConnectionStore,
	sim *simulate.Simulator,
	emitter EventEmitter,
	log *logger.Logger,
) (*SchemaService, error) {
	var tmpl schemaTemplate
	if err := yaml.Unmarshal(schemaFixture, &tmpl); err != nil {
		return nil, fmt.Errorf("load schema fixture: %w", err)
	}
	return &SchemaService{
		conns:    conns,
		sim:      sim,
		emitter:  emitter,
		log:      log.With().Str("component", "schema").Logger(),
		template: tmpl,
		cache:    make(map[string]*domain.SchemaSnapshot),
	}, nil
}

// GetSchema returns the snapshot for connectionID, loading it on first use.
func (s *SchemaService) GetSchema(ctx context.Context, connectionID string) (*domain.SchemaSnapshot, error) {
	conn, err := s.conns.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	cached, ok := s.cache[connectionID]
	s.mu.Unlock()
	if ok {
		return cached.Clone(), nil
	}

	if err := s.sim.Schema(ctx); err != nil {
		return nil, err
	}
	return s.store(conn), nil
}

// Refresh regenerates the snapshot for connectionID.
func (s *SchemaService) Refresh(ctx context.Context, connectionID string) (*domain.SchemaSnapshot, error) {
	conn, err := s.conns.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := s.sim.Refresh(ctx); err != nil {
		return nil, err
	}
	snap := s.store(conn)
	s.emitter.Emit(ctx, EventSchemaRefreshed, connectionID)
	return snap, nil
}

// GetTable returns one table of the connection's snapshot.
func (s *SchemaService) GetTable(ctx context.Context, connectionID, table string) (*domain.Table, error) {
	snap, err := s.GetSchema(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := s.sim.Table(ctx); err != nil {
		return nil, err
	}
	for _, t := range snap.Tables {
		if t.Name == table {
			return &t, nil
		}
	}
	return nil, errs.NotFound("table", table)
}

// Forget drops the cached snapshot for connectionID.
func (s *SchemaService) Forget(connectionID string) {
	s.mu.Lock()
	delete(s.cache, connectionID)
	s.mu.Unlock()
}

func (s *SchemaService) store(conn *domain.Connection) *domain.SchemaSnapshot {
	snap := s.build(conn)
	s.mu.Lock()
	s.cache[conn.ID] = snap
	s.mu.Unlock()
	return snap.Clone()
}

func (s *SchemaService) build(conn *domain.Connection) *domain.SchemaSnapshot {
	base := &domain.SchemaSnapshot{
		Tables:     s.template.Tables,
		Views:      s.template.Views,
		Procedures: s.template.Procedures,
	}
	snap := base.Clone()
	snap.ConnectionID = conn.ID
	snap.LoadedAt = s.sim.Now().UTC()
	if conn.Kind == domain.KindSQLite {
		snap.Procedures = []domain.Procedure{}
	}
	return snap
}

// ── Scheduled refresh ──────────────────────────────────────

// StartAutoRefresh refreshes the active connection's snapshot on the given
// cron schedule (standard five-field syntax or descriptors like "@every 5m").
func (s *SchemaService) StartAutoRefresh(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.refreshActive(ctx) }); err != nil {
		return errs.Validation("invalid schema refresh schedule %q: %v", schedule, err)
	}
	c.Start()
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	s.log.With().Str("schedule", schedule).Logger().Info("schema auto-refresh scheduled")
	return nil
}

func (s *SchemaService) refreshActive(ctx context.Context) {
	conns, err := s.conns.ListConnections(ctx)
	if err != nil {
		s.log.WarnWith("schema auto-refresh: list connections", err, nil)
		return
	}
	for _, c := range conns {
		if !c.IsActive {
			continue
		}
		if !s.inflight.TryLock(c.ID) {
			s.log.With().Str("connection_id", c.ID).Logger().Debug("schema refresh already running")
			return
		}
		defer s.inflight.Unlock(c.ID)
		if _, err := s.Refresh(ctx, c.ID); err != nil {
			s.log.WarnWith("schema auto-refresh", err, map[string]any{"connection_id": c.ID})
		}
		return
	}
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *SchemaService) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	s.inflight.WaitAll(ctx)
}
