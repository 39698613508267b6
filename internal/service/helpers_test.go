package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"datalink/internal/domain"
	"datalink/internal/logger"
	"datalink/internal/secret"
	"datalink/internal/service"
	"datalink/internal/simulate"
	"datalink/internal/storage"
)

// fixedSource makes simulator draws predictable.
type fixedSource struct {
	n int
	f float64
}

func (s fixedSource) IntN(n int) int {
	if s.n >= n {
		return n - 1
	}
	return s.n
}

func (s fixedSource) Float64() float64 { return s.f }

func newSim(opts ...simulate.Option) *simulate.Simulator {
	return simulate.New(simulate.DefaultPolicy().Instant(), append([]simulate.Option{simulate.WithSeed(1)}, opts...)...)
}

type testEnv struct {
	conns    *storage.MemoryConnectionStore
	queries  *storage.MemoryQueryLogStore
	secrets  *secret.MemoryStore
	emitter  *service.MockEmitter
	sim      *simulate.Simulator
	connSvc  *service.ConnectionService
	querySvc *service.QueryService
}

func newTestEnv(t *testing.T, seed ...domain.Connection) *testEnv {
	t.Helper()
	env := &testEnv{
		conns:   storage.NewMemoryConnectionStore(seed...),
		queries: storage.NewMemoryQueryLogStore(),
		secrets: secret.NewMemoryStore(),
		emitter: &service.MockEmitter{},
		sim:     newSim(),
	}
	env.connSvc = service.NewConnectionService(env.conns, env.secrets, env.sim, env.emitter, logger.Nop())
	env.querySvc = service.NewQueryService(env.conns, env.queries, env.sim, env.emitter, logger.Nop())
	return env
}

func intPtr(v int) *int { return &v }

func pgInput(name string) service.ConnectionInput {
	return service.ConnectionInput{
		Name:     name,
		Kind:     domain.KindPostgreSQL,
		Host:     "localhost",
		Port:     intPtr(5432),
		Database: "app",
		Username: "postgres",
	}
}

func activeCount(t *testing.T, store domain.ConnectionStore) int {
	t.Helper()
	conns, err := store.ListConnections(context.Background())
	if err != nil {
		t.Fatalf("ListConnections: %v", err)
	}
	n := 0
	for _, c := range conns {
		if c.IsActive {
			n++
		}
	}
	return n
}

// bestEffortStore hides ExclusiveActivator so the service falls back to the
// activate-then-deactivate sequence. Deactivating failID fails.
type bestEffortStore struct {
	domain.ConnectionStore
	failID string
	calls  []string
}

func (s *bestEffortStore) SetActive(ctx context.Context, id string, active bool, at *time.Time) error {
	if active {
		s.calls = append(s.calls, "activate:"+id)
	} else {
		s.calls = append(s.calls, "deactivate:"+id)
	}
	if !active && id == s.failID {
		return errors.New("remote unavailable")
	}
	return s.ConnectionStore.SetActive(ctx, id, active, at)
}

// failingQueryLog refuses every append.
type failingQueryLog struct {
	domain.QueryLogStore
}

func (failingQueryLog) AppendQuery(context.Context, *domain.QueryRecord) error {
	return errors.New("disk full")
}

// newSimAt returns an instant simulator whose clock reads *now.
func newSimAt(now *time.Time) *simulate.Simulator {
	return newSim(simulate.WithClock(func() time.Time { return *now }))
}

// brokenSecrets rejects every write, like a keychain that is not installed.
type brokenSecrets struct{ secret.SecretStore }

func (brokenSecrets) Set(string, []byte) error { return errors.New("security: command not found") }

// forgetRecorder records the ids whose schema snapshot was dropped.
type forgetRecorder struct{ ids []string }

func (r *forgetRecorder) Forget(id string) { r.ids = append(r.ids, id) }
