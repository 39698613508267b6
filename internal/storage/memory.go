package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"datalink/internal/domain"
	"datalink/internal/errs"

	"github.com/google/uuid"
)

// MemoryConnectionStore is a process-local ConnectionStore. Every value
// crossing its boundary is copied, so callers never alias store state.
type MemoryConnectionStore struct {
	mu    sync.RWMutex
	conns map[string]*domain.Connection
	order []string
}

// NewMemoryConnectionStore creates a store preloaded with seed.
func NewMemoryConnectionStore(seed ...domain.Connection) *MemoryConnectionStore {
	s := &MemoryConnectionStore{conns: make(map[string]*domain.Connection)}
	for i := range seed {
		c := seed[i].Clone()
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.conns[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return s
}

var (
	_ domain.ConnectionStore    = (*MemoryConnectionStore)(nil)
	_ domain.ExclusiveActivator = (*MemoryConnectionStore)(nil)
)

func (s *MemoryConnectionStore) ListConnections(_ context.Context) ([]domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Connection, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.conns[id].Clone())
	}
	return out, nil
}

func (s *MemoryConnectionStore) GetConnection(_ context.Context, id string) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	if !ok {
		return nil, errs.NotFound("connection", id)
	}
	return c.Clone(), nil
}

func (s *MemoryConnectionStore) CreateConnection(_ context.Context, c *domain.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.conns[c.ID] = c.Clone()
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryConnectionStore) UpdateConnection(_ context.Context, c *domain.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.conns[c.ID]
	if !ok {
		return errs.NotFound("connection", c.ID)
	}
	c.UpdatedAt = time.Now().UTC()
	next := c.Clone()
	next.IsActive = cur.IsActive
	next.LastConnectedAt = cur.LastConnectedAt
	next.CreatedAt = cur.CreatedAt
	s.conns[c.ID] = next
	return nil
}

func (s *MemoryConnectionStore) SetActive(_ context.Context, id string, active bool, connectedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return errs.NotFound("connection", id)
	}
	c.IsActive = active
	if connectedAt != nil {
		t := *connectedAt
		c.LastConnectedAt = &t
	}
	return nil
}

func (s *MemoryConnectionStore) ActivateExclusive(_ context.Context, id string, connectedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.conns[id]
	if !ok {
		return errs.NotFound("connection", id)
	}
	for _, c := range s.conns {
		c.IsActive = false
	}
	target.IsActive = true
	target.LastConnectedAt = &connectedAt
	return nil
}

func (s *MemoryConnectionStore) DeleteConnection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[id]; !ok {
		return errs.NotFound("connection", id)
	}
	delete(s.conns, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryQueryLogStore is a process-local QueryLogStore.
type MemoryQueryLogStore struct {
	mu      sync.RWMutex
	queries []*domain.QueryRecord // append order
}

// NewMemoryQueryLogStore creates a store preloaded with seed.
func NewMemoryQueryLogStore(seed ...domain.QueryRecord) *MemoryQueryLogStore {
	s := &MemoryQueryLogStore{}
	for i := range seed {
		q := seed[i].Clone()
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		s.queries = append(s.queries, q)
	}
	return s
}

var _ domain.QueryLogStore = (*MemoryQueryLogStore)(nil)

func (s *MemoryQueryLogStore) ListQueries(_ context.Context, f domain.QueryFilter) ([]domain.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.QueryRecord, 0, len(s.queries))
	// Walk newest-appended first so equal timestamps keep insertion recency.
	for i := len(s.queries) - 1; i >= 0; i-- {
		q := s.queries[i]
		if f.ConnectionID != "" && q.ConnectionID != f.ConnectionID {
			continue
		}
		out = append(out, *q.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExecutedAt.After(out[j].ExecutedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryQueryLogStore) GetQuery(_ context.Context, id string) (*domain.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.queries {
		if q.ID == id {
			return q.Clone(), nil
		}
	}
	return nil, errs.NotFound("query", id)
}

func (s *MemoryQueryLogStore) AppendQuery(_ context.Context, q *domain.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	s.queries = append(s.queries, q.Clone())
	return nil
}

func (s *MemoryQueryLogStore) UpdateQueryMetrics(_ context.Context, id string, executionTimeMs, rowCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.queries {
		if q.ID == id {
			q.ExecutionTimeMs = executionTimeMs
			q.RowCount = rowCount
			return nil
		}
	}
	return errs.NotFound("query", id)
}

func (s *MemoryQueryLogStore) DeleteQuery(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.queries {
		if q.ID == id {
			s.queries = append(s.queries[:i], s.queries[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("query", id)
}

// MemoryKV is a process-local KeyValueStore.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

var _ domain.KeyValueStore = (*MemoryKV)(nil)

func (m *MemoryKV) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) PutValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) DeleteValue(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
