package service

import (
	"context"
	"fmt"
	"strings"

	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"
	"datalink/internal/simulate"

	"github.com/google/uuid"
)

// ─────────────────────────────────────────────────────────────
// Query Service: simulated execution and query history
// ─────────────────────────────────────────────────────────────

// ExecuteInput is the DTO for running a statement. An empty ConnectionID
// means the active connection.
type ExecuteInput struct {
	ConnectionID string `json:"connectionId"`
	SQL          string `json:"sql"`
}

// SaveQueryInput is the DTO for saving a statement without running it.
type SaveQueryInput struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	SQL          string `json:"sql"`
}

// QueryService executes statements against the simulator and keeps history.
type QueryService struct {
	conns   domain.ConnectionStore
	queries domain.QueryLogStore
	sim     *simulate.Simulator
	emitter EventEmitter
	log     *logger.Logger

	inflight inflightGuard
}

// NewQueryService creates a QueryService.
func NewQueryService(
	conns domain.ConnectionStore,
	queries domain.QueryLogStore,
	sim *simulate.Simulator,
	emitter EventEmitter,
	log *logger.Logger,
) *QueryService {
	return &QueryService{
		conns:   conns,
		queries: queries,
		sim:     sim,
		emitter: emitter,
		log:     log.With().Str("component", "queries").Logger(),
	}
}

// Execute runs sql against the active connection and appends exactly one
// history record. Once invoked it runs to completion: cancelling ctx does not
// abort the wait or drop the record.
func (s *QueryService) Execute(ctx context.Context, in ExecuteInput) (*domain.QueryRecord, error) {
	if strings.TrimSpace(in.SQL) == "" {
		return nil, errs.New(errs.ErrKindEmptyQuery, "query is empty")
	}
	ctx = context.WithoutCancel(ctx)

	conn, err := s.resolveActive(ctx, in.ConnectionID)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if !s.inflight.TryLock(runID) {
		return nil, errs.New(errs.ErrKindOperationFailed, fmt.Sprintf("execution %s already running", runID))
	}
	defer s.inflight.Unlock(runID)

	elapsed, err := s.sim.Execute(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "simulate execution", err)
	}

	now := s.sim.Now().UTC()
	rec := &domain.QueryRecord{
		ConnectionID:    conn.ID,
		Name:            fmt.Sprintf("Query %d", now.UnixMilli()),
		SQL:             in.SQL,
		ExecutedAt:      now,
		ExecutionTimeMs: elapsed,
	}
	switch classify(in.SQL) {
	case statementRead:
		rec.Columns = append([]string(nil), sampleColumns...)
		rec.Rows = sampleRows()
		rec.RowCount = len(rec.Rows)
	case statementWrite:
		rec.RowCount = s.sim.AffectedRows()
		rec.Message = fmt.Sprintf("%d row(s) affected", rec.RowCount)
	}

	if err := s.queries.AppendQuery(ctx, rec); err != nil {
		s.log.ErrorWith("record query execution", err, map[string]any{"connection_id": conn.ID})
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "record query execution", err)
	}

	s.log.With().
		Str("query_id", rec.ID).
		Str("connection_id", conn.ID).
		Int("rows", rec.RowCount).
		Int("execution_ms", rec.ExecutionTimeMs).
		Logger().Debug("query executed")
	s.emitter.Emit(ctx, EventQueryExecuted, rec.ID)
	return rec, nil
}

// resolveActive returns the connection a statement runs on. It fails with
// NoActiveConnection unless that connection is the active one.
func (s *QueryService) resolveActive(ctx context.Context, id string) (*domain.Connection, error) {
	if id != "" {
		c, err := s.conns.GetConnection(ctx, id)
		if err != nil {
			return nil, err
		}
		if !c.IsActive {
			return nil, errs.New(errs.ErrKindNoActiveConnection, fmt.Sprintf("connection %s is not active", id))
		}
		return c, nil
	}
	conns, err := s.conns.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if conns[i].IsActive {
			return &conns[i], nil
		}
	}
	return nil, errs.New(errs.ErrKindNoActiveConnection, "no active connection")
}

// Save stores a statement in the history without running it.
func (s *QueryService) Save(ctx context.Context, in SaveQueryInput) (*domain.QueryRecord, error) {
	if strings.TrimSpace(in.SQL) == "" {
		return nil, errs.New(errs.ErrKindEmptyQuery, "query is empty")
	}
	connID := in.ConnectionID
	if connID == "" {
		if c, err := s.resolveActive(ctx, ""); err == nil {
			connID = c.ID
		}
	}
	now := s.sim.Now().UTC()
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = fmt.Sprintf("Saved Query %d", now.UnixMilli())
	}
	rec := &domain.QueryRecord{
		ConnectionID: connID,
		Name:         name,
		SQL:          in.SQL,
		ExecutedAt:   now,
	}
	if err := s.queries.AppendQuery(ctx, rec); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventQueriesChanged, nil)
	return rec, nil
}

func (s *QueryService) List(ctx context.Context, f domain.QueryFilter) ([]domain.QueryRecord, error) {
	if f.Limit < 0 {
		return nil, errs.Validation("limit must not be negative")
	}
	return s.queries.ListQueries(ctx, f)
}

func (s *QueryService) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	return s.queries.GetQuery(ctx, id)
}

func (s *QueryService) Delete(ctx context.Context, id string) error {
	if err := s.queries.DeleteQuery(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventQueriesChanged, nil)
	return nil
}

// UpdateMetrics fills in timing and row count reported after the fact.
func (s *QueryService) UpdateMetrics(ctx context.Context, id string, executionTimeMs, rowCount int) error {
	if executionTimeMs < 0 || rowCount < 0 {
		return errs.Validation("execution time and row count must not be negative")
	}
	return s.queries.UpdateQueryMetrics(ctx, id, executionTimeMs, rowCount)
}

// Format reformats sql; see FormatSQL.
func (s *QueryService) Format(sql string) string {
	return FormatSQL(sql)
}

// WaitRunning blocks until in-flight executions finish or ctx is cancelled.
func (s *QueryService) WaitRunning(ctx context.Context) {
	s.inflight.WaitAll(ctx)
}
