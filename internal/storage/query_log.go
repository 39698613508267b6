package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"datalink/internal/domain"
	"datalink/internal/errs"

	"github.com/google/uuid"
)

const queryColumns = `id, connection_id, name, sql_text, executed_at, execution_time_ms, row_count, columns_json, rows_json, message`

// QueryLogStore keeps the query history in SQLite.
type QueryLogStore struct {
	db *DB
}

// NewQueryLogStore creates a QueryLogStore.
func NewQueryLogStore(db *DB) *QueryLogStore {
	return &QueryLogStore{db: db}
}

var _ domain.QueryLogStore = (*QueryLogStore)(nil)

func scanQuery(row rowScanner) (*domain.QueryRecord, error) {
	var (
		q                  domain.QueryRecord
		colsJSON, rowsJSON string
	)
	if err := row.Scan(&q.ID, &q.ConnectionID, &q.Name, &q.SQL, &q.ExecutedAt,
		&q.ExecutionTimeMs, &q.RowCount, &colsJSON, &rowsJSON, &q.Message); err != nil {
		return nil, err
	}
	if colsJSON != "" {
		if err := json.Unmarshal([]byte(colsJSON), &q.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
	}
	if rowsJSON != "" {
		if err := json.Unmarshal([]byte(rowsJSON), &q.Rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
	}
	return &q, nil
}

func (s *QueryLogStore) ListQueries(ctx context.Context, f domain.QueryFilter) ([]domain.QueryRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.ConnectionID != "" {
		where = append(where, "connection_id = ?")
		args = append(args, f.ConnectionID)
	}
	query := `SELECT ` + queryColumns + ` FROM queries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY executed_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.OperationFailed("list queries", err)
	}
	defer rows.Close()

	out := []domain.QueryRecord{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, errs.OperationFailed("scan query", err)
		}
		out = append(out, *q)
	}
	return out, errs.OperationFailed("list queries", rows.Err())
}

func (s *QueryLogStore) GetQuery(ctx context.Context, id string) (*domain.QueryRecord, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("query", id)
	}
	if err != nil {
		return nil, errs.OperationFailed("get query", err)
	}
	return q, nil
}

func (s *QueryLogStore) AppendQuery(ctx context.Context, q *domain.QueryRecord) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	var colsJSON, rowsJSON string
	if len(q.Columns) > 0 {
		b, err := json.Marshal(q.Columns)
		if err != nil {
			return errs.OperationFailed("encode columns", err)
		}
		colsJSON = string(b)
	}
	if len(q.Rows) > 0 {
		b, err := json.Marshal(q.Rows)
		if err != nil {
			return errs.OperationFailed("encode rows", err)
		}
		rowsJSON = string(b)
	}

	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO queries (`+queryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ConnectionID, q.Name, q.SQL, q.ExecutedAt.UTC(), q.ExecutionTimeMs, q.RowCount,
		colsJSON, rowsJSON, q.Message,
	)
	return errs.OperationFailed("append query", err)
}

func (s *QueryLogStore) UpdateQueryMetrics(ctx context.Context, id string, executionTimeMs, rowCount int) error {
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE queries SET execution_time_ms=?, row_count=? WHERE id=?`, executionTimeMs, rowCount, id)
	return checkQueryAffected(res, err, "update query metrics", id)
}

func (s *QueryLogStore) DeleteQuery(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM queries WHERE id = ?`, id)
	return checkQueryAffected(res, err, "delete query", id)
}

func checkQueryAffected(res sql.Result, err error, op, id string) error {
	if err != nil {
		return errs.OperationFailed(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.OperationFailed(op, err)
	}
	if n == 0 {
		return errs.NotFound("query", id)
	}
	return nil
}
