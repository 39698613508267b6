package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"datalink/internal/domain"
	"datalink/internal/errs"

	"github.com/google/uuid"
)

const connectionColumns = `id, name, kind, host, port, database_name, username, is_active, last_connected_at, created_at, updated_at`

// ConnectionStore manages connection profiles in SQLite.
type ConnectionStore struct {
	db *DB
}

// NewConnectionStore creates a ConnectionStore.
func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

var (
	_ domain.ConnectionStore    = (*ConnectionStore)(nil)
	_ domain.ExclusiveActivator = (*ConnectionStore)(nil)
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	var (
		c         domain.Connection
		port      sql.NullInt64
		lastConn  sql.NullTime
		activeInt int
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.Host, &port, &c.Database, &c.Username,
		&activeInt, &lastConn, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if port.Valid {
		p := int(port.Int64)
		c.Port = &p
	}
	if lastConn.Valid {
		t := lastConn.Time
		c.LastConnectedAt = &t
	}
	c.IsActive = activeInt != 0
	return &c, nil
}

func (s *ConnectionStore) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections ORDER BY created_at, rowid`)
	if err != nil {
		return nil, errs.OperationFailed("list connections", err)
	}
	defer rows.Close()

	conns := []domain.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, errs.OperationFailed("scan connection", err)
		}
		conns = append(conns, *c)
	}
	return conns, errs.OperationFailed("list connections", rows.Err())
}

func (s *ConnectionStore) GetConnection(ctx context.Context, id string) (*domain.Connection, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("connection", id)
	}
	if err != nil {
		return nil, errs.OperationFailed("get connection", err)
	}
	return c, nil
}

func (s *ConnectionStore) CreateConnection(ctx context.Context, c *domain.Connection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO connections (`+connectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Kind, c.Host, nullableInt(c.Port), c.Database, c.Username,
		c.IsActive, c.LastConnectedAt, c.CreatedAt, c.UpdatedAt,
	)
	return errs.OperationFailed("create connection", err)
}

func (s *ConnectionStore) UpdateConnection(ctx context.Context, c *domain.Connection) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE connections SET name=?, kind=?, host=?, port=?, database_name=?, username=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Kind, c.Host, nullableInt(c.Port), c.Database, c.Username, c.UpdatedAt, c.ID,
	)
	return s.checkAffected(res, err, "update connection", c.ID)
}

func (s *ConnectionStore) SetActive(ctx context.Context, id string, active bool, connectedAt *time.Time) error {
	var (
		res sql.Result
		err error
	)
	if connectedAt != nil {
		res, err = s.db.Conn().ExecContext(ctx,
			`UPDATE connections SET is_active=?, last_connected_at=? WHERE id=?`, active, connectedAt.UTC(), id)
	} else {
		res, err = s.db.Conn().ExecContext(ctx,
			`UPDATE connections SET is_active=? WHERE id=?`, active, id)
	}
	return s.checkAffected(res, err, "set active", id)
}

// ActivateExclusive flips the active flag to id and clears it everywhere else
// inside one transaction.
func (s *ConnectionStore) ActivateExclusive(ctx context.Context, id string, connectedAt time.Time) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.OperationFailed("begin activation", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE connections SET is_active=1, last_connected_at=? WHERE id=?`, connectedAt.UTC(), id)
	if err := s.checkAffected(res, err, "activate connection", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE connections SET is_active=0 WHERE id<>? AND is_active<>0`, id); err != nil {
		return errs.OperationFailed("deactivate connections", err)
	}
	return errs.OperationFailed("commit activation", tx.Commit())
}

func (s *ConnectionStore) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	return s.checkAffected(res, err, "delete connection", id)
}

func (s *ConnectionStore) checkAffected(res sql.Result, err error, op, id string) error {
	if err != nil {
		return errs.OperationFailed(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.OperationFailed(op, err)
	}
	if n == 0 {
		return errs.NotFound("connection", id)
	}
	return nil
}
