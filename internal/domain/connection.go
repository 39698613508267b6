package domain

import (
	"context"
	"time"
)

// DatabaseKind is the engine a connection profile points at.
type DatabaseKind string

const (
	KindPostgreSQL DatabaseKind = "postgresql"
	KindMySQL      DatabaseKind = "mysql"
	KindSQLite     DatabaseKind = "sqlite"
)

// Kinds lists the supported database kinds in display order.
var Kinds = []DatabaseKind{KindPostgreSQL, KindMySQL, KindSQLite}

// Valid reports whether k is a supported kind.
func (k DatabaseKind) Valid() bool {
	switch k {
	case KindPostgreSQL, KindMySQL, KindSQLite:
		return true
	}
	return false
}

// DefaultPort returns the conventional port for kind, or nil when the kind
// has no network port (sqlite) or is unknown.
func DefaultPort(kind DatabaseKind) *int {
	var p int
	switch kind {
	case KindPostgreSQL:
		p = 5432
	case KindMySQL:
		p = 3306
	default:
		return nil
	}
	return &p
}

// Connection is a saved database connection profile.
// The password never lives on the record; it is held by the secret store
// and only surfaced through HasPassword.
type Connection struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Kind            DatabaseKind `json:"type"`
	Host            string       `json:"host"`
	Port            *int         `json:"port"` // nil for sqlite
	Database        string       `json:"database"`
	Username        string       `json:"username"`
	HasPassword     bool         `json:"hasPassword"`
	IsActive        bool         `json:"isActive"`
	LastConnectedAt *time.Time   `json:"lastConnectedAt"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy of c.
func (c *Connection) Clone() *Connection {
	out := *c
	if c.Port != nil {
		p := *c.Port
		out.Port = &p
	}
	if c.LastConnectedAt != nil {
		t := *c.LastConnectedAt
		out.LastConnectedAt = &t
	}
	return &out
}

// ConnectionStore manages connection profiles.
//
// CreateConnection assigns ID and timestamps. UpdateConnection replaces the
// profile fields but leaves IsActive and LastConnectedAt alone; those only
// change through SetActive.
type ConnectionStore interface {
	ListConnections(ctx context.Context) ([]Connection, error)
	GetConnection(ctx context.Context, id string) (*Connection, error)
	CreateConnection(ctx context.Context, c *Connection) error
	UpdateConnection(ctx context.Context, c *Connection) error
	SetActive(ctx context.Context, id string, active bool, connectedAt *time.Time) error
	DeleteConnection(ctx context.Context, id string) error
}

// ExclusiveActivator is implemented by stores that can activate one
// connection and deactivate all others in a single atomic step.
type ExclusiveActivator interface {
	ActivateExclusive(ctx context.Context, id string, connectedAt time.Time) error
}
