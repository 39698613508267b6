// Package dbclient turns connection profiles into driver connection strings.
// It never opens a network connection; the driver libraries are used only to
// format and validate DSNs.
package dbclient

import (
	"fmt"

	"datalink/internal/domain"
	"datalink/internal/errs"
)

// redacted replaces the password in display DSNs.
const redacted = "xxxxx"

// BuildDSN returns the driver name and DSN for conn.
func BuildDSN(conn *domain.Connection, password string) (driver, dsn string, err error) {
	switch conn.Kind {
	case domain.KindMySQL:
		dsn, err = buildMySQLDSN(conn, password)
		return "mysql", dsn, err
	case domain.KindPostgreSQL:
		dsn, err = buildPostgresDSN(conn, password)
		return "postgres", dsn, err
	case domain.KindSQLite:
		dsn, err = buildSQLiteDSN(conn)
		return "sqlite", dsn, err
	default:
		return "", "", errs.Validation("unsupported database type: %q", conn.Kind)
	}
}

// DisplayDSN returns the DSN for conn with the password masked.
func DisplayDSN(conn *domain.Connection, hasPassword bool) (string, error) {
	pw := ""
	if hasPassword {
		pw = redacted
	}
	_, dsn, err := BuildDSN(conn, pw)
	return dsn, err
}

func port(conn *domain.Connection) (int, error) {
	if conn.Port != nil {
		return *conn.Port, nil
	}
	if p := domain.DefaultPort(conn.Kind); p != nil {
		return *p, nil
	}
	return 0, fmt.Errorf("no port for %s", conn.Kind)
}
