package dbclient

import (
	"fmt"
	"strings"

	"datalink/internal/domain"
	"datalink/internal/errs"

	"github.com/lib/pq"
)

// buildPostgresDSN formats a key/value connection string and lets lib/pq
// parse it. pq.NewConnector does not dial.
func buildPostgresDSN(conn *domain.Connection, password string) (string, error) {
	p, err := port(conn)
	if err != nil {
		return "", errs.Validation("postgresql: %v", err)
	}
	parts := []string{
		"host=" + quote(conn.Host),
		fmt.Sprintf("port=%d", p),
		"user=" + quote(conn.Username),
		"dbname=" + quote(conn.Database),
		"sslmode=disable",
	}
	if password != "" {
		parts = append(parts, "password="+quote(password))
	}
	dsn := strings.Join(parts, " ")
	if _, err := pq.NewConnector(dsn); err != nil {
		return "", errs.Validation("postgresql: invalid connection settings: %v", err)
	}
	return dsn, nil
}

// quote escapes a libpq key/value parameter.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
