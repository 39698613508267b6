package dbclient

import (
	"net/url"
	"strings"

	"datalink/internal/domain"
	"datalink/internal/errs"
)

// buildSQLiteDSN formats a file: URI in the form modernc.org/sqlite accepts.
// The database field holds the file path.
func buildSQLiteDSN(conn *domain.Connection) (string, error) {
	path := strings.TrimSpace(conn.Database)
	if path == "" {
		return "", errs.Validation("sqlite: database file path is required")
	}
	if path == ":memory:" {
		return path, nil
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	u := url.URL{Scheme: "file", Opaque: path, RawQuery: q.Encode()}
	return u.String(), nil
}
