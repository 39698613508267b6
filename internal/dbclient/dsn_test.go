package dbclient

import (
	"testing"

	"datalink/internal/domain"
	"datalink/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestBuildDSN_MySQL(t *testing.T) {
	conn := &domain.Connection{Kind: domain.KindMySQL, Host: "db.local", Port: intp(3307), Database: "shop", Username: "root"}
	driver, dsn, err := BuildDSN(conn, "pw")
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)
	assert.Contains(t, dsn, "root:pw@tcp(db.local:3307)/shop")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestBuildDSN_MySQLDefaultPort(t *testing.T) {
	conn := &domain.Connection{Kind: domain.KindMySQL, Host: "h", Database: "d", Username: "u"}
	_, dsn, err := BuildDSN(conn, "")
	require.NoError(t, err)
	assert.Contains(t, dsn, "tcp(h:3306)")
}

func TestBuildDSN_Postgres(t *testing.T) {
	conn := &domain.Connection{Kind: domain.KindPostgreSQL, Host: "pg", Port: intp(5432), Database: "my db", Username: "app"}
	driver, dsn, err := BuildDSN(conn, "it's")
	require.NoError(t, err)
	assert.Equal(t, "postgres", driver)
	assert.Contains(t, dsn, "host=pg port=5432 user=app dbname='my db'")
	assert.Contains(t, dsn, `password='it\'s'`)
}

func TestBuildDSN_SQLite(t *testing.T) {
	conn := &domain.Connection{Kind: domain.KindSQLite, Database: "/tmp/app.db"}
	driver, dsn, err := BuildDSN(conn, "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
	assert.Contains(t, dsn, "file:/tmp/app.db?")
	assert.Contains(t, dsn, "_pragma=busy_timeout%285000%29")

	_, _, err = BuildDSN(&domain.Connection{Kind: domain.KindSQLite}, "")
	assert.True(t, errs.IsValidation(err))
}

func TestBuildDSN_UnknownKind(t *testing.T) {
	_, _, err := BuildDSN(&domain.Connection{Kind: "oracle"}, "")
	assert.True(t, errs.IsValidation(err))
}

func TestDisplayDSN_MasksPassword(t *testing.T) {
	conn := &domain.Connection{Kind: domain.KindMySQL, Host: "h", Database: "d", Username: "u"}
	dsn, err := DisplayDSN(conn, true)
	require.NoError(t, err)
	assert.Contains(t, dsn, "u:xxxxx@")

	dsn, err = DisplayDSN(conn, false)
	require.NoError(t, err)
	assert.NotContains(t, dsn, "xxxxx")
}
