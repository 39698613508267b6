package dbclient

import (
	"net"
	"strconv"

	"datalink/internal/domain"
	"datalink/internal/errs"

	"github.com/go-sql-driver/mysql"
)

// buildMySQLDSN formats a DSN like user:password@tcp(host:port)/db?parseTime=true
// and round-trips it through the driver's parser.
func buildMySQLDSN(conn *domain.Connection, password string) (string, error) {
	p, err := port(conn)
	if err != nil {
		return "", errs.Validation("mysql: %v", err)
	}
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(p))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	dsn := cfg.FormatDSN()
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", errs.Validation("mysql: invalid connection settings: %v", err)
	}
	return dsn, nil
}
