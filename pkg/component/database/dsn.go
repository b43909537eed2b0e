package database

import (
	"fmt"
	"net/url"
	"strings"

	options "github.com/kart-io/sentinel-iam/pkg/options/db"
)

// BuildMySQLDSN creates a MySQL DSN:
// username:password@tcp(host:port)/database?params
//
// The password is query-escaped so characters like @, / and : do not break
// DSN parsing.
func BuildMySQLDSN(opts *options.Options) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		opts.Username,
		url.QueryEscape(opts.Password),
		opts.Host,
		opts.Port,
		opts.Database,
	)
}

// BuildPostgresDSN creates a PostgreSQL key/value DSN:
// host=<host> port=<port> user=<username> password=<password> dbname=<database> sslmode=<sslmode>
func BuildPostgresDSN(opts *options.Options) string {
	sslMode := opts.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host,
		opts.Port,
		opts.Username,
		escapePostgresValue(opts.Password),
		opts.Database,
		sslMode,
	)
}

// BuildSQLiteDSN returns the SQLite file path with foreign keys enabled.
// ":memory:" opens a private in-memory database.
func BuildSQLiteDSN(opts *options.Options) string {
	path := opts.Path
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

// escapePostgresValue quotes a value that contains spaces, quotes or
// backslashes, doubling embedded single quotes.
func escapePostgresValue(value string) string {
	if value == "" {
		return "''"
	}

	if !strings.ContainsAny(value, " '\\") {
		return value
	}

	escaped := strings.ReplaceAll(value, "'", "''")
	escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
	return "'" + escaped + "'"
}
