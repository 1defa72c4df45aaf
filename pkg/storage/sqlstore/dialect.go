package sqlstore

import (
	_ "embed"
	"errors"
	"regexp"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Dialect captures what differs between the supported SQL databases.
// Queries are written once with $n placeholders and rebound per dialect.
type Dialect struct {
	Name   string
	Driver string
	Schema string
	// LockIncludes serializes includes mutations inside a transaction; empty
	// when the connection pool already does.
	LockIncludes string
	rebind       bool
}

var (
	// Postgres is the PostgreSQL dialect (lib/pq)
	Postgres = Dialect{
		Name:         "postgres",
		Driver:       "postgres",
		Schema:       postgresSchema,
		LockIncludes: "LOCK TABLE version_includes IN SHARE ROW EXCLUSIVE MODE",
	}
	// SQLite is the SQLite dialect (mattn/go-sqlite3). It relies on a single
	// open connection for serialization.
	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite3",
		Schema: sqliteSchema,
		rebind: true,
	}
)

// Rebind converts $n placeholders to the dialect's form
func (d Dialect) Rebind(query string) string {
	if !d.rebind {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?$1")
}

// isUniqueViolation reports whether err is a unique constraint violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
