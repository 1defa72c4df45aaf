package sqlstore

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestDialect_Rebind(t *testing.T) {
	query := `UPDATE versions SET state = $2 WHERE id = $1 OR id = $10`

	assert.Equal(t, query, Postgres.Rebind(query))
	assert.Equal(t, `UPDATE versions SET state = ?2 WHERE id = ?1 OR id = ?10`, SQLite.Rebind(query))
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("boom")},
		{name: "postgres unique", err: &pq.Error{Code: "23505"}, want: true},
		{name: "postgres fk", err: &pq.Error{Code: "23503"}},
		{name: "sqlite unique", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, want: true},
		{name: "sqlite fk", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
