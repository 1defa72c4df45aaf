package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
	"github.com/platinummonkey/unitgraph/pkg/storage"
	"github.com/platinummonkey/unitgraph/pkg/versioning"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store on PostgreSQL or SQLite
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewPostgres connects to PostgreSQL and applies the schema
func NewPostgres(config storage.Config) (*Store, error) {
	db, err := sql.Open(Postgres.Driver, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	return open(db, Postgres, config.PostgresTimeout)
}

// NewSQLite opens a SQLite database file and applies the schema
func NewSQLite(path string) (*Store, error) {
	db, err := sql.Open(SQLite.Driver, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection serializes every unit of work.
	db.SetMaxOpenConns(1)

	return open(db, SQLite, 10*time.Second)
}

func open(db *sql.DB, d Dialect, timeout time.Duration) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}
	s := New(db, d)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database without touching the schema
func New(db *sql.DB, d Dialect) *Store {
	return &Store{
		db:      db,
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying connection pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("failed to apply %s schema: %w", s.dialect.Name, err)
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateUnit implements storage.UnitWriter
func (s *Store) CreateUnit(ctx context.Context, unit *catalog.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkTags(ctx, tx, unit.TagIDs); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO units (name, technical_name, kind, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id
		`), unit.Name, unit.TechnicalName, string(unit.Kind), unit.Active, now).Scan(&unit.ID)
		if err != nil {
			return fmt.Errorf("failed to create unit: %w", err)
		}
		unit.CreatedAt, unit.UpdatedAt = now, now
		return s.setTags(ctx, tx, unit.ID, unit.TagIDs)
	})
}

// GetUnit implements storage.UnitReader
func (s *Store) GetUnit(ctx context.Context, id int64) (*catalog.Unit, error) {
	var u catalog.Unit
	var kind string
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, name, technical_name, kind, active, created_at, updated_at
		FROM units
		WHERE id = $1
	`), id).Scan(&u.ID, &u.Name, &u.TechnicalName, &kind, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, catalog.NotFound("unit", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	u.Kind = catalog.UnitKind(kind)

	tags, err := s.unitTags(ctx, &id)
	if err != nil {
		return nil, err
	}
	u.TagIDs = tags[id]
	return &u, nil
}

// ListUnits implements storage.UnitReader
func (s *Store) ListUnits(ctx context.Context) ([]*catalog.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, technical_name, kind, active, created_at, updated_at
		FROM units
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []*catalog.Unit
	for rows.Next() {
		var u catalog.Unit
		var kind string
		if err := rows.Scan(&u.ID, &u.Name, &u.TechnicalName, &kind, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		u.Kind = catalog.UnitKind(kind)
		units = append(units, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	rows.Close()

	tags, err := s.unitTags(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		u.TagIDs = tags[u.ID]
	}
	return units, nil
}

// UpdateUnit implements storage.UnitWriter
func (s *Store) UpdateUnit(ctx context.Context, unit *catalog.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkTags(ctx, tx, unit.TagIDs); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE units
			SET name = $2, technical_name = $3, kind = $4, active = $5, updated_at = $6
			WHERE id = $1
		`), unit.ID, unit.Name, unit.TechnicalName, string(unit.Kind), unit.Active, now)
		if err := expectRow(res, err, "unit", unit.ID); err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, s.q(`SELECT created_at FROM units WHERE id = $1`), unit.ID).Scan(&unit.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to update unit: %w", err)
		}
		unit.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM unit_tags WHERE unit_id = $1`), unit.ID); err != nil {
			return fmt.Errorf("failed to clear unit tags: %w", err)
		}
		return s.setTags(ctx, tx, unit.ID, unit.TagIDs)
	})
}

// DeleteUnit implements storage.UnitWriter
func (s *Store) DeleteUnit(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM version_includes
			WHERE parent_id IN (SELECT id FROM versions WHERE unit_id = $1)
			   OR child_id IN (SELECT id FROM versions WHERE unit_id = $1)
		`), id); err != nil {
			return fmt.Errorf("failed to delete includes: %w", err)
		}
		for _, query := range []string{
			`DELETE FROM versions WHERE unit_id = $1`,
			`DELETE FROM unit_tags WHERE unit_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, s.q(query), id); err != nil {
				return fmt.Errorf("failed to delete unit %d: %w", id, err)
			}
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM units WHERE id = $1`), id)
		return expectRow(res, err, "unit", id)
	})
}

// CreateTag implements storage.TagStore
func (s *Store) CreateTag(ctx context.Context, tag *catalog.Tag) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO tags (name, color) VALUES ($1, $2) RETURNING id
	`), tag.Name, tag.Color).Scan(&tag.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("tag %q: %w", tag.Name, catalog.ErrDuplicate)
	} else if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

// ListTags implements storage.TagStore
func (s *Store) ListTags(ctx context.Context) ([]*catalog.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*catalog.Tag
	for rows.Next() {
		var t catalog.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// CreateVersion implements storage.VersionWriter
func (s *Store) CreateVersion(ctx context.Context, version *catalog.Version) error {
	if err := version.Validate(); err != nil {
		return err
	}
	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var kind string
		err := tx.QueryRowContext(ctx, s.q(`SELECT kind FROM units WHERE id = $1`), version.UnitID).Scan(&kind)
		if err == sql.ErrNoRows {
			return catalog.NotFound("unit", version.UnitID)
		} else if err != nil {
			return fmt.Errorf("failed to get unit: %w", err)
		}

		err = tx.QueryRowContext(ctx, s.q(`
			INSERT INTO versions (unit_id, version, state, publication_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id
		`), version.UnitID, version.Version, string(version.State), nullTime(version.PublicationDate), now).Scan(&version.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("version %q of unit %d: %w", version.Version, version.UnitID, catalog.ErrDuplicate)
		} else if err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		version.UnitKind = catalog.UnitKind(kind)
		version.CreatedAt, version.UpdatedAt = now, now
		return nil
	})
}

const versionColumns = `v.id, v.unit_id, v.version, v.state, v.publication_date, u.kind, v.created_at, v.updated_at`

// GetVersion implements storage.VersionReader
func (s *Store) GetVersion(ctx context.Context, id int64) (*catalog.Version, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT `+versionColumns+`
		FROM versions v JOIN units u ON u.id = v.unit_id
		WHERE v.id = $1
	`), id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, catalog.NotFound("version", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// ListVersions implements storage.VersionReader
func (s *Store) ListVersions(ctx context.Context, unitID int64) ([]*catalog.Version, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM units WHERE id = $1`), unitID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, catalog.NotFound("unit", unitID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+versionColumns+`
		FROM versions v JOIN units u ON u.id = v.unit_id
		WHERE v.unit_id = $1
	`), unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*catalog.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versioning.Newer(versions[i].Version, versions[j].Version)
	})
	return versions, nil
}

// SetVersionState implements storage.VersionWriter
func (s *Store) SetVersionState(ctx context.Context, id int64, state catalog.State, published *time.Time) error {
	if !state.Valid() {
		return fmt.Errorf("%w: state %q", catalog.ErrInvalid, state)
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE versions
		SET state = $2, publication_date = COALESCE($3, publication_date), updated_at = $4
		WHERE id = $1
	`), id, string(state), nullTime(published), s.now())
	return expectRow(res, err, "version", id)
}

// DeleteVersion implements storage.VersionWriter
func (s *Store) DeleteVersion(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM version_includes WHERE parent_id = $1 OR child_id = $1
		`), id); err != nil {
			return fmt.Errorf("failed to delete includes: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM versions WHERE id = $1`), id)
		return expectRow(res, err, "version", id)
	})
}

// LoadGraph implements storage.GraphStore
func (s *Store) LoadGraph(ctx context.Context) (dependencies.Snapshot, error) {
	return s.snapshot(ctx, s.db)
}

// UpdateIncludes implements storage.GraphStore
func (s *Store) UpdateIncludes(ctx context.Context, fn storage.IncludesFunc) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if s.dialect.LockIncludes != "" {
			if _, err := tx.ExecContext(ctx, s.dialect.LockIncludes); err != nil {
				return fmt.Errorf("failed to lock includes: %w", err)
			}
		}

		snap, err := s.snapshot(ctx, tx)
		if err != nil {
			return err
		}
		m, err := fn(snap)
		if err != nil {
			return err
		}

		known := make(map[int64]bool, len(snap.Nodes))
		for _, n := range snap.Nodes {
			known[n.ID] = true
		}
		for _, e := range m.Remove {
			if _, err := tx.ExecContext(ctx, s.q(`
				DELETE FROM version_includes WHERE parent_id = $1 AND child_id = $2
			`), e.From, e.To); err != nil {
				return fmt.Errorf("failed to remove include: %w", err)
			}
		}
		for _, e := range m.Add {
			if !known[e.From] {
				return catalog.NotFound("version", e.From)
			}
			if !known[e.To] {
				return catalog.NotFound("version", e.To)
			}
			if _, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO version_includes (parent_id, child_id) VALUES ($1, $2)
				ON CONFLICT (parent_id, child_id) DO NOTHING
			`), e.From, e.To); err != nil {
				return fmt.Errorf("failed to add include: %w", err)
			}
		}
		return nil
	})
}

// HealthCheck implements storage.HealthChecker
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s unhealthy: %w", s.dialect.Name, err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) snapshot(ctx context.Context, db querier) (dependencies.Snapshot, error) {
	var snap dependencies.Snapshot

	rows, err := db.QueryContext(ctx, `
		SELECT v.id, v.unit_id, u.name, v.version
		FROM versions v JOIN units u ON u.id = v.unit_id
		ORDER BY v.id
	`)
	if err != nil {
		return snap, fmt.Errorf("failed to load versions: %w", err)
	}
	for rows.Next() {
		var n dependencies.Node
		if err := rows.Scan(&n.ID, &n.UnitID, &n.UnitName, &n.Version); err != nil {
			rows.Close()
			return snap, fmt.Errorf("failed to scan version: %w", err)
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("failed to load versions: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT parent_id, child_id FROM version_includes ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("failed to load includes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e dependencies.Edge
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return snap, fmt.Errorf("failed to scan include: %w", err)
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap, rows.Err()
}

func (s *Store) checkTags(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		var exists int
		err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM tags WHERE id = $1`), id).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: unknown tag %d", catalog.ErrInvalid, id)
		} else if err != nil {
			return fmt.Errorf("failed to check tag: %w", err)
		}
	}
	return nil
}

func (s *Store) setTags(ctx context.Context, tx *sql.Tx, unitID int64, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO unit_tags (unit_id, tag_id) VALUES ($1, $2)
			ON CONFLICT (unit_id, tag_id) DO NOTHING
		`), unitID, id); err != nil {
			return fmt.Errorf("failed to tag unit: %w", err)
		}
	}
	return nil
}

// unitTags returns tag ids per unit, for one unit or all of them
func (s *Store) unitTags(ctx context.Context, unitID *int64) (map[int64][]int64, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if unitID != nil {
		rows, err = s.db.QueryContext(ctx, s.q(`SELECT unit_id, tag_id FROM unit_tags WHERE unit_id = $1 ORDER BY tag_id`), *unitID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT unit_id, tag_id FROM unit_tags ORDER BY unit_id, tag_id`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load unit tags: %w", err)
	}
	defer rows.Close()

	tags := make(map[int64][]int64)
	for rows.Next() {
		var u, t int64
		if err := rows.Scan(&u, &t); err != nil {
			return nil, fmt.Errorf("failed to scan unit tag: %w", err)
		}
		tags[u] = append(tags[u], t)
	}
	return tags, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*catalog.Version, error) {
	var (
		v           catalog.Version
		state, kind string
		published   sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.UnitID, &v.Version, &state, &published, &kind, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.State = catalog.State(state)
	v.UnitKind = catalog.UnitKind(kind)
	if published.Valid {
		t := published.Time
		v.PublicationDate = &t
	}
	return &v, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// expectRow turns an Exec result into ErrNotFound when nothing matched
func expectRow(res sql.Result, err error, kind string, id int64) error {
	if err != nil {
		return fmt.Errorf("failed to write %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write %s %d: %w", kind, id, err)
	}
	if n == 0 {
		return catalog.NotFound(kind, id)
	}
	return nil
}
