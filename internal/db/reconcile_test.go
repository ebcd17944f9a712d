package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
)

// fakeCatalog is an in-memory stand-in for a database's schema, shared by every connection
// handed out by a test reconciler. It answers the catalog queries and DDL the reconciler
// issues and fails with the same error values the real drivers produce.
type fakeCatalog struct {
	mu      sync.Mutex
	dialect Dialect
	tables  map[string]bool
	columns map[string]bool
	indexes map[string]bool
	ddl     int

	// staleLookups makes every catalog lookup report "absent", reproducing the window in
	// which several instances inspect the schema before any of them changes it.
	staleLookups bool
	// racyConditional makes Postgres IF NOT EXISTS DDL fail with the race codes when the
	// object already exists, as concurrent sessions can.
	racyConditional bool
	// failOn returns the given error for any statement containing the key.
	failOn map[string]error
}

func newFakeCatalog(d Dialect) *fakeCatalog {
	return &fakeCatalog{
		dialect: d,
		tables:  map[string]bool{},
		columns: map[string]bool{},
		indexes: map[string]bool{},
		failOn:  map[string]error{},
	}
}

func (f *fakeCatalog) reconciler(ops []SchemaOp) *Reconciler {
	return &Reconciler{
		acquire: func(ctx context.Context) (SchemaConn, error) {
			return &fakeConn{cat: f}, nil
		},
		ops: ops,
	}
}

// snapshot returns a sorted description of the schema for equality checks.
func (f *fakeCatalog) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for t := range f.tables {
		out = append(out, "table:"+t)
	}
	for c := range f.columns {
		out = append(out, "column:"+c)
	}
	for i := range f.indexes {
		out = append(out, "index:"+i)
	}
	sort.Strings(out)
	return out
}

type fakeConn struct {
	cat *fakeCatalog
}

var (
	createTableRe = regexp.MustCompile(`^CREATE TABLE (IF NOT EXISTS )?(\w+) \(`)
	addColumnRe   = regexp.MustCompile(`^ALTER TABLE (\w+) ADD COLUMN (IF NOT EXISTS )?(\w+) `)
	createIndexRe = regexp.MustCompile(`^CREATE (UNIQUE )?INDEX (IF NOT EXISTS )?(\w+) ON (\w+) `)
	columnDefRe   = regexp.MustCompile(`(?m)^\s*([a-z_]+) [A-Z]`)
)

func (c *fakeConn) Dialect() Dialect { return c.cat.dialect }
func (c *fakeConn) Commit() error { return nil }
func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	f := c.cat
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleLookups {
		return 0, nil
	}
	var hit bool
	switch {
	case strings.Contains(query, "information_schema.TABLES"):
		hit = f.tables[args[0].(string)]
	case strings.Contains(query, "information_schema.COLUMNS"):
		hit = f.columns[args[0].(string)+"."+args[1].(string)]
	case strings.Contains(query, "information_schema.STATISTICS"):
		hit = f.indexes[args[1].(string)]
	default:
		return 0, fmt.Errorf("unexpected query %q", query)
	}
	if hit {
		return 1, nil
	}
	return 0, nil
}

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f := c.cat
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, err := range f.failOn {
		if strings.Contains(query, key) {
			return nil, err
		}
	}
	f.ddl++

	if m := createTableRe.FindStringSubmatch(query); m != nil {
		conditional, table := m[1] != "", m[2]
		if f.tables[table] {
			return nil, f.existsErr(conditional, "42P07", myTableExists)
		}
		f.tables[table] = true
		for _, col := range columnDefRe.FindAllStringSubmatch(query[strings.Index(query, "(")+1:], -1) {
			if col[1] != "CONSTRAINT" {
				f.columns[table+"."+col[1]] = true
			}
		}
		return driver.RowsAffected(0), nil
	}
	if m := addColumnRe.FindStringSubmatch(query); m != nil {
		table, conditional, column := m[1], m[2] != "", m[3]
		if !f.tables[table] {
			return nil, f.missingTableErr(table)
		}
		if f.columns[table+"."+column] {
			return nil, f.existsErr(conditional, "42701", myDupFieldName)
		}
		f.columns[table+"."+column] = true
		return driver.RowsAffected(0), nil
	}
	if m := createIndexRe.FindStringSubmatch(query); m != nil {
		conditional, index, table := m[2] != "", m[3], m[4]
		if !f.tables[table] {
			return nil, f.missingTableErr(table)
		}
		if f.indexes[index] {
			return nil, f.existsErr(conditional, "42P07", myDupKeyName)
		}
		f.indexes[index] = true
		return driver.RowsAffected(0), nil
	}
	return nil, fmt.Errorf("unexpected statement %q", query)
}

func (f *fakeCatalog) existsErr(conditional bool, pgCode string, myNumber uint16) error {
	if f.dialect == DialectPostgres {
		if conditional && !f.racyConditional {
			return nil
		}
		return &pgconn.PgError{Code: pgCode, Message: "already exists"}
	}
	return &mysql.MySQLError{Number: myNumber, Message: "already exists"}
}

func (f *fakeCatalog) missingTableErr(table string) error {
	if f.dialect == DialectPostgres {
		return &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	return &mysql.MySQLError{Number: 1146, Message: fmt.Sprintf("Table '%s' doesn't exist", table)}
}

func TestReconcile_FreshSchema(t *testing.T) {
	for _, d := range []Dialect{DialectMySQL, DialectPostgres} {
		t.Run(d.String(), func(t *testing.T) {
			cat := newFakeCatalog(d)
			err := cat.reconciler(DefaultSchema()).Reconcile(context.Background())
			require.NoError(t, err)

			snap := cat.snapshot()
			assert.Contains(t, snap, "table:users")
			assert.Contains(t, snap, "table:bikes")
			assert.Contains(t, snap, "table:messages")
			assert.Contains(t, snap, "column:users.password_hash")
			assert.Contains(t, snap, "column:bikes.location_name")
			assert.Contains(t, snap, "column:bikes.latitude")
			assert.Contains(t, snap, "column:bikes.longitude")
			assert.Contains(t, snap, "index:users_name_key")
			assert.Contains(t, snap, "index:idx_messages_bike_created_at")
		})
	}
}

func TestReconcile_IdempotentAcrossRuns(t *testing.T) {
	for _, d := range []Dialect{DialectMySQL, DialectPostgres} {
		t.Run(d.String(), func(t *testing.T) {
			cat := newFakeCatalog(d)
			r := cat.reconciler(DefaultSchema())

			require.NoError(t, r.Reconcile(context.Background()))
			first := cat.snapshot()

			for i := 0; i < 3; i++ {
				require.NoError(t, r.Reconcile(context.Background()), "run %d", i+2)
				assert.Equal(t, first, cat.snapshot())
			}
		})
	}
}

func TestReconcile_MySQLSkipsDDLWhenCatalogSaysPresent(t *testing.T) {
	cat := newFakeCatalog(DialectMySQL)
	r := cat.reconciler(DefaultSchema())
	require.NoError(t, r.Reconcile(context.Background()))
	ddlAfterFirst := cat.ddl

	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, ddlAfterFirst, cat.ddl, "second run must not issue DDL")
}

func TestReconcile_LegacyDatabaseGetsOnlyMissingChanges(t *testing.T) {
	cat := newFakeCatalog(DialectMySQL)
	for _, tbl := range []string{"users", "bikes", "messages"} {
		cat.tables[tbl] = true
	}
	cat.columns["users.name"] = true
	cat.columns["bikes.location_name"] = true

	require.NoError(t, cat.reconciler(DefaultSchema()).Reconcile(context.Background()))

	snap := cat.snapshot()
	assert.Contains(t, snap, "column:users.password_hash")
	assert.Contains(t, snap, "column:bikes.latitude")
	assert.Contains(t, snap, "index:users_name_key")
}

func TestReconcile_ConcurrentInstancesConverge(t *testing.T) {
	for _, d := range []Dialect{DialectMySQL, DialectPostgres} {
		t.Run(d.String(), func(t *testing.T) {
			reference := newFakeCatalog(d)
			require.NoError(t, reference.reconciler(DefaultSchema()).Reconcile(context.Background()))

			cat := newFakeCatalog(d)
			cat.staleLookups = true
			cat.racyConditional = true

			const instances = 4
			var wg sync.WaitGroup
			errs := make([]error, instances)
			for i := 0; i < instances; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = cat.reconciler(DefaultSchema()).Reconcile(context.Background())
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				assert.NoError(t, err, "instance %d", i)
			}
			assert.Equal(t, reference.snapshot(), cat.snapshot())
		})
	}
}

func TestReconcile_UnknownErrorIsFatal(t *testing.T) {
	cases := []struct {
		name    string
		dialect Dialect
		err     error
	}{
		{"mysql lock wait timeout", DialectMySQL, &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}},
		{"mysql duplicate entry", DialectMySQL, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob' for key 'users_name_key'"}},
		{"postgres syntax error", DialectPostgres, &pgconn.PgError{Code: "42601", Message: "syntax error"}},
		{"postgres duplicate user data", DialectPostgres, &pgconn.PgError{Code: "23505", ConstraintName: "users_name_key", Message: "could not create unique index"}},
		{"driver error without code", DialectPostgres, errors.New("connection reset by peer")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat := newFakeCatalog(tc.dialect)
			cat.failOn["users_name_key"] = tc.err

			err := cat.reconciler(DefaultSchema()).Reconcile(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrSchema), "want schema error, got %v", err)
			assert.ErrorIs(t, err, tc.err)
			assert.Contains(t, err.Error(), "users_name_key")
		})
	}
}

func TestReconcile_CatalogRaceOnPostgresIsTolerated(t *testing.T) {
	cat := newFakeCatalog(DialectPostgres)
	cat.failOn["idx_bikes_sale_type"] = &pgconn.PgError{Code: "23505", ConstraintName: "pg_class_relname_nsp_index"}

	assert.NoError(t, cat.reconciler(DefaultSchema()).Reconcile(context.Background()))
}

func TestReconcile_ResumesAfterPartialFailure(t *testing.T) {
	cat := newFakeCatalog(DialectMySQL)
	cat.failOn["latitude"] = &mysql.MySQLError{Number: 2013, Message: "Lost connection to MySQL server during query"}
	r := cat.reconciler(DefaultSchema())

	err := r.Reconcile(context.Background())
	require.Error(t, err)
	snap := cat.snapshot()
	assert.Contains(t, snap, "column:bikes.location_name", "changes before the failure stay applied")
	assert.NotContains(t, snap, "column:bikes.latitude")

	delete(cat.failOn, "latitude")
	require.NoError(t, r.Reconcile(context.Background()))
	reference := newFakeCatalog(DialectMySQL)
	require.NoError(t, reference.reconciler(DefaultSchema()).Reconcile(context.Background()))
	assert.Equal(t, reference.snapshot(), cat.snapshot())
}

func TestReconcile_InvalidIdentifierRejected(t *testing.T) {
	cat := newFakeCatalog(DialectMySQL)
	ops := []SchemaOp{AddColumn("users; DROP TABLE users", "x", "TEXT", "TEXT")}

	err := cat.reconciler(ops).Reconcile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrSchema))
	assert.Equal(t, 0, cat.ddl)
}

func TestReconcile_AcquireFailureIsSchemaError(t *testing.T) {
	r := &Reconciler{
		acquire: func(ctx context.Context) (SchemaConn, error) {
			return nil, apperr.Backend(errors.New("dial tcp: connection refused"), "failed to acquire connection")
		},
		ops: DefaultSchema(),
	}
	err := r.Reconcile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrSchema))
}

func TestSchemaOp_Statements(t *testing.T) {
	col := AddColumn("users", "password_hash", "TEXT", "TEXT")
	assert.Equal(t, "ALTER TABLE users ADD COLUMN IF NOT EXISTS password_hash TEXT", col.conditionalDDL())
	assert.Equal(t, "ALTER TABLE users ADD COLUMN password_hash TEXT", col.plainDDL())

	idx := AddUniqueIndex("users", "users_name_key", "name")
	assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS users_name_key ON users (name)", idx.conditionalDDL())
	assert.Equal(t, "CREATE UNIQUE INDEX users_name_key ON users (name)", idx.plainDDL())
	q, args := idx.presenceQuery()
	assert.Contains(t, q, "information_schema.STATISTICS")
	assert.Equal(t, []any{"users", "users_name_key"}, args)

	lat := AddColumn("bikes", "latitude", "DOUBLE PRECISION", "DOUBLE")
	assert.Contains(t, lat.conditionalDDL(), "DOUBLE PRECISION")
	assert.True(t, strings.HasSuffix(lat.plainDDL(), "latitude DOUBLE"))
}

func TestSchemaOp_Columns(t *testing.T) {
	ops := DefaultSchema()
	assert.Equal(t, "users", ops[0].Table())
	assert.Equal(t, []string{"id", "name", "created_at"}, ops[0].Columns())

	var saleType SchemaOp
	for _, op := range ops {
		if op.Index() == "idx_bikes_sale_type" {
			saleType = op
		}
	}
	assert.Equal(t, "bikes", saleType.Table())
	assert.Equal(t, []string{"sale_type"}, saleType.Columns())
	assert.Equal(t, []string{"password_hash"}, AddColumn("users", "password_hash", "TEXT", "TEXT").Columns())
}
