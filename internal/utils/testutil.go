package utils

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
)

var testDBDir string

func init() {
	loadTestEnv()
}

// loadTestEnv loads the .env file and sets up test environment variables
func loadTestEnv() {
	_, filename, _, _ := runtime.Caller(0)
	// Try to load .env from project root (2 levels up from this file)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		godotenv.Load()
	}
	testDBDir = os.Getenv("TEST_DB_DIR")
}

// sqliteSchema is db.DefaultSchema() after reconciliation, in SQLite syntax. Keep the two
// in step; TestSetupTestDB_MatchesDefaultSchema fails on any table, column or index missing here.
var sqliteSchema = []string{
	`CREATE TABLE users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  password_hash TEXT,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE UNIQUE INDEX users_name_key ON users (name)`,
	`CREATE TABLE bikes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  model TEXT,
  image_url TEXT,
  sale_type TEXT NOT NULL CHECK (sale_type IN ('sale', 'rental', 'both')),
  sale_price DECIMAL(12,2),
  rental_price DECIMAL(12,2),
  bike_condition TEXT,
  description TEXT,
  owner_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  location_name TEXT,
  latitude DOUBLE,
  longitude DOUBLE
)`,
	`CREATE INDEX idx_bikes_created_at ON bikes (created_at)`,
	`CREATE INDEX idx_bikes_sale_type ON bikes (sale_type)`,
	`CREATE TABLE messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  bike_id INTEGER NOT NULL REFERENCES bikes(id) ON DELETE CASCADE,
  sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  receiver_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  content TEXT NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE INDEX idx_messages_bike_created_at ON messages (bike_id, created_at)`,
}

// SetupTestDB creates a fresh SQLite database with the marketplace schema and returns a
// provider speaking the '?' placeholder dialect. The database is removed with the test.
func SetupTestDB(t *testing.T) *db.Provider {
	t.Helper()
	dir := testDBDir
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, strings.ReplaceAll(t.Name(), "/", "_")+".db")
	_ = os.Remove(path)

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	sqlDB, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "Failed to open SQLite")
	t.Cleanup(func() { sqlDB.Close() })

	for _, stmt := range sqliteSchema {
		_, err := sqlDB.ExecContext(context.Background(), stmt)
		require.NoError(t, err, "Failed to create test schema")
	}
	return db.NewProvider(sqlDB, db.DialectMySQL)
}

// ExecTestSQL runs a raw statement against the test database, for seeding rows the
// services cannot create, such as legacy users without a password.
func ExecTestSQL(t *testing.T, p *db.Provider, query string, args ...any) int64 {
	t.Helper()
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	res, err := conn.Exec(context.Background(), query, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}
