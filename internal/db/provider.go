package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
)

// Settings selects and configures the backing database.
// A non-empty URL selects Postgres; otherwise the discrete MySQL settings are used.
type Settings struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Dialect reports which dialect these settings select.
func (s Settings) Dialect() Dialect {
	if strings.TrimSpace(s.URL) != "" {
		return DialectPostgres
	}
	return DialectMySQL
}

// Provider hands out dialect-tagged connections to a single database.
type Provider struct {
	db      *sql.DB
	dialect Dialect
}

// Open selects the dialect from s and opens a handle to the database.
//
// Postgres needs only the URL. MySQL fails with a configuration error when host, user and
// database name are all empty; config.Load fills documented defaults for each of them, so
// in practice this only triggers for settings built by hand.
func Open(ctx context.Context, s Settings) (*Provider, error) {
	var (
		driver string
		dsn    string
	)
	dialect := s.Dialect()
	switch dialect {
	case DialectPostgres:
		driver, dsn = "pgx", normalizeDSN(s.URL)
	default:
		if s.Host == "" && s.User == "" && s.Name == "" {
			return nil, apperr.Configuration("no DB_URL and no MySQL host, user or database name configured")
		}
		driver, dsn = "mysql", mysqlDSN(s)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperr.Backend(err, "failed to open %s database", dialect)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)

	log.Printf("Database provider configured for %s", dialect)
	return &Provider{db: sqlDB, dialect: dialect}, nil
}

// NewProvider wraps an already opened handle whose dialect is known to the caller.
func NewProvider(sqlDB *sql.DB, dialect Dialect) *Provider {
	return &Provider{db: sqlDB, dialect: dialect}
}

// Dialect returns the dialect every connection from this provider speaks.
func (p *Provider) Dialect() Dialect {
	return p.dialect
}

// Acquire returns a dedicated connection. The caller must Close it on every path.
func (p *Provider) Acquire(ctx context.Context) (*Conn, error) {
	if p == nil || p.db == nil {
		return nil, apperr.Configuration("database provider not initialized")
	}
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, apperr.Backend(err, "failed to acquire %s connection", p.dialect)
	}
	return &Conn{conn: c, dialect: p.dialect}, nil
}

// Ping verifies the database is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	if p == nil || p.db == nil {
		return apperr.Configuration("database provider not initialized")
	}
	if err := p.db.PingContext(ctx); err != nil {
		return apperr.Backend(err, "failed to ping %s database", p.dialect)
	}
	return nil
}

// Close releases the underlying handle.
func (p *Provider) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("Database connection closed.")
	return nil
}

// Conn is a single database connection tagged with its dialect.
// Statements run in autocommit mode: each successful Exec is committed when it returns,
// and no transaction is ever left open on the connection.
type Conn struct {
	conn    *sql.Conn
	dialect Dialect
}

func (c *Conn) Dialect() Dialect {
	return c.dialect
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// QueryInt runs a single-value integer query such as SELECT COUNT(*).
func (c *Conn) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := c.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Insert executes an INSERT and returns the generated id. On Postgres the statement must
// end with RETURNING id; on MySQL the driver's last insert id is used.
func (c *Conn) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	if c.dialect.SupportsReturning() {
		var id int64
		if err := c.conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Commit marks a statement boundary. Statements autocommit, so there is nothing pending;
// it only fails if the connection has already been returned.
func (c *Conn) Commit() error {
	if c == nil || c.conn == nil {
		return sql.ErrConnDone
	}
	return c.conn.Raw(func(any) error { return nil })
}

// Close returns the connection. Calling it more than once is harmless.
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

func mysqlDSN(s Settings) string {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	port := s.Port
	if port == "" {
		port = "3306"
	}
	cfg.Addr = net.JoinHostPort(s.Host, port)
	cfg.DBName = s.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// normalizeDSN converts SQLAlchemy-style driver suffixes to a pgx-compatible DSN.
func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	s = strings.Replace(s, "postgresql+psycopg2://", "postgresql://", 1)
	s = strings.Replace(s, "postgres+psycopg2://", "postgres://", 1)
	s = strings.Replace(s, "postgresql+asyncpg://", "postgresql://", 1)
	s = strings.Replace(s, "postgres+asyncpg://", "postgres://", 1)
	return s
}
