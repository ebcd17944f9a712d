package db

import (
	"fmt"
	"regexp"
	"strings"
)

type opKind int

const (
	opCreateTable opKind = iota + 1
	opAddColumn
	opAddIndex
)

// SchemaOp is one additive schema change. It never drops, renames or alters existing
// structure, so applying it again once it exists is a no-op.
type SchemaOp struct {
	kind    opKind
	table   string
	column  string
	index   string
	columns []string
	unique  bool
	// defs holds the table body or the column type, per dialect.
	defs map[Dialect]string
}

// CreateTable creates table with the given per-dialect column definitions if it is absent.
func CreateTable(table, postgresBody, mysqlBody string) SchemaOp {
	return SchemaOp{
		kind:  opCreateTable,
		table: table,
		defs:  map[Dialect]string{DialectPostgres: postgresBody, DialectMySQL: mysqlBody},
	}
}

// AddColumn adds column to table if it is absent.
func AddColumn(table, column, postgresType, mysqlType string) SchemaOp {
	return SchemaOp{
		kind:   opAddColumn,
		table:  table,
		column: column,
		defs:   map[Dialect]string{DialectPostgres: postgresType, DialectMySQL: mysqlType},
	}
}

// AddIndex adds a non-unique index if it is absent.
func AddIndex(table, name string, columns ...string) SchemaOp {
	return SchemaOp{kind: opAddIndex, table: table, index: name, columns: columns}
}

// AddUniqueIndex adds a unique index if it is absent.
func AddUniqueIndex(table, name string, columns ...string) SchemaOp {
	return SchemaOp{kind: opAddIndex, table: table, index: name, columns: columns, unique: true}
}

// Table is the table the op creates or changes.
func (op SchemaOp) Table() string { return op.table }

// Index is the index name of an index op, empty otherwise.
func (op SchemaOp) Index() string { return op.index }

// Columns lists the columns the op creates or covers. For a table these are read from
// its Postgres body; constraint lines are skipped.
func (op SchemaOp) Columns() []string {
	switch op.kind {
	case opCreateTable:
		var cols []string
		for _, line := range strings.Split(op.defs[DialectPostgres], "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 || strings.EqualFold(fields[0], "CONSTRAINT") {
				continue
			}
			cols = append(cols, fields[0])
		}
		return cols
	case opAddColumn:
		return []string{op.column}
	default:
		return op.columns
	}
}

func (op SchemaOp) String() string {
	switch op.kind {
	case opCreateTable:
		return "create table " + op.table
	case opAddColumn:
		return fmt.Sprintf("add column %s.%s", op.table, op.column)
	case opAddIndex:
		if op.unique {
			return fmt.Sprintf("add unique index %s on %s(%s)", op.index, op.table, strings.Join(op.columns, ", "))
		}
		return fmt.Sprintf("add index %s on %s(%s)", op.index, op.table, strings.Join(op.columns, ", "))
	default:
		return "unknown schema op"
	}
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// validate guards the identifiers that are formatted into DDL text.
func (op SchemaOp) validate(d Dialect) error {
	idents := []string{op.table}
	switch op.kind {
	case opCreateTable:
		if strings.TrimSpace(op.defs[d]) == "" {
			return fmt.Errorf("%s: no %s definition", op, d)
		}
	case opAddColumn:
		idents = append(idents, op.column)
		if strings.TrimSpace(op.defs[d]) == "" {
			return fmt.Errorf("%s: no %s column type", op, d)
		}
	case opAddIndex:
		if len(op.columns) == 0 {
			return fmt.Errorf("%s: no columns", op)
		}
		idents = append(idents, op.index)
		idents = append(idents, op.columns...)
	default:
		return fmt.Errorf("unknown schema op kind %d", op.kind)
	}
	for _, id := range idents {
		if !identRe.MatchString(id) {
			return fmt.Errorf("%s: invalid identifier %q", op, id)
		}
	}
	return nil
}

// conditionalDDL renders the statement that is safe to run whether or not the change exists.
// Only Postgres supports this for every op kind.
func (op SchemaOp) conditionalDDL() string {
	switch op.kind {
	case opCreateTable:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", op.table, op.defs[DialectPostgres])
	case opAddColumn:
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", op.table, op.column, op.defs[DialectPostgres])
	default:
		return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", op.uniqueKeyword(), op.index, op.table, strings.Join(op.columns, ", "))
	}
}

// plainDDL renders the unconditional MySQL statement, run only after the catalog says the
// change is absent.
func (op SchemaOp) plainDDL() string {
	switch op.kind {
	case opCreateTable:
		return fmt.Sprintf("CREATE TABLE %s (%s) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", op.table, op.defs[DialectMySQL])
	case opAddColumn:
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", op.table, op.column, op.defs[DialectMySQL])
	default:
		return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", op.uniqueKeyword(), op.index, op.table, strings.Join(op.columns, ", "))
	}
}

// presenceQuery returns the MySQL catalog query counting matches for this op, and its args.
func (op SchemaOp) presenceQuery() (string, []any) {
	switch op.kind {
	case opCreateTable:
		return `SELECT COUNT(*) FROM information_schema.TABLES
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`, []any{op.table}
	case opAddColumn:
		return `SELECT COUNT(*) FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`, []any{op.table, op.column}
	default:
		return `SELECT COUNT(*) FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?`, []any{op.table, op.index}
	}
}

func (op SchemaOp) uniqueKeyword() string {
	if op.unique {
		return "UNIQUE "
	}
	return ""
}

// DefaultSchema is the ordered list of additive operations for the current entity model.
// Tables are created in their original shape; later columns and indexes are layered on top
// so that databases created by older releases converge to the same result.
func DefaultSchema() []SchemaOp {
	return []SchemaOp{
		CreateTable("users",
			`id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
			`id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)`),
		CreateTable("bikes",
			`id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  model TEXT,
  image_url TEXT,
  sale_type TEXT NOT NULL CHECK (sale_type IN ('sale', 'rental', 'both')),
  sale_price NUMERIC(12,2),
  rental_price NUMERIC(12,2),
  bike_condition TEXT,
  description TEXT,
  owner_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
			`id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  model VARCHAR(255),
  image_url TEXT,
  sale_type VARCHAR(16) NOT NULL,
  sale_price DECIMAL(12,2),
  rental_price DECIMAL(12,2),
  bike_condition VARCHAR(255),
  description TEXT,
  owner_id BIGINT NULL,
  created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
  CONSTRAINT chk_bikes_sale_type CHECK (sale_type IN ('sale', 'rental', 'both')),
  CONSTRAINT fk_bikes_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE SET NULL`),
		CreateTable("messages",
			`id BIGSERIAL PRIMARY KEY,
  bike_id BIGINT NOT NULL REFERENCES bikes(id) ON DELETE CASCADE,
  sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  content TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
			`id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  bike_id BIGINT NOT NULL,
  sender_id BIGINT NOT NULL,
  receiver_id BIGINT NOT NULL,
  content TEXT NOT NULL,
  created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
  CONSTRAINT fk_messages_bike FOREIGN KEY (bike_id) REFERENCES bikes(id) ON DELETE CASCADE,
  CONSTRAINT fk_messages_sender FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE,
  CONSTRAINT fk_messages_receiver FOREIGN KEY (receiver_id) REFERENCES users(id) ON DELETE CASCADE`),

		AddColumn("users", "password_hash", "TEXT", "TEXT"),
		AddUniqueIndex("users", "users_name_key", "name"),

		AddColumn("bikes", "location_name", "TEXT", "TEXT"),
		AddColumn("bikes", "latitude", "DOUBLE PRECISION", "DOUBLE"),
		AddColumn("bikes", "longitude", "DOUBLE PRECISION", "DOUBLE"),
		AddIndex("bikes", "idx_bikes_created_at", "created_at"),
		AddIndex("bikes", "idx_bikes_sale_type", "sale_type"),

		AddIndex("messages", "idx_messages_bike_created_at", "bike_id", "created_at"),
	}
}
