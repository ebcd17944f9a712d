package db

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes.
const (
	pgDuplicateColumn = "42701"
	pgDuplicateTable  = "42P07"
	pgDuplicateObject = "42710"
	pgUniqueViolation = "23505"
	pgClassNameIndex  = "pg_class_relname_nsp_index"
	pgTypeNameIndex   = "pg_type_typname_nsp_index"
)

// MySQL server error numbers.
const (
	myTableExists  = 1050 // ER_TABLE_EXISTS_ERROR
	myDupFieldName = 1060 // ER_DUP_FIELDNAME
	myDupKeyName   = 1061 // ER_DUP_KEYNAME
	myDupEntry     = 1062 // ER_DUP_ENTRY
)

// IsAlreadyApplied reports whether err means an additive schema change already exists,
// typically because another instance applied it concurrently. Only the codes enumerated
// here qualify; everything else is a real failure.
func IsAlreadyApplied(d Dialect, err error) bool {
	if err == nil {
		return false
	}
	switch d {
	case DialectPostgres:
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			return false
		}
		switch pgErr.Code {
		case pgDuplicateColumn, pgDuplicateTable, pgDuplicateObject:
			return true
		case pgUniqueViolation:
			// Concurrent CREATE ... IF NOT EXISTS collides on the system catalogs. A unique
			// violation on any other constraint means user data blocks the change.
			return pgErr.ConstraintName == pgClassNameIndex || pgErr.ConstraintName == pgTypeNameIndex
		default:
			return false
		}
	case DialectMySQL:
		var myErr *mysql.MySQLError
		if !errors.As(err, &myErr) {
			return false
		}
		switch myErr.Number {
		case myTableExists, myDupFieldName, myDupKeyName:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// IsUniqueViolation reports whether err is a unique-constraint violation on user data.
func IsUniqueViolation(d Dialect, err error) bool {
	switch d {
	case DialectPostgres:
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			pgErr.ConstraintName != pgClassNameIndex && pgErr.ConstraintName != pgTypeNameIndex
	case DialectMySQL:
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == myDupEntry
	default:
		return false
	}
}
