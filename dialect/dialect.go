// Package dialect holds everything that differs between the supported SQL backends.
// A Dialect is picked once at startup from the configured backend kind and is
// shared, read-only, by the query builder, the migrator and the connection layer.
package dialect

import (
	"fmt"
	"strings"
)

// Kind names a supported backend.
type Kind string

const (
	KindMySQL    Kind = "mysql"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// ConnConfig is the backend-neutral connection description each dialect
// turns into a driver name and DSN.
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Driver overrides the default driver for the dialect ("pq" for lib/pq on postgres).
	Driver string
	// URL is a remote database URL (libsql://...). Only used by SQLite.
	URL     string
	SSLMode string
}

// Dialect renders backend-specific SQL fragments. Implementations are stateless.
type Dialect interface {
	Kind() Kind

	// Driver returns the database/sql driver name to open.
	Driver(c ConnConfig) string
	// DSN returns the data source name for Driver.
	DSN(c ConnConfig) string

	// Placeholder returns the bind marker for the i-th parameter, counting from 1.
	Placeholder(i int) string
	// Like returns the case-insensitive pattern operator.
	Like() string
	// CaseSensitive wraps a column reference so comparisons against it are binary.
	CaseSensitive(column string) string

	// AutoIncrement returns the column fragment for an auto-increment primary key.
	// When replacesType is true the fragment stands in for the column's data type and nullability.
	AutoIncrement() (fragment string, replacesType bool)
	// EnumType returns the column type for an enum column.
	EnumType(table, column string, values []string) string
	// CreateEnumType returns an idempotent statement creating the named enum type,
	// or "" if the backend declares enums inline.
	CreateEnumType(table, column string, values []string) string
	// DeferredForeignKeys reports whether foreign keys are declared DEFERRABLE INITIALLY DEFERRED.
	DeferredForeignKeys() bool
	// Timestamps returns the createdAt and updatedAt column definitions.
	Timestamps() (createdAt, updatedAt string)

	// ListTables returns a query yielding one table name per row.
	ListTables() string
	// ForeignKeyChecks returns the statements that disable and re-enable foreign key
	// enforcement for the session, or empty strings when truncation does not need it.
	ForeignKeyChecks() (disable, enable string)
	// Truncate returns the statements emptying the given tables.
	Truncate(tables []string) []string

	// ErrorCode maps a driver error to a taxonomy code.
	ErrorCode(err error) (string, bool)
}

// UnknownKindError is returned by New for an unsupported backend kind.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown database system %q (supported: mysql, postgres, sqlite)", e.Kind)
}

// New returns the dialect for kind. Kind matching is case-insensitive and
// accepts the common aliases "postgresql", "pg" and "sqlite3".
func New(kind string) (Dialect, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindMySQL:
		return MySQL{}, nil
	case KindPostgres, "postgresql", "pg":
		return Postgres{}, nil
	case KindSQLite, "sqlite3":
		return SQLite{}, nil
	}
	return nil, &UnknownKindError{Kind: kind}
}

// All returns every supported dialect.
func All() []Dialect {
	return []Dialect{MySQL{}, Postgres{}, SQLite{}}
}

// ParseEnum extracts the values of an ENUM('a','b') type literal.
func ParseEnum(dataType string) ([]string, bool) {
	t := strings.TrimSpace(dataType)
	if len(t) < 6 || !strings.EqualFold(t[:5], "ENUM(") || !strings.HasSuffix(t, ")") {
		return nil, false
	}
	inner := t[5 : len(t)-1]
	var values []string
	for _, part := range strings.Split(inner, ",") {
		v := strings.TrimSpace(part)
		v = strings.TrimPrefix(v, "'")
		v = strings.TrimSuffix(v, "'")
		v = strings.ReplaceAll(v, "''", "'")
		if v == "" {
			continue
		}
		values = append(values, v)
	}
	return values, len(values) > 0
}

func quoteValues(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

func enumTypeName(table, column string) string {
	return table + "_" + column
}
