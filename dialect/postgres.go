package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres is the PostgreSQL dialect.
type Postgres struct{}

// postgresCodes maps SQLSTATE values to taxonomy codes.
var postgresCodes = map[string]string{
	"23505": "ER_DUP_ENTRY",
	"42703": "ER_BAD_FIELD_ERROR",
	"42P01": "ER_NO_SUCH_TABLE",
	"23503": "ER_ROW_IS_REFERENCED_2",
	"28P01": "ER_ACCESS_DENIED_ERROR",
	"28000": "ER_ACCESS_DENIED_ERROR",
	"3D000": "ER_BAD_DB_ERROR",
	"42601": "ER_PARSE_ERROR",
	"53300": "ER_CON_COUNT_ERROR",
	"42P04": "ER_DB_CREATE_EXISTS",
	"42P07": "ER_TABLE_EXISTS_ERROR",
	"55P03": "ER_LOCK_WAIT_TIMEOUT",
	"22001": "ER_DATA_TOO_LONG",
	"22P02": "ER_TRUNCATED_WRONG_VALUE",
	"22007": "ER_TRUNCATED_WRONG_VALUE",
	"08P01": "ER_MALFORMED_PACKET",
}

func (Postgres) Kind() Kind { return KindPostgres }

func (Postgres) Driver(c ConnConfig) string {
	if c.Driver == "pq" || c.Driver == "postgres" {
		return "postgres"
	}
	return "pgx"
}

// DSN builds a key/value connection string understood by both pgx and lib/pq.
func (Postgres) DSN(c ConnConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		"host=" + pgValue(c.Host),
		"port=" + strconv.Itoa(port),
	}
	if c.User != "" {
		parts = append(parts, "user="+pgValue(c.User))
	}
	if c.Password != "" {
		parts = append(parts, "password="+pgValue(c.Password))
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+pgValue(c.Database))
	}
	parts = append(parts, "sslmode="+pgValue(sslmode))
	return strings.Join(parts, " ")
}

var pgEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// pgValue quotes a key/value DSN value when it is empty or holds a space, quote or backslash.
func pgValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + pgEscaper.Replace(v) + "'"
}

func (Postgres) Placeholder(i int) string { return "$" + strconv.Itoa(i) }

func (Postgres) Like() string { return "ILIKE" }

// CaseSensitive is the identity: text comparison with = is already binary.
func (Postgres) CaseSensitive(column string) string { return column }

func (Postgres) AutoIncrement() (string, bool) { return "SERIAL PRIMARY KEY", true }

func (Postgres) EnumType(table, column string, _ []string) string {
	return enumTypeName(table, column)
}

func (Postgres) CreateEnumType(table, column string, values []string) string {
	name := enumTypeName(table, column)
	return fmt.Sprintf(
		"DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = '%s') THEN CREATE TYPE %s AS ENUM (%s); END IF; END $$;",
		strings.ToLower(name), name, quoteValues(values),
	)
}

func (Postgres) DeferredForeignKeys() bool { return true }

func (Postgres) Timestamps() (string, string) {
	return "createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
		"updatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP"
}

func (Postgres) ListTables() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'"
}

func (Postgres) ForeignKeyChecks() (string, string) { return "", "" }

func (Postgres) Truncate(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	return []string{"TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY"}
}

// ErrorCode maps pgx and lib/pq errors by SQLSTATE. A foreign key violation is
// split by its detail: a missing parent row on insert or update is
// ER_NO_REFERENCED_ROW_2, a child still pointing at a deleted row is ER_ROW_IS_REFERENCED_2.
func (Postgres) ErrorCode(err error) (string, bool) {
	var state, detail string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		state, detail = pgErr.Code, pgErr.Detail
	case errors.As(err, &pqErr):
		state, detail = string(pqErr.Code), pqErr.Detail
	default:
		return "", false
	}
	if state == "23503" && strings.Contains(detail, "is not present in table") {
		return "ER_NO_REFERENCED_ROW_2", true
	}
	code, ok := postgresCodes[state]
	return code, ok
}
