package dialect

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLite is the SQLite dialect. A configured URL switches to a remote libsql database.
type SQLite struct{}

var sqliteCodes = map[sqlite3.ErrNoExtended]string{
	sqlite3.ErrConstraintUnique:     "ER_DUP_ENTRY",
	sqlite3.ErrConstraintPrimaryKey: "ER_DUP_ENTRY",
	sqlite3.ErrConstraintForeignKey: "ER_ROW_IS_REFERENCED_2",
	sqlite3.ErrConstraintNotNull:    "ER_BAD_FIELD_ERROR",
	sqlite3.ErrConstraintCheck:      "ER_TRUNCATED_WRONG_VALUE",
}

func (SQLite) Kind() Kind { return KindSQLite }

// Driver is libsql for a remote URL and mattn/go-sqlite3 otherwise.
func (SQLite) Driver(c ConnConfig) string {
	if c.URL != "" {
		return "libsql"
	}
	return "sqlite3"
}

// DSN appends the password as the libsql auth token for remote databases. Local
// files, or :memory: when no database is named, open with foreign keys enforced.
func (SQLite) DSN(c ConnConfig) string {
	if c.URL != "" {
		if c.Password == "" {
			return c.URL
		}
		sep := "?"
		if strings.Contains(c.URL, "?") {
			sep = "&"
		}
		return c.URL + sep + "authToken=" + url.QueryEscape(c.Password)
	}
	path := c.Database
	if path == "" {
		path = ":memory:"
	}
	return "file:" + path + "?_foreign_keys=on"
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) Like() string { return "LIKE" }

// CaseSensitive is the identity: the default BINARY collation already compares bytes.
func (SQLite) CaseSensitive(column string) string { return column }

func (SQLite) AutoIncrement() (string, bool) { return "INTEGER PRIMARY KEY AUTOINCREMENT", true }

func (SQLite) EnumType(_, column string, values []string) string {
	return fmt.Sprintf("TEXT CHECK (%s IN (%s))", column, quoteValues(values))
}

func (SQLite) CreateEnumType(string, string, []string) string { return "" }

func (SQLite) DeferredForeignKeys() bool { return true }

func (SQLite) Timestamps() (string, string) {
	return "createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
		"updatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP"
}

func (SQLite) ListTables() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
}

func (SQLite) ForeignKeyChecks() (string, string) {
	return "PRAGMA foreign_keys = OFF", "PRAGMA foreign_keys = ON"
}

// Truncate deletes every row, then resets the AUTOINCREMENT counters so ids
// restart at 1 as they do after TRUNCATE on the other backends. It expects
// sqlite_sequence to exist, which holds once any AUTOINCREMENT table was created.
func (SQLite) Truncate(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	stmts := make([]string, 0, len(tables)+1)
	for _, t := range tables {
		stmts = append(stmts, "DELETE FROM "+t)
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = "'" + t + "'"
	}
	return append(stmts, "DELETE FROM sqlite_sequence WHERE name IN ("+strings.Join(names, ", ")+")")
}

func (SQLite) ErrorCode(err error) (string, bool) {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return "", false
	}
	if code, ok := sqliteCodes[sqErr.ExtendedCode]; ok {
		return code, true
	}
	switch sqErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return "ER_LOCK_WAIT_TIMEOUT", true
	case sqlite3.ErrTooBig:
		return "ER_DATA_TOO_LONG", true
	case sqlite3.ErrPerm, sqlite3.ErrAuth:
		return "ER_ACCESS_DENIED_ERROR", true
	case sqlite3.ErrCantOpen:
		return "ER_BAD_DB_ERROR", true
	case sqlite3.ErrMismatch:
		return "ER_TRUNCATED_WRONG_VALUE", true
	case sqlite3.ErrError:
		// Generic SQL errors only carry their meaning in the message.
		msg := sqErr.Error()
		switch {
		case strings.Contains(msg, "no such table"):
			return "ER_NO_SUCH_TABLE", true
		case strings.Contains(msg, "no such column"), strings.Contains(msg, "has no column named"):
			return "ER_BAD_FIELD_ERROR", true
		case strings.Contains(msg, "already exists"):
			return "ER_TABLE_EXISTS_ERROR", true
		case strings.Contains(msg, "syntax error"):
			return "ER_PARSE_ERROR", true
		}
	}
	return "", false
}
