package data

import (
	"context"
	"database/sql"
)

// Executor is an interface that *sql.DB, *sql.Conn, *sql.Tx and *Pool implement.
// This allows query methods to work with either the direct connection or the pool.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Entity describes a table's projection, filterable columns and joined associations.
type Entity struct {
	Table string
	// Includes is both the SELECT projection and the set of request keys usable as filters.
	// An empty list selects table.*.
	Includes []string
	// Alias renames columns in the projection (column -> output name).
	Alias map[string]string
	// Writable lists extra columns accepted in create and update bodies that are
	// never selected or filtered on (e.g. password hashes).
	Writable     []string
	Associations []Association
}

// Association joins exactly one other table.
type Association struct {
	Table string
	// ForeignKey and References are qualified columns, e.g. "users.roleId" and "roles.id".
	ForeignKey string
	References string
	Includes   []string
	// Alias renames joined columns. Filters address joined columns by their alias.
	Alias map[string]string
	// JoinType defaults to INNER JOIN.
	JoinType string
}

// Join types accepted in Association.JoinType.
const (
	InnerJoin = "INNER JOIN"
	LeftJoin  = "LEFT JOIN"
	RightJoin = "RIGHT JOIN"
)

// QueryPlan is a rendered statement and its arguments, in placeholder order.
type QueryPlan struct {
	Query  string
	Params []any
}

// Result summarizes a write.
type Result struct {
	AffectedRows int64 `json:"affectedRows"`
	InsertID     int64 `json:"insertId,omitempty"`
}
