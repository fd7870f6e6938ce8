package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

// ErrInvalidTableNames is returned when a truncate list holds something that is not a table name.
var ErrInvalidTableNames = errors.New("invalid table name format")

// Conner hands out a dedicated connection. *sql.DB and *Pool implement it.
type Conner interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// TruncateAll empties tables, or every table in the catalog when tables is empty.
// All statements run on one connection so session-level foreign key switches
// cover the whole batch; checks are re-enabled on every exit path.
func TruncateAll(ctx context.Context, db Conner, d dialect.Dialect, tables []string) (err error) {
	for _, t := range tables {
		if tools.ValidateIdentifier(t) != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTableNames, t)
		}
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if len(tables) == 0 {
		tables, err = listTables(ctx, conn, d)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			return nil
		}
	}

	disable, enable := d.ForeignKeyChecks()
	if disable != "" {
		if _, err := conn.ExecContext(ctx, disable); err != nil {
			return fmt.Errorf("disable foreign key checks: %w", err)
		}
		defer func() {
			if _, enableErr := conn.ExecContext(context.WithoutCancel(ctx), enable); enableErr != nil {
				err = errors.Join(err, fmt.Errorf("enable foreign key checks: %w", enableErr))
			}
		}()
	}

	for _, stmt := range d.Truncate(tables) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}
	tools.Logger.Info("tables truncated", "tables", tables)
	return nil
}

func listTables(ctx context.Context, conn *sql.Conn, d dialect.Dialect) ([]string, error) {
	rows, err := conn.QueryContext(ctx, d.ListTables())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if tools.ValidateIdentifier(name) != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTableNames, name)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
