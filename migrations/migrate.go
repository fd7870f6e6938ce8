// Package migrations renders and applies the CREATE TABLE statements for the
// application's tables on any supported dialect.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

var (
	ErrNoColumns             = errors.New("no columns defined")
	ErrMultipleAutoIncrement = errors.New("more than one auto-increment column")
	ErrNoDataType            = errors.New("column has no data type")
)

// Reference points a column at another table's key.
type Reference struct {
	Table string
	Key   string
}

// ColumnSpec is one column in dialect-neutral form.
type ColumnSpec struct {
	Name string
	// DataType is copied into the DDL as is, except for ENUM('a','b') literals
	// which each dialect renders its own way.
	DataType      string
	Nullable      bool
	Unique        bool
	AutoIncrement bool
	// Default is a SQL literal, e.g. "'active'" or "0".
	Default    string
	References *Reference
}

// TableSpec describes a table to create.
type TableSpec struct {
	TableName string
	Columns   []ColumnSpec
	// Timestamp appends createdAt and updatedAt columns.
	Timestamp bool
}

// TableFailure records why one table could not be migrated.
type TableFailure struct {
	Table string
	Err   error
}

// MigrationError collects every failed table of a Migrate call, in input order.
type MigrationError struct {
	Failures []TableFailure
}

func (e *MigrationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Table + ": " + f.Err.Error()
	}
	return fmt.Sprintf("migration failed for %d table(s): %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *MigrationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Migrator creates tables through exec.
type Migrator struct {
	d      dialect.Dialect
	exec   data.Executor
	logger *slog.Logger
}

// NewMigrator returns a Migrator. A nil logger uses tools.Logger.
func NewMigrator(d dialect.Dialect, exec data.Executor, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = tools.Logger
	}
	return &Migrator{d: d, exec: exec, logger: logger}
}

// BuildDDL renders the idempotent CREATE TABLE statement for spec.
func (m *Migrator) BuildDDL(spec TableSpec) (string, error) {
	if err := tools.ValidateTableName(spec.TableName); err != nil {
		return "", err
	}
	if len(spec.Columns) == 0 {
		return "", ErrNoColumns
	}

	var defs, constraints []string
	seen := make(map[string]bool, len(spec.Columns))
	autoInc := 0
	for _, col := range spec.Columns {
		if err := tools.ValidateColumnName(col.Name); err != nil {
			return "", err
		}
		if seen[col.Name] {
			return "", fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = true

		if col.AutoIncrement {
			autoInc++
			if autoInc > 1 {
				return "", fmt.Errorf("%w: %q", ErrMultipleAutoIncrement, col.Name)
			}
		}

		def, err := m.column(spec.TableName, col)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)

		if col.References != nil {
			fk, err := m.foreignKey(spec.TableName, col)
			if err != nil {
				return "", err
			}
			constraints = append(constraints, fk)
		}
	}

	if spec.Timestamp {
		createdAt, updatedAt := m.d.Timestamps()
		defs = append(defs, createdAt, updatedAt)
	}
	// SQLite only accepts table constraints after every column.
	defs = append(defs, constraints...)

	return "CREATE TABLE IF NOT EXISTS " + spec.TableName + " (" + strings.Join(defs, ", ") + ")", nil
}

// column renders name type [NOT NULL] [UNIQUE] [autoinc] [DEFAULT x].
func (m *Migrator) column(table string, col ColumnSpec) (string, error) {
	parts := []string{col.Name}

	var autoInc string
	replaced := false
	if col.AutoIncrement {
		autoInc, replaced = m.d.AutoIncrement()
	}

	if !replaced {
		typ := strings.TrimSpace(col.DataType)
		if values, ok := dialect.ParseEnum(typ); ok {
			typ = m.d.EnumType(table, col.Name, values)
		}
		if typ == "" {
			return "", fmt.Errorf("%w: %q", ErrNoDataType, col.Name)
		}
		parts = append(parts, typ)
		if !col.Nullable {
			parts = append(parts, "NOT NULL")
		}
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if autoInc != "" {
		parts = append(parts, autoInc)
	}
	if col.Default != "" {
		parts = append(parts, "DEFAULT "+col.Default)
	}
	return strings.Join(parts, " "), nil
}

func (m *Migrator) foreignKey(table string, col ColumnSpec) (string, error) {
	ref := col.References
	if err := tools.ValidateTableName(ref.Table); err != nil {
		return "", fmt.Errorf("column %q references: %w", col.Name, err)
	}
	if err := tools.ValidateColumnName(ref.Key); err != nil {
		return "", fmt.Errorf("column %q references: %w", col.Name, err)
	}

	fk := fmt.Sprintf("CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s(%s)",
		table, col.Name, col.Name, ref.Table, ref.Key)
	if m.d.DeferredForeignKeys() {
		fk += " DEFERRABLE INITIALLY DEFERRED"
	}
	return fk, nil
}

// Migrate creates every table in specs, in order. A failing table does not stop
// the others; all failures are returned together as a *MigrationError.
func (m *Migrator) Migrate(ctx context.Context, specs []TableSpec) error {
	var failures []TableFailure
	for _, spec := range specs {
		if err := m.migrateTable(ctx, spec); err != nil {
			m.logger.Error("migration failed", "table", spec.TableName, "error", err)
			failures = append(failures, TableFailure{Table: spec.TableName, Err: err})
			continue
		}
		m.logger.Info("table migrated", "table", spec.TableName)
	}

	if len(failures) > 0 {
		return &MigrationError{Failures: failures}
	}
	m.logger.Info("all migrations completed", "tables", len(specs))
	return nil
}

func (m *Migrator) migrateTable(ctx context.Context, spec TableSpec) error {
	ddl, err := m.BuildDDL(spec)
	if err != nil {
		return err
	}

	// Named enum types must exist before the table referencing them.
	for _, col := range spec.Columns {
		values, ok := dialect.ParseEnum(col.DataType)
		if !ok || col.AutoIncrement {
			continue
		}
		stmt := m.d.CreateEnumType(spec.TableName, col.Name, values)
		if stmt == "" {
			continue
		}
		if _, err := m.exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create enum type for %s.%s: %w", spec.TableName, col.Name, err)
		}
	}

	if _, err := m.exec.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}
