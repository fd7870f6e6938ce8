package data

import (
	"context"
	"database/sql"
	"strings"

	"github.com/joe-ervin05/rolebase/tools"
)

// Model runs an entity's query plans and translates every failure.
type Model struct {
	qb *QueryBuilder
	db Executor
	tr *tools.Translator
}

// NewModel binds a builder to an executor. A nil translator uses tools.DefaultTranslator.
func NewModel(qb *QueryBuilder, db Executor, tr *tools.Translator) *Model {
	if tr == nil {
		tr = tools.DefaultTranslator
	}
	return &Model{qb: qb, db: db, tr: tr}
}

// Builder returns the model's query builder.
func (m *Model) Builder() *QueryBuilder { return m.qb }

// Create inserts body as one row.
func (m *Model) Create(ctx context.Context, body Body) (Result, error) {
	plan, err := m.qb.Create(body)
	if err != nil {
		return Result{}, err
	}
	return m.exec(ctx, plan, true)
}

// Read returns rows matching body. A lone scalar id selects one row; other keys
// filter (with pattern matching when patternMatching is set); no keys list a page
// of all rows. An empty result is ER_NOT_FOUND.
func (m *Model) Read(ctx context.Context, body Body, patternMatching bool) ([]map[string]any, error) {
	var plan QueryPlan
	var err error
	filters := body.Without(PageKey, PageSizeKey)
	switch {
	case len(filters) == 1 && singleID(filters):
		plan, err = m.qb.ReadByPK(body)
	case len(filters) > 0:
		plan, err = m.qb.ReadByKeys(body, patternMatching)
	default:
		plan, err = m.qb.ReadAll(body)
	}
	if err != nil {
		return nil, err
	}

	rows, err := QueryMap(ctx, m.db, plan.Query, plan.Params...)
	if err != nil {
		return nil, m.tr.Translate(err)
	}
	if len(rows) == 0 {
		return nil, tools.New(tools.CodeNotFound, nil)
	}
	return rows, nil
}

// Update changes the row with body's id. Nothing matched is ER_NOT_FOUND.
func (m *Model) Update(ctx context.Context, body Body) (Result, error) {
	plan, err := m.qb.Update(body)
	if err != nil {
		return Result{}, err
	}
	return m.exec(ctx, plan, false)
}

// Delete removes the row with body's id. Nothing matched is ER_NOT_FOUND.
func (m *Model) Delete(ctx context.Context, body Body) (Result, error) {
	plan, err := m.qb.Delete(body)
	if err != nil {
		return Result{}, err
	}
	return m.exec(ctx, plan, false)
}

// exec runs a write. Inserts report the new id; updates and deletes that match
// nothing are ER_NOT_FOUND.
func (m *Model) exec(ctx context.Context, plan QueryPlan, insert bool) (Result, error) {
	res, err := m.db.ExecContext(ctx, plan.Query, plan.Params...)
	if err != nil {
		return Result{}, m.tr.Translate(err)
	}

	var out Result
	if n, err := res.RowsAffected(); err == nil {
		out.AffectedRows = n
	}
	if insert {
		// Not every driver reports insert ids (pgx does not).
		if id, err := res.LastInsertId(); err == nil {
			out.InsertID = id
		}
		return out, nil
	}
	if out.AffectedRows == 0 {
		return out, tools.New(tools.CodeNotFound, nil)
	}
	return out, nil
}

// singleID reports whether b's id names one row rather than a list.
func singleID(b Body) bool {
	v, ok := b.Get("id")
	if !ok {
		return false
	}
	if _, isList := listItems(v); isList {
		return false
	}
	s, isString := v.(string)
	return !isString || !strings.Contains(s, ",")
}

// QueryMap executes a query and returns each row as a column -> value map.
// []byte values are returned as strings.
func QueryMap(ctx context.Context, exec Executor, query string, args ...any) ([]map[string]any, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
