package data

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

// Paging defaults and the keys carrying paging in a request body.
const (
	DefaultPage     = 1
	DefaultPageSize = 10

	PageKey     = "page"
	PageSizeKey = "pageSize"
)

var intListPattern = regexp.MustCompile(`^\d+(,\d+)*$`)

// QueryBuilder renders parameterized statements for one entity.
// It is immutable after construction and safe for concurrent use.
type QueryBuilder struct {
	d      dialect.Dialect
	entity Entity

	columns  map[string]bool
	writable map[string]bool
	// aliases maps an association alias to its qualified column.
	aliases map[string]string

	projection string
	joins      string
}

// NewQueryBuilder validates e and precomputes its projection and joins.
func NewQueryBuilder(d dialect.Dialect, e Entity) (*QueryBuilder, error) {
	if d == nil {
		return nil, tools.Errorf(tools.CodeInvalidQueryParams, "no dialect")
	}
	if err := tools.ValidateTableName(e.Table); err != nil {
		return nil, tools.New(tools.CodeInvalidQueryParams, err)
	}

	qb := &QueryBuilder{
		d:        d,
		entity:   e,
		columns:  make(map[string]bool, len(e.Includes)),
		writable: make(map[string]bool, len(e.Writable)),
		aliases:  make(map[string]string),
	}

	var projection []string
	if len(e.Includes) == 0 {
		projection = append(projection, e.Table+".*")
	}
	cols, err := renderColumns(e.Table, e.Includes, e.Alias)
	if err != nil {
		return nil, err
	}
	projection = append(projection, cols...)
	for _, c := range e.Includes {
		qb.columns[c] = true
	}
	for _, c := range e.Writable {
		if err := tools.ValidateColumnName(c); err != nil {
			return nil, tools.New(tools.CodeInvalidQueryParams, err)
		}
		qb.writable[c] = true
	}

	var joins []string
	for _, a := range e.Associations {
		join, err := renderJoin(a)
		if err != nil {
			return nil, err
		}
		joins = append(joins, join)

		cols, err := renderColumns(a.Table, a.Includes, a.Alias)
		if err != nil {
			return nil, err
		}
		projection = append(projection, cols...)

		for col, alias := range a.Alias {
			if !slices.Contains(a.Includes, col) {
				continue
			}
			if _, dup := qb.aliases[alias]; dup {
				return nil, tools.Errorf(tools.CodeInvalidQueryParams, "duplicate association alias %q", alias)
			}
			qb.aliases[alias] = a.Table + "." + col
		}
	}

	qb.projection = strings.Join(projection, ", ")
	qb.joins = strings.Join(joins, " ")
	return qb, nil
}

func renderColumns(table string, includes []string, alias map[string]string) ([]string, error) {
	if err := tools.ValidateTableName(table); err != nil {
		return nil, tools.New(tools.CodeInvalidQueryParams, err)
	}
	seen := make(map[string]bool, len(includes))
	cols := make([]string, 0, len(includes))
	for _, c := range includes {
		if err := tools.ValidateColumnName(c); err != nil {
			return nil, tools.New(tools.CodeInvalidQueryParams, err)
		}
		if seen[c] {
			return nil, tools.Errorf(tools.CodeInvalidQueryParams, "duplicate column %q in %s", c, table)
		}
		seen[c] = true

		col := table + "." + c
		if as, ok := alias[c]; ok && as != "" {
			if err := tools.ValidateIdentifier(as); err != nil {
				return nil, tools.New(tools.CodeInvalidQueryParams, fmt.Errorf("invalid alias %q: %w", as, err))
			}
			col += " AS " + as
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func renderJoin(a Association) (string, error) {
	joinType := strings.ToUpper(strings.TrimSpace(a.JoinType))
	switch joinType {
	case "":
		joinType = InnerJoin
	case InnerJoin, LeftJoin, RightJoin:
	default:
		return "", tools.Errorf(tools.CodeInvalidQueryParams, "unsupported join type %q", a.JoinType)
	}
	if err := tools.ValidateQualified(a.ForeignKey); err != nil {
		return "", tools.New(tools.CodeInvalidQueryParams, err)
	}
	if err := tools.ValidateQualified(a.References); err != nil {
		return "", tools.New(tools.CodeInvalidQueryParams, err)
	}
	return fmt.Sprintf("%s %s ON %s = %s", joinType, a.Table, a.ForeignKey, a.References), nil
}

// Table returns the entity's table name.
func (qb *QueryBuilder) Table() string { return qb.entity.Table }

// Projection returns the precomputed SELECT list.
func (qb *QueryBuilder) Projection() string { return qb.projection }

// Joins returns the precomputed JOIN clauses, or "".
func (qb *QueryBuilder) Joins() string { return qb.joins }

// args accumulates parameters and hands out the matching placeholder,
// so numbering stays global across clauses.
type args struct {
	d      dialect.Dialect
	params []any
}

func (a *args) add(v any) string {
	a.params = append(a.params, v)
	return a.d.Placeholder(len(a.params))
}

func (a *args) list(vs []any) string {
	marks := make([]string, len(vs))
	for i, v := range vs {
		marks[i] = a.add(v)
	}
	return strings.Join(marks, ", ")
}

func (qb *QueryBuilder) newArgs() *args {
	return &args{d: qb.d, params: []any{}}
}

func (qb *QueryBuilder) plan(a *args, parts ...string) QueryPlan {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return QueryPlan{Query: strings.Join(nonEmpty, " "), Params: a.params}
}

func (qb *QueryBuilder) selectFrom() string {
	return "SELECT " + qb.projection + " FROM " + qb.entity.Table
}

// checkColumn rejects keys that are not writable columns of the entity.
func (qb *QueryBuilder) checkColumn(key string) error {
	if err := tools.ValidateColumnName(key); err != nil {
		return tools.New(tools.CodeBadField, err)
	}
	if len(qb.entity.Includes) > 0 && !qb.columns[key] && !qb.writable[key] {
		return tools.Errorf(tools.CodeBadField, "unknown column %q", key)
	}
	return nil
}

func requireID(body Body) (any, error) {
	v, ok := body.Get("id")
	if !ok {
		return nil, tools.Errorf(tools.CodeBadField, "id is required")
	}
	id, ok := numeric(v)
	if !ok {
		return nil, tools.Errorf(tools.CodeBadField, "id must be numeric, got %v", v)
	}
	return id, nil
}

func emptyBody() error {
	return tools.Errorf(tools.CodeBadField, "request body is empty or has empty values")
}

// Create renders an INSERT over body's keys in order.
func (qb *QueryBuilder) Create(body Body) (QueryPlan, error) {
	if body.HasEmptyValue() {
		return QueryPlan{}, emptyBody()
	}

	a := qb.newArgs()
	cols := make([]string, 0, len(body))
	marks := make([]string, 0, len(body))
	for _, f := range body {
		if err := qb.checkColumn(f.Key); err != nil {
			return QueryPlan{}, err
		}
		cols = append(cols, f.Key)
		marks = append(marks, a.add(f.Value))
	}

	return qb.plan(a,
		"INSERT INTO "+qb.entity.Table,
		"("+strings.Join(cols, ", ")+")",
		"VALUES ("+strings.Join(marks, ", ")+")",
	), nil
}

// ReadByPK renders a SELECT for the row whose id is body's id.
func (qb *QueryBuilder) ReadByPK(body Body) (QueryPlan, error) {
	if body.HasEmptyValue() {
		return QueryPlan{}, emptyBody()
	}
	id, err := requireID(body)
	if err != nil {
		return QueryPlan{}, err
	}

	a := qb.newArgs()
	where := "WHERE " + qb.entity.Table + ".id = " + a.add(id)
	return qb.plan(a, qb.selectFrom(), qb.joins, where), nil
}

// ReadAll renders a paged SELECT of every row. Only page and pageSize are read from body.
func (qb *QueryBuilder) ReadAll(body Body) (QueryPlan, error) {
	limit, err := paging(body)
	if err != nil {
		return QueryPlan{}, err
	}
	return qb.plan(qb.newArgs(), qb.selectFrom(), qb.joins, limit), nil
}

// ReadByKeys renders a paged SELECT filtered by every recognized key of body.
// With patternMatching off, string filters compare exactly and case-sensitively.
func (qb *QueryBuilder) ReadByKeys(body Body, patternMatching bool) (QueryPlan, error) {
	if body.HasEmptyValue() {
		return QueryPlan{}, emptyBody()
	}

	limit, err := paging(body)
	if err != nil {
		return QueryPlan{}, err
	}

	a := qb.newArgs()
	where, err := qb.where(body.Without(PageKey, PageSizeKey), patternMatching, a)
	if err != nil {
		return QueryPlan{}, err
	}
	return qb.plan(a, qb.selectFrom(), qb.joins, "WHERE "+where, limit), nil
}

// Update renders an UPDATE of every non-id field of body for the row with body's id.
func (qb *QueryBuilder) Update(body Body) (QueryPlan, error) {
	if body.HasEmptyValue() {
		return QueryPlan{}, emptyBody()
	}
	id, err := requireID(body)
	if err != nil {
		return QueryPlan{}, err
	}
	fields := body.Without("id")
	if len(fields) == 0 {
		return QueryPlan{}, tools.Errorf(tools.CodeBadField, "nothing to update")
	}

	a := qb.newArgs()
	sets := make([]string, 0, len(fields))
	for _, f := range fields {
		if err := qb.checkColumn(f.Key); err != nil {
			return QueryPlan{}, err
		}
		sets = append(sets, f.Key+" = "+a.add(f.Value))
	}
	where := "WHERE " + qb.entity.Table + ".id = " + a.add(id)

	return qb.plan(a, "UPDATE "+qb.entity.Table, "SET "+strings.Join(sets, ", "), where), nil
}

// Delete renders a DELETE of the row with body's id.
func (qb *QueryBuilder) Delete(body Body) (QueryPlan, error) {
	if body.HasEmptyValue() {
		return QueryPlan{}, emptyBody()
	}
	id, err := requireID(body)
	if err != nil {
		return QueryPlan{}, err
	}

	a := qb.newArgs()
	return qb.plan(a, "DELETE FROM "+qb.entity.Table, "WHERE "+qb.entity.Table+".id = "+a.add(id)), nil
}

// where renders the AND-joined conditions for filters. A key matching a base
// column filters the base table; a key matching an association alias filters the joined table.
func (qb *QueryBuilder) where(filters Body, patternMatching bool, a *args) (string, error) {
	var conds []string
	for _, f := range filters {
		var targets []string
		if qb.isFilterColumn(f.Key) {
			targets = append(targets, qb.entity.Table+"."+f.Key)
		}
		if col, ok := qb.aliases[f.Key]; ok {
			targets = append(targets, col)
		}
		for _, col := range targets {
			cond, err := qb.condition(col, f.Key, f.Value, patternMatching, a)
			if err != nil {
				return "", err
			}
			conds = append(conds, cond)
		}
	}
	if len(conds) == 0 {
		return "", tools.Errorf(tools.CodeBadField, "no filterable keys in %v", filters.Keys())
	}
	return strings.Join(conds, " AND "), nil
}

func (qb *QueryBuilder) isFilterColumn(key string) bool {
	if len(qb.entity.Includes) == 0 {
		return tools.ValidateColumnName(key) == nil
	}
	return qb.columns[key]
}

// condition applies the filter tie-break: list, integer list string, comma
// string, pattern, then equality.
func (qb *QueryBuilder) condition(col, key string, v any, patternMatching bool, a *args) (string, error) {
	lhs := col
	if !patternMatching {
		lhs = qb.d.CaseSensitive(col)
	}

	if items, ok := listItems(v); ok {
		if len(items) == 0 {
			return "", tools.Errorf(tools.CodeBadField, "empty list for %q", key)
		}
		return lhs + " IN (" + a.list(items) + ")", nil
	}

	s, isString := v.(string)
	switch {
	case isString && (intListPattern.MatchString(s) || strings.Contains(s, ",")):
		parts := strings.Split(s, ",")
		items := make([]any, len(parts))
		for i, p := range parts {
			items[i] = coerce(p)
		}
		return lhs + " IN (" + a.list(items) + ")", nil
	case isString && patternMatching && utf8.RuneCountInString(s) > 2:
		return lhs + " " + qb.d.Like() + " " + a.add("%"+s+"%"), nil
	}

	if n, ok := numeric(v); ok {
		v = n
	}
	return lhs + " = " + a.add(v), nil
}

// paging renders LIMIT/OFFSET as integer literals. Missing or zero values use
// the defaults; non-integers are rejected; negative values are left to the backend.
func paging(body Body) (string, error) {
	page, err := pageValue(body, PageKey, DefaultPage)
	if err != nil {
		return "", err
	}
	size, err := pageValue(body, PageSizeKey, DefaultPageSize)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LIMIT %d OFFSET %d", size, (page-1)*size), nil
}

func pageValue(body Body, key string, def int64) (int64, error) {
	v, ok := body.Get(key)
	if !ok || v == nil || v == "" {
		return def, nil
	}
	n, ok := integer(v)
	if !ok {
		return 0, tools.Errorf(tools.CodeBadField, "%s must be an integer, got %v", key, v)
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}
