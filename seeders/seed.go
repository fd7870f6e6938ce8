// Package seeders bulk-inserts fixture rows.
package seeders

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

// Batch is the rows to insert into one table.
type Batch struct {
	Table string
	Rows  []data.Body
}

// Seeder inserts batches through exec. Rows of a batch are inserted
// concurrently without a transaction; a failed row leaves the others in place.
type Seeder struct {
	d      dialect.Dialect
	exec   data.Executor
	tr     *tools.Translator
	logger *slog.Logger
}

// NewSeeder returns a Seeder. A nil logger uses tools.Logger.
func NewSeeder(d dialect.Dialect, exec data.Executor, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = tools.Logger
	}
	return &Seeder{d: d, exec: exec, tr: tools.NewTranslator(d), logger: logger}
}

// Seed inserts rows into table and waits for every insert to finish.
// The first failure is returned translated.
func (s *Seeder) Seed(ctx context.Context, table string, rows []data.Body) error {
	qb, err := data.NewQueryBuilder(s.d, data.Entity{Table: table})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return tools.Errorf(tools.CodeInvalidBody, "no rows to seed into %s", table)
	}

	plans := make([]data.QueryPlan, len(rows))
	for i, row := range rows {
		plan, err := qb.Create(row)
		if err != nil {
			return err
		}
		plans[i] = plan
	}

	var g errgroup.Group
	for _, plan := range plans {
		plan := plan
		g.Go(func() error {
			_, err := s.exec.ExecContext(ctx, plan.Query, plan.Params...)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("seeding failed", "table", table, "error", err)
		return s.tr.Translate(err)
	}

	s.logger.Info("table seeded", "table", table, "rows", len(rows))
	return nil
}

// Run seeds batches in order, stopping at the first failing batch.
func (s *Seeder) Run(ctx context.Context, batches []Batch) error {
	for _, b := range batches {
		if err := s.Seed(ctx, b.Table, b.Rows); err != nil {
			return err
		}
	}
	return nil
}

// Defaults returns the built-in role seed.
func Defaults() []Batch {
	return []Batch{
		{
			Table: "roles",
			Rows: []data.Body{
				data.BodyOf("name", "Admin"),
				data.BodyOf("name", "Manager"),
				data.BodyOf("name", "User"),
			},
		},
	}
}
