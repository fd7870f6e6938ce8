package data

import (
	"context"
	"database/sql"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/joe-ervin05/rolebase/tools"
)

// PoolOptions configures a Pool.
type PoolOptions struct {
	// WaitForConnections blocks callers when every connection is busy.
	// When false they fail immediately with ER_CON_COUNT_ERROR.
	WaitForConnections bool
	ConnectionLimit    int
	// QueueLimit caps the number of blocked callers. 0 means no cap.
	QueueLimit int
}

// DefaultPoolOptions returns waitForConnections=true, connectionLimit=10, queueLimit=0.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{WaitForConnections: true, ConnectionLimit: 10}
}

// Pool is a *sql.DB behind an admission gate enforcing PoolOptions.
// A slot is held for the duration of each call, not for the lifetime of the
// *sql.Rows or *sql.Conn it returns. Fail-fast therefore covers admission only;
// a caller that keeps rows or a pinned conn open can still make the next
// caller block inside database/sql, bounded by MaxOpenConns = ConnectionLimit.
type Pool struct {
	db      *sql.DB
	opts    PoolOptions
	sem     *semaphore.Weighted
	waiting atomic.Int64
}

// NewPool wraps db. A non-positive ConnectionLimit uses the default.
func NewPool(db *sql.DB, opts PoolOptions) *Pool {
	if opts.ConnectionLimit <= 0 {
		opts.ConnectionLimit = DefaultPoolOptions().ConnectionLimit
	}
	if opts.QueueLimit < 0 {
		opts.QueueLimit = 0
	}
	db.SetMaxOpenConns(opts.ConnectionLimit)
	db.SetMaxIdleConns(opts.ConnectionLimit)
	return &Pool{
		db:   db,
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.ConnectionLimit)),
	}
}

// DB returns the underlying handle.
func (p *Pool) DB() *sql.DB { return p.db }

// Options returns the effective options.
func (p *Pool) Options() PoolOptions { return p.opts }

func (p *Pool) acquire(ctx context.Context) (func(), error) {
	release := func() { p.sem.Release(1) }
	if p.sem.TryAcquire(1) {
		return release, nil
	}
	if !p.opts.WaitForConnections {
		return nil, tools.Errorf(tools.CodeConCount, "all %d connections are busy", p.opts.ConnectionLimit)
	}

	n := p.waiting.Add(1)
	defer p.waiting.Add(-1)
	if limit := p.opts.QueueLimit; limit > 0 && n > int64(limit) {
		return nil, tools.Errorf(tools.CodeConCount, "connection queue limit %d reached", limit)
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return release, nil
}

// ExecContext runs a statement while holding one admission slot.
func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query. The admission slot is released on return while the
// rows keep their connection until closed, so callers should scan and close promptly.
func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.db.QueryContext(ctx, query, args...)
}

// Conn pins one connection from the pool. As with QueryContext, the slot is
// released on return and the connection stays busy until the conn is closed.
func (p *Pool) Conn(ctx context.Context) (*sql.Conn, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.db.Conn(ctx)
}

// Close closes the underlying handle.
func (p *Pool) Close() error { return p.db.Close() }
