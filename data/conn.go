package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

// Connector opens a database handle.
type Connector func(ctx context.Context) (*sql.DB, error)

// Open opens and pings a database for d.
func Open(ctx context.Context, d dialect.Dialect, c dialect.ConnConfig) (*sql.DB, error) {
	db, err := sql.Open(d.Driver(c), d.DSN(c))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Kind(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Kind(), err)
	}
	return db, nil
}

// NewConnector returns a Connector calling Open.
func NewConnector(d dialect.Dialect, c dialect.ConnConfig) Connector {
	return func(ctx context.Context) (*sql.DB, error) {
		return Open(ctx, d, c)
	}
}

// ConnManager owns the single long-lived connection. Connect is lazy and
// idempotent; End closes once and a later Connect reopens.
type ConnManager struct {
	connect Connector
	logger  *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewConnManager returns a manager using connect. A nil logger uses tools.Logger.
func NewConnManager(connect Connector, logger *slog.Logger) *ConnManager {
	if logger == nil {
		logger = tools.Logger
	}
	return &ConnManager{connect: connect, logger: logger}
}

// Connect returns the cached connection, opening it on first use.
// Connector errors are returned unchanged.
func (m *ConnManager) Connect(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}
	db, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	m.db = db
	m.logger.Info("database connected")
	return db, nil
}

// End closes the connection. The handle is cleared even if closing fails.
// Ending a closed manager only logs.
func (m *ConnManager) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		m.logger.Info("database connection already closed")
		return nil
	}
	db := m.db
	m.db = nil
	if err := db.Close(); err != nil {
		m.logger.Error("failed to close database connection", "error", err)
		return fmt.Errorf("close database connection: %w", err)
	}
	m.logger.Info("database connection closed")
	return nil
}

// PoolManager owns the connection pool, with the same lifecycle as ConnManager.
type PoolManager struct {
	connect Connector
	logger  *slog.Logger

	mu   sync.Mutex
	pool *Pool
}

// NewPoolManager returns a manager using connect. A nil logger uses tools.Logger.
func NewPoolManager(connect Connector, logger *slog.Logger) *PoolManager {
	if logger == nil {
		logger = tools.Logger
	}
	return &PoolManager{connect: connect, logger: logger}
}

// CreatePool returns the cached pool, creating it with opts on first use.
// Options passed after the pool exists are ignored.
func (m *PoolManager) CreatePool(ctx context.Context, opts PoolOptions) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return m.pool, nil
	}
	db, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	m.pool = NewPool(db, opts)
	m.logger.Info("connection pool created",
		"connection_limit", m.pool.opts.ConnectionLimit,
		"wait_for_connections", m.pool.opts.WaitForConnections,
		"queue_limit", m.pool.opts.QueueLimit,
	)
	return m.pool, nil
}

// End closes the pool. The handle is cleared even if closing fails.
func (m *PoolManager) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool == nil {
		m.logger.Info("connection pool already closed")
		return nil
	}
	pool := m.pool
	m.pool = nil
	if err := pool.Close(); err != nil {
		m.logger.Error("failed to close connection pool", "error", err)
		return fmt.Errorf("close connection pool: %w", err)
	}
	m.logger.Info("connection pool closed")
	return nil
}
