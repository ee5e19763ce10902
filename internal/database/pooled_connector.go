package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"sqlpanel/internal/model"
)

var errConnectorClosed = errors.New("connector is closed")

// pooledConnector backs engines that can switch database inside a session:
// one lazily opened pool, with USE run on the borrowed connection.
//
// A borrowed connection is always switched to the effective database (the
// requested one, else defaultDatabase) so no request sees the database a
// previous borrower left behind. Without a default there is nothing to
// switch back to, so connections moved by USE are discarded on release.
type pooledConnector struct {
	kind            model.EngineKind
	opts            Options
	defaultDatabase string
	cat             catalog
	useStatement    func(database string) string
	databasesStmt   string
	open            func() (*sql.DB, error)
	logger          zerolog.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func (c *pooledConnector) Kind() model.EngineKind {
	return c.kind
}

func (c *pooledConnector) pool() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errConnectorClosed
	}
	if c.db != nil {
		return c.db, nil
	}

	db, err := c.open()
	if err != nil {
		return nil, driverError("open", err)
	}
	c.opts.configure(db)
	c.db = db
	c.logger.Debug().Int("max_open_conns", c.opts.MaxOpenConns).Msg("connection pool opened")
	return db, nil
}

func (c *pooledConnector) effectiveDatabase(database string) string {
	if database != "" {
		return database
	}
	return c.defaultDatabase
}

// borrow takes one connection from the pool, waiting while the pool is at
// its bound, and switches it to the effective database. The returned
// release must be called exactly once.
func (c *pooledConnector) borrow(ctx context.Context, database string) (*sql.Conn, func(), error) {
	db, err := c.pool()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, driverError("connect", err)
	}

	target := c.effectiveDatabase(database)
	if target == "" {
		return conn, func() { conn.Close() }, nil
	}

	release := func() { conn.Close() }
	if c.defaultDatabase == "" {
		release = func() { discard(conn) }
	}
	if _, err := conn.ExecContext(ctx, c.useStatement(target)); err != nil {
		release()
		return nil, nil, driverError("use database", err)
	}
	return conn, release, nil
}

// discard closes conn and drops its driver connection instead of returning
// it to the pool.
func discard(conn *sql.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()
}

func (c *pooledConnector) TestConnection(ctx context.Context) bool {
	conn, release, err := c.borrow(ctx, "")
	if err != nil {
		c.logger.Debug().Err(err).Msg("connection test failed")
		return false
	}
	defer release()

	if err := conn.PingContext(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("connection test failed")
		return false
	}
	return true
}

func (c *pooledConnector) Execute(ctx context.Context, database, statement string) (*model.ExecutionResult, error) {
	conn, release, err := c.borrow(ctx, database)
	if err != nil {
		return nil, err
	}
	defer release()

	return runStatement(ctx, conn, statement)
}

func (c *pooledConnector) ListDatabases(ctx context.Context) ([]string, error) {
	conn, release, err := c.borrow(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	names, err := queryNames(ctx, conn, c.databasesStmt)
	if err != nil {
		return nil, driverError("list databases", err)
	}
	return names, nil
}

func (c *pooledConnector) GetSchema(ctx context.Context, database string) ([]model.TableSchema, error) {
	conn, release, err := c.borrow(ctx, database)
	if err != nil {
		return nil, err
	}
	defer release()

	return introspect(ctx, conn, c.cat, c.logger)
}

func (c *pooledConnector) Stats() PoolStats {
	stats := PoolStats{Engine: c.kind, MaxOpenConnections: c.opts.MaxOpenConns}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		stats.add(c.db.Stats())
	}
	return stats
}

func (c *pooledConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
