package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"sqlpanel/internal/model"
)

const postgresMaintenanceDB = "postgres"

// postgresConnector keeps one pool per database name because a PostgreSQL
// session cannot change database. A shared semaphore bounds the connections
// borrowed across all of them, and idle connections parked in other pools
// are closed before a new connection would take the total past the bound.
type postgresConnector struct {
	desc   *model.ConnectionDescriptor
	opts   Options
	open   func(dsn string) (*sql.DB, error)
	sem    *semaphore.Weighted
	logger zerolog.Logger

	mu     sync.Mutex
	pools  map[string]*sql.DB
	closed bool
}

func newPostgresConnector(desc *model.ConnectionDescriptor, opts Options) (Connector, error) {
	return &postgresConnector{
		desc: desc,
		opts: opts,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("postgres", dsn)
		},
		sem:    semaphore.NewWeighted(int64(opts.MaxOpenConns)),
		logger: componentLogger(opts, desc),
		pools:  make(map[string]*sql.DB),
	}, nil
}

func (c *postgresConnector) Kind() model.EngineKind {
	return model.EnginePostgreSQL
}

func (c *postgresConnector) targetDatabase(database string) string {
	if database != "" {
		return database
	}
	if c.desc.Database != "" {
		return c.desc.Database
	}
	return postgresMaintenanceDB
}

func (c *postgresConnector) dsn(database string) string {
	sslmode := "disable"
	if c.desc.TLSEnabled() {
		sslmode = "verify-full"
		if c.desc.TLS.SkipVerify {
			sslmode = "require"
		}
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=10",
		quoteDSNValue(c.desc.Host), c.desc.Port, quoteDSNValue(c.desc.Username),
		quoteDSNValue(c.desc.Secret), quoteDSNValue(database), sslmode)
}

// quoteDSNValue quotes a key/value connection string value for lib/pq.
func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c *postgresConnector) pool(database string) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errConnectorClosed
	}
	if db, ok := c.pools[database]; ok {
		return db, nil
	}

	db, err := c.open(c.dsn(database))
	if err != nil {
		return nil, driverError("open", err)
	}
	c.opts.configure(db)
	c.pools[database] = db
	c.logger.Debug().Str("database", database).Msg("connection pool opened")
	return db, nil
}

// borrow waits for a slot under the shared bound and then for a connection
// from the database's pool. The returned release must be called exactly once.
func (c *postgresConnector) borrow(ctx context.Context, database string) (*sql.Conn, func(), error) {
	db, err := c.pool(c.targetDatabase(database))
	if err != nil {
		return nil, nil, err
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, driverError("connect", err)
	}
	c.shedIdle(db)
	conn, err := db.Conn(ctx)
	if err != nil {
		c.sem.Release(1)
		return nil, nil, driverError("connect", err)
	}
	return conn, func() {
		conn.Close()
		c.sem.Release(1)
	}, nil
}

// shedIdle closes idle connections held by pools other than target when
// target has none to hand out and the open total has reached the bound.
func (c *postgresConnector) shedIdle(target *sql.DB) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if target.Stats().Idle > 0 {
		return
	}
	open := 0
	for _, db := range c.pools {
		open += db.Stats().OpenConnections
	}
	if open < c.opts.MaxOpenConns {
		return
	}

	for name, db := range c.pools {
		if db == target || db.Stats().Idle == 0 {
			continue
		}
		db.SetMaxIdleConns(0)
		db.SetMaxIdleConns(c.opts.MaxIdleConns)
		c.logger.Debug().Str("database", name).Msg("closed idle connections to stay within bound")
	}
}

func (c *postgresConnector) TestConnection(ctx context.Context) bool {
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

func (c *postgresConnector) Execute(ctx context.Context, database, statement string) (*model.ExecutionResult, error) {
	conn, release, err := c.borrow(ctx, database)
	if err != nil {
		return nil, err
	}
	defer release()

	return runStatement(ctx, conn, statement)
}

func (c *postgresConnector) ListDatabases(ctx context.Context) ([]string, error) {
	conn, release, err := c.borrow(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	names, err := queryNames(ctx, conn,
		"SELECT datname FROM pg_database WHERE datistemplate = false AND datallowconn ORDER BY datname")
	if err != nil {
		return nil, driverError("list databases", err)
	}
	return names, nil
}

func (c *postgresConnector) GetSchema(ctx context.Context, database string) ([]model.TableSchema, error) {
	conn, release, err := c.borrow(ctx, database)
	if err != nil {
		return nil, err
	}
	defer release()

	return introspect(ctx, conn, postgresCatalog{}, c.logger)
}

func (c *postgresConnector) Stats() PoolStats {
	stats := PoolStats{Engine: model.EnginePostgreSQL, MaxOpenConnections: c.opts.MaxOpenConns}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, db := range c.pools {
		stats.add(db.Stats())
	}
	return stats
}

func (c *postgresConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	var lastErr error
	for name, db := range c.pools {
		if err := db.Close(); err != nil {
			lastErr = err
		}
		delete(c.pools, name)
	}
	return lastErr
}

type postgresCatalog struct{}

func (postgresCatalog) tablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`
}

func (postgresCatalog) viewsQuery() string {
	return `SELECT table_name FROM information_schema.views
WHERE table_schema = current_schema()
ORDER BY table_name`
}

func (postgresCatalog) columnsQuery() string {
	return `SELECT c.column_name,
       c.data_type,
       c.is_nullable,
       c.column_default,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage kcu
             ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_schema = c.table_schema
             AND tc.table_name = c.table_name
             AND kcu.column_name = c.column_name
       ) AS is_primary_key,
       (c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%') AS is_auto_increment,
       COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position), '') AS column_comment
FROM information_schema.columns c
WHERE c.table_schema = current_schema() AND c.table_name = $1
ORDER BY c.ordinal_position`
}

func (postgresCatalog) scanColumn(rows *sql.Rows) (model.ColumnSchema, error) {
	var (
		name, dataType, nullable string
		columnDefault            sql.NullString
		isPrimaryKey, isAuto     bool
		comment                  string
	)
	if err := rows.Scan(&name, &dataType, &nullable, &columnDefault, &isPrimaryKey, &isAuto, &comment); err != nil {
		return model.ColumnSchema{}, err
	}
	return model.ColumnSchema{
		Name:            name,
		Type:            dataType,
		Nullable:        strings.EqualFold(nullable, "YES"),
		Default:         nullableString(columnDefault),
		IsPrimaryKey:    isPrimaryKey,
		IsAutoIncrement: isAuto,
		Comment:         comment,
	}, nil
}
