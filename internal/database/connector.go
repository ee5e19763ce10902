package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sqlpanel/internal/logging"
	"sqlpanel/internal/model"
	"sqlpanel/internal/utils"
)

const (
	DefaultMaxOpenConns    = 10
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultConnMaxIdleTime = 5 * time.Minute
)

// Connector is the per-engine contract every supported database implements.
type Connector interface {
	// TestConnection reports reachability; it never returns an error.
	TestConnection(ctx context.Context) bool
	// Execute runs one statement, switching to database first when it is set.
	Execute(ctx context.Context, database, statement string) (*model.ExecutionResult, error)
	ListDatabases(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, database string) ([]model.TableSchema, error)

	Kind() model.EngineKind
	Stats() PoolStats
	Close() error
}

// Options tune the pool behind a connector.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// Logger defaults to the "connector" component logger.
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = DefaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = o.MaxOpenConns / 2
		if o.MaxIdleConns < 2 {
			o.MaxIdleConns = 2
		}
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = DefaultConnMaxIdleTime
	}
	return o
}

func componentLogger(opts Options, desc *model.ConnectionDescriptor) zerolog.Logger {
	base := logging.Component("connector")
	if opts.Logger != nil {
		base = *opts.Logger
	}
	return base.With().
		Str("engine", string(desc.EngineKind)).
		Str("address", desc.Address()).
		Logger()
}

func (o Options) configure(db *sql.DB) {
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)
	db.SetConnMaxIdleTime(o.ConnMaxIdleTime)
}

// PoolStats contains connection pool statistics
type PoolStats struct {
	Engine             model.EngineKind `json:"engine"`
	MaxOpenConnections int              `json:"maxOpenConnections"`
	OpenConnections    int              `json:"openConnections"`
	InUse              int              `json:"inUse"`
	Idle               int              `json:"idle"`
	WaitCount          int64            `json:"waitCount"`
	WaitDuration       time.Duration    `json:"waitDuration"`
}

func (s *PoolStats) add(db sql.DBStats) {
	s.OpenConnections += db.OpenConnections
	s.InUse += db.InUse
	s.Idle += db.Idle
	s.WaitCount += db.WaitCount
	s.WaitDuration += db.WaitDuration
}

// DriverError wraps a failure reported by a database driver. Its message is
// the driver's own.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return e.Err.Error()
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

func driverError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DriverError{Op: op, Err: err}
}

type constructor func(desc *model.ConnectionDescriptor, opts Options) (Connector, error)

var constructors = map[model.EngineKind]constructor{
	model.EngineMySQL:      newMySQLConnector,
	model.EngineTiDB:       newMySQLConnector,
	model.EngineOceanBase:  newMySQLConnector,
	model.EnginePostgreSQL: newPostgresConnector,
	model.EngineClickHouse: newClickHouseConnector,
}

// NewConnector builds the connector for the descriptor's canonical engine kind.
// No connection is opened until first use.
func NewConnector(desc *model.ConnectionDescriptor, opts Options) (Connector, error) {
	if desc == nil {
		return nil, utils.NewPolicyViolation("connection descriptor is required")
	}
	build, ok := constructors[desc.EngineKind]
	if !ok {
		if _, err := LookupEngineKind(string(desc.EngineKind)); err != nil {
			return nil, err
		}
		return nil, utils.NewPolicyViolation(fmt.Sprintf("engine kind %q is not implemented", desc.EngineKind))
	}
	return build(desc, opts.withDefaults())
}
