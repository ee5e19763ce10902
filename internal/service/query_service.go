package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sqlpanel/internal/database"
	"sqlpanel/internal/logging"
	"sqlpanel/internal/middleware"
	"sqlpanel/internal/model"
	"sqlpanel/internal/security"
	"sqlpanel/internal/utils"
)

// ConnectorProvider hands out the connector for a descriptor.
type ConnectorProvider interface {
	Get(desc *model.ConnectionDescriptor) (database.Connector, error)
}

type QueryService interface {
	Execute(ctx context.Context, desc *model.ConnectionDescriptor, database, sql string) (*model.ExecutionResult, error)
	TestConnection(ctx context.Context, desc *model.ConnectionDescriptor) (bool, error)
	ListDatabases(ctx context.Context, desc *model.ConnectionDescriptor) ([]string, error)
	GetSchema(ctx context.Context, desc *model.ConnectionDescriptor, database string) ([]model.TableSchema, error)
	Stats() QueryStats
}

// QueryStats summarizes statements seen since start.
type QueryStats struct {
	TotalQueries      int64            `json:"totalQueries"`
	SuccessfulQueries int64            `json:"successfulQueries"`
	FailedQueries     int64            `json:"failedQueries"`
	RejectedQueries   int64            `json:"rejectedQueries"`
	AvgExecutionTime  float64          `json:"avgExecutionTimeSeconds"`
	LastQueryTime     time.Time        `json:"lastQueryTime"`
	QueriesByEngine   map[string]int64 `json:"queriesByEngine"`
}

type queryService struct {
	connectors   ConnectorProvider
	sqlValidator *security.SQLValidator
	stats        *queryStats
	logger       zerolog.Logger
}

type queryStats struct {
	totalQueries       int64
	successfulQueries  int64
	failedQueries      int64
	rejectedQueries    int64
	totalExecutionTime time.Duration
	lastQueryTime      time.Time
	queriesByEngine    map[string]int64
	mutex              sync.RWMutex
}

// NewQueryService creates a new instance of QueryService
func NewQueryService(connectors ConnectorProvider, validator *security.SQLValidator) QueryService {
	if validator == nil {
		validator = security.NewSQLValidator(security.DefaultMaxStatementLength)
	}
	return &queryService{
		connectors:   connectors,
		sqlValidator: validator,
		stats:        &queryStats{queriesByEngine: make(map[string]int64)},
		logger:       logging.Component("query_service"),
	}
}

// Guard rejects anything the read-only policy does not allow.
func (qs *queryService) guard(sql string) error {
	if err := qs.sqlValidator.Validate(sql); err != nil {
		qs.stats.reject()
		middleware.RecordGuardRejection()
		qs.logger.Warn().Err(err).Int("length", len(sql)).Msg("statement rejected")
		return utils.NewErrorBuilder(utils.ErrCodeStatementRejected).
			WithMessage(err.Error()).
			WithCause(err).
			Build()
	}
	return nil
}

func (qs *queryService) connector(desc *model.ConnectionDescriptor) (database.Connector, error) {
	if desc == nil {
		return nil, utils.NewPolicyViolation("connection descriptor is required")
	}
	return qs.connectors.Get(desc)
}

func (qs *queryService) Execute(ctx context.Context, desc *model.ConnectionDescriptor, db, sql string) (*model.ExecutionResult, error) {
	if err := qs.guard(sql); err != nil {
		return nil, err
	}

	conn, err := qs.connector(desc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := conn.Execute(ctx, db, sql)
	elapsed := time.Since(start)

	engine := string(conn.Kind())
	qs.publishPoolMetrics(conn)

	if err != nil {
		qs.stats.record(engine, false, elapsed)
		middleware.RecordStatement(engine, "error", elapsed, 0)
		qs.logger.Warn().Err(err).Str("engine", engine).Str("database", db).Msg("statement failed")
		return nil, err
	}

	qs.stats.record(engine, true, elapsed)
	middleware.RecordStatement(engine, "success", elapsed, len(result.Rows))
	qs.logger.Debug().
		Str("engine", engine).
		Str("database", db).
		Int("rows", len(result.Rows)).
		Dur("elapsed", elapsed).
		Msg("statement executed")
	return result, nil
}

// poolLister is implemented by providers that can report every connector,
// such as database.ConnectorManager.
type poolLister interface {
	GetStats() map[string]database.PoolStats
}

// publishPoolMetrics reports every connector the provider holds, falling back
// to conn alone.
func (qs *queryService) publishPoolMetrics(conn database.Connector) {
	if lister, ok := qs.connectors.(poolLister); ok {
		middleware.UpdateConnectionPoolMetrics(PoolSamples(lister.GetStats()))
		return
	}
	stats := conn.Stats()
	middleware.UpdateConnectionPoolMetrics([]middleware.PoolSample{
		{Engine: string(stats.Engine), InUse: stats.InUse, Idle: stats.Idle},
	})
}

// PoolSamples converts connector statistics into metric samples.
func PoolSamples(stats map[string]database.PoolStats) []middleware.PoolSample {
	samples := make([]middleware.PoolSample, 0, len(stats))
	for _, s := range stats {
		samples = append(samples, middleware.PoolSample{Engine: string(s.Engine), InUse: s.InUse, Idle: s.Idle})
	}
	return samples
}

// TestConnection only fails when no connector can be built for desc.
func (qs *queryService) TestConnection(ctx context.Context, desc *model.ConnectionDescriptor) (bool, error) {
	conn, err := qs.connector(desc)
	if err != nil {
		return false, err
	}
	return conn.TestConnection(ctx), nil
}

func (qs *queryService) ListDatabases(ctx context.Context, desc *model.ConnectionDescriptor) ([]string, error) {
	conn, err := qs.connector(desc)
	if err != nil {
		return nil, err
	}
	return conn.ListDatabases(ctx)
}

func (qs *queryService) GetSchema(ctx context.Context, desc *model.ConnectionDescriptor, db string) ([]model.TableSchema, error) {
	conn, err := qs.connector(desc)
	if err != nil {
		return nil, err
	}
	return conn.GetSchema(ctx, db)
}

func (qs *queryService) Stats() QueryStats {
	return qs.stats.snapshot()
}

func (s *queryStats) record(engine string, ok bool, elapsed time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.totalQueries++
	if ok {
		s.successfulQueries++
	} else {
		s.failedQueries++
	}
	s.totalExecutionTime += elapsed
	s.lastQueryTime = time.Now()
	s.queriesByEngine[engine]++
}

func (s *queryStats) reject() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rejectedQueries++
}

func (s *queryStats) snapshot() QueryStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	avg := 0.0
	if s.totalQueries > 0 {
		avg = s.totalExecutionTime.Seconds() / float64(s.totalQueries)
	}
	byEngine := make(map[string]int64, len(s.queriesByEngine))
	for k, v := range s.queriesByEngine {
		byEngine[k] = v
	}
	return QueryStats{
		TotalQueries:      s.totalQueries,
		SuccessfulQueries: s.successfulQueries,
		FailedQueries:     s.failedQueries,
		RejectedQueries:   s.rejectedQueries,
		AvgExecutionTime:  avg,
		LastQueryTime:     s.lastQueryTime,
		QueriesByEngine:   byEngine,
	}
}

// IsStatementRejected reports whether err came from the read-only guard.
func IsStatementRejected(err error) bool {
	return utils.IsErrorType(err, utils.ErrCodeStatementRejected) ||
		errors.Is(err, security.ErrNotReadOnly)
}
