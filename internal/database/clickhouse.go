package database

import (
	"crypto/tls"
	"database/sql"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"sqlpanel/internal/model"
)

func newClickHouseConnector(desc *model.ConnectionDescriptor, opts Options) (Connector, error) {
	options := clickhouseOptions(desc)
	return &pooledConnector{
		kind:            model.EngineClickHouse,
		opts:            opts,
		defaultDatabase: desc.Database,
		cat:             clickhouseCatalog{},
		useStatement:    func(database string) string { return "USE " + quoteBacktick(database) },
		databasesStmt:   "SHOW DATABASES",
		open: func() (*sql.DB, error) {
			return clickhouse.OpenDB(options), nil
		},
		logger: componentLogger(opts, desc),
	}, nil
}

func clickhouseOptions(desc *model.ConnectionDescriptor) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr: []string{desc.Address()},
		Auth: clickhouse.Auth{
			Database: desc.Database,
			Username: desc.Username,
			Password: desc.Secret,
		},
		DialTimeout: 10 * time.Second,
	}
	if desc.TLSEnabled() {
		options.TLS = &tls.Config{InsecureSkipVerify: desc.TLS.SkipVerify}
	}
	return options
}

type clickhouseCatalog struct{}

func (clickhouseCatalog) tablesQuery() string {
	return `SELECT name FROM system.tables
WHERE database = currentDatabase() AND engine NOT IN ('View', 'MaterializedView', 'LiveView')
ORDER BY name`
}

func (clickhouseCatalog) viewsQuery() string {
	return `SELECT name FROM system.tables
WHERE database = currentDatabase() AND engine IN ('View', 'MaterializedView', 'LiveView')
ORDER BY name`
}

func (clickhouseCatalog) columnsQuery() string {
	return `SELECT name, type, default_kind, default_expression, is_in_primary_key, comment
FROM system.columns
WHERE database = currentDatabase() AND table = ?
ORDER BY position`
}

func (clickhouseCatalog) scanColumn(rows *sql.Rows) (model.ColumnSchema, error) {
	var (
		name, columnType, defaultKind, defaultExpr, comment string
		inPrimaryKey                                        uint8
	)
	if err := rows.Scan(&name, &columnType, &defaultKind, &defaultExpr, &inPrimaryKey, &comment); err != nil {
		return model.ColumnSchema{}, err
	}

	column := model.ColumnSchema{
		Name:         name,
		Type:         columnType,
		Nullable:     strings.HasPrefix(columnType, "Nullable("),
		IsPrimaryKey: inPrimaryKey == 1,
		Comment:      comment,
	}
	if defaultKind != "" {
		column.Default = &defaultExpr
	}
	return column, nil
}
