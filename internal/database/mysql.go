package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"sqlpanel/internal/model"
)

// MySQL, TiDB and OceanBase (MySQL mode) share the MySQL wire protocol and
// information_schema layout.
func newMySQLConnector(desc *model.ConnectionDescriptor, opts Options) (Connector, error) {
	cfg := mysqlConfig(desc)
	return &pooledConnector{
		kind:            desc.EngineKind,
		opts:            opts,
		defaultDatabase: desc.Database,
		cat:             mysqlCatalog{},
		useStatement:    func(database string) string { return "USE " + quoteBacktick(database) },
		databasesStmt:   "SHOW DATABASES",
		open: func() (*sql.DB, error) {
			return sql.Open("mysql", cfg.FormatDSN())
		},
		logger: componentLogger(opts, desc),
	}, nil
}

func mysqlConfig(desc *model.ConnectionDescriptor) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = desc.Username
	cfg.Passwd = desc.Secret
	cfg.Net = "tcp"
	cfg.Addr = desc.Address()
	cfg.DBName = desc.Database
	cfg.ParseTime = true
	cfg.Timeout = 10 * time.Second
	if desc.TLSEnabled() {
		cfg.TLSConfig = "true"
		if desc.TLS.SkipVerify {
			cfg.TLSConfig = "skip-verify"
		}
	}
	return cfg
}

func quoteBacktick(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

type mysqlCatalog struct{}

func (mysqlCatalog) tablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`
}

func (mysqlCatalog) viewsQuery() string {
	return `SELECT table_name FROM information_schema.views
WHERE table_schema = DATABASE()
ORDER BY table_name`
}

func (mysqlCatalog) columnsQuery() string {
	return `SELECT column_name, column_type, is_nullable, column_default, column_key, extra, column_comment
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`
}

func (mysqlCatalog) scanColumn(rows *sql.Rows) (model.ColumnSchema, error) {
	var (
		name, columnType, nullable string
		columnDefault              sql.NullString
		key, extra, comment        string
	)
	if err := rows.Scan(&name, &columnType, &nullable, &columnDefault, &key, &extra, &comment); err != nil {
		return model.ColumnSchema{}, err
	}
	return model.ColumnSchema{
		Name:            name,
		Type:            columnType,
		Nullable:        strings.EqualFold(nullable, "YES"),
		Default:         nullableString(columnDefault),
		IsPrimaryKey:    key == "PRI",
		IsAutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		Comment:         comment,
	}, nil
}
