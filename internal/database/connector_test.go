package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpanel/internal/model"
)

func newMockMySQL(t *testing.T) (*pooledConnector, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	return newMockMySQLIn(t, "")
}

func newMockMySQLIn(t *testing.T, database string) (*pooledConnector, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	nop := zerolog.Nop()
	connector, err := NewConnector(&model.ConnectionDescriptor{
		EngineKind: model.EngineMySQL,
		Host:       "db",
		Port:       3306,
		Username:   "report",
		Database:   database,
	}, Options{Logger: &nop})
	require.NoError(t, err)

	c := connector.(*pooledConnector)
	c.open = func() (*sql.DB, error) { return db, nil }
	return c, db, mock
}

func TestExecuteSwitchesDatabaseAndReturnsRows(t *testing.T) {
	c, db, mock := newMockMySQL(t)

	mock.ExpectExec(regexp.QuoteMeta("USE `analytics`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "alice").
			AddRow(int64(2), []byte("bob")))

	result, err := c.Execute(context.Background(), "analytics", "SELECT id, name FROM users")
	require.NoError(t, err)
	require.True(t, result.IsRowSet())
	assert.Equal(t, []string{"id", "name"}, result.ColumnNames())
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []any{int64(1), "alice"}, result.Rows[0].Values)
	assert.Equal(t, []any{int64(2), "bob"}, result.Rows[1].Values)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestExecuteWithoutDatabaseSkipsUse(t *testing.T) {
	c, _, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))

	_, err := c.Execute(context.Background(), "", "SELECT 1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRestoresDefaultDatabase(t *testing.T) {
	c, db, mock := newMockMySQLIn(t, "sales")
	db.SetMaxOpenConns(1)

	mock.ExpectExec(regexp.QuoteMeta("USE `hr`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM staff")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("alice"))
	mock.ExpectExec(regexp.QuoteMeta("USE `sales`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(7)))

	_, err := c.Execute(context.Background(), "hr", "SELECT name FROM staff")
	require.NoError(t, err)
	_, err = c.Execute(context.Background(), "", "SELECT total FROM orders")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestExecuteMutationReturnsSummary(t *testing.T) {
	c, _, mock := newMockMySQL(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active = 0")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	result, err := c.Execute(context.Background(), "", "UPDATE users SET active = 0")
	require.NoError(t, err)
	require.False(t, result.IsRowSet())
	assert.Equal(t, int64(3), result.Mutation.AffectedRows)
	assert.Equal(t, int64(3), result.Mutation.ChangedRows)
	assert.Equal(t, int64(0), result.Mutation.InsertID)
	assert.Contains(t, result.Mutation.Message, "3 rows affected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReleasesConnectionOnDriverError(t *testing.T) {
	c, db, mock := newMockMySQL(t)

	driverErr := errors.New("Error 1146 (42S02): Table 'shop.missing' doesn't exist")
	mock.ExpectQuery("SELECT").WillReturnError(driverErr)

	_, err := c.Execute(context.Background(), "", "SELECT * FROM missing")
	require.Error(t, err)
	assert.Equal(t, driverErr.Error(), err.Error())
	assert.ErrorIs(t, err, driverErr)

	var de *DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "query", de.Op)

	assert.Equal(t, 0, db.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReleasesConnectionWhenUseFails(t *testing.T) {
	c, db, mock := newMockMySQL(t)

	mock.ExpectExec("USE").WillReturnError(errors.New("Error 1049 (42000): Unknown database 'nope'"))

	_, err := c.Execute(context.Background(), "nope", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown database 'nope'")
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestUseQuotesIdentifier(t *testing.T) {
	c, _, _ := newMockMySQL(t)
	assert.Equal(t, "USE `we``ird`", c.useStatement("we`ird"))
}

func TestListDatabases(t *testing.T) {
	c, _, mock := newMockMySQL(t)

	mock.ExpectQuery("SHOW DATABASES").
		WillReturnRows(sqlmock.NewRows([]string{"Database"}).AddRow("information_schema").AddRow("shop"))

	names, err := c.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"information_schema", "shop"}, names)
}

func expectColumns(mock sqlmock.Sqlmock, table string) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable", "column_default",
			"column_key", "extra", "column_comment"}).
			AddRow("id", "bigint", "NO", nil, "PRI", "auto_increment", "").
			AddRow("email", "varchar(255)", "YES", "n/a", "", "", "login"))
}

func TestGetSchemaIncludesViewsWithoutColumns(t *testing.T) {
	c, db, mock := newMockMySQL(t)

	mock.ExpectExec(regexp.QuoteMeta("USE `shop`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	expectColumns(mock, "users")
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.views")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("active_users"))

	schema, err := c.GetSchema(context.Background(), "shop")
	require.NoError(t, err)
	require.Len(t, schema, 2)

	users := schema[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, model.TableKindTable, users.Kind)
	require.Len(t, users.Columns, 2)
	assert.True(t, users.Columns[0].IsPrimaryKey)
	assert.True(t, users.Columns[0].IsAutoIncrement)
	assert.False(t, users.Columns[0].Nullable)
	assert.Nil(t, users.Columns[0].Default)
	assert.True(t, users.Columns[1].Nullable)
	require.NotNil(t, users.Columns[1].Default)
	assert.Equal(t, "n/a", *users.Columns[1].Default)
	assert.Equal(t, "login", users.Columns[1].Comment)

	assert.Equal(t, model.TableSchema{Name: "active_users", Kind: model.TableKindView, Columns: []model.ColumnSchema{}}, schema[1])

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestGetSchemaSwallowsViewFailure(t *testing.T) {
	c, _, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	expectColumns(mock, "users")
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.views")).
		WillReturnError(errors.New("SELECT command denied"))

	schema, err := c.GetSchema(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, schema, 1)
	assert.Equal(t, "users", schema[0].Name)
}

func TestGetSchemaTableFailureIsFatal(t *testing.T) {
	c, db, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnError(errors.New("SELECT command denied to user"))

	_, err := c.GetSchema(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "SELECT command denied to user", err.Error())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestGetSchemaColumnFailureIsFatal(t *testing.T) {
	c, _, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WillReturnError(errors.New("lost connection"))

	_, err := c.GetSchema(context.Background(), "")
	assert.EqualError(t, err, "lost connection")
}

func TestTestConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	nop := zerolog.Nop()
	c := &pooledConnector{kind: model.EngineMySQL, opts: Options{}.withDefaults(), logger: nop,
		open: func() (*sql.DB, error) { return db, nil }}

	mock.ExpectPing()
	assert.True(t, c.TestConnection(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.False(t, c.TestConnection(context.Background()))

	c.open = func() (*sql.DB, error) { return nil, errors.New("bad dsn") }
	c.db = nil
	assert.False(t, c.TestConnection(context.Background()))
}

func TestClosedConnectorRefusesWork(t *testing.T) {
	c, _, _ := newMockMySQL(t)
	require.NoError(t, c.Close())

	_, err := c.Execute(context.Background(), "", "SELECT 1")
	assert.ErrorIs(t, err, errConnectorClosed)
	assert.False(t, c.TestConnection(context.Background()))
}
