package database

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"sqlpanel/internal/model"
)

// catalog holds the engine-specific introspection queries. Every query runs
// against the database the borrowed connection is currently using.
type catalog interface {
	tablesQuery() string
	viewsQuery() string
	columnsQuery() string
	scanColumn(rows *sql.Rows) (model.ColumnSchema, error)
}

// introspect lists base tables with their columns, then views. Table and
// column failures abort; view failures are logged and dropped.
func introspect(ctx context.Context, q execQueryer, cat catalog, logger zerolog.Logger) ([]model.TableSchema, error) {
	tables, err := queryNames(ctx, q, cat.tablesQuery())
	if err != nil {
		return nil, driverError("list tables", err)
	}

	schema := make([]model.TableSchema, 0, len(tables))
	for _, table := range tables {
		columns, err := queryColumns(ctx, q, cat, table)
		if err != nil {
			return nil, driverError("list columns", err)
		}
		schema = append(schema, model.TableSchema{
			Name:    table,
			Kind:    model.TableKindTable,
			Columns: columns,
		})
	}

	views, err := queryNames(ctx, q, cat.viewsQuery())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list views, returning tables only")
		return schema, nil
	}
	for _, view := range views {
		schema = append(schema, model.TableSchema{
			Name:    view,
			Kind:    model.TableKindView,
			Columns: []model.ColumnSchema{},
		})
	}

	return schema, nil
}

// queryNames reads a single string column fully so the connection is free
// for the next query.
func queryNames(ctx context.Context, q execQueryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func queryColumns(ctx context.Context, q execQueryer, cat catalog, table string) ([]model.ColumnSchema, error) {
	rows, err := q.QueryContext(ctx, cat.columnsQuery(), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := []model.ColumnSchema{}
	for rows.Next() {
		column, err := cat.scanColumn(rows)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
