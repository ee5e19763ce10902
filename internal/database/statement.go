package database

import (
	"context"
	"database/sql"
	"fmt"

	"sqlpanel/internal/model"
	"sqlpanel/internal/security"
)

// rowProducingKeywords decide whether a statement goes through QueryContext.
var rowProducingKeywords = map[string]bool{
	"select":   true,
	"with":     true,
	"show":     true,
	"explain":  true,
	"describe": true,
	"desc":     true,
	"values":   true,
	"table":    true,
}

// ReturnsRows reports whether the statement's leading keyword yields a row-set.
func ReturnsRows(statement string) bool {
	return rowProducingKeywords[security.LeadingKeyword(statement)]
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func runStatement(ctx context.Context, conn execQueryer, statement string) (*model.ExecutionResult, error) {
	if ReturnsRows(statement) {
		rows, err := conn.QueryContext(ctx, statement)
		if err != nil {
			return nil, driverError("query", err)
		}
		defer rows.Close()

		result, err := scanRowSet(rows)
		if err != nil {
			return nil, driverError("scan", err)
		}
		return result, nil
	}

	res, err := conn.ExecContext(ctx, statement)
	if err != nil {
		return nil, driverError("exec", err)
	}
	return model.NewMutationResult(summarize(res)), nil
}

func scanRowSet(rows *sql.Rows) (*model.ExecutionResult, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(columnTypes))
	fields := make([]model.Field, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ct.Name()
		fields[i] = model.Field{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
		if nullable, ok := ct.Nullable(); ok {
			fields[i].Nullable = &nullable
		}
	}

	var out []model.Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		out = append(out, model.Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return model.NewRowSet(fields, out), nil
}

// normalizeValue turns driver byte slices into strings so results serialize
// as text rather than base64.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func summarize(res sql.Result) model.MutationSummary {
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	insertID, err := res.LastInsertId()
	if err != nil {
		insertID = 0
	}
	return model.MutationSummary{
		AffectedRows: affected,
		// database/sql exposes no separate changed-rows figure.
		ChangedRows: affected,
		InsertID:    insertID,
		Message:     fmt.Sprintf("Query OK, %d rows affected", affected),
	}
}
