package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field describes one result column as reported by the driver.
type Field struct {
	Name         string `json:"name"`
	DatabaseType string `json:"databaseType,omitempty"`
	Nullable     *bool  `json:"nullable,omitempty"`
}

// Row is an ordered column→value mapping. Column order is the driver's.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value for the named column.
func (r Row) Get(column string) (any, bool) {
	for i, name := range r.Columns {
		if name == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object whose keys follow column order.
func (r Row) MarshalJSON() ([]byte, error) {
	if len(r.Columns) != len(r.Values) {
		return nil, fmt.Errorf("row has %d columns but %d values", len(r.Columns), len(r.Values))
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MutationSummary is returned for statements that do not produce rows.
type MutationSummary struct {
	AffectedRows int64  `json:"affectedRows"`
	ChangedRows  int64  `json:"changedRows"`
	InsertID     int64  `json:"insertId"`
	Message      string `json:"message"`
}

// ExecutionResult holds exactly one of a row-set or a mutation summary.
type ExecutionResult struct {
	Fields   []Field
	Rows     []Row
	Mutation *MutationSummary
}

// NewRowSet builds a row-set result.
func NewRowSet(fields []Field, rows []Row) *ExecutionResult {
	if fields == nil {
		fields = []Field{}
	}
	if rows == nil {
		rows = []Row{}
	}
	return &ExecutionResult{Fields: fields, Rows: rows}
}

// NewMutationResult builds a mutation-summary result.
func NewMutationResult(summary MutationSummary) *ExecutionResult {
	return &ExecutionResult{Mutation: &summary}
}

// IsRowSet reports whether the result carries rows.
func (r *ExecutionResult) IsRowSet() bool {
	return r != nil && r.Mutation == nil
}

// ColumnNames returns field names in driver order.
func (r *ExecutionResult) ColumnNames() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Matrix returns the row values positionally, preserving row order.
func (r *ExecutionResult) Matrix() [][]any {
	matrix := make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		matrix[i] = row.Values
	}
	return matrix
}

func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	if r.Mutation != nil {
		return json.Marshal(struct {
			Kind     string           `json:"kind"`
			Mutation *MutationSummary `json:"mutation"`
		}{Kind: "mutation", Mutation: r.Mutation})
	}
	return json.Marshal(struct {
		Kind   string  `json:"kind"`
		Fields []Field `json:"fields"`
		Rows   []Row   `json:"rows"`
	}{Kind: "rows", Fields: r.Fields, Rows: r.Rows})
}
