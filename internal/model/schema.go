package model

type TableKind string

const (
	TableKindTable TableKind = "table"
	TableKindView  TableKind = "view"
)

type ColumnSchema struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Nullable        bool    `json:"nullable"`
	Default         *string `json:"default,omitempty"`
	IsPrimaryKey    bool    `json:"isPrimaryKey"`
	IsAutoIncrement bool    `json:"isAutoIncrement"`
	Comment         string  `json:"comment,omitempty"`
}

// TableSchema describes a table or a view. Views carry no columns.
type TableSchema struct {
	Name    string         `json:"name"`
	Kind    TableKind      `json:"kind"`
	Columns []ColumnSchema `json:"columns"`
}
