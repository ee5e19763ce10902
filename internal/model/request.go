package model

import "encoding/json"

// ConnectionRequest carries a raw descriptor so engine aliases can be
// resolved before binding.
type ConnectionRequest struct {
	Connection json.RawMessage `json:"connection" binding:"required"`
	Database   string          `json:"database"`
}

type QueryRequest struct {
	ConnectionRequest
	SQL string `json:"sql" binding:"required"`
}

type ReportRequest struct {
	QueryRequest
	ChartType  string       `json:"chartType"`
	Title      string       `json:"title" binding:"max=255"`
	AxisLabels *AxisLabels  `json:"axisLabels"`
	Style      *StyleConfig `json:"style"`
}

type RecommendRequest struct {
	Columns   []string `json:"columns" binding:"required,min=1"`
	Rows      [][]any  `json:"rows"`
	ChartType string   `json:"chartType"`
}

type RecommendResponse struct {
	ChartType ChartType     `json:"chartType"`
	Schema    []SchemaField `json:"schema"`
}

type ReportResponse struct {
	URL       string        `json:"url"`
	HandleID  string        `json:"handleId"`
	ChartType ChartType     `json:"chartType"`
	Schema    []SchemaField `json:"schema"`
	RowCount  int           `json:"rowCount"`
}
