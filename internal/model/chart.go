package model

import (
	"fmt"
	"strings"
)

// SemanticType is the inferred meaning of a column's values.
type SemanticType string

const (
	SemanticNumber  SemanticType = "number"
	SemanticString  SemanticType = "string"
	SemanticDate    SemanticType = "date"
	SemanticBoolean SemanticType = "boolean"
)

type SchemaField struct {
	Name         string       `json:"name"`
	SemanticType SemanticType `json:"semanticType"`
	Description  string       `json:"description,omitempty"`
}

type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
	ChartRadar   ChartType = "radar"
	ChartArea    ChartType = "area"
	ChartHeatmap ChartType = "heatmap"
	ChartBubble  ChartType = "bubble"
	ChartAuto    ChartType = "auto"
)

var chartTypes = map[ChartType]struct{}{
	ChartLine: {}, ChartBar: {}, ChartPie: {}, ChartScatter: {}, ChartRadar: {},
	ChartArea: {}, ChartHeatmap: {}, ChartBubble: {}, ChartAuto: {},
}

// ParseChartType accepts the chart vocabulary case-insensitively; an empty
// value means auto.
func ParseChartType(s string) (ChartType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ChartAuto, nil
	}
	ct := ChartType(s)
	if _, ok := chartTypes[ct]; !ok {
		return "", fmt.Errorf("unsupported chart type %q", s)
	}
	return ct, nil
}

type AxisLabels struct {
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`
}

type StyleConfig struct {
	Theme      string   `json:"theme,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	ShowLegend *bool    `json:"showLegend,omitempty"`
	Smooth     bool     `json:"smooth,omitempty"`
	Stack      bool     `json:"stack,omitempty"`
	Width      string   `json:"width,omitempty"`
	Height     string   `json:"height,omitempty"`
}

// LegendVisible defaults to true when unset.
func (s *StyleConfig) LegendVisible() bool {
	if s == nil || s.ShowLegend == nil {
		return true
	}
	return *s.ShowLegend
}

type VisualizationRequest struct {
	Rows       [][]any       `json:"rows"`
	Schema     []SchemaField `json:"schema"`
	ChartType  ChartType     `json:"chartType"`
	Title      string        `json:"title,omitempty"`
	AxisLabels *AxisLabels   `json:"axisLabels,omitempty"`
	Style      *StyleConfig  `json:"style,omitempty"`
}

// Validate checks that every row agrees positionally with the schema.
func (r *VisualizationRequest) Validate() error {
	if len(r.Schema) == 0 {
		return fmt.Errorf("visualization schema is empty")
	}
	for i, row := range r.Rows {
		if len(row) != len(r.Schema) {
			return fmt.Errorf("row %d has %d values but schema has %d fields", i, len(row), len(r.Schema))
		}
	}
	return nil
}
