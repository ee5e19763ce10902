package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"sqlpanel/internal/inference"
	"sqlpanel/internal/model"
)

var (
	ErrUnresolvedChartType = errors.New("chart type must be resolved before rendering")
	ErrInsufficientFields  = errors.New("not enough fields for the requested chart type")
)

// ChartConfig is the subset of the ECharts option object the reports use.
// Field order and slice order are fixed so serialization is deterministic.
type ChartConfig struct {
	Title     TitleOption      `json:"title"`
	Color     []string         `json:"color,omitempty"`
	Tooltip   TooltipOption    `json:"tooltip"`
	Legend    *LegendOption    `json:"legend,omitempty"`
	XAxis     *AxisOption      `json:"xAxis,omitempty"`
	YAxis     *AxisOption      `json:"yAxis,omitempty"`
	Radar     *RadarOption     `json:"radar,omitempty"`
	VisualMap *VisualMapOption `json:"visualMap,omitempty"`
	Series    []SeriesOption   `json:"series"`
}

type TitleOption struct {
	Text string `json:"text"`
	Left string `json:"left"`
}

type TooltipOption struct {
	Trigger string `json:"trigger"`
}

type LegendOption struct {
	Data   []string `json:"data"`
	Top    string   `json:"top,omitempty"`
	Orient string   `json:"orient,omitempty"`
	Left   string   `json:"left,omitempty"`
}

type AxisOption struct {
	Type string   `json:"type"`
	Name string   `json:"name,omitempty"`
	Data []string `json:"data,omitempty"`
}

type RadarOption struct {
	Indicator []RadarIndicator `json:"indicator"`
}

type RadarIndicator struct {
	Name string  `json:"name"`
	Max  float64 `json:"max"`
}

type VisualMapOption struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Calculable bool    `json:"calculable"`
	Orient     string  `json:"orient"`
	Left       string  `json:"left"`
	Bottom     string  `json:"bottom"`
}

type AreaStyle struct{}

type LabelOption struct {
	Show      bool   `json:"show"`
	Formatter string `json:"formatter,omitempty"`
}

type SeriesOption struct {
	Name      string       `json:"name,omitempty"`
	Type      string       `json:"type"`
	Data      []any        `json:"data"`
	Smooth    bool         `json:"smooth,omitempty"`
	Stack     string       `json:"stack,omitempty"`
	AreaStyle *AreaStyle   `json:"areaStyle,omitempty"`
	Radius    string       `json:"radius,omitempty"`
	Label     *LabelOption `json:"label,omitempty"`
}

type NamedValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BuildChartConfig produces the chart option for a resolved chart type.
func BuildChartConfig(req *model.VisualizationRequest) (*ChartConfig, error) {
	if req.ChartType == "" || req.ChartType == model.ChartAuto {
		return nil, ErrUnresolvedChartType
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	theme := LookupTheme("")
	if req.Style != nil {
		theme = LookupTheme(req.Style.Theme)
	}

	cfg := &ChartConfig{
		Title:   TitleOption{Text: req.Title, Left: "center"},
		Color:   theme.Palette,
		Tooltip: TooltipOption{Trigger: "axis"},
	}
	if req.Style != nil && len(req.Style.Colors) > 0 {
		cfg.Color = req.Style.Colors
	}

	var err error
	switch req.ChartType {
	case model.ChartLine, model.ChartBar, model.ChartArea:
		err = buildCartesian(cfg, req)
	case model.ChartPie:
		err = buildPie(cfg, req)
	case model.ChartScatter, model.ChartBubble:
		err = buildScatter(cfg, req)
	case model.ChartRadar:
		err = buildRadar(cfg, req)
	case model.ChartHeatmap:
		err = buildHeatmap(cfg, req)
	default:
		err = fmt.Errorf("unsupported chart type %q", req.ChartType)
	}
	if err != nil {
		return nil, err
	}

	if !req.Style.LegendVisible() {
		cfg.Legend = nil
	}
	return cfg, nil
}

// MarshalChartConfig serializes a config for embedding in a document.
func MarshalChartConfig(cfg *ChartConfig) ([]byte, error) {
	return json.Marshal(cfg)
}

func axisNames(req *model.VisualizationRequest) (string, string) {
	x := req.Schema[0].Name
	y := ""
	if len(req.Schema) > 1 {
		y = req.Schema[1].Name
	}
	if req.AxisLabels != nil {
		if req.AxisLabels.X != "" {
			x = req.AxisLabels.X
		}
		if req.AxisLabels.Y != "" {
			y = req.AxisLabels.Y
		}
	}
	return x, y
}

// categories returns the X labels. A single-field result is plotted against
// its 1-based row number.
func categories(req *model.VisualizationRequest) []string {
	labels := make([]string, len(req.Rows))
	for i, row := range req.Rows {
		if len(req.Schema) == 1 {
			labels[i] = fmt.Sprintf("%d", i+1)
			continue
		}
		labels[i] = label(row[0])
	}
	return labels
}

func label(v any) string {
	s, ok := inference.Stringify(v)
	if !ok {
		return ""
	}
	return s
}

// numeric yields a float for numeric-looking values and nil otherwise so
// the chart shows a gap.
func numeric(v any) any {
	f, ok := inference.ToFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// valueFields are the series columns: every field after the first, or the
// only field of a single-column result.
func valueFields(req *model.VisualizationRequest) []int {
	if len(req.Schema) == 1 {
		return []int{0}
	}
	idx := make([]int, 0, len(req.Schema)-1)
	for i := 1; i < len(req.Schema); i++ {
		idx = append(idx, i)
	}
	return idx
}

func buildCartesian(cfg *ChartConfig, req *model.VisualizationRequest) error {
	xName, yName := axisNames(req)
	cfg.XAxis = &AxisOption{Type: "category", Name: xName, Data: categories(req)}
	cfg.YAxis = &AxisOption{Type: "value", Name: yName}

	seriesType := string(req.ChartType)
	if req.ChartType == model.ChartArea {
		seriesType = string(model.ChartLine)
	}

	legend := &LegendOption{Top: "bottom"}
	for _, col := range valueFields(req) {
		series := SeriesOption{
			Name: req.Schema[col].Name,
			Type: seriesType,
			Data: make([]any, len(req.Rows)),
		}
		for i, row := range req.Rows {
			series.Data[i] = numeric(row[col])
		}
		if req.Style != nil {
			series.Smooth = req.Style.Smooth && seriesType == string(model.ChartLine)
			if req.Style.Stack {
				series.Stack = "total"
			}
		}
		if req.ChartType == model.ChartArea {
			series.AreaStyle = &AreaStyle{}
		}
		cfg.Series = append(cfg.Series, series)
		legend.Data = append(legend.Data, series.Name)
	}
	cfg.Legend = legend
	return nil
}

func buildPie(cfg *ChartConfig, req *model.VisualizationRequest) error {
	cfg.Tooltip.Trigger = "item"
	names := categories(req)
	valueCol := valueFields(req)[0]

	data := make([]any, len(req.Rows))
	for i, row := range req.Rows {
		data[i] = NamedValue{Name: names[i], Value: numeric(row[valueCol])}
	}

	cfg.Series = []SeriesOption{{
		Name:   req.Schema[valueCol].Name,
		Type:   string(model.ChartPie),
		Data:   data,
		Radius: "55%",
		Label:  &LabelOption{Show: true, Formatter: "{b}: {d}%"},
	}}
	cfg.Legend = &LegendOption{Data: names, Orient: "vertical", Left: "left"}
	return nil
}

func buildScatter(cfg *ChartConfig, req *model.VisualizationRequest) error {
	minFields := 2
	if req.ChartType == model.ChartBubble {
		minFields = 3
	}
	if len(req.Schema) < minFields {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrInsufficientFields, req.ChartType, minFields, len(req.Schema))
	}

	cfg.Tooltip.Trigger = "item"
	xName, yName := axisNames(req)
	cfg.XAxis = &AxisOption{Type: "value", Name: xName}
	cfg.YAxis = &AxisOption{Type: "value", Name: yName}

	data := make([]any, len(req.Rows))
	for i, row := range req.Rows {
		point := []any{numeric(row[0]), numeric(row[1])}
		if req.ChartType == model.ChartBubble {
			point = append(point, numeric(row[2]))
		}
		data[i] = point
	}
	cfg.Series = []SeriesOption{{
		Name: req.Schema[1].Name,
		Type: string(model.ChartScatter),
		Data: data,
	}}
	cfg.Legend = &LegendOption{Data: []string{req.Schema[1].Name}, Top: "bottom"}
	return nil
}

func buildRadar(cfg *ChartConfig, req *model.VisualizationRequest) error {
	if len(req.Schema) < 2 {
		return fmt.Errorf("%w: radar needs 2, got %d", ErrInsufficientFields, len(req.Schema))
	}

	cfg.Tooltip.Trigger = "item"
	indicators := make([]RadarIndicator, 0, len(req.Schema)-1)
	for col := 1; col < len(req.Schema); col++ {
		peak := 0.0
		for _, row := range req.Rows {
			if f, ok := inference.ToFloat(row[col]); ok && f > peak {
				peak = f
			}
		}
		if peak <= 0 {
			peak = 1
		}
		indicators = append(indicators, RadarIndicator{Name: req.Schema[col].Name, Max: peak})
	}
	cfg.Radar = &RadarOption{Indicator: indicators}

	names := categories(req)
	data := make([]any, len(req.Rows))
	for i, row := range req.Rows {
		values := make([]any, 0, len(req.Schema)-1)
		for col := 1; col < len(req.Schema); col++ {
			values = append(values, numeric(row[col]))
		}
		data[i] = NamedValue{Name: names[i], Value: values}
	}
	cfg.Series = []SeriesOption{{Type: string(model.ChartRadar), Data: data}}
	cfg.Legend = &LegendOption{Data: names, Top: "bottom"}
	return nil
}

func buildHeatmap(cfg *ChartConfig, req *model.VisualizationRequest) error {
	if len(req.Schema) < 3 {
		return fmt.Errorf("%w: heatmap needs 3, got %d", ErrInsufficientFields, len(req.Schema))
	}

	cfg.Tooltip.Trigger = "item"
	xLabels, xIndex := distinctInOrder(req.Rows, 0)
	yLabels, yIndex := distinctInOrder(req.Rows, 1)
	xName, yName := axisNames(req)
	cfg.XAxis = &AxisOption{Type: "category", Name: xName, Data: xLabels}
	cfg.YAxis = &AxisOption{Type: "category", Name: yName, Data: yLabels}

	lo, hi := math.Inf(1), math.Inf(-1)
	data := make([]any, len(req.Rows))
	for i, row := range req.Rows {
		v := numeric(row[2])
		if f, ok := v.(float64); ok {
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
		data[i] = []any{xIndex[label(row[0])], yIndex[label(row[1])], v}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}

	cfg.VisualMap = &VisualMapOption{Min: lo, Max: hi, Calculable: true, Orient: "horizontal", Left: "center", Bottom: "0"}
	cfg.Series = []SeriesOption{{
		Name:  req.Schema[2].Name,
		Type:  string(model.ChartHeatmap),
		Data:  data,
		Label: &LabelOption{Show: true},
	}}
	return nil
}

func distinctInOrder(rows [][]any, col int) ([]string, map[string]int) {
	labels := []string{}
	index := make(map[string]int)
	for _, row := range rows {
		l := label(row[col])
		if _, ok := index[l]; ok {
			continue
		}
		index[l] = len(labels)
		labels = append(labels, l)
	}
	return labels, index
}
