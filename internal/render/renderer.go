package render

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"sqlpanel/internal/model"
)

//go:embed templates/report.html
var reportTemplate string

const (
	configOpenTag  = `<script id="chart-config" type="application/json">`
	configCloseTag = `</script>`

	generatedAtLayout = "2006-01-02 15:04:05"
)

var ErrConfigNotFound = errors.New("document does not contain an embedded chart configuration")

var chartNames = map[model.ChartType]string{
	model.ChartLine:    "折线图",
	model.ChartBar:     "柱状图",
	model.ChartPie:     "饼图",
	model.ChartScatter: "散点图",
	model.ChartRadar:   "雷达图",
	model.ChartArea:    "面积图",
	model.ChartHeatmap: "热力图",
	model.ChartBubble:  "气泡图",
}

// LocalizedChartName returns the display name used in report headers.
func LocalizedChartName(ct model.ChartType) string {
	if name, ok := chartNames[ct]; ok {
		return name
	}
	return string(ct)
}

// Renderer turns visualization requests into self-contained HTML documents.
type Renderer struct {
	template string
	now      func() time.Time
}

type Option func(*Renderer)

// WithClock replaces the clock used for the generated-at stamp.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{template: reportTemplate, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the report document for a request whose chart type has
// already been resolved.
func (r *Renderer) Render(req *model.VisualizationRequest) ([]byte, error) {
	cfg, err := BuildChartConfig(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart config: %w", err)
	}
	configJSON, err := MarshalChartConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart config: %w", err)
	}

	theme := LookupTheme("")
	if req.Style != nil {
		theme = LookupTheme(req.Style.Theme)
	}

	title := req.Title
	if title == "" {
		title = LocalizedChartName(req.ChartType)
	}

	// One pass over the template: substituted values are never rescanned, so
	// tokens inside the title or data stay literal.
	replacer := strings.NewReplacer(
		"{{TITLE}}", html.EscapeString(title),
		"{{GENERATED_AT}}", r.now().Format(generatedAtLayout),
		"{{CHART_TYPE}}", LocalizedChartName(req.ChartType),
		"{{THEME_NAME}}", theme.Name,
		"{{THEME_BACKGROUND}}", theme.Background,
		"{{THEME_TEXT_COLOR}}", theme.TextColor,
		"{{THEME_FONT}}", theme.Font,
		"{{CHART_CONFIG}}", string(configJSON),
	)
	return []byte(replacer.Replace(r.template)), nil
}

// ExtractChartConfig returns the JSON chart configuration embedded in a
// rendered document.
func ExtractChartConfig(doc []byte) ([]byte, error) {
	s := string(doc)
	start := strings.Index(s, configOpenTag)
	if start < 0 {
		return nil, ErrConfigNotFound
	}
	start += len(configOpenTag)
	end := strings.Index(s[start:], configCloseTag)
	if end < 0 {
		return nil, ErrConfigNotFound
	}
	return []byte(s[start : start+end]), nil
}
