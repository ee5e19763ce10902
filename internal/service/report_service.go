package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"sqlpanel/internal/inference"
	"sqlpanel/internal/logging"
	"sqlpanel/internal/middleware"
	"sqlpanel/internal/model"
	"sqlpanel/internal/publisher"
	"sqlpanel/internal/render"
	"sqlpanel/internal/utils"
)

// ReportInput is everything the pipeline needs for one report.
type ReportInput struct {
	Descriptor *model.ConnectionDescriptor
	Database   string
	SQL        string
	ChartType  model.ChartType
	Title      string
	AxisLabels *model.AxisLabels
	Style      *model.StyleConfig
	OwnerID    string
	OwnerName  string
}

type ReportService interface {
	Generate(ctx context.Context, in ReportInput) (*model.ReportResponse, error)
	Recommend(columns []string, rows [][]any, requested model.ChartType) *model.RecommendResponse
}

type reportService struct {
	queries   QueryService
	renderer  *render.Renderer
	publisher *publisher.Publisher
	logger    zerolog.Logger
}

// NewReportService creates a new instance of ReportService
func NewReportService(queries QueryService, renderer *render.Renderer, pub *publisher.Publisher) ReportService {
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	return &reportService{
		queries:   queries,
		renderer:  renderer,
		publisher: pub,
		logger:    logging.Component("report_service"),
	}
}

// Generate runs guard, execute, infer, render and publish in order.
func (rs *reportService) Generate(ctx context.Context, in ReportInput) (resp *model.ReportResponse, err error) {
	chartLabel := string(in.ChartType)
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		middleware.RecordReport(chartLabel, status)
	}()

	started := time.Now()
	result, err := rs.queries.Execute(ctx, in.Descriptor, in.Database, in.SQL)
	middleware.ObserveStage("execute", started)
	if err != nil {
		return nil, err
	}
	if !result.IsRowSet() {
		return nil, utils.NewPolicyViolation("statement did not return a result set")
	}

	started = time.Now()
	rows := result.Matrix()
	schema := inference.InferSchema(result.ColumnNames(), rows)
	chartType := inference.ResolveChartType(in.ChartType, schema, rows)
	chartLabel = string(chartType)
	middleware.ObserveStage("infer", started)

	started = time.Now()
	doc, err := rs.renderer.Render(&model.VisualizationRequest{
		Rows:       rows,
		Schema:     schema,
		ChartType:  chartType,
		Title:      in.Title,
		AxisLabels: in.AxisLabels,
		Style:      in.Style,
	})
	middleware.ObserveStage("render", started)
	if err != nil {
		if errors.Is(err, render.ErrInsufficientFields) {
			return nil, utils.NewPolicyViolation(err.Error())
		}
		return nil, utils.NewErrorBuilder(utils.ErrCodeRenderFailed).WithCause(err).Build()
	}

	started = time.Now()
	published, err := rs.publisher.Publish(ctx, publisher.PublishRequest{
		Document:  doc,
		FileName:  fileNameFor(in.Title, chartType),
		OwnerID:   in.OwnerID,
		OwnerName: in.OwnerName,
		Title:     in.Title,
		ChartType: chartType,
	})
	middleware.ObserveStage("publish", started)
	if err != nil {
		return nil, err
	}

	rs.logger.Info().
		Str("panel_id", published.HandleID).
		Str("chart_type", string(chartType)).
		Int("rows", len(rows)).
		Msg("report generated")

	return &model.ReportResponse{
		URL:       published.URL,
		HandleID:  published.HandleID,
		ChartType: chartType,
		Schema:    schema,
		RowCount:  len(rows),
	}, nil
}

// Recommend runs inference only.
func (rs *reportService) Recommend(columns []string, rows [][]any, requested model.ChartType) *model.RecommendResponse {
	schema := inference.InferSchema(columns, rows)
	return &model.RecommendResponse{
		ChartType: inference.ResolveChartType(requested, schema, rows),
		Schema:    schema,
	}
}

func fileNameFor(title string, ct model.ChartType) string {
	if title != "" {
		return title
	}
	return string(ct) + "-report"
}
