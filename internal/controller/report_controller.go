package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sqlpanel/internal/logging"
	"sqlpanel/internal/middleware"
	"sqlpanel/internal/model"
	"sqlpanel/internal/quota"
	"sqlpanel/internal/security"
	"sqlpanel/internal/service"
	"sqlpanel/internal/utils"
	"sqlpanel/pkg/response"
)

type ReportController struct {
	reportService service.ReportService
	quota         quota.Checker
	timeout       time.Duration
	logger        zerolog.Logger
}

func NewReportController(reportService service.ReportService, checker quota.Checker, timeout time.Duration) *ReportController {
	if checker == nil {
		checker = quota.Unlimited{}
	}
	return &ReportController{
		reportService: reportService,
		quota:         checker,
		timeout:       timeout,
		logger:        logging.Component("report_controller"),
	}
}

// GenerateReport godoc
// @Summary Run a statement and publish it as a chart panel
// @Description Guard, execute, infer, render and publish. The caller's daily
// quota is checked before and incremented after a successful publish.
// @Tags reports
// @Accept json
// @Produce json
// @Param request body model.ReportRequest true "Report request"
// @Success 200 {object} response.StandardResponse{data=model.ReportResponse}
// @Failure 403 {object} response.StandardResponse
// @Failure 429 {object} response.StandardResponse
// @Failure 502 {object} response.StandardResponse
// @Failure 503 {object} response.StandardResponse
// @Router /api/v1/reports [post]
func (rc *ReportController) GenerateReport(c *gin.Context) {
	var req model.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	chartType, err := model.ParseChartType(req.ChartType)
	if err != nil {
		respondError(c, utils.NewPolicyViolation(err.Error()))
		return
	}
	desc, ok := parseConnection(c, &req.ConnectionRequest)
	if !ok {
		return
	}

	caller := security.GetCaller(c)
	decision, err := rc.quota.CheckQuota(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, utils.NewDependencyUnavailable(err))
		return
	}
	if !decision.Available {
		middleware.RecordQuotaRejection()
		respondError(c, utils.NewErrorBuilder(utils.ErrCodeQuotaExceeded).WithMessage(decision.Reason).Build())
		return
	}

	ctx, cancel := withDeadline(c, rc.timeout)
	defer cancel()

	report, err := rc.reportService.Generate(ctx, service.ReportInput{
		Descriptor: desc,
		Database:   req.Database,
		SQL:        req.SQL,
		ChartType:  chartType,
		Title:      req.Title,
		AxisLabels: req.AxisLabels,
		Style:      req.Style,
		OwnerID:    caller.ID,
		OwnerName:  caller.DisplayName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := rc.quota.IncrementUsage(c.Request.Context(), caller.ID); err != nil {
		rc.logger.Warn().Err(err).Str("user_id", caller.ID).Msg("failed to record quota usage")
	}

	c.JSON(http.StatusOK, response.SuccessResponse(report, response.CorrelationID(c)))
}

// RecommendChart godoc
// @Summary Infer column types and recommend a chart for raw rows
// @Tags reports
// @Router /api/v1/charts/recommend [post]
func (rc *ReportController) RecommendChart(c *gin.Context) {
	var req model.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	chartType, err := model.ParseChartType(req.ChartType)
	if err != nil {
		respondError(c, utils.NewPolicyViolation(err.Error()))
		return
	}
	for i, row := range req.Rows {
		if len(row) != len(req.Columns) {
			respondError(c, utils.NewValidationError("row length does not match columns",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(req.Columns))))
			return
		}
	}

	c.JSON(http.StatusOK, response.SuccessResponse(
		rc.reportService.Recommend(req.Columns, req.Rows, chartType),
		response.CorrelationID(c),
	))
}
