package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sqlpanel/internal/model"
	"sqlpanel/internal/service"
	"sqlpanel/pkg/response"
)

type QueryController struct {
	queryService service.QueryService
	timeout      time.Duration
}

func NewQueryController(queryService service.QueryService, timeout time.Duration) *QueryController {
	return &QueryController{queryService: queryService, timeout: timeout}
}

// ExecuteQuery godoc
// @Summary Execute a read-only SQL statement
// @Description Runs one statement that passes the read-only guard and returns
// the raw row-set.
// @Tags queries
// @Accept json
// @Produce json
// @Param request body model.QueryRequest true "Query execution request"
// @Success 200 {object} response.StandardResponse
// @Failure 400 {object} response.StandardResponse
// @Failure 403 {object} response.StandardResponse
// @Failure 502 {object} response.StandardResponse
// @Router /api/v1/query [post]
func (qc *QueryController) ExecuteQuery(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	desc, ok := parseConnection(c, &req.ConnectionRequest)
	if !ok {
		return
	}

	ctx, cancel := withDeadline(c, qc.timeout)
	defer cancel()

	result, err := qc.queryService.Execute(ctx, desc, req.Database, req.SQL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(result, response.CorrelationID(c)))
}

// Stats returns statement counters since start.
func (qc *QueryController) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessResponse(qc.queryService.Stats(), response.CorrelationID(c)))
}
