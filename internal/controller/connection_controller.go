package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sqlpanel/internal/model"
	"sqlpanel/internal/service"
	"sqlpanel/pkg/response"
)

type ConnectionController struct {
	queryService service.QueryService
	timeout      time.Duration
}

func NewConnectionController(queryService service.QueryService, timeout time.Duration) *ConnectionController {
	return &ConnectionController{queryService: queryService, timeout: timeout}
}

type ConnectionTestResponse struct {
	Reachable bool   `json:"reachable"`
	Engine    string `json:"engine"`
	Address   string `json:"address"`
}

// TestConnection godoc
// @Summary Check that a database is reachable
// @Tags connections
// @Accept json
// @Produce json
// @Param request body model.ConnectionRequest true "Connection descriptor"
// @Success 200 {object} response.StandardResponse{data=ConnectionTestResponse}
// @Router /api/v1/connections/test [post]
func (cc *ConnectionController) TestConnection(c *gin.Context) {
	var req model.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	desc, ok := parseConnection(c, &req)
	if !ok {
		return
	}

	ctx, cancel := withDeadline(c, cc.timeout)
	defer cancel()

	reachable, err := cc.queryService.TestConnection(ctx, desc)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(ConnectionTestResponse{
		Reachable: reachable,
		Engine:    string(desc.EngineKind),
		Address:   desc.Address(),
	}, response.CorrelationID(c)))
}

// ListDatabases godoc
// @Summary List the databases visible to the descriptor's user
// @Tags connections
// @Router /api/v1/connections/databases [post]
func (cc *ConnectionController) ListDatabases(c *gin.Context) {
	var req model.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	desc, ok := parseConnection(c, &req)
	if !ok {
		return
	}

	ctx, cancel := withDeadline(c, cc.timeout)
	defer cancel()

	databases, err := cc.queryService.ListDatabases(ctx, desc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{"databases": databases}, response.CorrelationID(c)))
}

// GetSchema godoc
// @Summary Describe tables, views and columns of one database
// @Tags connections
// @Router /api/v1/connections/schema [post]
func (cc *ConnectionController) GetSchema(c *gin.Context) {
	var req model.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	desc, ok := parseConnection(c, &req)
	if !ok {
		return
	}

	ctx, cancel := withDeadline(c, cc.timeout)
	defer cancel()

	tables, err := cc.queryService.GetSchema(ctx, desc, req.Database)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{"tables": tables}, response.CorrelationID(c)))
}
