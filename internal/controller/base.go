package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sqlpanel/internal/database"
	"sqlpanel/internal/model"
	"sqlpanel/internal/publisher"
	"sqlpanel/internal/repository"
	"sqlpanel/internal/utils"
	"sqlpanel/pkg/response"
)

// respondError maps pipeline errors onto the standard error envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	cid := response.CorrelationID(c)

	var (
		driverErr *database.DriverError
		uploadErr *publisher.UploadError
		regErr    *publisher.RegistrationError
		appErr    *utils.AppError
	)

	// Deadlines surface wrapped in driver errors, so they are matched first.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, response.ErrorResponseFromAppError(utils.NewStatementTimeout(err), cid))
	case errors.As(err, &driverErr):
		c.JSON(http.StatusBadGateway, response.ErrorResponse(utils.ErrCodeDriverFailure, driverErr.Error(), driverErr.Op, cid))
	case errors.Is(err, publisher.ErrDependencyUnavailable):
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse(utils.ErrCodeDependencyUnavailable, err.Error(), "", cid))
	case errors.As(err, &uploadErr):
		c.JSON(http.StatusBadGateway, response.ErrorResponse(utils.ErrCodeUploadFailed, uploadErr.Error(), "", cid))
	case errors.As(err, &regErr):
		c.JSON(http.StatusBadGateway, response.ErrorResponse(utils.ErrCodeRegistrationFailed, regErr.Error(), "", cid))
	case errors.Is(err, repository.ErrPanelNotFound),
		errors.Is(err, repository.ErrPanelExpired),
		errors.Is(err, repository.ErrInvalidPanelID):
		c.JSON(http.StatusNotFound, response.NotFoundResponse(err.Error(), cid))
	case errors.As(err, &appErr):
		c.JSON(utils.GetErrorStatus(appErr), response.ErrorResponseFromAppError(appErr, cid))
	default:
		c.JSON(http.StatusInternalServerError, response.InternalServerErrorResponse(cid))
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.ErrorResponse(
		utils.ErrCodeInvalidRequest,
		"Invalid request body: "+err.Error(),
		"",
		response.CorrelationID(c),
	))
}

// parseConnection resolves the engine alias and validates the descriptor.
func parseConnection(c *gin.Context, req *model.ConnectionRequest) (*model.ConnectionDescriptor, bool) {
	desc, err := database.ParseDescriptor(req.Connection)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return desc, true
}

// withDeadline bounds statement execution when a timeout is configured.
func withDeadline(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}
