package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sqlpanel/internal/middleware"
	"sqlpanel/internal/repository"
	"sqlpanel/internal/security"
	"sqlpanel/pkg/response"
)

type PanelController struct {
	panels repository.PanelRepository
}

func NewPanelController(panels repository.PanelRepository) *PanelController {
	return &PanelController{panels: panels}
}

// Redirect godoc
// @Summary Follow a panel handle to its report
// @Tags panels
// @Param id path string true "Panel id"
// @Success 302
// @Failure 404 {object} response.StandardResponse
// @Router /p/{id} [get]
func (pc *PanelController) Redirect(c *gin.Context) {
	panel, err := pc.panels.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, repository.ErrPanelExpired):
			status = "expired"
		case errors.Is(err, repository.ErrPanelNotFound), errors.Is(err, repository.ErrInvalidPanelID):
			status = "not_found"
		}
		middleware.RecordPanelRedirect(status)
		respondError(c, err)
		return
	}

	middleware.RecordPanelRedirect("found")
	c.Redirect(http.StatusFound, panel.TargetURL)
}

// ListPanels godoc
// @Summary List the caller's panels, newest first
// @Tags panels
// @Param limit query int false "Page size (1-100, default 20)"
// @Param offset query int false "Offset"
// @Router /api/v1/panels [get]
func (pc *PanelController) ListPanels(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	caller := security.GetCaller(c)
	panels, total, err := pc.panels.ListByOwner(c.Request.Context(), caller.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{
		"panels": panels,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}, response.CorrelationID(c)))
}
