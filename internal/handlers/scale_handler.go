package handlers

import (
	"net/http"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/clinicore/scale-service/internal/services"
	"github.com/clinicore/scale-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ScaleHandler struct {
	BaseHandler
	scaleService services.ScaleService
}

func NewScaleHandler(scaleService services.ScaleService, logger utils.Logger) *ScaleHandler {
	return &ScaleHandler{
		BaseHandler:  NewBaseHandler(logger),
		scaleService: scaleService,
	}
}

// RegisterScale registers a new scale definition
// @Summary Register scale
// @Description Validates and registers a new scale definition in the catalog
// @Tags scales
// @Accept json
// @Produce json
// @Param scale body services.RegisterScaleRequest true "Scale definition"
// @Success 201 {object} models.ScaleDefinition
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /scales [post]
func (h *ScaleHandler) RegisterScale(c *gin.Context) {
	var req services.RegisterScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	scale, err := h.scaleService.Register(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, scale)
}

// GetScale retrieves a scale definition by ID
// @Summary Get scale
// @Tags scales
// @Produce json
// @Param id path uint true "Scale ID"
// @Success 200 {object} models.ScaleDefinition
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id} [get]
func (h *ScaleHandler) GetScale(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	scale, err := h.scaleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scale)
}

// GetScaleByAbbreviation retrieves a scale by its abbreviation
// @Summary Get scale by abbreviation
// @Tags scales
// @Produce json
// @Param abbreviation path string true "Scale abbreviation"
// @Success 200 {object} models.ScaleDefinition
// @Failure 404 {object} ErrorResponse
// @Router /scales/abbreviation/{abbreviation} [get]
func (h *ScaleHandler) GetScaleByAbbreviation(c *gin.Context) {
	abbreviation := ParseStringIDParam(c, "abbreviation")
	if abbreviation == "" {
		return
	}

	scale, err := h.scaleService.GetByAbbreviation(c.Request.Context(), abbreviation)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scale)
}

// ListScales lists scale definitions with filters
// @Summary List scales
// @Tags scales
// @Produce json
// @Param mode query string false "Administration mode"
// @Param active query bool false "Active only"
// @Param search query string false "Name or abbreviation search"
// @Success 200 {object} services.ScaleListResponse
// @Router /scales [get]
func (h *ScaleHandler) ListScales(c *gin.Context) {
	filters := h.parseScaleFilters(c)

	result, err := h.scaleService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeactivateScale retires a scale from the catalog
// @Summary Deactivate scale
// @Tags scales
// @Produce json
// @Param id path uint true "Scale ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id} [delete]
func (h *ScaleHandler) DeactivateScale(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	if err := h.scaleService.Deactivate(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Scale deactivated",
	})
}

// GetScaleStats returns aggregated administration outcomes for a scale
// @Summary Get scale administration stats
// @Tags scales
// @Produce json
// @Param id path uint true "Scale ID"
// @Success 200 {object} repositories.AdministrationStats
// @Failure 404 {object} ErrorResponse
// @Router /scales/{id}/stats [get]
func (h *ScaleHandler) GetScaleStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	stats, err := h.scaleService.GetStats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *ScaleHandler) parseScaleFilters(c *gin.Context) repositories.ScaleFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.ScaleFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "name"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
	}

	if mode := c.Query("mode"); mode != "" {
		m := models.AdministrationMode(mode)
		filters.Mode = &m
	}
	if active := c.Query("active"); active != "" {
		isActive := active == "true"
		filters.IsActive = &isActive
	}

	return filters
}
