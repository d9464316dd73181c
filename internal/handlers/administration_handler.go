package handlers

import (
	"net/http"

	"github.com/clinicore/scale-service/internal/administration"
	"github.com/clinicore/scale-service/internal/services"
	"github.com/clinicore/scale-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdministrationHandler struct {
	BaseHandler
	administrationService services.AdministrationService
}

func NewAdministrationHandler(administrationService services.AdministrationService, logger utils.Logger) *AdministrationHandler {
	return &AdministrationHandler{
		BaseHandler:           NewBaseHandler(logger),
		administrationService: administrationService,
	}
}

// StartAdministration starts or resumes an administration within a session
// @Summary Start administration
// @Tags administrations
// @Accept json
// @Produce json
// @Param body body services.StartAdministrationRequest true "Session and scale"
// @Success 201 {object} services.AdministrationResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /administrations/start [post]
func (h *AdministrationHandler) StartAdministration(c *gin.Context) {
	var req services.StartAdministrationRequest
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

	result, err := h.administrationService.Start(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// GetAdministration retrieves an administration with scale and responses
// @Summary Get administration
// @Tags administrations
// @Produce json
// @Param id path uint true "Administration ID"
// @Success 200 {object} services.AdministrationResponse
// @Failure 404 {object} ErrorResponse
// @Router /administrations/{id} [get]
func (h *AdministrationHandler) GetAdministration(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.administrationService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveResponse records an answer for one item
// @Summary Save item response
// @Description Saves a response, last-write-wins per item; alerts fire immediately
// @Tags administrations
// @Accept json
// @Produce json
// @Param id path uint true "Administration ID"
// @Param response body administration.SaveResponseRequest true "Item response"
// @Success 200 {object} services.SaveResponseResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /administrations/{id}/responses [post]
func (h *AdministrationHandler) SaveResponse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req administration.SaveResponseRequest
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

	result, err := h.administrationService.SaveResponse(c.Request.Context(), id, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// NextItem advances to the next item
// @Summary Advance to next item
// @Tags administrations
// @Produce json
// @Param id path uint true "Administration ID"
// @Success 200 {object} services.NavigationResult
// @Failure 422 {object} ErrorResponse
// @Router /administrations/{id}/next [post]
func (h *AdministrationHandler) NextItem(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	result, err := h.administrationService.Next(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PreviousItem moves back one item where the mode allows it
// @Summary Move to previous item
// @Tags administrations
// @Produce json
// @Param id path uint true "Administration ID"
// @Success 200 {object} services.NavigationResult
// @Failure 422 {object} ErrorResponse
// @Router /administrations/{id}/previous [post]
func (h *AdministrationHandler) PreviousItem(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	result, err := h.administrationService.Previous(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type goToRequest struct {
	Index int `json:"index" validate:"min=0"`
}

// GoToItem jumps to an arbitrary item where the mode allows it
// @Summary Jump to item
// @Tags administrations
// @Accept json
// @Produce json
// @Param id path uint true "Administration ID"
// @Param body body goToRequest true "Zero-based item index"
// @Success 200 {object} services.NavigationResult
// @Failure 422 {object} ErrorResponse
// @Router /administrations/{id}/goto [post]
func (h *AdministrationHandler) GoToItem(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req goToRequest
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

	result, err := h.administrationService.GoTo(c.Request.Context(), id, req.Index, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompleteAdministration scores and finalizes an administration
// @Summary Complete administration
// @Tags administrations
// @Produce json
// @Param id path uint true "Administration ID"
// @Success 200 {object} services.AdministrationResponse
// @Failure 422 {object} ErrorResponse
// @Router /administrations/{id}/complete [post]
func (h *AdministrationHandler) CompleteAdministration(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Completing administration", "administration_id", id)

	result, err := h.administrationService.Complete(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type abandonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AbandonAdministration abandons an administration with partial results
// @Summary Abandon administration
// @Tags administrations
// @Accept json
// @Produce json
// @Param id path uint true "Administration ID"
// @Param body body abandonRequest true "Abandonment reason"
// @Success 200 {object} services.AdministrationResponse
// @Failure 409 {object} ErrorResponse
// @Router /administrations/{id}/abandon [post]
func (h *AdministrationHandler) AbandonAdministration(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req abandonRequest
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

	result, err := h.administrationService.Abandon(c.Request.Context(), id, req.Reason, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResults returns the stored results of a finalized administration
// @Summary Get administration results
// @Tags administrations
// @Produce json
// @Param id path uint true "Administration ID"
// @Success 200 {object} models.AssessmentResults
// @Failure 404 {object} ErrorResponse
// @Router /administrations/{id}/results [get]
func (h *AdministrationHandler) GetResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	results, err := h.administrationService.GetResults(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
