package handlers

import (
	"net/http"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/clinicore/scale-service/internal/services"
	"github.com/clinicore/scale-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// CreateSession creates a new assessment session
// @Summary Create session
// @Description Creates a session for a patient, optionally pre-planning scales
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.CreateSessionRequest true "Session data"
// @Success 201 {object} models.AssessmentSession
// @Failure 400 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req services.CreateSessionRequest
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

	session, err := h.sessionService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a session by ID
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} models.AssessmentSession
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetSessionWithDetails retrieves a session with its administrations
// @Summary Get session with details
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} models.AssessmentSession
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/details [get]
func (h *SessionHandler) GetSessionWithDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	session, err := h.sessionService.GetByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists sessions with filters
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Param patient_id query string false "Patient ID"
// @Param status query string false "Session status"
// @Success 200 {object} services.SessionListResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filters := h.parseSessionFilters(c)

	result, err := h.sessionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StartSession transitions a session to in_progress
// @Summary Start session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} models.AssessmentSession
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// CompleteSession closes a session, abandoning in-flight administrations
// @Summary Complete session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} models.AssessmentSession
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Complete(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type cancelSessionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelSession cancels a session
// @Summary Cancel session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param body body cancelSessionRequest true "Cancellation reason"
// @Success 200 {object} models.AssessmentSession
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) CancelSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req cancelSessionRequest
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

	session, err := h.sessionService.Cancel(c.Request.Context(), id, req.Reason, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetPatientTimeline returns the longitudinal score history for a patient
// @Summary Get patient timeline
// @Description Chronological completed-administration scores with per-scale deltas
// @Tags sessions
// @Produce json
// @Param patient_id path string true "Patient ID"
// @Param scale_id query uint false "Restrict to one scale"
// @Success 200 {array} models.TimelineEntry
// @Router /patients/{patient_id}/timeline [get]
func (h *SessionHandler) GetPatientTimeline(c *gin.Context) {
	patientID := ParseStringIDParam(c, "patient_id")
	if patientID == "" {
		return
	}

	var scaleID *uint
	if id := uint(h.parseIntQuery(c, "scale_id", 0)); id > 0 {
		scaleID = &id
	}

	h.LogRequest(c, "Getting patient timeline", "patient_id", patientID)

	timeline, err := h.sessionService.GetPatientTimeline(c.Request.Context(), patientID, scaleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, timeline)
}

// GetPatientStats returns session statistics for a patient
// @Summary Get patient session stats
// @Tags sessions
// @Produce json
// @Param patient_id path string true "Patient ID"
// @Success 200 {object} repositories.SessionStats
// @Router /patients/{patient_id}/stats [get]
func (h *SessionHandler) GetPatientStats(c *gin.Context) {
	patientID := ParseStringIDParam(c, "patient_id")
	if patientID == "" {
		return
	}

	stats, err := h.sessionService.GetSessionStats(c.Request.Context(), patientID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *SessionHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.SessionFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "session_date"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if patientID := c.Query("patient_id"); patientID != "" {
		filters.PatientID = &patientID
	}
	if clinicianID := c.Query("clinician_id"); clinicianID != "" {
		filters.ClinicianID = &clinicianID
	}
	if status := c.Query("status"); status != "" {
		s := models.SessionStatus(status)
		filters.Status = &s
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
