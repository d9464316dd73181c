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

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// ExportAdministrationResults downloads one administration's results
// @Summary Export administration results
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Administration ID"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /reports/administrations/{id} [get]
func (h *ReportHandler) ExportAdministrationResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	format := services.ReportFormat(c.DefaultQuery("format", "xlsx"))

	file, err := h.reportService.ExportAdministrationResults(c.Request.Context(), id, format, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.writeFile(c, file)
}

// ExportPatientTimeline downloads a patient's longitudinal score history
// @Summary Export patient timeline
// @Tags reports
// @Produce text/csv
// @Param patient_id path string true "Patient ID"
// @Param scale_id query uint false "Restrict to one scale"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /reports/patients/{patient_id}/timeline [get]
func (h *ReportHandler) ExportPatientTimeline(c *gin.Context) {
	patientID := ParseStringIDParam(c, "patient_id")
	if patientID == "" {
		return
	}

	actorID, ok := h.requireActor(c)
	if !ok {
		return
	}

	var scaleID *uint
	if id := uint(h.parseIntQuery(c, "scale_id", 0)); id > 0 {
		scaleID = &id
	}
	format := services.ReportFormat(c.DefaultQuery("format", "xlsx"))

	file, err := h.reportService.ExportPatientTimeline(c.Request.Context(), patientID, scaleID, format, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.writeFile(c, file)
}

// GetAuditTrail lists audit entries for compliance review
// @Summary Get audit trail
// @Tags reports
// @Produce json
// @Param event_type query string false "Audit event type"
// @Param target_type query string false "Target type"
// @Param target_id query uint false "Target ID"
// @Success 200 {object} services.AuditTrailResponse
// @Router /audit [get]
func (h *ReportHandler) GetAuditTrail(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}

	filters := h.parseAuditFilters(c)

	trail, err := h.reportService.GetAuditTrail(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trail)
}

func (h *ReportHandler) parseAuditFilters(c *gin.Context) repositories.AuditFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 50)

	filters := repositories.AuditFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if eventType := c.Query("event_type"); eventType != "" {
		et := models.AuditEventType(eventType)
		filters.EventType = &et
	}
	if targetType := c.Query("target_type"); targetType != "" {
		filters.TargetType = &targetType
	}
	if id := uint(h.parseIntQuery(c, "target_id", 0)); id > 0 {
		filters.TargetID = &id
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

func (h *ReportHandler) writeFile(c *gin.Context, file *services.ReportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
