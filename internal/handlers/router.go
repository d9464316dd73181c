package handlers

import (
	"github.com/clinicore/scale-service/internal/services"
	"github.com/clinicore/scale-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	scaleHandler          *ScaleHandler
	sessionHandler        *SessionHandler
	administrationHandler *AdministrationHandler
	reportHandler         *ReportHandler
}

func NewHandlerManager(
	scales services.ScaleService,
	sessions services.SessionService,
	administrations services.AdministrationService,
	reports services.ReportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		scaleHandler:          NewScaleHandler(scales, logger),
		sessionHandler:        NewSessionHandler(sessions, logger),
		administrationHandler: NewAdministrationHandler(administrations, logger),
		reportHandler:         NewReportHandler(reports, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "scale-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	if authMiddleware != nil {
		v1.Use(authMiddleware)
	}
	{
		// Scale catalog routes
		scales := v1.Group("/scales")
		{
			scales.POST("", hm.scaleHandler.RegisterScale)
			scales.GET("", hm.scaleHandler.ListScales)
			scales.GET("/:id", hm.scaleHandler.GetScale)
			scales.GET("/abbreviation/:abbreviation", hm.scaleHandler.GetScaleByAbbreviation)
			scales.GET("/:id/stats", hm.scaleHandler.GetScaleStats)
			scales.DELETE("/:id", hm.scaleHandler.DeactivateScale)
		}

		// Session routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.GET("/:id/details", hm.sessionHandler.GetSessionWithDetails)
			sessions.POST("/:id/start", hm.sessionHandler.StartSession)
			sessions.POST("/:id/complete", hm.sessionHandler.CompleteSession)
			sessions.POST("/:id/cancel", hm.sessionHandler.CancelSession)
		}

		// Patient-centric routes
		patients := v1.Group("/patients")
		{
			patients.GET("/:patient_id/timeline", hm.sessionHandler.GetPatientTimeline)
			patients.GET("/:patient_id/stats", hm.sessionHandler.GetPatientStats)
		}

		// Administration routes
		administrations := v1.Group("/administrations")
		{
			administrations.POST("/start", hm.administrationHandler.StartAdministration)
			administrations.GET("/:id", hm.administrationHandler.GetAdministration)
			administrations.POST("/:id/responses", hm.administrationHandler.SaveResponse)
			administrations.POST("/:id/next", hm.administrationHandler.NextItem)
			administrations.POST("/:id/previous", hm.administrationHandler.PreviousItem)
			administrations.POST("/:id/goto", hm.administrationHandler.GoToItem)
			administrations.POST("/:id/complete", hm.administrationHandler.CompleteAdministration)
			administrations.POST("/:id/abandon", hm.administrationHandler.AbandonAdministration)
			administrations.GET("/:id/results", hm.administrationHandler.GetResults)
		}

		// Report routes
		reports := v1.Group("/reports")
		{
			reports.GET("/administrations/:id", hm.reportHandler.ExportAdministrationResults)
			reports.GET("/patients/:patient_id/timeline", hm.reportHandler.ExportPatientTimeline)
		}

		// Audit trail
		v1.GET("/audit", hm.reportHandler.GetAuditTrail)
	}
}
