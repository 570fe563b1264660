package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Synchronous assessment
	api.POST("/assess", h.Assess)
	api.GET("/checklist", h.GetChecklist)

	// Case checks - static routes first
	api.GET("/case-checks/search", h.SearchCaseChecks)
	api.POST("/case-checks", h.SubmitCaseCheck)
	api.GET("/case-checks", h.ListCaseChecks)
	api.GET("/case-checks/:meetingId", h.GetCaseCheck)
	api.GET("/case-checks/:meetingId/checks", h.GetCheckResults)
	api.PUT("/case-checks/:meetingId/checks/:checkId/review", h.ReviewCheck)

	// Notifications (SSE)
	api.GET("/notifications/stream", h.NotificationStream)
}
