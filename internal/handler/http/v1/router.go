package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршруты жизненного цикла инцидентов
	incidents := api.Group("/incidents")
	if len(h.cfg.APIKeys) > 0 {
		incidents.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	}
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/latest", h.latestIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", h.transitionStatus)
		incidents.POST("/:id/location", h.appendLocation)
		incidents.POST("/:id/acknowledge", h.acknowledge)
		incidents.POST("/batch", h.ingestBatch)
	}

	// Realtime-подписка на события жизненного цикла
	api.GET("/ws", h.subscribeEvents)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
