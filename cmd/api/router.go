package api

import (
	"net/http"

	"sift-backend/internal/auth/delivery"
	authUsecase "sift-backend/internal/auth/usecase"
	syncDelivery "sift-backend/internal/sync/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, authHandler *delivery.AuthHandler, syncHandler *syncDelivery.SyncHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.GET("/google/url", authHandler.GoogleAuthURL)
			auth.POST("/google/callback", authHandler.GoogleCallback)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
			auth.POST("/imap", delivery.AuthMiddleware(authUsecase), authHandler.ConfigureIMAP)
		}

		// Sync routes (protected)
		sync := api.Group("/sync")
		sync.Use(delivery.AuthMiddleware(authUsecase))
		{
			sync.POST("/run", syncHandler.Run)
			sync.GET("/test", syncHandler.TestExtraction)
			sync.GET("/history", syncHandler.History)
			sync.GET("/events", syncHandler.Events)
			sync.GET("/events/upcoming", syncHandler.Upcoming)
			sync.DELETE("/events/:id", syncHandler.DeleteEvent)
			sync.GET("/costs", syncHandler.Costs)
			sync.POST("/watch", syncHandler.Watch)
			sync.DELETE("/watch", syncHandler.StopWatch)
			sync.GET("/stream", syncHandler.Stream)
		}
	}
}
