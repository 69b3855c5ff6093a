package api

import (
	authDelivery "sift-backend/internal/auth/delivery"
	authUsecase "sift-backend/internal/auth/usecase"
	syncDelivery "sift-backend/internal/sync/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	authHandler *authDelivery.AuthHandler
	syncHandler *syncDelivery.SyncHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, syncHandler *syncDelivery.SyncHandler) *Handler {
	return &Handler{
		authUsecase: authUc,
		authHandler: authDelivery.NewAuthHandler(authUc),
		syncHandler: syncHandler,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.authHandler, h.syncHandler)

	return r.Run(addr)
}
