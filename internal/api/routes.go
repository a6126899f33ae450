package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/dropzone/internal/api/handlers"
	"github.com/playmatatu/dropzone/internal/auth"
	"github.com/playmatatu/dropzone/internal/config"
	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/middleware"
	"github.com/playmatatu/dropzone/internal/scores"
	"github.com/playmatatu/dropzone/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config, svc *scores.Service, hub *ws.Hub, manager *game.Manager) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	v1.Use(auth.Identify(cfg.JWTSecret))
	{
		v1.GET("/health", handlers.HealthCheck(manager))
		v1.GET("/config", handlers.GetConfig(cfg))
		v1.POST("/score", handlers.CalculateScore(svc))

		// Player endpoints
		player := v1.Group("")
		player.Use(auth.RequireUser())
		{
			player.GET("/stats", handlers.GetStats(svc))
			player.POST("/attempts", handlers.RecordAttempt(svc))
		}

		// Live play; anonymous connections can play but are not recorded
		v1.GET("/play/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandlePlayWebSocket(hub, manager, svc))
	}
}
