package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/scores"
	"github.com/playmatatu/dropzone/internal/ws"
)

// HandlePlayWebSocket streams a live simulation to the client
func HandlePlayWebSocket(hub *ws.Hub, manager *game.Manager, svc *scores.Service) gin.HandlerFunc {
	return ws.HandleWebSocket(hub, manager, svc)
}
