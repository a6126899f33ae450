package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/dropzone/internal/config"
	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/scores"
)

// GetConfig returns the simulation constants clients need to render a round
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	sim := game.DefaultConfig().WithDimensions(float64(cfg.GameWidth), float64(cfg.GameHeight))
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ball_size":             sim.BallSize,
			"target_size":           sim.TargetSize,
			"horizontal_speed":      sim.HorizontalSpeed,
			"gravity":               sim.Gravity,
			"max_vertical_velocity": sim.MaxVerticalVelocity,
			"game_width":            sim.Width,
			"game_height":           sim.Height,
			"perfect_radius":        game.PerfectRadius,
			"target_radius":         game.TargetRadius,
			"max_score":             game.MaxScore,
			"frame_interval_ms":     cfg.FrameIntervalMs,
			"recent_limit":          scores.RecentLimit,
		})
	}
}
