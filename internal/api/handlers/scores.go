package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/dropzone/internal/auth"
	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/scores"
)

// CalculateScore scores a landing distance without recording anything
func CalculateScore(svc *scores.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Distance    *float64 `json:"distance" binding:"required"`
			MaxDistance float64  `json:"max_distance" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "distance and a positive max_distance are required"})
			return
		}

		score := svc.CalculateScore(*req.Distance, req.MaxDistance)
		c.JSON(http.StatusOK, gin.H{
			"score":  score,
			"rating": game.Rating(score),
		})
	}
}

// GetStats returns the caller's stats. When the store is unreachable the last
// known stats are returned with stale set.
func GetStats(svc *scores.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.LoadStats(c.Request.Context(), auth.CurrentUser(c))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"stats": stats, "stale": false})
		case errors.Is(err, scores.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "stats access denied by the score store"})
		case errors.Is(err, scores.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		default:
			c.JSON(http.StatusOK, gin.H{"stats": stats, "stale": true})
		}
	}
}

// RecordAttempt stores a round played by a client-side simulation
func RecordAttempt(svc *scores.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Score    *int    `json:"score" binding:"required"`
			Distance float64 `json:"distance"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "score is required"})
			return
		}

		profile, err := svc.RecordAttempt(c.Request.Context(), auth.CurrentUser(c), *req.Score, req.Distance)
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, gin.H{"profile": profile, "average_score": profile.AverageScore()})
		case errors.Is(err, scores.ErrInvalidScore):
			c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 0 and 1000"})
		case errors.Is(err, scores.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		case errors.Is(err, scores.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "attempt rejected by the score store"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "score store unavailable, try again"})
		}
	}
}
