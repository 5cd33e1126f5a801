package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) handleConditions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conditions": s.engine.Conditions(),
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	positions := s.engine.OpenPositions()
	c.JSON(http.StatusOK, gin.H{
		"positions": positions,
		"count":     len(positions),
	})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.RiskSnapshot())
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "trade store is disabled",
		})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	trades, err := s.repo.ListTrades(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list trades")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list trades",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trades": trades,
		"count":  len(trades),
	})
}

func (s *Server) handleRunCycle(c *gin.Context) {
	result, err := s.engine.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePause(c *gin.Context) {
	s.engine.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) handleResume(c *gin.Context) {
	s.engine.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}
