package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventsHandler serves the persisted audit trail. All endpoints return
// 503 when no database is configured.
type EventsHandler struct {
	audit *queries.ActionEventQueries
}

func NewEventsHandler(audit *queries.ActionEventQueries) *EventsHandler {
	return &EventsHandler{audit: audit}
}

func (h *EventsHandler) ensureConfigured(c *gin.Context) bool {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log not configured"})
		return false
	}
	return true
}

func (h *EventsHandler) Recent(c *gin.Context) {
	if !h.ensureConfigured(c) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	events, err := h.audit.Recent(ctx, parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *EventsHandler) ForRun(c *gin.Context) {
	if !h.ensureConfigured(c) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	runID := c.Param("id")

	events, err := h.audit.ForRun(ctx, runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"events": events,
		"count":  len(events),
	})
}

func (h *EventsHandler) ForTarget(c *gin.Context) {
	if !h.ensureConfigured(c) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	target := c.Param("id")

	events, err := h.audit.ForTarget(ctx, target, parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target": target,
		"events": events,
		"count":  len(events),
	})
}

func parseLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultEventLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}
