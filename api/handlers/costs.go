package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/cost"
	"github.com/gin-gonic/gin"
)

// CostsHandler serves spend reports. The window defaults to the
// trailing 30 days.
type CostsHandler struct {
	reporter *cost.Reporter
}

func NewCostsHandler(reporter *cost.Reporter) *CostsHandler {
	return &CostsHandler{reporter: reporter}
}

func (h *CostsHandler) Report(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	end, ok := parseDate(c, "end", time.Now().UTC())
	if !ok {
		return
	}
	start, ok := parseDate(c, "start", end.AddDate(0, 0, -30))
	if !ok {
		return
	}

	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return
	}

	report, err := h.reporter.Generate(ctx, start, end)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate cost report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// parseDate accepts RFC3339 timestamps or plain dates. On a malformed
// value it writes the error response and reports false.
func parseDate(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be RFC3339 or YYYY-MM-DD"})
	return time.Time{}, false
}
