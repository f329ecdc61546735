package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
	"github.com/gin-gonic/gin"
)

// FleetHandler serves read-only views of the provider's inventory and
// scaling groups.
type FleetHandler struct {
	provider provider.Provider
}

func NewFleetHandler(p provider.Provider) *FleetHandler {
	return &FleetHandler{provider: p}
}

func (h *FleetHandler) ListResources(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resourceType := models.ResourceType(c.DefaultQuery("type", string(models.ResourceTypeAll)))
	if !resourceType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown resource type %q", resourceType)})
		return
	}

	resources, err := h.provider.FetchInventory(ctx, resourceType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch inventory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resources": resources,
		"count":     len(resources),
	})
}

func (h *FleetHandler) Summary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resources, err := h.provider.FetchInventory(ctx, models.ResourceTypeAll)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch inventory"})
		return
	}

	c.JSON(http.StatusOK, models.Summarize(resources))
}

func (h *FleetHandler) ListGroups(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	groups, err := h.provider.FetchGroups(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling groups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

func (h *FleetHandler) GroupMetrics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	groupID := c.Param("id")

	sample, err := h.provider.FetchMetrics(ctx, groupID)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "scaling group not found"})
		case errors.Is(err, models.ErrMetricsUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics unavailable for this group"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch metrics"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_id": groupID,
		"metrics":  sample,
	})
}
