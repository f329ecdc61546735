package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/runner"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
	"github.com/gin-gonic/gin"
)

// RunLauncher starts one evaluation or cleanup pass on behalf of an
// API caller. Implementations serialize overlapping runs.
type RunLauncher interface {
	Scale(ctx context.Context, dryRun bool, targets []string) (*models.RunReport, error)
	Cleanup(ctx context.Context, dryRun bool) (*models.RunReport, error)
	Targets() []string
}

// DaemonStatus exposes the background evaluation loop's state.
type DaemonStatus interface {
	IsRunning() bool
	LastReport() *models.RunReport
}

type RunsHandler struct {
	launcher RunLauncher
	daemon   DaemonStatus
}

// NewRunsHandler wires the trigger endpoints. daemon may be nil when
// no background loop was started.
func NewRunsHandler(launcher RunLauncher, daemon DaemonStatus) *RunsHandler {
	return &RunsHandler{
		launcher: launcher,
		daemon:   daemon,
	}
}

// TriggerRequest selects the execution mode for a triggered run. A
// missing dry_run field previews; mutations require an explicit false.
// Targets narrows a scale run to specific groups.
type TriggerRequest struct {
	DryRun  *bool    `json:"dry_run"`
	Targets []string `json:"targets"`
}

func (r *TriggerRequest) dryRun() bool {
	if r.DryRun == nil {
		return true
	}
	return *r.DryRun
}

func (h *RunsHandler) TriggerScale(c *gin.Context) {
	h.trigger(c, func(ctx context.Context, req TriggerRequest) (*models.RunReport, error) {
		return h.launcher.Scale(ctx, req.dryRun(), req.Targets)
	})
}

func (h *RunsHandler) TriggerCleanup(c *gin.Context) {
	h.trigger(c, func(ctx context.Context, req TriggerRequest) (*models.RunReport, error) {
		return h.launcher.Cleanup(ctx, req.dryRun())
	})
}

func (h *RunsHandler) trigger(c *gin.Context, launch func(context.Context, TriggerRequest) (*models.RunReport, error)) {
	var req TriggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	report, err := launch(ctx, req)
	if err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		resp := gin.H{"error": err.Error()}
		if report != nil {
			resp["report"] = report
		}
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *RunsHandler) Status(c *gin.Context) {
	resp := gin.H{
		"daemon_running": false,
		"targets":        h.launcher.Targets(),
	}

	if h.daemon != nil {
		resp["daemon_running"] = h.daemon.IsRunning()
		if last := h.daemon.LastReport(); last != nil {
			resp["last_run"] = last
		}
	}

	c.JSON(http.StatusOK, resp)
}
