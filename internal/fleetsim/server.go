package fleetsim

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

type Config struct {
	Port     int
	Provider models.CloudProvider
	Region   string
}

// Server exposes a simulated fleet over the provider wire API, plus a
// control surface for steering the simulation from outside: injecting
// spikes, switching load patterns, and breaking the metrics pipeline.
type Server struct {
	config     Config
	fleet      *Fleet
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Provider == "" {
		cfg.Provider = models.ProviderAWS
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		fleet:  NewFleet(cfg.Provider, cfg.Region),
		router: router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/v1")
	{
		v1.GET("/inventory", s.inventoryHandler)
		v1.GET("/groups", s.groupsHandler)
		v1.GET("/groups/:id/metrics", s.groupMetricsHandler)
		v1.POST("/groups/:id/capacity", s.capacityHandler)
		v1.DELETE("/resources/:id", s.deleteResourceHandler)
		v1.GET("/costs", s.costsHandler)
	}

	control := s.router.Group("/control")
	{
		control.GET("/groups/:id/status", s.groupStatusHandler)
		control.POST("/groups/:id/spike", s.spikeHandler)
		control.POST("/groups/:id/pattern", s.patternHandler)
		control.POST("/groups/:id/outage", s.outageHandler)
		control.POST("/resources", s.addResourceHandler)
	}
}

// Start begins serving in the background. Use Stop to shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Fleet simulator (%s/%s) listening on %s", s.config.Provider, s.config.Region, addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Fleet simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Fleet exposes the simulated state for tests and embedding callers.
func (s *Server) Fleet() *Fleet {
	return s.fleet
}

func (s *Server) healthHandler(c *gin.Context) {
	resources, groups := s.fleet.Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "fleet-simulator",
		"provider":  s.fleet.Provider(),
		"region":    s.fleet.Region(),
		"resources": resources,
		"groups":    groups,
	})
}

func (s *Server) inventoryHandler(c *gin.Context) {
	raw := c.DefaultQuery("type", string(models.ResourceTypeAll))
	resourceType := models.ResourceType(raw)
	if !resourceType.Valid() {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: fmt.Sprintf("unknown resource type %q", raw)})
		return
	}

	c.JSON(http.StatusOK, provider.InventoryResponse{Resources: s.fleet.Resources(resourceType)})
}

func (s *Server) groupsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, provider.GroupsResponse{Groups: s.fleet.Groups()})
}

func (s *Server) groupMetricsHandler(c *gin.Context) {
	group, ok := s.fleet.Group(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "scaling group not found"})
		return
	}

	c.JSON(http.StatusOK, group.Sample())
}

func (s *Server) capacityHandler(c *gin.Context) {
	group, ok := s.fleet.Group(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "scaling group not found"})
		return
	}

	var req provider.CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "invalid capacity request"})
		return
	}
	if req.Instances < 0 {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "instances must not be negative"})
		return
	}

	group.SetCapacity(req.Instances)
	logger.Infof("Capacity set on group %s: %d instances", c.Param("id"), req.Instances)

	c.JSON(http.StatusOK, gin.H{"group": group.Snapshot()})
}

func (s *Server) deleteResourceHandler(c *gin.Context) {
	id := c.Param("id")
	if !s.fleet.DeleteResource(id) {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "resource not found"})
		return
	}

	logger.Infof("Deleted resource %s", id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) costsHandler(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "end must be RFC3339"})
			return
		}
		end = parsed
	}
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "start must be RFC3339"})
			return
		}
		start = parsed
	}

	c.JSON(http.StatusOK, provider.CostsResponse{Costs: s.fleet.ServiceCosts(start, end)})
}

// Control surface.

type SpikeRequest struct {
	CPUTarget float64 `json:"cpu_target" binding:"required"`
	Duration  string  `json:"duration"`
	RampUp    string  `json:"ramp_up"`
}

type PatternRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

type OutageRequest struct {
	MetricsDown bool `json:"metrics_down"`
}

func (s *Server) groupStatusHandler(c *gin.Context) {
	group, ok := s.fleet.Group(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "scaling group not found"})
		return
	}

	c.JSON(http.StatusOK, group.Status())
}

func (s *Server) spikeHandler(c *gin.Context) {
	group, ok := s.fleet.Group(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "scaling group not found"})
		return
	}

	var req SpikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "invalid spike request"})
		return
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 5 * time.Minute
	}
	rampUp, err := time.ParseDuration(req.RampUp)
	if err != nil {
		rampUp = 30 * time.Second
	}

	group.InjectSpike(req.CPUTarget, duration, rampUp)
	logger.Infof("Injected spike on group %s: target=%.1f%%, duration=%s", c.Param("id"), req.CPUTarget, duration)

	c.JSON(http.StatusOK, gin.H{
		"message":    "spike injected",
		"group_id":   c.Param("id"),
		"cpu_target": req.CPUTarget,
		"duration":   duration.String(),
		"ramp_up":    rampUp.String(),
	})
}

func (s *Server) patternHandler(c *gin.Context) {
	group, ok := s.fleet.Group(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "scaling group not found"})
		return
	}

	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "invalid pattern request"})
		return
	}

	pattern, ok := ParsePattern(req.Pattern)
	if !ok {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{
			Error: fmt.Sprintf("unknown pattern %q, expected one of %s", req.Pattern, strings.Join(KnownPatterns, ", ")),
		})
		return
	}

	group.SetPattern(pattern)
	logger.Infof("Set pattern %s on group %s", req.Pattern, c.Param("id"))

	c.JSON(http.StatusOK, gin.H{
		"message":  "pattern set",
		"group_id": c.Param("id"),
		"pattern":  req.Pattern,
	})
}

func (s *Server) outageHandler(c *gin.Context) {
	group, ok := s.fleet.Group(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, provider.ErrorResponse{Error: "scaling group not found"})
		return
	}

	var req OutageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "invalid outage request"})
		return
	}

	group.SetMetricsDown(req.MetricsDown)
	logger.Infof("Metrics outage on group %s: %v", c.Param("id"), req.MetricsDown)

	c.JSON(http.StatusOK, gin.H{
		"message":      "outage state set",
		"group_id":     c.Param("id"),
		"metrics_down": req.MetricsDown,
	})
}

func (s *Server) addResourceHandler(c *gin.Context) {
	var r models.Resource
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, provider.ErrorResponse{Error: "invalid resource body"})
		return
	}

	added := s.fleet.AddResource(r)
	logger.Infof("Added resource %s (%s)", added.ID, added.Type)

	c.JSON(http.StatusCreated, gin.H{"resource": added})
}
