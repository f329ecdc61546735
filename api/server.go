package api

import (
	"context"
	"net/http"
	"time"

	"github.com/OldStager01/cloud-optimizer/api/handlers"
	"github.com/OldStager01/cloud-optimizer/api/middleware"
	"github.com/OldStager01/cloud-optimizer/api/websocket"
	"github.com/OldStager01/cloud-optimizer/internal/auth"
	"github.com/OldStager01/cloud-optimizer/internal/cost"
	"github.com/OldStager01/cloud-optimizer/internal/events"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/config"
	"github.com/OldStager01/cloud-optimizer/pkg/database"
	"github.com/OldStager01/cloud-optimizer/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

const (
	defaultRateLimit    = 120
	defaultMaxBodyBytes = 1 << 20
)

// Deps carries the collaborators the handlers need. DB, AuditLog and
// Bus are optional; endpoints backed by a nil dependency degrade to
// 503 instead of failing at startup.
type Deps struct {
	Provider     provider.Provider
	Launcher     handlers.RunLauncher
	Daemon       handlers.DaemonStatus
	CostReporter *cost.Reporter
	DB           *database.DB
	AuditLog     *queries.ActionEventQueries
	Bus          *events.Bus
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	deps        Deps
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
}

func NewServer(cfg config.APIConfig, deps Deps) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:      gin.New(),
		config:      cfg,
		deps:        deps,
		authService: auth.NewService(cfg.JWTSecret, cfg.JWTDuration),
		wsHub:       websocket.NewHub(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run()

	if deps.Bus != nil {
		s.wsBridge = websocket.NewEventBridge(s.wsHub, deps.Bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	maxBody := s.config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	s.router.Use(middleware.RequestSizeLimit(maxBody))

	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())

	requests := s.config.RateLimit.Requests
	if requests <= 0 {
		requests = defaultRateLimit
	}
	window := s.config.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(requests, window)))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.Provider, s.deps.DB)
	authHandler := handlers.NewAuthHandler(s.authService, s.config.Auth)
	fleetHandler := handlers.NewFleetHandler(s.deps.Provider)
	runsHandler := handlers.NewRunsHandler(s.deps.Launcher, s.deps.Daemon)
	eventsHandler := handlers.NewEventsHandler(s.deps.AuditLog)
	costsHandler := handlers.NewCostsHandler(s.deps.CostReporter)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.GET("/fleet/resources", fleetHandler.ListResources)
		protected.GET("/fleet/summary", fleetHandler.Summary)
		protected.GET("/fleet/groups", fleetHandler.ListGroups)
		protected.GET("/fleet/groups/:id/metrics", fleetHandler.GroupMetrics)

		protected.POST("/runs/scale", runsHandler.TriggerScale)
		protected.POST("/runs/cleanup", runsHandler.TriggerCleanup)
		protected.GET("/status", runsHandler.Status)

		protected.GET("/events/recent", eventsHandler.Recent)
		protected.GET("/events/run/:id", eventsHandler.ForRun)
		protected.GET("/events/target/:id", eventsHandler.ForTarget)

		protected.GET("/costs", costsHandler.Report)
	}
}

func (s *Server) Start() error {
	idleTimeout := s.config.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
