// Cloud Optimizer CLI.
//
// Usage:
//   optimizer scale [--dry-run] [--target asg-web]
//   optimizer cleanup --type volume --age-days 60
//   optimizer report --start 2026-01-01 --end 2026-01-31
//   optimizer serve --daemon
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/OldStager01/cloud-optimizer/api"
	"github.com/OldStager01/cloud-optimizer/internal/cleanup"
	"github.com/OldStager01/cloud-optimizer/internal/cooldown"
	"github.com/OldStager01/cloud-optimizer/internal/cost"
	"github.com/OldStager01/cloud-optimizer/internal/events"
	"github.com/OldStager01/cloud-optimizer/internal/gate"
	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/metrics"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/internal/report"
	"github.com/OldStager01/cloud-optimizer/internal/runner"
	"github.com/OldStager01/cloud-optimizer/pkg/config"
	"github.com/OldStager01/cloud-optimizer/pkg/database"
	"github.com/OldStager01/cloud-optimizer/pkg/database/queries"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "optimizer",
		Usage:   "Policy-driven scaling, cleanup, and cost reporting for cloud fleets",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				EnvVars: []string{"OPTIMIZER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "profile",
				Value:   "default",
				Usage:   "provider profile to target",
				EnvVars: []string{"OPTIMIZER_PROFILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level override (debug, info, warn, error)",
				EnvVars: []string{"OPTIMIZER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-mode",
				Usage:   "log mode override (development, production)",
				EnvVars: []string{"OPTIMIZER_LOG_MODE"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "table",
				Usage:   "output format (table, json, csv)",
				EnvVars: []string{"OPTIMIZER_OUTPUT"},
			},
		},

		Commands: []*cli.Command{
			scaleCommand(),
			cleanupCommand(),
			listCommand(),
			reportCommand(),
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runtime is the state every command shares: parsed config, the
// resolved provider profile, and the output format.
type runtime struct {
	cfg     *config.Config
	profile config.ProfileConfig
	format  report.Format
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.App.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	mode := cfg.App.Mode
	if c.IsSet("log-mode") {
		mode = c.String("log-mode")
	}
	logger.Setup(level, mode)

	profile, err := cfg.Profile(c.String("profile"))
	if err != nil {
		return nil, err
	}

	format, err := report.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, profile: profile, format: format}, nil
}

func (rt *runtime) renderer() *report.Renderer {
	return report.NewRenderer(os.Stdout, rt.format)
}

func (rt *runtime) buildProvider() (provider.Provider, error) {
	return provider.Build(rt.profile, rt.cfg.Provider)
}

func (rt *runtime) openDatabase() (*database.DB, error) {
	if !rt.cfg.DatabaseEnabled() {
		return nil, nil
	}

	db, err := database.New(toDatabaseConfig(rt.cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")
	return db, nil
}

func toDatabaseConfig(d config.DatabaseConfig) database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		User:            d.User,
		Password:        d.Password,
		MaxConnections:  d.MaxConnections,
		SSLMode:         d.SSLMode,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}

func (rt *runtime) cooldownStore(db *database.DB) (cooldown.Store, error) {
	switch rt.cfg.Cooldown.Store {
	case "postgres":
		if db == nil {
			return nil, errors.New("cooldown store \"postgres\" requires a configured database")
		}
		return cooldown.NewPostgresStore(queries.NewCooldownQueries(db.DB)), nil
	case "file":
		return cooldown.NewFileStore(rt.cfg.Cooldown.Path)
	default:
		return cooldown.NewMemoryStore(), nil
	}
}

// pipeline is the event fan-out behind a command: the bus plus every
// sink started on it, torn down in reverse order.
type pipeline struct {
	bus   *events.Bus
	stops []func()
}

func (rt *runtime) startEvents(db *database.DB, withMetrics bool) *pipeline {
	bus := events.NewBus(rt.cfg.Events.BufferSize)
	p := &pipeline{bus: bus}

	logSink := events.NewLoggerSink(bus.SubscribeAll())
	logSink.Start()
	p.stops = append(p.stops, logSink.Stop)

	if db != nil {
		audit := events.NewAuditSink(queries.NewActionEventQueries(db.DB), bus.SubscribeAll())
		audit.Start()
		p.stops = append(p.stops, audit.Stop)
	}

	if url := rt.cfg.Events.NATSURL; url != "" {
		nats, err := events.NewNATSSink(url, rt.cfg.Events.SubjectPrefix, bus.SubscribeAll())
		if err != nil {
			logger.Warnf("NATS sink disabled: %v", err)
		} else {
			nats.Start()
			p.stops = append(p.stops, nats.Stop)
		}
	}

	if withMetrics {
		sink := metrics.NewSink(metrics.Get(), bus.SubscribeAll())
		sink.Start()
		p.stops = append(p.stops, sink.Stop)
	}

	return p
}

func (p *pipeline) shutdown() {
	for i := len(p.stops) - 1; i >= 0; i-- {
		p.stops[i]()
	}
	p.bus.Close()
}

// exitStatus maps a sealed report onto the process exit code: partial
// runs exit 3 so schedulers can tell "some actions failed" from a clean
// pass or a hard failure.
func exitStatus(rep *models.RunReport) error {
	if rep != nil && rep.Status == models.RunPartial {
		return cli.Exit(fmt.Sprintf("run %s finished with %d failed action(s)", rep.RunID, rep.Failed), 3)
	}
	return nil
}

// =========================================================================
// scale
// =========================================================================

func scaleCommand() *cli.Command {
	return &cli.Command{
		Name:  "scale",
		Usage: "Evaluate group metrics against the scaling policy and apply capacity changes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "propose actions without applying them",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "skip the confirmation prompt",
			},
			&cli.StringSliceFlag{
				Name:  "target",
				Usage: "limit evaluation to specific group IDs (repeatable)",
			},
			&cli.IntFlag{
				Name:  "min-instances",
				Usage: "override the policy floor",
			},
			&cli.IntFlag{
				Name:  "max-instances",
				Usage: "override the policy ceiling",
			},
			&cli.Float64Flag{
				Name:  "cpu-threshold",
				Usage: "override the scale-up CPU threshold",
			},
			&cli.Float64Flag{
				Name:  "memory-threshold",
				Usage: "override the scale-up memory threshold",
			},
			&cli.DurationFlag{
				Name:  "scale-up-cooldown",
				Usage: "override the scale-up suppression window (e.g. 300s)",
			},
			&cli.DurationFlag{
				Name:  "scale-down-cooldown",
				Usage: "override the scale-down suppression window (e.g. 600s)",
			},
		},
		Action: runScale,
	}
}

func scalingPolicy(c *cli.Context, base models.ScalingPolicy) models.ScalingPolicy {
	if c.IsSet("min-instances") {
		base.MinInstances = c.Int("min-instances")
	}
	if c.IsSet("max-instances") {
		base.MaxInstances = c.Int("max-instances")
	}
	if c.IsSet("cpu-threshold") {
		base.CPUThreshold = c.Float64("cpu-threshold")
	}
	if c.IsSet("memory-threshold") {
		base.MemoryThreshold = c.Float64("memory-threshold")
	}
	if c.IsSet("scale-up-cooldown") {
		base.ScaleUpCooldown = c.Duration("scale-up-cooldown")
	}
	if c.IsSet("scale-down-cooldown") {
		base.ScaleDownCooldown = c.Duration("scale-down-cooldown")
	}
	return base
}

func runScale(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	prov, err := rt.buildProvider()
	if err != nil {
		return err
	}
	defer prov.Close()

	db, err := rt.openDatabase()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	cooldowns, err := rt.cooldownStore(db)
	if err != nil {
		return err
	}
	defer cooldowns.Close()

	pipe := rt.startEvents(db, false)
	defer pipe.shutdown()

	renderer := rt.renderer()

	targets := rt.cfg.Scaling.Targets
	if c.IsSet("target") {
		targets = c.StringSlice("target")
	}

	r, err := runner.New(runner.Config{
		Provider:    prov,
		Policy:      scalingPolicy(c, rt.cfg.Scaling.Policy),
		Targets:     targets,
		MaxParallel: rt.cfg.Scaling.MaxParallel,
		Cooldowns:   cooldowns,
		Publisher:   events.NewPublisher(pipe.bus, rt.profile.Provider),
		Gate:        gate.New(os.Stdin, os.Stdout, c.Bool("force")),
		DryRun:      c.Bool("dry-run"),
		OnScaleProposals: func(actions []models.ScalingAction) {
			if err := renderer.ScalingProposals(actions); err != nil {
				logger.Errorf("Failed to render proposals: %v", err)
			}
		},
	})
	if err != nil {
		return err
	}

	rep, err := r.Scale(context.Background())
	if rep != nil {
		if renderErr := renderer.Run(rep); renderErr != nil {
			logger.Errorf("Failed to render run report: %v", renderErr)
		}
	}
	if err != nil {
		return err
	}
	return exitStatus(rep)
}

// =========================================================================
// cleanup
// =========================================================================

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Find idle or aged resources and delete the confirmed ones",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "propose deletions without applying them",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "skip the confirmation prompt",
			},
			&cli.IntFlag{
				Name:  "age-days",
				Usage: "override the minimum age in days",
			},
			&cli.Float64Flag{
				Name:  "utilization",
				Usage: "override the utilization ceiling in percent",
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "resource type to consider (instance, volume, snapshot, loadbalancer, all)",
			},
		},
		Action: runCleanup,
	}
}

func runCleanup(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	prov, err := rt.buildProvider()
	if err != nil {
		return err
	}
	defer prov.Close()

	db, err := rt.openDatabase()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	pipe := rt.startEvents(db, false)
	defer pipe.shutdown()

	renderer := rt.renderer()

	thresholds := cleanup.Thresholds{
		AgeDays:        rt.cfg.Cleanup.AgeThresholdDays,
		UtilizationPct: rt.cfg.Cleanup.UtilizationThreshold,
	}
	if c.IsSet("age-days") {
		thresholds.AgeDays = c.Int("age-days")
	}
	if c.IsSet("utilization") {
		thresholds.UtilizationPct = c.Float64("utilization")
	}

	resourceType := rt.cfg.Cleanup.ResourceType
	if c.IsSet("type") {
		resourceType = models.ResourceType(c.String("type"))
	}

	r, err := runner.New(runner.Config{
		Provider:     prov,
		Policy:       rt.cfg.Scaling.Policy,
		Cleanup:      thresholds,
		ResourceType: resourceType,
		Publisher:    events.NewPublisher(pipe.bus, rt.profile.Provider),
		Gate:         gate.New(os.Stdin, os.Stdout, c.Bool("force")),
		DryRun:       c.Bool("dry-run"),
		OnCleanupProposals: func(actions []models.CleanupAction) {
			if err := renderer.CleanupProposals(actions); err != nil {
				logger.Errorf("Failed to render proposals: %v", err)
			}
		},
	})
	if err != nil {
		return err
	}

	rep, err := r.Cleanup(context.Background())
	if rep != nil {
		if renderErr := renderer.Run(rep); renderErr != nil {
			logger.Errorf("Failed to render run report: %v", renderErr)
		}
	}
	if err != nil {
		return err
	}
	return exitStatus(rep)
}

// =========================================================================
// list
// =========================================================================

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the fleet inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Value:   "all",
				Usage:   "resource type filter (instance, volume, snapshot, loadbalancer, all)",
			},
		},
		Action: runList,
	}
}

func runList(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	prov, err := rt.buildProvider()
	if err != nil {
		return err
	}
	defer prov.Close()

	resourceType := models.ResourceType(c.String("type"))
	if !resourceType.Valid() {
		return fmt.Errorf("unknown resource type %q", c.String("type"))
	}

	resources, err := prov.FetchInventory(context.Background(), resourceType)
	if err != nil {
		return fmt.Errorf("fetch inventory: %w", err)
	}

	return rt.renderer().Inventory(resources)
}

// =========================================================================
// report
// =========================================================================

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Generate a cost report for a billing window",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "window start (RFC3339 or YYYY-MM-DD, default 30 days ago)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "window end (RFC3339 or YYYY-MM-DD, default now)",
			},
			&cli.Float64Flag{
				Name:  "budget-threshold",
				Usage: "override the monthly budget used for alerts",
			},
		},
		Action: runReport,
	}
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected RFC3339 or YYYY-MM-DD", value)
}

func runReport(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	prov, err := rt.buildProvider()
	if err != nil {
		return err
	}
	defer prov.Close()

	db, err := rt.openDatabase()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	pipe := rt.startEvents(db, false)
	defer pipe.shutdown()

	end := time.Now().UTC()
	if c.IsSet("end") {
		if end, err = parseDate(c.String("end")); err != nil {
			return err
		}
	}
	start := end.AddDate(0, 0, -30)
	if c.IsSet("start") {
		if start, err = parseDate(c.String("start")); err != nil {
			return err
		}
	}
	if start.After(end) {
		return errors.New("start must be before end")
	}

	budget := rt.cfg.Report.BudgetThreshold
	if c.IsSet("budget-threshold") {
		budget = c.Float64("budget-threshold")
	}

	reporter := cost.NewReporter(prov, rt.cfg.Report.Currency, budget)
	costReport, err := reporter.Generate(context.Background(), start, end)
	if err != nil {
		return fmt.Errorf("generate cost report: %w", err)
	}

	pub := events.NewPublisher(pipe.bus, rt.profile.Provider)
	for _, alert := range costReport.Alerts {
		pub.BudgetAlert(alert)
	}

	return rt.renderer().Cost(costReport)
}

// =========================================================================
// serve
// =========================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, event pipeline, and optional evaluation daemon",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "daemon",
				Usage:   "evaluate the scaling policy on the configured interval",
				EnvVars: []string{"OPTIMIZER_DAEMON"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "override the API listen port",
				EnvVars: []string{"OPTIMIZER_PORT"},
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "override the daemon evaluation interval",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	cfg := rt.cfg
	if c.IsSet("port") {
		cfg.API.Port = c.Int("port")
	}
	if c.IsSet("interval") {
		cfg.Daemon.Interval = c.Duration("interval")
	}

	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	prov, err := rt.buildProvider()
	if err != nil {
		return err
	}
	defer prov.Close()

	db, err := rt.openDatabase()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	cooldowns, err := rt.cooldownStore(db)
	if err != nil {
		return err
	}
	defer cooldowns.Close()

	pipe := rt.startEvents(db, true)
	defer pipe.shutdown()

	base := runner.Config{
		Provider:    prov,
		Policy:      cfg.Scaling.Policy,
		Targets:     cfg.Scaling.Targets,
		MaxParallel: cfg.Scaling.MaxParallel,
		Cleanup: cleanup.Thresholds{
			AgeDays:        cfg.Cleanup.AgeThresholdDays,
			UtilizationPct: cfg.Cleanup.UtilizationThreshold,
		},
		ResourceType: cfg.Cleanup.ResourceType,
		Cooldowns:    cooldowns,
		Publisher:    events.NewPublisher(pipe.bus, rt.profile.Provider),
	}

	deps := api.Deps{
		Provider:     prov,
		Launcher:     runner.NewLauncher(base),
		CostReporter: cost.NewReporter(prov, cfg.Report.Currency, cfg.Report.BudgetThreshold),
		DB:           db,
		Bus:          pipe.bus,
	}
	if db != nil {
		deps.AuditLog = queries.NewActionEventQueries(db.DB)
	}

	var daemon *runner.Daemon
	if c.Bool("daemon") {
		daemonRunner, err := runner.New(base)
		if err != nil {
			return fmt.Errorf("daemon runner: %w", err)
		}
		daemon = runner.NewDaemon(daemonRunner, cfg.Daemon.Interval)
		daemon.Start()
		deps.Daemon = daemon
	}

	if cfg.API.MetricsPort > 0 {
		metrics.StartServer(cfg.API.MetricsPort)
	}

	server := api.NewServer(cfg.API, deps)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if daemon != nil {
		daemon.Stop()
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// =========================================================================
// migrate
// =========================================================================

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "list pending migrations without applying them",
			},
			&cli.BoolFlag{
				Name:  "down",
				Usage: "roll back the most recently applied migration",
			},
		},
		Action: runMigrate,
	}
}

func runMigrate(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	if !rt.cfg.DatabaseEnabled() {
		return errors.New("database is not configured")
	}

	db, err := rt.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	migrator := database.NewMigrator(db)

	if c.Bool("check") {
		pending, err := migrator.Pending(ctx)
		if err != nil {
			return fmt.Errorf("check migrations: %w", err)
		}
		if len(pending) == 0 {
			fmt.Println("No pending migrations")
			return nil
		}
		for _, name := range pending {
			fmt.Println(name)
		}
		return nil
	}

	if c.Bool("down") {
		rolled, err := migrator.Down(ctx)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if rolled == "" {
			fmt.Println("No applied migrations to roll back")
			return nil
		}
		fmt.Printf("Rolled back %s\n", rolled)
		return nil
	}

	logger.Info("Running database migrations")
	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Migrations completed successfully")
	return nil
}
