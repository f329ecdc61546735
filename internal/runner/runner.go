// Package runner drives the two flows end to end: discover, analyze,
// confirm, execute, report. It owns run identity, warning collection,
// and the terminal RunReport; the cores it calls stay pure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/cleanup"
	"github.com/OldStager01/cloud-optimizer/internal/cooldown"
	"github.com/OldStager01/cloud-optimizer/internal/decision"
	"github.com/OldStager01/cloud-optimizer/internal/events"
	"github.com/OldStager01/cloud-optimizer/internal/executor"
	"github.com/OldStager01/cloud-optimizer/internal/gate"
	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

type Config struct {
	Provider     provider.Provider
	Policy       models.ScalingPolicy
	Targets      []string
	Cleanup      cleanup.Thresholds
	ResourceType models.ResourceType
	Cooldowns    cooldown.Store
	Publisher    *events.Publisher
	Gate         *gate.Gate
	DryRun       bool

	// MaxParallel bounds how many groups are evaluated at once. Zero or
	// negative means sequential. Execution stays sequential regardless.
	MaxParallel int

	// OnScaleProposals and OnCleanupProposals fire after analysis and
	// before the confirmation gate, so callers can show what is about
	// to happen.
	OnScaleProposals   func([]models.ScalingAction)
	OnCleanupProposals func([]models.CleanupAction)
}

type Runner struct {
	config    Config
	evaluator *decision.Evaluator
	analyzer  *cleanup.Analyzer
	executor  *executor.Executor
	nowFn     func() time.Time
}

// New validates the configuration once. An invalid policy is fatal here;
// it never reaches evaluation.
func New(cfg Config) (*Runner, error) {
	if cfg.Provider == nil {
		return nil, errors.New("runner requires a provider")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.ResourceType == "" {
		cfg.ResourceType = models.ResourceTypeAll
	}
	if !cfg.ResourceType.Valid() {
		return nil, fmt.Errorf("unknown resource type %q", cfg.ResourceType)
	}
	if cfg.Cooldowns == nil {
		cfg.Cooldowns = cooldown.NewMemoryStore()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewPublisher(events.NewBus(1), cfg.Provider.Name())
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}

	return &Runner{
		config:    cfg,
		evaluator: decision.NewEvaluator(),
		analyzer:  cleanup.New(cfg.Cleanup),
		executor:  executor.New(cfg.Provider, cfg.DryRun),
		nowFn:     time.Now,
	}, nil
}

// Scale evaluates every watched group and applies the confirmed actions.
// A group listing failure aborts before anything is proposed; per-group
// metric problems downgrade to warnings and skip only that group.
func (r *Runner) Scale(ctx context.Context) (*models.RunReport, error) {
	report := r.newReport(models.RunScale)
	pub := r.config.Publisher.ForRun(report.RunID)
	pub.RunStarted(models.RunScale, r.config.DryRun)

	groups, err := r.config.Provider.FetchGroups(ctx)
	if err != nil {
		return r.fail(report, pub, fmt.Errorf("fetch scaling groups: %w", err))
	}
	pub.InventoryFetched("scaling groups", len(groups))

	groups = r.filterTargets(groups, report)

	var actions []models.ScalingAction
	for _, out := range r.evaluateGroups(ctx, groups, report.RunID) {
		if out.warning != "" {
			r.warn(report, out.warning)
		}
		if out.metricsErr != nil {
			pub.MetricsMissing(out.group.ID, out.metricsErr)
		}
		if out.suppressed {
			report.Suppressed++
			pub.ActionSuppressed(out.group.ID, out.lastDirection, out.remaining)
			continue
		}
		if out.action != nil {
			actions = append(actions, *out.action)
			pub.ActionProposed(out.action.GroupID,
				fmt.Sprintf("%s %d -> %d instances", out.action.Direction, out.action.CurrentInstances, out.action.TargetInstances),
				out.action)
		}
	}
	report.Proposed = len(actions)

	if r.config.OnScaleProposals != nil {
		r.config.OnScaleProposals(actions)
	}
	if len(actions) == 0 {
		return r.seal(report, pub), nil
	}

	if err := r.confirm(fmt.Sprintf("Execute %d scaling action(s)?", len(actions))); err != nil {
		report.Status = models.RunAborted
		logger.WithRun(report.RunID).Info("Run aborted at confirmation")
		return r.seal(report, pub), nil
	}

	report.Records = r.executor.ExecuteScaling(ctx, actions)
	for i, record := range report.Records {
		switch record.Outcome {
		case models.OutcomeApplied:
			report.Applied++
			pub.ActionExecuted(record)
			r.recordCooldown(ctx, actions[i], report)
		case models.OutcomeFailed:
			report.Failed++
			pub.ActionFailed(record)
		}
	}

	return r.seal(report, pub), nil
}

// Cleanup proposes and deletes eligible resources. Analysis itself never
// deletes; only confirmed execution does.
func (r *Runner) Cleanup(ctx context.Context) (*models.RunReport, error) {
	report := r.newReport(models.RunCleanup)
	pub := r.config.Publisher.ForRun(report.RunID)
	pub.RunStarted(models.RunCleanup, r.config.DryRun)

	resources, err := r.config.Provider.FetchInventory(ctx, r.config.ResourceType)
	if err != nil {
		return r.fail(report, pub, fmt.Errorf("fetch inventory: %w", err))
	}
	pub.InventoryFetched("resources", len(resources))

	actions := r.analyzer.Analyze(resources)
	report.Proposed = len(actions)
	for i := range actions {
		pub.ActionProposed(actions[i].Resource.ID, actions[i].Reason, &actions[i])
	}

	if r.config.OnCleanupProposals != nil {
		r.config.OnCleanupProposals(actions)
	}
	if len(actions) == 0 {
		return r.seal(report, pub), nil
	}

	if r.config.DryRun {
		report.TotalSavings = models.TotalSavings(actions)
	}

	prompt := fmt.Sprintf("Delete %d resource(s), estimated savings $%.2f/mo?",
		len(actions), models.TotalSavings(actions))
	if err := r.confirm(prompt); err != nil {
		report.Status = models.RunAborted
		logger.WithRun(report.RunID).Info("Run aborted at confirmation")
		return r.seal(report, pub), nil
	}

	report.Records = r.executor.ExecuteCleanup(ctx, actions)
	for i, record := range report.Records {
		switch record.Outcome {
		case models.OutcomeApplied:
			report.Applied++
			report.TotalSavings += actions[i].EstimatedSavings
			pub.ActionExecuted(record)
		case models.OutcomeFailed:
			report.Failed++
			pub.ActionFailed(record)
		}
	}

	return r.seal(report, pub), nil
}

// groupOutcome is one group's evaluation result. Workers fill these in;
// only the joining loop folds them into the report and the event stream,
// so the report is never mutated concurrently.
type groupOutcome struct {
	group         models.ScalingGroup
	action        *models.ScalingAction
	warning       string
	metricsErr    error
	suppressed    bool
	lastDirection models.ScalingDirection
	remaining     time.Duration
}

// evaluateGroups fans evaluation out across a bounded pool and returns
// one outcome per group, in input order.
func (r *Runner) evaluateGroups(ctx context.Context, groups []models.ScalingGroup, runID string) []groupOutcome {
	results := make([]groupOutcome, len(groups))
	if len(groups) == 0 {
		return results
	}

	sem := make(chan struct{}, r.config.MaxParallel)
	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.evaluateGroup(ctx, groups[i], runID)
		}(i)
	}
	wg.Wait()
	return results
}

func (r *Runner) evaluateGroup(ctx context.Context, group models.ScalingGroup, runID string) groupOutcome {
	out := groupOutcome{group: group}

	sample, err := r.config.Provider.FetchMetrics(ctx, group.ID)
	if err != nil {
		out.warning = fmt.Sprintf("metrics unavailable for group %s: skipped", group.ID)
		out.metricsErr = err
		return out
	}

	last, err := r.config.Cooldowns.Last(ctx, group.ID)
	if err != nil {
		out.warning = fmt.Sprintf("cooldown state unreadable for group %s: skipped", group.ID)
		logger.WithRun(runID).WithField("group_id", group.ID).
			WithError(err).Warn("Skipping group, cannot read cooldown state")
		return out
	}

	outcome, err := r.evaluator.Evaluate(group, sample, r.config.Policy, last)
	if err != nil {
		out.warning = fmt.Sprintf("evaluation failed for group %s: %v", group.ID, err)
		return out
	}

	if outcome.Suppressed {
		out.suppressed = true
		out.lastDirection = last.Direction
		out.remaining = outcome.CooldownRemaining
		return out
	}
	out.action = outcome.Action
	return out
}

func (r *Runner) filterTargets(groups []models.ScalingGroup, report *models.RunReport) []models.ScalingGroup {
	if len(r.config.Targets) == 0 {
		return groups
	}

	wanted := make(map[string]bool, len(r.config.Targets))
	for _, t := range r.config.Targets {
		wanted[t] = true
	}

	var filtered []models.ScalingGroup
	for _, g := range groups {
		if wanted[g.ID] {
			filtered = append(filtered, g)
			delete(wanted, g.ID)
		}
	}
	for _, t := range r.config.Targets {
		if wanted[t] {
			r.warn(report, fmt.Sprintf("target group %s not found", t))
		}
	}
	return filtered
}

func (r *Runner) recordCooldown(ctx context.Context, action models.ScalingAction, report *models.RunReport) {
	entry := models.CooldownEntry{
		GroupID:    action.GroupID,
		Direction:  action.Direction,
		RecordedAt: r.nowFn(),
	}
	if err := r.config.Cooldowns.Record(ctx, entry); err != nil {
		r.warn(report, fmt.Sprintf("failed to record cooldown for group %s: %v", action.GroupID, err))
	}
}

// confirm passes a dry run straight through: nothing will be applied,
// so there is nothing to guard.
func (r *Runner) confirm(prompt string) error {
	if r.config.DryRun || r.config.Gate == nil {
		return nil
	}
	return r.config.Gate.Confirm(prompt)
}

func (r *Runner) warn(report *models.RunReport, msg string) {
	report.Warnings = append(report.Warnings, msg)
	logger.WithRun(report.RunID).Warn(msg)
}

func (r *Runner) newReport(kind models.RunKind) *models.RunReport {
	return &models.RunReport{
		RunID:     models.NewUUID(),
		Kind:      kind,
		Provider:  r.config.Provider.Name(),
		DryRun:    r.config.DryRun,
		StartedAt: r.nowFn(),
	}
}

func (r *Runner) fail(report *models.RunReport, pub *events.Publisher, err error) (*models.RunReport, error) {
	report.Status = models.RunFailed
	r.warn(report, err.Error())
	r.seal(report, pub)
	return report, err
}

// seal fixes the final status, stamps the finish time, and announces the
// run's completion.
func (r *Runner) seal(report *models.RunReport, pub *events.Publisher) *models.RunReport {
	report.FinishedAt = r.nowFn()

	if report.Status == "" {
		switch {
		case report.PartialSuccess():
			report.Status = models.RunPartial
		case report.Failed > 0:
			report.Status = models.RunFailed
		default:
			report.Status = models.RunCompleted
		}
	}

	pub.RunCompleted(report)
	logger.WithRun(report.RunID).Infof(
		"%s run %s: %d proposed, %d applied, %d failed",
		report.Kind, report.Status, report.Proposed, report.Applied, report.Failed,
	)
	return report
}
