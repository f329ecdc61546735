package runner

import (
	"context"
	"errors"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// ErrRunInProgress is returned when a run is requested while another
// one is still executing.
var ErrRunInProgress = errors.New("another run is already in progress")

// Launcher builds a one-shot runner per request so callers can choose
// dry run and targets per invocation. Runs are serialized: overlapping
// scale or cleanup passes against the same provider would race on
// capacity.
type Launcher struct {
	base Config
	busy chan struct{}
}

func NewLauncher(base Config) *Launcher {
	base.Gate = nil
	return &Launcher{
		base: base,
		busy: make(chan struct{}, 1),
	}
}

// Targets returns the configured evaluation targets. Empty means every
// group the provider reports.
func (l *Launcher) Targets() []string {
	out := make([]string, len(l.base.Targets))
	copy(out, l.base.Targets)
	return out
}

// Scale runs one evaluation pass. A non-empty targets list narrows the
// pass to those groups; nil keeps the configured targets.
func (l *Launcher) Scale(ctx context.Context, dryRun bool, targets []string) (*models.RunReport, error) {
	return l.launch(ctx, dryRun, targets, func(r *Runner) (*models.RunReport, error) {
		return r.Scale(ctx)
	})
}

func (l *Launcher) Cleanup(ctx context.Context, dryRun bool) (*models.RunReport, error) {
	return l.launch(ctx, dryRun, nil, func(r *Runner) (*models.RunReport, error) {
		return r.Cleanup(ctx)
	})
}

func (l *Launcher) launch(ctx context.Context, dryRun bool, targets []string, run func(*Runner) (*models.RunReport, error)) (*models.RunReport, error) {
	select {
	case l.busy <- struct{}{}:
		defer func() { <-l.busy }()
	default:
		return nil, ErrRunInProgress
	}

	cfg := l.base
	cfg.DryRun = dryRun
	if len(targets) > 0 {
		cfg.Targets = targets
	}

	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return run(r)
}
