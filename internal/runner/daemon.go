package runner

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Daemon re-runs the scale flow on a fixed interval. Cycle failures are
// logged and the loop keeps going; only Stop ends it.
type Daemon struct {
	runner   *Runner
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	running    bool
	lastReport *models.RunReport
}

func NewDaemon(r *Runner, interval time.Duration) *Daemon {
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		runner:   r,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (d *Daemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true

	d.wg.Add(1)
	go d.run()

	logger.Infof("Daemon started, evaluating every %s", d.interval)
}

func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	logger.Info("Daemon stopped")
}

func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// LastReport returns the most recent cycle's report, or nil before the
// first cycle finishes.
func (d *Daemon) LastReport() *models.RunReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastReport
}

func (d *Daemon) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.cycle()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.cycle()
		}
	}
}

func (d *Daemon) cycle() {
	timeout := d.interval
	if timeout > 2*time.Second {
		timeout -= time.Second
	}
	ctx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()

	report, err := d.runner.Scale(ctx)
	if err != nil {
		logger.Errorf("Daemon cycle failed: %v", err)
	}

	d.mu.Lock()
	d.lastReport = report
	d.mu.Unlock()
}
