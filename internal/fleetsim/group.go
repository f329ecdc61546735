package fleetsim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// defaultMemCoupling is how far memory follows CPU movement.
const defaultMemCoupling = 0.6

// GroupConfig seeds a simulated scaling group. BaseCPU and BaseMemory
// are the utilization the group reports at its initial capacity.
type GroupConfig struct {
	Name       string
	Provider   models.CloudProvider
	Region     string
	Instances  int
	BaseCPU    float64
	BaseMemory float64
	Variance   float64
	Tags       map[string]string
}

// GroupSim models one autoscaling group. Reported CPU is the base value
// run through the active pattern and any injected spike, then scaled by
// capacity: growing the group past its calibration size spreads the same
// load thinner, shrinking it concentrates the load. Memory tracks CPU
// movement at a fixed coupling factor.
type GroupSim struct {
	id       string
	name     string
	provider models.CloudProvider
	region   string
	tags     map[string]string

	instances    int
	refInstances int

	baseCPU     float64
	baseMemory  float64
	variance    float64
	memCoupling float64
	pattern     Pattern
	spike       *spike
	metricsDown bool

	now func() time.Time
	mu  sync.Mutex
}

type spike struct {
	targetCPU float64
	startedAt time.Time
	duration  time.Duration
	rampUp    time.Duration
	fromCPU   float64
}

func NewGroupSim(id string, cfg GroupConfig) *GroupSim {
	if cfg.Instances <= 0 {
		cfg.Instances = 3
	}
	if cfg.BaseCPU <= 0 {
		cfg.BaseCPU = 50.0
	}
	if cfg.BaseMemory <= 0 {
		cfg.BaseMemory = 60.0
	}
	if cfg.Variance < 0 {
		cfg.Variance = 0
	}

	return &GroupSim{
		id:           id,
		name:         cfg.Name,
		provider:     cfg.Provider,
		region:       cfg.Region,
		tags:         cfg.Tags,
		instances:    cfg.Instances,
		refInstances: cfg.Instances,
		baseCPU:      cfg.BaseCPU,
		baseMemory:   cfg.BaseMemory,
		variance:     cfg.Variance,
		memCoupling:  defaultMemCoupling,
		pattern:      &SteadyPattern{},
	}
}

// Sample reports the group's current utilization. During an outage the
// sample carries a timestamp but no datapoints.
func (g *GroupSim) Sample() *models.UtilizationSample {
	g.mu.Lock()
	defer g.mu.Unlock()

	sampledAt := g.clock()
	if g.metricsDown {
		return &models.UtilizationSample{SampledAt: sampledAt}
	}

	cpu := g.currentCPU(sampledAt)
	mem := g.currentMemory(cpu)
	return &models.UtilizationSample{
		CPUPercent:    models.Float(jitter(cpu, g.variance)),
		MemoryPercent: models.Float(jitter(mem, g.variance/2)),
		SampledAt:     sampledAt,
	}
}

func (g *GroupSim) currentCPU(at time.Time) float64 {
	cpu := g.pattern.Apply(g.baseCPU)

	if s := g.spike; s != nil {
		elapsed := at.Sub(s.startedAt)
		switch {
		case elapsed > s.duration:
			g.spike = nil
		case elapsed < s.rampUp:
			progress := float64(elapsed) / float64(s.rampUp)
			cpu = s.fromCPU + (s.targetCPU-s.fromCPU)*progress
		default:
			cpu = s.targetCPU
		}
	}

	if g.instances > 0 && g.refInstances > 0 && g.instances != g.refInstances {
		cpu = cpu * float64(g.refInstances) / float64(g.instances)
	}

	return clamp(cpu, 0, 100)
}

func (g *GroupSim) currentMemory(cpu float64) float64 {
	mem := g.baseMemory + (cpu-g.baseCPU)*g.memCoupling
	return clamp(mem, 5, 100)
}

// Snapshot returns the group as the wire API reports it.
func (g *GroupSim) Snapshot() models.ScalingGroup {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.ScalingGroup{
		ID:        g.id,
		Name:      g.name,
		Provider:  g.provider,
		Region:    g.region,
		Instances: g.instances,
		Tags:      g.tags,
	}
}

// Status reports the knobs the control API exposes.
func (g *GroupSim) Status() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	return map[string]any{
		"id":           g.id,
		"name":         g.name,
		"instances":    g.instances,
		"base_cpu":     g.baseCPU,
		"base_memory":  g.baseMemory,
		"variance":     g.variance,
		"pattern":      g.pattern.Name(),
		"spike_active": g.spike != nil,
		"metrics_down": g.metricsDown,
	}
}

func (g *GroupSim) Instances() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.instances
}

func (g *GroupSim) SetCapacity(instances int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.instances = instances
}

func (g *GroupSim) SetPattern(pattern Pattern) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pattern = pattern
}

// InjectSpike pushes the patterned CPU toward targetCPU for duration,
// ramping linearly over rampUp. A zero rampUp jumps straight to peak.
func (g *GroupSim) InjectSpike(targetCPU float64, duration, rampUp time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.spike = &spike{
		targetCPU: targetCPU,
		startedAt: g.clock(),
		duration:  duration,
		rampUp:    rampUp,
		fromCPU:   g.baseCPU,
	}
}

// SetMetricsDown toggles the group's metrics outage.
func (g *GroupSim) SetMetricsDown(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metricsDown = down
}

func (g *GroupSim) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

func jitter(base, variance float64) float64 {
	v := base + (rand.Float64()*2-1)*variance
	return math.Round(clamp(v, 0, 100)*100) / 100
}
