package fleetsim

import (
	"math"
	"math/rand"
	"time"
)

// Pattern shapes the load a simulated group reports over time. Apply
// receives the group's configured base CPU and returns the patterned
// value before jitter and capacity effects.
type Pattern interface {
	Apply(baseCPU float64) float64
	Name() string
}

// KnownPatterns lists the names ParsePattern accepts.
var KnownPatterns = []string{"steady", "daily", "weekly", "random", "gradual_rise", "sine"}

// ParsePattern resolves a pattern by name. The second return is false
// for names outside KnownPatterns.
func ParsePattern(name string) (Pattern, bool) {
	switch name {
	case "steady":
		return &SteadyPattern{}, true
	case "daily":
		return &DailyPattern{}, true
	case "weekly":
		return &WeeklyPattern{}, true
	case "random":
		return &RandomPattern{}, true
	case "gradual_rise":
		return &GradualRisePattern{start: time.Now()}, true
	case "sine":
		return &SinePattern{}, true
	}
	return nil, false
}

// SteadyPattern keeps the load flat at the base value.
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(baseCPU float64) float64 { return baseCPU }

func (p *SteadyPattern) Name() string { return "steady" }

// DailyPattern follows a business-day traffic cycle: morning and
// afternoon peaks, a quiet stretch overnight.
type DailyPattern struct {
	now func() time.Time
}

func (p *DailyPattern) Apply(baseCPU float64) float64 {
	return capTop(baseCPU * hourModifier(patternClock(p.now).Hour()))
}

func (p *DailyPattern) Name() string { return "daily" }

// WeeklyPattern layers a weekend slump on top of the weekday cycle.
type WeeklyPattern struct {
	now func() time.Time
}

func (p *WeeklyPattern) Apply(baseCPU float64) float64 {
	at := patternClock(p.now)
	if at.Weekday() == time.Saturday || at.Weekday() == time.Sunday {
		return capTop(baseCPU * 0.5)
	}
	return capTop(baseCPU * hourModifier(at.Hour()))
}

func (p *WeeklyPattern) Name() string { return "weekly" }

// RandomPattern jumps between half and one and a half times the base.
type RandomPattern struct{}

func (p *RandomPattern) Apply(baseCPU float64) float64 {
	modifier := 0.5 + rand.Float64()
	return clamp(baseCPU*modifier, 10, 100)
}

func (p *RandomPattern) Name() string { return "random" }

// GradualRisePattern grows the load two percent per minute from the
// moment it is installed, capped at half again the base.
type GradualRisePattern struct {
	start time.Time
	now   func() time.Time
}

func (p *GradualRisePattern) Apply(baseCPU float64) float64 {
	minutes := patternClock(p.now).Sub(p.start).Minutes()
	increase := math.Min(minutes*2, 50)
	return capTop(baseCPU * (1 + increase/100))
}

func (p *GradualRisePattern) Name() string { return "gradual_rise" }

// SinePattern oscillates around the base. Zero values fall back to a
// ten minute period and twenty points of amplitude.
type SinePattern struct {
	Period    time.Duration
	Amplitude float64
	now       func() time.Time
}

func (p *SinePattern) Apply(baseCPU float64) float64 {
	period := p.Period
	if period == 0 {
		period = 10 * time.Minute
	}
	amplitude := p.Amplitude
	if amplitude == 0 {
		amplitude = 20
	}

	phase := float64(patternClock(p.now).UnixNano()) / float64(period.Nanoseconds()) * 2 * math.Pi
	return clamp(baseCPU+math.Sin(phase)*amplitude, 10, 100)
}

func (p *SinePattern) Name() string { return "sine" }

// hourModifier is the shared weekday shape: 9-11 and 14-16 peaks, an
// evening tail, overnight trough.
func hourModifier(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 11:
		return 1.4
	case hour >= 14 && hour <= 16:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 1.1
	case hour >= 0 && hour <= 6:
		return 0.6
	default:
		return 1.0
	}
}

func patternClock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}

func capTop(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
