package fleetsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// 2026-03-04 is a Wednesday, 2026-03-07 a Saturday.
func weekdayAt(hour int) time.Time {
	return time.Date(2026, 3, 4, hour, 0, 0, 0, time.UTC)
}

func TestSteadyPatternKeepsBase(t *testing.T) {
	p := &SteadyPattern{}
	assert.InDelta(t, 50.0, p.Apply(50.0), 0.001)
	assert.InDelta(t, 82.5, p.Apply(82.5), 0.001)
}

func TestDailyPatternFollowsBusinessHours(t *testing.T) {
	tests := []struct {
		name string
		hour int
		want float64
	}{
		{"morning peak", 10, 70.0},
		{"afternoon peak", 15, 65.0},
		{"evening tail", 18, 55.0},
		{"overnight trough", 3, 30.0},
		{"midday plateau", 13, 50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &DailyPattern{now: fixedClock(weekdayAt(tt.hour))}
			assert.InDelta(t, tt.want, p.Apply(50.0), 0.001)
		})
	}
}

func TestDailyPatternCapsAtHundred(t *testing.T) {
	p := &DailyPattern{now: fixedClock(weekdayAt(10))}
	assert.InDelta(t, 100.0, p.Apply(90.0), 0.001)
}

func TestWeeklyPatternWeekendSlump(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	p := &WeeklyPattern{now: fixedClock(saturday)}
	assert.InDelta(t, 25.0, p.Apply(50.0), 0.001)

	p = &WeeklyPattern{now: fixedClock(weekdayAt(10))}
	assert.InDelta(t, 70.0, p.Apply(50.0), 0.001)
}

func TestGradualRiseGrowsThenCaps(t *testing.T) {
	start := weekdayAt(12)
	p := &GradualRisePattern{start: start, now: fixedClock(start.Add(10 * time.Minute))}
	assert.InDelta(t, 60.0, p.Apply(50.0), 0.001)

	p.now = fixedClock(start.Add(2 * time.Hour))
	assert.InDelta(t, 75.0, p.Apply(50.0), 0.001)
}

func TestSinePatternOscillatesWithinBounds(t *testing.T) {
	p := &SinePattern{Period: 10 * time.Minute, Amplitude: 20}

	base := weekdayAt(12)
	var min, max float64 = 100, 0
	for i := 0; i < 20; i++ {
		p.now = fixedClock(base.Add(time.Duration(i) * 30 * time.Second))
		v := p.Apply(50.0)
		assert.GreaterOrEqual(t, v, 10.0)
		assert.LessOrEqual(t, v, 100.0)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	assert.Greater(t, max-min, 10.0, "expected visible oscillation over two periods")
}

func TestRandomPatternStaysWithinBounds(t *testing.T) {
	p := &RandomPattern{}
	for i := 0; i < 50; i++ {
		v := p.Apply(60.0)
		assert.GreaterOrEqual(t, v, 10.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestParsePattern(t *testing.T) {
	for _, name := range KnownPatterns {
		p, ok := ParsePattern(name)
		require.True(t, ok, "pattern %s should parse", name)
		assert.Equal(t, name, p.Name())
	}

	_, ok := ParsePattern("square")
	assert.False(t, ok)
}
