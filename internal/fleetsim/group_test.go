package fleetsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

func newQuietGroup(instances int, baseCPU, baseMemory float64) *GroupSim {
	return NewGroupSim("asg-test", GroupConfig{
		Name:       "test group",
		Provider:   models.ProviderAWS,
		Region:     "us-east-1",
		Instances:  instances,
		BaseCPU:    baseCPU,
		BaseMemory: baseMemory,
		Variance:   0,
	})
}

func TestGroupReportsCalibratedLoad(t *testing.T) {
	g := newQuietGroup(3, 82.5, 61.0)

	sample := g.Sample()
	require.True(t, sample.Complete())
	assert.InDelta(t, 82.5, *sample.CPUPercent, 0.001)
	assert.InDelta(t, 61.0, *sample.MemoryPercent, 0.001)
	assert.False(t, sample.SampledAt.IsZero())
}

func TestCapacityFeedbackSpreadsLoad(t *testing.T) {
	g := newQuietGroup(4, 80.0, 60.0)

	g.SetCapacity(8)
	sample := g.Sample()
	require.True(t, sample.Complete())
	assert.InDelta(t, 40.0, *sample.CPUPercent, 0.001)
	assert.InDelta(t, 36.0, *sample.MemoryPercent, 0.001)

	g.SetCapacity(2)
	sample = g.Sample()
	assert.InDelta(t, 100.0, *sample.CPUPercent, 0.001, "doubling load per instance clamps at full utilization")
}

func TestSpikeRampsAndExpires(t *testing.T) {
	g := newQuietGroup(3, 50.0, 60.0)

	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	now := start
	g.now = func() time.Time { return now }

	g.InjectSpike(90.0, 10*time.Minute, 4*time.Minute)

	now = start.Add(2 * time.Minute)
	sample := g.Sample()
	assert.InDelta(t, 70.0, *sample.CPUPercent, 0.001, "halfway through the ramp")

	now = start.Add(5 * time.Minute)
	sample = g.Sample()
	assert.InDelta(t, 90.0, *sample.CPUPercent, 0.001, "at peak")

	now = start.Add(11 * time.Minute)
	sample = g.Sample()
	assert.InDelta(t, 50.0, *sample.CPUPercent, 0.001, "back to base after expiry")
	assert.False(t, g.Status()["spike_active"].(bool))
}

func TestMemoryFollowsSpike(t *testing.T) {
	g := newQuietGroup(3, 50.0, 60.0)

	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	now := start
	g.now = func() time.Time { return now }

	g.InjectSpike(90.0, 10*time.Minute, 0)
	now = start.Add(time.Minute)

	sample := g.Sample()
	assert.InDelta(t, 90.0, *sample.CPUPercent, 0.001)
	assert.InDelta(t, 84.0, *sample.MemoryPercent, 0.001, "memory moves at the coupling factor")
}

func TestMetricsOutageHidesDatapoints(t *testing.T) {
	g := newQuietGroup(3, 50.0, 60.0)

	g.SetMetricsDown(true)
	sample := g.Sample()
	assert.False(t, sample.Complete())
	assert.Nil(t, sample.CPUPercent)
	assert.False(t, sample.SampledAt.IsZero())

	g.SetMetricsDown(false)
	assert.True(t, g.Sample().Complete())
}

func TestJitterStaysNearBase(t *testing.T) {
	g := NewGroupSim("asg-jitter", GroupConfig{
		Instances:  3,
		BaseCPU:    50.0,
		BaseMemory: 60.0,
		Variance:   5.0,
	})

	for i := 0; i < 20; i++ {
		sample := g.Sample()
		require.True(t, sample.Complete())
		assert.InDelta(t, 50.0, *sample.CPUPercent, 5.01)
		assert.InDelta(t, 60.0, *sample.MemoryPercent, 2.51)
	}
}

func TestGroupDefaults(t *testing.T) {
	g := NewGroupSim("asg-defaults", GroupConfig{})

	snap := g.Snapshot()
	assert.Equal(t, 3, snap.Instances)

	sample := g.Sample()
	require.True(t, sample.Complete())
	assert.InDelta(t, 50.0, *sample.CPUPercent, 0.001)
	assert.InDelta(t, 60.0, *sample.MemoryPercent, 0.001)
}
