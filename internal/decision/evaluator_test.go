package decision

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

func testPolicy() models.ScalingPolicy {
	return models.ScalingPolicy{
		MinInstances:      1,
		MaxInstances:      10,
		CPUThreshold:      70.0,
		MemoryThreshold:   80.0,
		ScaleUpCooldown:   5 * time.Minute,
		ScaleDownCooldown: 10 * time.Minute,
	}
}

func testGroup(instances int) models.ScalingGroup {
	return models.ScalingGroup{
		ID:        "asg-web",
		Name:      "web",
		Provider:  models.ProviderAWS,
		Region:    "us-east-1",
		Instances: instances,
	}
}

func sample(cpu, mem float64) *models.UtilizationSample {
	return &models.UtilizationSample{
		CPUPercent:    models.Float(cpu),
		MemoryPercent: models.Float(mem),
		SampledAt:     time.Now(),
	}
}

func TestEvaluateThresholdRules(t *testing.T) {
	tests := []struct {
		name          string
		instances     int
		cpu           float64
		mem           float64
		wantDirection models.ScalingDirection
		wantTarget    int
		wantNoAction  bool
	}{
		{
			name:          "cpu over threshold scales up",
			instances:     3,
			cpu:           90, mem: 50,
			wantDirection: models.ScaleUp,
			wantTarget:    4,
		},
		{
			name:          "memory alone over threshold scales up",
			instances:     3,
			cpu:           40, mem: 85,
			wantDirection: models.ScaleUp,
			wantTarget:    4,
		},
		{
			name:          "both under half threshold scales down",
			instances:     3,
			cpu:           10, mem: 10,
			wantDirection: models.ScaleDown,
			wantTarget:    2,
		},
		{
			name:         "dead zone emits nothing",
			instances:    3,
			cpu:          50, mem: 50,
			wantNoAction: true,
		},
		{
			name:         "cpu low but memory in band emits nothing",
			instances:    3,
			cpu:          10, mem: 60,
			wantNoAction: true,
		},
		{
			name:         "at max with high cpu is a clamped no-op",
			instances:    10,
			cpu:          95, mem: 20,
			wantNoAction: true,
		},
		{
			name:         "at min with idle metrics is a clamped no-op",
			instances:    1,
			cpu:          5, mem: 5,
			wantNoAction: true,
		},
		{
			name:          "exactly at threshold stays in the dead zone",
			instances:     3,
			cpu:           70, mem: 80,
			wantNoAction:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := NewEvaluator()
			out, err := eval.Evaluate(testGroup(tt.instances), sample(tt.cpu, tt.mem), testPolicy(), nil)
			require.NoError(t, err)

			if tt.wantNoAction {
				assert.Nil(t, out.Action)
				assert.False(t, out.Suppressed)
				return
			}

			require.NotNil(t, out.Action)
			assert.Equal(t, tt.wantDirection, out.Action.Direction)
			assert.Equal(t, tt.instances, out.Action.CurrentInstances)
			assert.Equal(t, tt.wantTarget, out.Action.TargetInstances)
			assert.Equal(t, "asg-web", out.Action.GroupID)
			assert.InDelta(t, tt.cpu, out.Action.Metrics.CPUPercent, 0.001)
			assert.InDelta(t, tt.mem, out.Action.Metrics.MemoryPercent, 0.001)
		})
	}
}

func TestEvaluateReasonStrings(t *testing.T) {
	eval := NewEvaluator()

	out, err := eval.Evaluate(testGroup(3), sample(90.25, 50.5), testPolicy(), nil)
	require.NoError(t, err)
	require.NotNil(t, out.Action)
	assert.Equal(t, "High utilization (CPU: 90.2%, Memory: 50.5%)", out.Action.Reason)

	out, err = eval.Evaluate(testGroup(3), sample(12.0, 15.0), testPolicy(), nil)
	require.NoError(t, err)
	require.NotNil(t, out.Action)
	assert.Equal(t, "Low utilization (CPU: 12.0%, Memory: 15.0%)", out.Action.Reason)
}

// Target must stay inside [min,max] for any in-bounds starting size and
// any utilization inputs.
func TestEvaluateTargetAlwaysWithinBounds(t *testing.T) {
	eval := NewEvaluator()
	policy := testPolicy()

	utilizations := []struct{ cpu, mem float64 }{
		{0, 0}, {5, 5}, {34, 39}, {50, 50}, {69.9, 79.9},
		{70.1, 10}, {90, 50}, {100, 100}, {10, 95},
	}

	for current := policy.MinInstances; current <= policy.MaxInstances; current++ {
		for _, u := range utilizations {
			out, err := eval.Evaluate(testGroup(current), sample(u.cpu, u.mem), policy, nil)
			require.NoError(t, err)
			if out.Action == nil {
				continue
			}
			assert.GreaterOrEqual(t, out.Action.TargetInstances, policy.MinInstances,
				"current=%d cpu=%.1f mem=%.1f", current, u.cpu, u.mem)
			assert.LessOrEqual(t, out.Action.TargetInstances, policy.MaxInstances,
				"current=%d cpu=%.1f mem=%.1f", current, u.cpu, u.mem)
			assert.NotEqual(t, out.Action.CurrentInstances, out.Action.TargetInstances)
		}
	}
}

func TestEvaluateCooldownSuppression(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy()

	newEval := func() *Evaluator {
		eval := NewEvaluator()
		eval.nowFn = func() time.Time { return now }
		return eval
	}

	t.Run("same direction inside window suppresses", func(t *testing.T) {
		last := &models.CooldownEntry{
			GroupID:    "asg-web",
			Direction:  models.ScaleUp,
			RecordedAt: now.Add(-2 * time.Minute),
		}
		out, err := newEval().Evaluate(testGroup(3), sample(90, 50), policy, last)
		require.NoError(t, err)
		assert.Nil(t, out.Action)
		assert.True(t, out.Suppressed)
		assert.Equal(t, 3*time.Minute, out.CooldownRemaining)
	})

	t.Run("elapsed window does not suppress", func(t *testing.T) {
		last := &models.CooldownEntry{
			GroupID:    "asg-web",
			Direction:  models.ScaleUp,
			RecordedAt: now.Add(-6 * time.Minute),
		}
		out, err := newEval().Evaluate(testGroup(3), sample(90, 50), policy, last)
		require.NoError(t, err)
		require.NotNil(t, out.Action)
		assert.False(t, out.Suppressed)
	})

	t.Run("opposite direction does not suppress", func(t *testing.T) {
		last := &models.CooldownEntry{
			GroupID:    "asg-web",
			Direction:  models.ScaleDown,
			RecordedAt: now.Add(-time.Minute),
		}
		out, err := newEval().Evaluate(testGroup(3), sample(90, 50), policy, last)
		require.NoError(t, err)
		require.NotNil(t, out.Action)
		assert.Equal(t, models.ScaleUp, out.Action.Direction)
	})

	t.Run("scale down uses its own longer window", func(t *testing.T) {
		// 8 minutes ago: outside the 5m up-window, inside the 10m down-window
		last := &models.CooldownEntry{
			GroupID:    "asg-web",
			Direction:  models.ScaleDown,
			RecordedAt: now.Add(-8 * time.Minute),
		}
		out, err := newEval().Evaluate(testGroup(3), sample(10, 10), policy, last)
		require.NoError(t, err)
		assert.Nil(t, out.Action)
		assert.True(t, out.Suppressed)
		assert.Equal(t, 2*time.Minute, out.CooldownRemaining)
	})

	t.Run("cooldown never suppresses a plain no-op", func(t *testing.T) {
		last := &models.CooldownEntry{
			GroupID:    "asg-web",
			Direction:  models.ScaleUp,
			RecordedAt: now.Add(-time.Minute),
		}
		out, err := newEval().Evaluate(testGroup(3), sample(50, 50), policy, last)
		require.NoError(t, err)
		assert.Nil(t, out.Action)
		assert.False(t, out.Suppressed)
	})
}

func TestEvaluateMissingMetricsFails(t *testing.T) {
	eval := NewEvaluator()
	policy := testPolicy()

	tests := []struct {
		name   string
		sample *models.UtilizationSample
	}{
		{name: "nil sample", sample: nil},
		{name: "missing cpu", sample: &models.UtilizationSample{MemoryPercent: models.Float(40)}},
		{name: "missing memory", sample: &models.UtilizationSample{CPUPercent: models.Float(40)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := eval.Evaluate(testGroup(3), tt.sample, policy, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMetricsUnavailable))
			assert.Nil(t, out.Action)
		})
	}
}

func TestEvaluateRejectsInvalidPolicy(t *testing.T) {
	eval := NewEvaluator()
	bad := testPolicy()
	bad.MinInstances = 8
	bad.MaxInstances = 2

	_, err := eval.Evaluate(testGroup(3), sample(90, 50), bad, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidPolicy))
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy()

	assert.Zero(t, CooldownRemaining(policy, nil, now))

	last := &models.CooldownEntry{Direction: models.ScaleUp, RecordedAt: now.Add(-time.Minute)}
	assert.Equal(t, 4*time.Minute, CooldownRemaining(policy, last, now))

	stale := &models.CooldownEntry{Direction: models.ScaleUp, RecordedAt: now.Add(-time.Hour)}
	assert.Zero(t, CooldownRemaining(policy, stale, now))
}
