package decision

import (
	"fmt"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// scaleDownFactor is the relief factor applied to both thresholds for the
// scale-down rule. Utilization between factor*threshold and threshold is
// the hysteresis band: no action fires there.
const scaleDownFactor = 0.5

// Evaluator turns one utilization sample into at most one scaling action.
// It holds no per-group state; cooldown history is supplied by the caller
// on every call.
type Evaluator struct {
	nowFn func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{nowFn: time.Now}
}

// Outcome is the result of one evaluation. Action is nil when nothing
// should change; Suppressed distinguishes a cooldown swallow from a
// plain no-op.
type Outcome struct {
	Action            *models.ScalingAction
	Suppressed        bool
	CooldownRemaining time.Duration
}

// Evaluate applies the threshold rules in order and then cooldown
// suppression. The sample must carry both metrics: a missing metric
// fails the call with ErrMetricsUnavailable, never substituting zero (a
// zero reads as idle and would trigger a bogus scale-down).
func (e *Evaluator) Evaluate(
	group models.ScalingGroup,
	sample *models.UtilizationSample,
	policy models.ScalingPolicy,
	last *models.CooldownEntry,
) (Outcome, error) {
	if err := policy.Validate(); err != nil {
		return Outcome{}, err
	}
	if sample == nil {
		return Outcome{}, fmt.Errorf("%w: no sample for group %s", models.ErrMetricsUnavailable, group.ID)
	}
	if sample.CPUPercent == nil {
		return Outcome{}, fmt.Errorf("%w: no cpu datapoint for group %s", models.ErrMetricsUnavailable, group.ID)
	}
	if sample.MemoryPercent == nil {
		return Outcome{}, fmt.Errorf("%w: no memory datapoint for group %s", models.ErrMetricsUnavailable, group.ID)
	}

	cpu, mem := *sample.CPUPercent, *sample.MemoryPercent
	candidate := e.candidate(group, cpu, mem, policy)
	if candidate == nil {
		logger.WithGroup(group.ID).Debugf(
			"Evaluation: no action (cpu %.1f%%, memory %.1f%%, %d instances)",
			cpu, mem, group.Instances,
		)
		return Outcome{}, nil
	}

	// Same-direction history inside its window swallows the candidate.
	if last != nil && last.Direction == candidate.Direction {
		if remaining := CooldownRemaining(policy, last, e.nowFn()); remaining > 0 {
			logger.WithGroup(group.ID).Debugf(
				"Evaluation: %s suppressed by cooldown (%s remaining)",
				candidate.Direction, remaining.Round(time.Second),
			)
			return Outcome{Suppressed: true, CooldownRemaining: remaining}, nil
		}
	}

	logger.WithGroup(group.ID).Infof(
		"Evaluation: %s %d -> %d instances (%s)",
		candidate.Direction, candidate.CurrentInstances, candidate.TargetInstances, candidate.Reason,
	)
	return Outcome{Action: candidate}, nil
}

// candidate applies the ordered threshold rules. Step size is exactly one
// instance per evaluation regardless of how far utilization overshoots.
func (e *Evaluator) candidate(group models.ScalingGroup, cpu, mem float64, policy models.ScalingPolicy) *models.ScalingAction {
	current := group.Instances

	// Rule 1: either metric over its threshold.
	if cpu > policy.CPUThreshold || mem > policy.MemoryThreshold {
		target := current + 1
		if target > policy.MaxInstances {
			target = policy.MaxInstances
		}
		if target == current {
			return nil
		}
		return e.buildAction(group, models.ScaleUp, current, target, cpu, mem,
			fmt.Sprintf("High utilization (CPU: %.1f%%, Memory: %.1f%%)", cpu, mem))
	}

	// Rule 2: both metrics under the relief band.
	if cpu < policy.CPUThreshold*scaleDownFactor && mem < policy.MemoryThreshold*scaleDownFactor {
		target := current - 1
		if target < policy.MinInstances {
			target = policy.MinInstances
		}
		if target == current {
			return nil
		}
		return e.buildAction(group, models.ScaleDown, current, target, cpu, mem,
			fmt.Sprintf("Low utilization (CPU: %.1f%%, Memory: %.1f%%)", cpu, mem))
	}

	return nil
}

func (e *Evaluator) buildAction(
	group models.ScalingGroup,
	direction models.ScalingDirection,
	current, target int,
	cpu, mem float64,
	reason string,
) *models.ScalingAction {
	return &models.ScalingAction{
		GroupID:          group.ID,
		Provider:         group.Provider,
		Direction:        direction,
		CurrentInstances: current,
		TargetInstances:  target,
		Reason:           reason,
		Metrics:          models.MetricsSnapshot{CPUPercent: cpu, MemoryPercent: mem},
		ProposedAt:       e.nowFn(),
	}
}

// CooldownRemaining reports how much of the window for the last recorded
// action is still open at now. Zero means no suppression is in effect.
func CooldownRemaining(policy models.ScalingPolicy, last *models.CooldownEntry, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	window := policy.CooldownFor(last.Direction)
	elapsed := now.Sub(last.RecordedAt)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}
