package models

import (
	"fmt"
	"strings"
	"time"
)

type ScalingDirection string

const (
	ScaleUp   ScalingDirection = "SCALE_UP"
	ScaleDown ScalingDirection = "SCALE_DOWN"
)

// ScalingPolicy bounds and tunes scaling decisions for a group.
type ScalingPolicy struct {
	MinInstances      int           `json:"min_instances" mapstructure:"min_instances"`
	MaxInstances      int           `json:"max_instances" mapstructure:"max_instances"`
	CPUThreshold      float64       `json:"cpu_threshold_pct" mapstructure:"cpu_threshold_pct"`
	MemoryThreshold   float64       `json:"memory_threshold_pct" mapstructure:"memory_threshold_pct"`
	ScaleUpCooldown   time.Duration `json:"scale_up_cooldown" mapstructure:"scale_up_cooldown"`
	ScaleDownCooldown time.Duration `json:"scale_down_cooldown" mapstructure:"scale_down_cooldown"`
}

// DefaultScalingPolicy mirrors the CLI defaults.
func DefaultScalingPolicy() ScalingPolicy {
	return ScalingPolicy{
		MinInstances:      1,
		MaxInstances:      10,
		CPUThreshold:      70.0,
		MemoryThreshold:   80.0,
		ScaleUpCooldown:   5 * time.Minute,
		ScaleDownCooldown: 10 * time.Minute,
	}
}

// Validate reports every violation at once. A policy that fails
// validation must never reach evaluation.
func (p ScalingPolicy) Validate() error {
	var errs []string

	if p.MinInstances < 0 {
		errs = append(errs, fmt.Sprintf("min_instances must not be negative, got %d", p.MinInstances))
	}
	if p.MaxInstances < p.MinInstances {
		errs = append(errs, fmt.Sprintf("max_instances (%d) must be >= min_instances (%d)", p.MaxInstances, p.MinInstances))
	}
	if p.CPUThreshold < 0 || p.CPUThreshold > 100 {
		errs = append(errs, fmt.Sprintf("cpu_threshold_pct must be between 0 and 100, got %.1f", p.CPUThreshold))
	}
	if p.MemoryThreshold < 0 || p.MemoryThreshold > 100 {
		errs = append(errs, fmt.Sprintf("memory_threshold_pct must be between 0 and 100, got %.1f", p.MemoryThreshold))
	}
	if p.ScaleUpCooldown < 0 {
		errs = append(errs, "scale_up_cooldown must not be negative")
	}
	if p.ScaleDownCooldown < 0 {
		errs = append(errs, "scale_down_cooldown must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(errs, "; "))
	}
	return nil
}

// CooldownFor returns the suppression window for a direction.
func (p ScalingPolicy) CooldownFor(dir ScalingDirection) time.Duration {
	if dir == ScaleDown {
		return p.ScaleDownCooldown
	}
	return p.ScaleUpCooldown
}

// ScalingAction is a proposed change to a scaling group's size.
type ScalingAction struct {
	GroupID          string           `json:"group_id"`
	Provider         CloudProvider    `json:"provider"`
	Direction        ScalingDirection `json:"direction"`
	CurrentInstances int              `json:"current_instances"`
	TargetInstances  int              `json:"target_instances"`
	Reason           string           `json:"reason"`
	Metrics          MetricsSnapshot  `json:"metrics"`
	ProposedAt       time.Time        `json:"proposed_at"`
}

func (a *ScalingAction) InstanceDelta() int {
	return a.TargetInstances - a.CurrentInstances
}

// CooldownEntry records the last emitted action for a group. Callers own
// this state and pass it into evaluation explicitly.
type CooldownEntry struct {
	GroupID    string           `json:"group_id"`
	Direction  ScalingDirection `json:"direction"`
	RecordedAt time.Time        `json:"recorded_at"`
}
