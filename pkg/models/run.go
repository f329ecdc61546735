package models

import "time"

type RunKind string

const (
	RunScale   RunKind = "SCALE"
	RunCleanup RunKind = "CLEANUP"
)

type RunStatus string

const (
	RunCompleted RunStatus = "COMPLETED"
	RunPartial   RunStatus = "PARTIAL"
	RunAborted   RunStatus = "ABORTED"
	RunFailed    RunStatus = "FAILED"
)

type ActionOutcome string

const (
	OutcomeApplied ActionOutcome = "APPLIED"
	OutcomeFailed  ActionOutcome = "FAILED"
	OutcomeDryRun  ActionOutcome = "DRY_RUN"
)

// ExecutionRecord is the result of applying (or previewing) one action.
type ExecutionRecord struct {
	ActionID   string        `json:"action_id"`
	Kind       RunKind       `json:"kind"`
	TargetID   string        `json:"target_id"`
	Detail     string        `json:"detail"`
	Outcome    ActionOutcome `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// RunReport is the terminal summary of one flow run.
type RunReport struct {
	RunID        string            `json:"run_id"`
	Kind         RunKind           `json:"kind"`
	Provider     CloudProvider     `json:"provider"`
	Status       RunStatus         `json:"status"`
	DryRun       bool              `json:"dry_run"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Proposed     int               `json:"proposed"`
	Applied      int               `json:"applied"`
	Failed       int               `json:"failed"`
	Suppressed   int               `json:"suppressed,omitempty"`
	TotalSavings float64           `json:"total_savings_usd,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	Records      []ExecutionRecord `json:"records,omitempty"`
}

// PartialSuccess reports whether some but not all actions applied.
func (r *RunReport) PartialSuccess() bool {
	return r.Applied > 0 && r.Failed > 0
}

func (r *RunReport) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
