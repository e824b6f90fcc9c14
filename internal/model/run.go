package model

import "time"

// RunStatus is the lifecycle state of a persisted allocation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the stored record of one allocation run.
type Run struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	Config     RunConfig   `json:"config"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunConfig records the inputs and options a run was started with.
type RunConfig struct {
	Cells        string   `json:"cells"`
	Buildings    string   `json:"buildings"`
	Rules        string   `json:"rules"`
	SurplusOrder string   `json:"surplus_order"`
	Seed         uint64   `json:"seed"`
	Workers      int      `json:"workers"`
	RuleNames    []string `json:"rule_names"`
}

// RunSummary holds the diagnostics of a finished run.
type RunSummary struct {
	Cells            int             `json:"cells"`
	SkippedCells     int             `json:"skipped_cells"`
	PendingCells     int             `json:"pending_cells"`
	SkippedBuildings int             `json:"skipped_buildings"`
	Assignments      int             `json:"assignments"`
	Unresolved       int             `json:"unresolved"`
	Rules            []RuleShortfall `json:"rules"`
}

// RuleShortfall is the per-rule line of a run summary, in priority order.
type RuleShortfall struct {
	Rule       string `json:"rule"`
	Position   int    `json:"position"`
	Expected   int    `json:"expected"`
	ByRule     int    `json:"by_rule"`
	ByResidual int    `json:"by_residual"`
	Unresolved int    `json:"unresolved"`
}
