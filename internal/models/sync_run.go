package models

import "time"

type SyncRunStatus string

const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunCompleted SyncRunStatus = "completed"
	SyncRunFailed    SyncRunStatus = "failed"
)

type SyncTrigger string

const (
	TriggerScheduled SyncTrigger = "scheduled"
	TriggerManual    SyncTrigger = "manual"
)

// SyncRun aggregates one orchestrator invocation. It is never persisted.
type SyncRun struct {
	ID         string
	Trigger    SyncTrigger
	Status     SyncRunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	// Counts maps SourceAccount.Name to records successfully upserted.
	Counts map[string]int
}

// Total returns the number of records synced across all accounts.
func (r *SyncRun) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}
