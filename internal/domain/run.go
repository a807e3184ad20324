package domain

import "time"

type RunStatus string

const (
	RunStatusActive    RunStatus = "active"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
)

// SequenceRun is one prospect's progress through a sequence.
//
// Invariants:
//   - NextStepDueAt is non-nil iff Status is active and a step beyond
//     LastStepSent exists.
//   - LastStepSent never decreases.
//   - Only the dispatcher moves a run out of active; only the reply listener
//     moves a run into paused. Paused and completed are terminal.
type SequenceRun struct {
	ID           string     `db:"id" json:"id"`
	TenantID     int64      `db:"tenant_id" json:"tenantId"`
	SequenceID   int64      `db:"sequence_id" json:"sequenceId"`
	ProspectID   int64      `db:"prospect_id" json:"prospectId"`
	LastStepSent int        `db:"last_step_sent" json:"lastStepSent"`
	NextStepDue  *time.Time `db:"next_step_due_at" json:"nextStepDueAt,omitempty"`
	Status       RunStatus  `db:"status" json:"status"`
	StartedAt    time.Time  `db:"started_at" json:"startedAt"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// PassSummary aggregates one dispatch pass. Individual run failures never
// abort a pass; they are counted here instead.
type PassSummary struct {
	Processed  int `json:"processed"`
	Dispatched int `json:"dispatched"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
	Conflicts  int `json:"conflicts"`
	Errors     int `json:"errors"`
}

func (s *PassSummary) Add(other PassSummary) {
	s.Processed += other.Processed
	s.Dispatched += other.Dispatched
	s.Completed += other.Completed
	s.Skipped += other.Skipped
	s.Conflicts += other.Conflicts
	s.Errors += other.Errors
}
