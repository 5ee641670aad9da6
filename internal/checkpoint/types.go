package checkpoint

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an ingestion run.
type Status string

const (
	// StatusInProgress marks a run that has not finished.
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a run that finished its population pass.
	StatusCompleted Status = "completed"
	// StatusInterrupted marks a run stopped by an external signal.
	// The checkpoint is resumable.
	StatusInterrupted Status = "interrupted"
	// StatusFailed marks a run aborted by an unrecoverable error.
	StatusFailed Status = "failed"
)

// Progress is the durable record of ingestion progress. It is mutated
// after every API call and every per-record outcome, and persisted
// periodically plus unconditionally at run end or interruption.
//
// The completed and failed id sets are disjoint; the Mark methods maintain
// that invariant and Load rejects checkpoints that violate it.
type Progress struct {
	// RunID identifies the run that created this checkpoint.
	RunID string `json:"run_id"`

	// TargetCount is the requested number of records for this run
	// (0 means all collected records).
	TargetCount int `json:"target_count"`

	// CompletedIDs are external ids whose records were fully persisted.
	CompletedIDs []int64 `json:"completed_ids"`

	// FailedIDs are external ids whose fetch or persist failed.
	FailedIDs []int64 `json:"failed_ids"`

	// LastCallTime is when the most recent API call was issued.
	LastCallTime *time.Time `json:"last_call_time,omitempty"`

	// WindowStart and CallsInWindow snapshot the rate-limit window for
	// operator inspection. A resumed run starts a fresh window and never
	// reads these back.
	WindowStart   *time.Time `json:"window_start,omitempty"`
	CallsInWindow int        `json:"calls_in_window"`

	// Status is the run lifecycle state.
	Status Status `json:"status"`

	// StartedAt and EndedAt bound the run.
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	completed map[int64]struct{}
	failed    map[int64]struct{}
}

// NewProgress creates an in-progress record for a fresh run.
func NewProgress(targetCount int) *Progress {
	p := &Progress{
		RunID:       uuid.New().String(),
		TargetCount: targetCount,
		Status:      StatusInProgress,
		StartedAt:   time.Now().UTC(),
	}
	p.reindex()
	return p
}

// reindex rebuilds the membership sets from the serialized slices.
func (p *Progress) reindex() {
	p.completed = make(map[int64]struct{}, len(p.CompletedIDs))
	for _, id := range p.CompletedIDs {
		p.completed[id] = struct{}{}
	}
	p.failed = make(map[int64]struct{}, len(p.FailedIDs))
	for _, id := range p.FailedIDs {
		p.failed[id] = struct{}{}
	}
}

// MarkCompleted records a fully persisted id, removing it from the failed
// set if an earlier attempt failed.
func (p *Progress) MarkCompleted(id int64) {
	if _, ok := p.completed[id]; ok {
		return
	}
	p.completed[id] = struct{}{}
	p.CompletedIDs = append(p.CompletedIDs, id)

	if _, ok := p.failed[id]; ok {
		delete(p.failed, id)
		p.FailedIDs = removeID(p.FailedIDs, id)
	}
}

// MarkFailed records a failed id. Ids already completed stay completed.
func (p *Progress) MarkFailed(id int64) {
	if _, ok := p.completed[id]; ok {
		return
	}
	if _, ok := p.failed[id]; ok {
		return
	}
	p.failed[id] = struct{}{}
	p.FailedIDs = append(p.FailedIDs, id)
}

// Seen reports whether id is in either the completed or failed set.
// Resuming must never re-issue a detail fetch for a seen id.
func (p *Progress) Seen(id int64) bool {
	if _, ok := p.completed[id]; ok {
		return true
	}
	_, ok := p.failed[id]
	return ok
}

// Completed reports whether id was fully persisted.
func (p *Progress) Completed(id int64) bool {
	_, ok := p.completed[id]
	return ok
}

// RecordCall updates the call bookkeeping after an API call.
func (p *Progress) RecordCall(at time.Time, windowStart time.Time, callsInWindow int) {
	t := at.UTC()
	p.LastCallTime = &t
	w := windowStart.UTC()
	p.WindowStart = &w
	p.CallsInWindow = callsInWindow
}

// Finish stamps a terminal status and the end time.
func (p *Progress) Finish(status Status) {
	p.Status = status
	now := time.Now().UTC()
	p.EndedAt = &now
}

// SuccessRate returns the percentage of attempted records that completed.
func (p *Progress) SuccessRate() float64 {
	attempted := len(p.CompletedIDs) + len(p.FailedIDs)
	if attempted == 0 {
		return 0
	}
	return float64(len(p.CompletedIDs)) / float64(attempted) * 100
}

// sortIDs normalizes the serialized sets so checkpoints diff cleanly.
func (p *Progress) sortIDs() {
	sort.Slice(p.CompletedIDs, func(i, j int) bool { return p.CompletedIDs[i] < p.CompletedIDs[j] })
	sort.Slice(p.FailedIDs, func(i, j int) bool { return p.FailedIDs[i] < p.FailedIDs[j] })
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
