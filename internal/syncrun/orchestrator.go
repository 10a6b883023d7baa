package syncrun

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunType distinguishes supplier downloads from marketplace uploads
type RunType string

const (
	RunTypeDownload RunType = "download"
	RunTypeUpload   RunType = "upload"
)

// RunState is the lifecycle state of a run
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
)

// StepStatus is the lifecycle state of one step within a run
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusError      StepStatus = "error"
)

// IsTerminal reports whether the step has fully resolved
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusError
}

// Step is the unit of work within a run, scoped to one supplier or one
// marketplace
type Step struct {
	EntityID    string     `json:"entity_id"`
	DisplayName string     `json:"display_name"`
	Status      StepStatus `json:"status"`
	Progress    int        `json:"progress"`
	Error       string     `json:"error,omitempty"`
}

// ProgressFunc reports intra-step progress as processed/total sub-items
type ProgressFunc func(done, total int)

// StepFunc executes one step. A returned error marks the step as errored
// but never aborts the run; subsequent steps still execute.
type StepFunc func(ctx context.Context, report ProgressFunc) error

// Result is the terminal outcome of a run, delivered exactly once
type Result struct {
	RunID     string
	Type      RunType
	Steps     []Step
	Cancelled bool
}

// Run drives an ordered sequence of per-entity steps. Steps execute strictly
// sequentially: one entity's work fully resolves before the next starts. This
// bounds external API load and keeps progress reporting deterministic.
type Run struct {
	ID        string
	Type      RunType
	StartedBy string
	Sandbox   bool

	mu             sync.Mutex
	steps          []Step
	fns            []StepFunc
	state          RunState
	overall        int
	cancelled      bool
	requiresReview bool
	startedAt      time.Time
	finishedAt     *time.Time

	completeOnce sync.Once
	onComplete   func(Result)
	done         chan struct{}
}

// StepSpec names one target entity of a run
type StepSpec struct {
	EntityID    string
	DisplayName string
	Fn          StepFunc
}

// NewRun builds a run with one pending step per target entity. The run does
// not execute until Execute is called.
func NewRun(runType RunType, startedBy string, sandbox bool, specs []StepSpec) *Run {
	r := &Run{
		ID:        uuid.NewString(),
		Type:      runType,
		StartedBy: startedBy,
		Sandbox:   sandbox,
		state:     RunStateIdle,
		done:      make(chan struct{}),
	}
	for _, spec := range specs {
		r.steps = append(r.steps, Step{
			EntityID:    spec.EntityID,
			DisplayName: spec.DisplayName,
			Status:      StepStatusPending,
		})
		r.fns = append(r.fns, spec.Fn)
	}
	return r
}

// OnComplete registers the single completion callback. It must be set before
// Execute starts.
func (r *Run) OnComplete(fn func(Result)) {
	r.onComplete = fn
}

// Execute runs all steps in order. Each step's error is caught, recorded on
// that step and never propagated past its boundary. A cancel request is
// honored only between steps; an in-flight step always runs to completion or
// its own error. Execute blocks until the run is terminal.
func (r *Run) Execute(ctx context.Context) Result {
	r.mu.Lock()
	r.state = RunStateRunning
	r.startedAt = time.Now().UTC()
	total := len(r.steps)
	r.mu.Unlock()

	for i := 0; i < total; i++ {
		r.mu.Lock()
		if r.cancelled {
			r.mu.Unlock()
			break
		}
		r.steps[i].Status = StepStatusProcessing
		idx := i
		r.mu.Unlock()

		report := func(done, itemTotal int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if itemTotal <= 0 {
				r.steps[idx].Progress = 100
				return
			}
			pct := done * 100 / itemTotal
			if pct > 100 {
				pct = 100
			}
			r.steps[idx].Progress = pct
		}

		err := r.fns[i](ctx, report)

		r.mu.Lock()
		if err != nil {
			r.steps[i].Status = StepStatusError
			r.steps[i].Error = err.Error()
		} else {
			r.steps[i].Status = StepStatusCompleted
			r.steps[i].Progress = 100
		}
		// Errored steps still count as done: overall progress must reach
		// 100 even when individual steps failed.
		r.overall = r.terminalCountLocked() * 100 / total
		r.mu.Unlock()
	}

	return r.complete()
}

// Cancel stops scheduling further steps. Steps already applied stay
// committed; there is no rollback and no resume.
func (r *Run) Cancel() {
	r.mu.Lock()
	if r.state == RunStateCompleted {
		r.mu.Unlock()
		return
	}
	r.cancelled = true
	r.mu.Unlock()
}

// Done is closed once the run reaches its terminal state
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// SetRequiresReview flags a completed download run that must pause for
// manual review before any upload proceeds
func (r *Run) SetRequiresReview(v bool) {
	r.mu.Lock()
	r.requiresReview = v
	r.mu.Unlock()
}

// Snapshot is a point-in-time view of a run for status reporting
type Snapshot struct {
	ID             string     `json:"id"`
	Type           RunType    `json:"type"`
	StartedBy      string     `json:"started_by"`
	Sandbox        bool       `json:"sandbox"`
	State          RunState   `json:"state"`
	Overall        int        `json:"overall_progress"`
	Cancelled      bool       `json:"cancelled"`
	RequiresReview bool       `json:"requires_review"`
	Steps          []Step     `json:"steps"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Snapshot returns a copy of the run's current state
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := make([]Step, len(r.steps))
	copy(steps, r.steps)

	return Snapshot{
		ID:             r.ID,
		Type:           r.Type,
		StartedBy:      r.StartedBy,
		Sandbox:        r.Sandbox,
		State:          r.state,
		Overall:        r.overall,
		Cancelled:      r.cancelled,
		RequiresReview: r.requiresReview,
		Steps:          steps,
		StartedAt:      r.startedAt,
		FinishedAt:     r.finishedAt,
	}
}

// complete transitions the run to its terminal state and fires the
// completion callback exactly once
func (r *Run) complete() Result {
	var result Result
	r.completeOnce.Do(func() {
		r.mu.Lock()
		r.state = RunStateCompleted
		now := time.Now().UTC()
		r.finishedAt = &now
		steps := make([]Step, len(r.steps))
		copy(steps, r.steps)
		result = Result{
			RunID:     r.ID,
			Type:      r.Type,
			Steps:     steps,
			Cancelled: r.cancelled,
		}
		cb := r.onComplete
		r.mu.Unlock()

		if cb != nil {
			cb(result)
		}
		close(r.done)
	})
	return result
}

func (r *Run) terminalCountLocked() int {
	n := 0
	for _, s := range r.steps {
		if s.Status.IsTerminal() {
			n++
		}
	}
	return n
}
