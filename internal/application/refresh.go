package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Refresh states.
const (
	RefreshSearching = "searching"
	RefreshHydrating = "hydrating"
	RefreshCompleted = "completed"
	RefreshFailed    = "failed"
)

type abortReason int

const (
	notAborted abortReason = iota
	abortSuperseded
	abortCanceled
)

// RefreshSummary is a point-in-time view of a refresh.
type RefreshSummary struct {
	ID         uuid.UUID  `json:"id"`
	LocationID uuid.UUID  `json:"location_id"`
	State      string     `json:"state"`
	Total      int        `json:"total"`
	Pending    int        `json:"pending"`
	Hydrated   int        `json:"hydrated"`
	Failed     int        `json:"failed"`
	Discarded  int        `json:"discarded"`
	Superseded bool       `json:"superseded"`
	Canceled   bool       `json:"canceled"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Refresh tracks one run of the replace-and-hydrate workflow for a location.
// Counters are written on the store loop; mu lets other goroutines read them.
type Refresh struct {
	id         uuid.UUID
	locationID uuid.UUID
	startedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	state      string
	total      int
	pending    int
	hydrated   int
	failed     int
	discarded  int
	aborted    abortReason
	err        error
	finishedAt *time.Time
}

func newRefresh(parent context.Context, locationID uuid.UUID) *Refresh {
	ctx, cancel := context.WithCancel(parent)
	return &Refresh{
		id:         uuid.New(),
		locationID: locationID,
		startedAt:  time.Now().UTC(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      RefreshSearching,
	}
}

func (r *Refresh) ID() uuid.UUID         { return r.id }
func (r *Refresh) LocationID() uuid.UUID { return r.locationID }

// Done is closed once the refresh has completed or failed.
func (r *Refresh) Done() <-chan struct{} { return r.done }

// Wait blocks until the refresh finishes or ctx ends, and returns the summary.
func (r *Refresh) Wait(ctx context.Context) (RefreshSummary, error) {
	select {
	case <-r.done:
		return r.Summary(), nil
	case <-ctx.Done():
		return r.Summary(), ctx.Err()
	}
}

// Err returns the failure of a refresh that did not reach hydration.
func (r *Refresh) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Refresh) Summary() RefreshSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RefreshSummary{
		ID:         r.id,
		LocationID: r.locationID,
		State:      r.state,
		Total:      r.total,
		Pending:    r.pending,
		Hydrated:   r.hydrated,
		Failed:     r.failed,
		Discarded:  r.discarded,
		Superseded: r.aborted == abortSuperseded,
		Canceled:   r.aborted == abortCanceled,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	return s
}

// abort cancels in-flight work. The first reason sticks.
func (r *Refresh) abort(reason abortReason) {
	r.mu.Lock()
	if r.aborted == notAborted {
		r.aborted = reason
	}
	r.mu.Unlock()
	r.cancel()
}

func (r *Refresh) abortReason() abortReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}

func (r *Refresh) startHydration(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RefreshHydrating
	r.total = total
	r.pending = total
}

// record counts one reported hydration and returns the remaining pending count.
func (r *Refresh) record(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case hydrationStored:
		r.hydrated++
	case hydrationDiscarded:
		r.discarded++
	default:
		r.failed++
	}
	r.pending--
	return r.pending
}

// finish marks the refresh terminal and closes Done. It reports false if the refresh
// had already finished.
func (r *Refresh) finish(err error) bool {
	finished := false
	r.once.Do(func() {
		now := time.Now().UTC()
		r.mu.Lock()
		r.finishedAt = &now
		if err != nil {
			r.state = RefreshFailed
			r.err = err
		} else {
			r.state = RefreshCompleted
		}
		r.mu.Unlock()
		r.cancel()
		close(r.done)
		finished = true
	})
	return finished
}
