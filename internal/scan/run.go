// Package scan implements the inspection scan engine: a progress clock that
// advances a bounded counter on a fixed cadence, a phase evaluator that maps
// progress to per-check states, and a completion handler that produces the
// quality score once per run.
package scan

import (
	"fmt"
	"sync"
	"time"
)

// Engine defaults
const (
	MaxProgress        = 100
	DefaultStep        = 2
	DefaultInterval    = 100 * time.Millisecond
	DefaultSettleDelay = 500 * time.Millisecond
)

// ProgressFunc is called on every tick with the new progress and check states
type ProgressFunc func(progress int, checks []CheckItem)

// CompleteFunc is called once with the final score when a run completes
type CompleteFunc func(score int)

// CancelFunc is called once with the reason when a run is cancelled
type CancelFunc func(reason error)

// Option configures a Run
type Option func(*Run)

// WithInterval sets the tick period
func WithInterval(d time.Duration) Option {
	return func(r *Run) { r.interval = d }
}

// WithStep sets the progress increment per tick
func WithStep(step int) Option {
	return func(r *Run) { r.step = step }
}

// WithSettleDelay sets the pause between reaching full progress and completion
func WithSettleDelay(d time.Duration) Option {
	return func(r *Run) { r.settle = d }
}

// WithScorer replaces the default random scorer
func WithScorer(s Scorer) Option {
	return func(r *Run) { r.scorer = s }
}

// WithScheduler replaces the wall-clock scheduler
func WithScheduler(s Scheduler) Option {
	return func(r *Run) { r.sched = s }
}

// Run is a single, single-use execution of the scan engine
type Run struct {
	checks   []Check
	interval time.Duration
	settle   time.Duration
	step     int
	scorer   Scorer
	sched    Scheduler

	mu       sync.Mutex
	status   Status
	progress int
	score    *int
	reason   error
	resolved bool
	// resolving guards the resolver callback while it runs unlocked
	resolving bool

	ticker     Task
	settleTask Task

	onProgress []ProgressFunc
	onComplete []CompleteFunc
	onCancel   []CancelFunc
}

// New creates an idle run over checks
func New(checks []Check, opts ...Option) (*Run, error) {
	if len(checks) == 0 {
		return nil, ErrInvalidCheckList
	}

	r := &Run{
		checks:   append([]Check(nil), checks...),
		interval: DefaultInterval,
		settle:   DefaultSettleDelay,
		step:     DefaultStep,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.step <= 0 {
		return nil, fmt.Errorf("scan: step must be positive, got %d", r.step)
	}
	if r.interval <= 0 {
		return nil, fmt.Errorf("scan: interval must be positive, got %v", r.interval)
	}
	if r.settle < 0 {
		return nil, fmt.Errorf("scan: settle delay must not be negative, got %v", r.settle)
	}
	if r.scorer == nil {
		r.scorer = NewRandomScorer(nil)
	}
	if r.sched == nil {
		r.sched = RealScheduler()
	}

	return r, nil
}

// OnProgress registers a progress observer
func (r *Run) OnProgress(fn ProgressFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onProgress = append(r.onProgress, fn)
}

// OnComplete registers a completion observer
func (r *Run) OnComplete(fn CompleteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = append(r.onComplete, fn)
}

// OnCancel registers a cancellation observer
func (r *Run) OnCancel(fn CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCancel = append(r.onCancel, fn)
}

// Start begins ticking. It returns immediately; no tick is delivered from
// within Start.
func (r *Run) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusIdle {
		return ErrAlreadyRunning
	}

	r.status = StatusRunning
	r.ticker = r.sched.Every(r.interval, r.tick)
	return nil
}

// Cancel stops the run. Cancelling a completed or cancelled run returns
// ErrTerminalState and changes nothing.
func (r *Run) Cancel() error {
	return r.cancel(ErrCancelled)
}

func (r *Run) cancel(reason error) error {
	r.mu.Lock()
	if r.status.IsTerminal() {
		r.mu.Unlock()
		return ErrTerminalState
	}

	r.status = StatusCancelled
	r.reason = reason
	r.score = nil
	r.stopTasksLocked()
	fns := append([]CancelFunc(nil), r.onCancel...)
	r.mu.Unlock()

	for _, fn := range fns {
		fn(reason)
	}
	return nil
}

func (r *Run) stopTasksLocked() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
	if r.settleTask != nil {
		r.settleTask.Stop()
	}
}

// tick advances progress by one step. Observers run without the lock held so
// they may cancel the run.
func (r *Run) tick() {
	r.mu.Lock()
	if r.status != StatusRunning {
		r.mu.Unlock()
		return
	}

	r.progress = min(r.progress+r.step, MaxProgress)
	progress := r.progress
	done := progress >= MaxProgress

	var cancelFns []CancelFunc
	var reason error
	if done {
		r.ticker.Stop()
		if err := r.assignScoreLocked(); err != nil {
			// The run never enters Completing without a score
			r.status = StatusCancelled
			r.reason = err
			r.stopTasksLocked()
			reason = err
			cancelFns = append([]CancelFunc(nil), r.onCancel...)
		} else {
			r.status = StatusCompleting
		}
	}

	checks := Evaluate(progress, MaxProgress, r.checks, !done)
	fns := append([]ProgressFunc(nil), r.onProgress...)
	r.mu.Unlock()

	for _, fn := range fns {
		fn(progress, checks)
	}

	if !done {
		return
	}
	if reason != nil {
		for _, fn := range cancelFns {
			fn(reason)
		}
		return
	}

	r.mu.Lock()
	if r.status == StatusCompleting {
		r.settleTask = r.sched.After(r.settle, r.complete)
	}
	r.mu.Unlock()
}

// assignScoreLocked draws the score for a run reaching the limit. On error the
// score stays unset.
func (r *Run) assignScoreLocked() error {
	checks := Evaluate(r.progress, MaxProgress, r.checks, false)
	score, err := r.scorer.Score(checks)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}
	if !validScore(score) {
		return fmt.Errorf("%w: score %d outside [%d, %d]", ErrScoringFailed, score, MinScore, MaxScore)
	}
	r.score = &score
	return nil
}

// complete fires after the settle delay
func (r *Run) complete() {
	r.mu.Lock()
	if r.status != StatusCompleting {
		r.mu.Unlock()
		return
	}

	r.status = StatusCompleted
	score := *r.score
	fns := append([]CompleteFunc(nil), r.onComplete...)
	r.mu.Unlock()

	for _, fn := range fns {
		fn(score)
	}
}

// Status returns the current lifecycle state
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot returns a copy of the run's state
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Status:   r.status,
		Progress: r.progress,
		Checks:   Evaluate(r.progress, MaxProgress, r.checks, r.status == StatusRunning),
		Resolved: r.resolved,
		Err:      r.reason,
	}
	if r.score != nil {
		score := *r.score
		s.Score = &score
	}
	return s
}
