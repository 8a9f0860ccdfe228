// Package scantest provides a virtual-time scheduler for deterministic tests
// of code built on scan.Scheduler.
package scantest

import (
	"sync"
	"time"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

// Scheduler is a manual scan.Scheduler. Time only moves when Advance is
// called, and due tasks run synchronously on the caller's goroutine.
type Scheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*task
}

var _ scan.Scheduler = (*Scheduler)(nil)

type task struct {
	s        *Scheduler
	at       time.Duration
	interval time.Duration
	seq      int
	fn       func()
	stopped  bool
}

func (t *task) Stop() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.stopped = true
}

// New creates a scheduler at virtual time zero
func New() *Scheduler {
	return &Scheduler{}
}

// Every schedules fn every interval
func (s *Scheduler) Every(interval time.Duration, fn func()) scan.Task {
	return s.add(interval, interval, fn)
}

// After schedules fn once after delay
func (s *Scheduler) After(delay time.Duration, fn func()) scan.Task {
	return s.add(delay, 0, fn)
}

func (s *Scheduler) add(delay, interval time.Duration, fn func()) *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &task{s: s, at: s.now + delay, interval: interval, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves virtual time forward by d, running every task that falls due
// in order of due time, then scheduling order.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.pruneLocked()
			s.mu.Unlock()
			return
		}
		s.now = next.at
		if next.interval > 0 {
			next.at += next.interval
		} else {
			next.stopped = true
		}
		fn := next.fn
		s.mu.Unlock()

		fn()
	}
}

func (s *Scheduler) nextDueLocked(target time.Duration) *task {
	var next *task
	for _, t := range s.tasks {
		if t.stopped || t.at > target {
			continue
		}
		if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (s *Scheduler) pruneLocked() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.tasks = live
}

// Pending returns the number of tasks that may still fire
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Now returns the elapsed virtual time
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
