package scan

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Task is a scheduled unit of work. Stop prevents any future firing; a firing
// that is already executing is allowed to finish.
type Task interface {
	Stop()
}

// Scheduler runs functions on a fixed period or after a delay.
// Implementations must never invoke fn synchronously from Every or After.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
	After(delay time.Duration, fn func()) Task
}

// ClockScheduler implements Scheduler on top of a clock. Each task gets its own
// goroutine, so firings of a single task are delivered sequentially.
type ClockScheduler struct {
	clock clock.WithTicker
}

// NewClockScheduler creates a scheduler driven by c
func NewClockScheduler(c clock.WithTicker) *ClockScheduler {
	return &ClockScheduler{clock: c}
}

// RealScheduler returns a scheduler backed by wall-clock time
func RealScheduler() *ClockScheduler {
	return NewClockScheduler(clock.RealClock{})
}

type clockTask struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func newClockTask() *clockTask {
	return &clockTask{stop: make(chan struct{})}
}

func (t *clockTask) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

func (t *clockTask) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// Every runs fn every interval until the returned task is stopped
func (s *ClockScheduler) Every(interval time.Duration, fn func()) Task {
	t := newClockTask()
	ticker := s.clock.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C():
				if t.stopped() {
					return
				}
				fn()
			}
		}
	}()

	return t
}

// After runs fn once after delay unless the returned task is stopped first
func (s *ClockScheduler) After(delay time.Duration, fn func()) Task {
	t := newClockTask()
	timer := s.clock.NewTimer(delay)

	go func() {
		select {
		case <-t.stop:
			timer.Stop()
		case <-timer.C():
			if !t.stopped() {
				fn()
			}
		}
	}()

	return t
}
