package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
)

// Forgetter drops finished scans older than a retention period
type Forgetter interface {
	Forget(olderThan time.Duration) (int, error)
}

// Scheduler runs registry housekeeping on a cron schedule
type Scheduler struct {
	target    Forgetter
	retention time.Duration
	spec      string
	schedule  cron.Schedule

	mu      sync.RWMutex
	running bool
	cron    *cron.Cron
	entryID cron.EntryID
}

// New creates a scheduler. spec accepts standard five-field expressions and
// descriptors such as "@every 10m".
func New(target Forgetter, spec string, retention time.Duration) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}

	return &Scheduler{
		target:    target,
		retention: retention,
		spec:      spec,
		schedule:  schedule,
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	l := logger.Get()
	cronLogger := cron.PrintfLogger(&l)
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	s.entryID = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.RunCleanup()
	}))
	s.cron.Start()
	s.running = true

	logger.Infof("scheduler: cleanup scheduled (%s, retention %v)", s.spec, s.retention)
}

// Stop stops the scheduler and waits for a running cleanup to complete
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
}

// NextRun returns when the cleanup will next fire, or the zero time if the
// scheduler is stopped
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RunCleanup forgets finished scans older than the retention period
func (s *Scheduler) RunCleanup() (int, error) {
	n, err := s.target.Forget(s.retention)
	if err != nil {
		logger.Errorf("scheduler: cleanup failed: %v", err)
		return 0, err
	}
	if n > 0 {
		logger.Infof("scheduler: removed %d finished scans", n)
	}
	return n, nil
}
