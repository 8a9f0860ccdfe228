package scan_test

import (
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

func waitFired(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire")
	}
}

func assertNotFired(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("task fired unexpectedly")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClockScheduler_Every(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	s := scan.NewClockScheduler(fc)

	fired := make(chan struct{}, 10)
	task := s.Every(100*time.Millisecond, func() { fired <- struct{}{} })

	assertNotFired(t, fired)

	for i := 0; i < 3; i++ {
		fc.Step(100 * time.Millisecond)
		waitFired(t, fired)
	}

	task.Stop()
	fc.Step(100 * time.Millisecond)
	assertNotFired(t, fired)

	// Stop is idempotent
	task.Stop()
}

func TestClockScheduler_After(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	s := scan.NewClockScheduler(fc)

	fired := make(chan struct{}, 2)
	s.After(500*time.Millisecond, func() { fired <- struct{}{} })

	fc.Step(499 * time.Millisecond)
	assertNotFired(t, fired)

	fc.Step(time.Millisecond)
	waitFired(t, fired)

	fc.Step(time.Second)
	assertNotFired(t, fired)
}

func TestClockScheduler_AfterStopped(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	s := scan.NewClockScheduler(fc)

	fired := make(chan struct{}, 1)
	task := s.After(500*time.Millisecond, func() { fired <- struct{}{} })
	task.Stop()

	fc.Step(time.Second)
	assertNotFired(t, fired)
}

func TestRun_RealScheduler(t *testing.T) {
	run, err := scan.New(scan.DefaultChecks,
		scan.WithInterval(time.Millisecond),
		scan.WithStep(20),
		scan.WithSettleDelay(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan int, 1)
	run.OnComplete(func(score int) { done <- score })
	if err := run.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case score := <-done:
		if score < scan.MinScore || score > scan.MaxScore {
			t.Errorf("score %d out of range", score)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete")
	}
	if run.Status() != scan.StatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status())
	}
}
