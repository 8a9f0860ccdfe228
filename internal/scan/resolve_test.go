package scan_test

import (
	"errors"
	"testing"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

// completedRun drives a run to completion with a fixed score
func completedRun(t *testing.T, score int) *scan.Run {
	t.Helper()
	run, sched, _ := newTestRun(t, scan.WithScorer(scan.ScorerFunc(func([]scan.CheckItem) (int, error) {
		return score, nil
	})))
	if err := run.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	advanceTicks(sched, 50)
	sched.Advance(scan.DefaultSettleDelay)
	if run.Status() != scan.StatusCompleted {
		t.Fatalf("Status = %s, want completed", run.Status())
	}
	return run
}

type resolverSpy struct {
	newCalls      []int
	existingCalls []int
	err           error
}

func (s *resolverSpy) resolver() scan.Resolver {
	return scan.Resolver{
		NewSample: func(score int) error {
			s.newCalls = append(s.newCalls, score)
			return s.err
		},
		ExistingSample: func(score int) error {
			s.existingCalls = append(s.existingCalls, score)
			return s.err
		},
	}
}

func TestResolve_ExactlyOneHandler(t *testing.T) {
	tests := []struct {
		choice       scan.Choice
		wantNew      int
		wantExisting int
	}{
		{scan.ChoiceNewSample, 1, 0},
		{scan.ChoiceExistingSample, 0, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.choice), func(t *testing.T) {
			run := completedRun(t, 87)
			spy := &resolverSpy{}

			if err := run.Resolve(tt.choice, spy.resolver()); err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if len(spy.newCalls) != tt.wantNew || len(spy.existingCalls) != tt.wantExisting {
				t.Errorf("calls new=%d existing=%d, want new=%d existing=%d",
					len(spy.newCalls), len(spy.existingCalls), tt.wantNew, tt.wantExisting)
			}
			for _, s := range append(spy.newCalls, spy.existingCalls...) {
				if s != 87 {
					t.Errorf("handler got score %d, want 87", s)
				}
			}
			if !run.Snapshot().Resolved {
				t.Error("run should be marked resolved")
			}

			// Second resolution is rejected
			if err := run.Resolve(scan.ChoiceNewSample, spy.resolver()); !errors.Is(err, scan.ErrAlreadyResolved) {
				t.Errorf("second Resolve error = %v, want ErrAlreadyResolved", err)
			}
			if len(spy.newCalls)+len(spy.existingCalls) != 1 {
				t.Error("handler invoked more than once")
			}
		})
	}
}

func TestResolve_NotCompleted(t *testing.T) {
	run, sched, _ := newTestRun(t)
	spy := &resolverSpy{}

	if err := run.Resolve(scan.ChoiceNewSample, spy.resolver()); !errors.Is(err, scan.ErrNotCompleted) {
		t.Errorf("Resolve on idle run error = %v, want ErrNotCompleted", err)
	}

	run.Start()
	advanceTicks(sched, 50)
	if err := run.Resolve(scan.ChoiceNewSample, spy.resolver()); !errors.Is(err, scan.ErrNotCompleted) {
		t.Errorf("Resolve while completing error = %v, want ErrNotCompleted", err)
	}

	run.Cancel()
	if err := run.Resolve(scan.ChoiceNewSample, spy.resolver()); !errors.Is(err, scan.ErrNotCompleted) {
		t.Errorf("Resolve on cancelled run error = %v, want ErrNotCompleted", err)
	}

	if len(spy.newCalls) != 0 {
		t.Error("handler invoked for a run that never completed")
	}
}

func TestResolve_HandlerFailureAllowsRetry(t *testing.T) {
	run := completedRun(t, 90)
	spy := &resolverSpy{err: errors.New("sample not found")}

	if err := run.Resolve(scan.ChoiceExistingSample, spy.resolver()); err == nil {
		t.Fatal("expected handler error")
	}
	if run.Snapshot().Resolved {
		t.Error("failed resolution should not mark the run resolved")
	}

	spy.err = nil
	if err := run.Resolve(scan.ChoiceNewSample, spy.resolver()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(spy.newCalls) != 1 {
		t.Errorf("new handler calls = %d, want 1", len(spy.newCalls))
	}
}

func TestResolve_InvalidChoice(t *testing.T) {
	run := completedRun(t, 85)
	spy := &resolverSpy{}

	if err := run.Resolve(scan.Choice("discard"), spy.resolver()); !errors.Is(err, scan.ErrInvalidChoice) {
		t.Errorf("Resolve error = %v, want ErrInvalidChoice", err)
	}
	if err := run.Resolve(scan.ChoiceNewSample, scan.Resolver{}); !errors.Is(err, scan.ErrInvalidChoice) {
		t.Errorf("Resolve with nil handler error = %v, want ErrInvalidChoice", err)
	}
	if run.Snapshot().Resolved {
		t.Error("invalid choice should not resolve the run")
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input   string
		want    scan.Choice
		wantErr bool
	}{
		{"new", scan.ChoiceNewSample, false},
		{"existing", scan.ChoiceExistingSample, false},
		{"", "", true},
		{"NEW", "", true},
		{"update", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := scan.ParseChoice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChoice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChoice(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
