package scan

import "fmt"

// Choice is the host's resolution of a completed run
type Choice string

const (
	ChoiceNewSample      Choice = "new"
	ChoiceExistingSample Choice = "existing"
)

// ParseChoice validates a choice received from the host
func ParseChoice(s string) (Choice, error) {
	switch c := Choice(s); c {
	case ChoiceNewSample, ChoiceExistingSample:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

// Resolver holds the two mutually exclusive handlers for a completed score
type Resolver struct {
	NewSample      func(score int) error
	ExistingSample func(score int) error
}

// Resolve forwards the final score to exactly one of the resolver's handlers.
// A run resolves at most once; if the handler fails the run may be resolved
// again.
func (r *Run) Resolve(choice Choice, res Resolver) error {
	var fn func(int) error
	switch choice {
	case ChoiceNewSample:
		fn = res.NewSample
	case ChoiceExistingSample:
		fn = res.ExistingSample
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
	if fn == nil {
		return fmt.Errorf("%w: no handler for %q", ErrInvalidChoice, choice)
	}

	r.mu.Lock()
	if r.status != StatusCompleted {
		r.mu.Unlock()
		return ErrNotCompleted
	}
	if r.resolved || r.resolving {
		r.mu.Unlock()
		return ErrAlreadyResolved
	}
	r.resolving = true
	score := *r.score
	r.mu.Unlock()

	err := fn(score)

	r.mu.Lock()
	r.resolving = false
	r.resolved = err == nil
	r.mu.Unlock()

	return err
}
