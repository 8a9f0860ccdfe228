package scan

import (
	"math/rand/v2"
	"sync"
)

// Score range for a completed run, inclusive
const (
	MinScore = 80
	MaxScore = 99
)

// Scorer produces the quality score of a run once every check is complete.
// Score is called with the run locked and must not call back into the run.
type Scorer interface {
	Score(checks []CheckItem) (int, error)
}

// ScorerFunc adapts a function to the Scorer interface
type ScorerFunc func(checks []CheckItem) (int, error)

// Score calls f(checks)
func (f ScorerFunc) Score(checks []CheckItem) (int, error) {
	return f(checks)
}

// RandomScorer draws a uniformly distributed score in [MinScore, MaxScore].
// It stands in for a real inspection algorithm.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer creates a scorer. A nil src uses the global source.
func NewRandomScorer(src rand.Source) *RandomScorer {
	s := &RandomScorer{}
	if src != nil {
		s.rng = rand.New(src)
	}
	return s
}

// Score never fails
func (s *RandomScorer) Score(_ []CheckItem) (int, error) {
	const span = MaxScore - MinScore + 1
	if s.rng == nil {
		return MinScore + rand.IntN(span), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return MinScore + s.rng.IntN(span), nil
}

func validScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
