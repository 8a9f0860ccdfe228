package scan

// Evaluate derives the state of every check from the current progress.
// The active index is floor(progress / (limit / n)) clamped to [0, n-1]; once
// progress reaches limit every check is complete. Evaluate never mutates checks.
func Evaluate(progress, limit int, checks []Check, running bool) []CheckItem {
	items := make([]CheckItem, len(checks))
	n := len(checks)
	if n == 0 {
		return items
	}

	active := activeIndex(progress, limit, n)
	for i, c := range checks {
		state := CheckPending
		switch {
		case i < active:
			state = CheckComplete
		case i == active && running:
			state = CheckChecking
		}
		items[i] = CheckItem{Label: c.Label, Detail: c.Detail, State: state}
	}
	return items
}

// activeIndex returns n when progress is at or past limit so that all checks
// read as complete.
func activeIndex(progress, limit, n int) int {
	if limit <= 0 || progress >= limit {
		return n
	}
	if progress <= 0 {
		return 0
	}
	idx := progress * n / limit
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}
