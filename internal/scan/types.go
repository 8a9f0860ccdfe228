package scan

// Status represents the lifecycle state of a scan run
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRunning    Status = "running"
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the run can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CheckState represents the derived state of a single inspection check
type CheckState string

const (
	CheckPending  CheckState = "pending"
	CheckChecking CheckState = "checking"
	CheckComplete CheckState = "complete"
)

// Check describes one inspection phase as configured by the host
type Check struct {
	Label  string `json:"label" yaml:"label"`
	Detail string `json:"detail" yaml:"detail"`
}

// CheckItem is a check together with its state at a given progress
type CheckItem struct {
	Label  string     `json:"label"`
	Detail string     `json:"detail"`
	State  CheckState `json:"state"`
}

// DefaultChecks is the check list used when none is configured
var DefaultChecks = []Check{
	{Label: "Edge Seal", Detail: "Checking seal integrity"},
	{Label: "Symmetry", Detail: "Analyzing alignment"},
	{Label: "Contamination", Detail: "Scanning for defects"},
	{Label: "Size Accuracy", Detail: "Measuring dimensions"},
}

// Snapshot is a point-in-time copy of a run's state
type Snapshot struct {
	Status   Status      `json:"status"`
	Progress int         `json:"progress"`
	Checks   []CheckItem `json:"checks"`
	Score    *int        `json:"score,omitempty"`
	Resolved bool        `json:"resolved"`
	Err      error       `json:"-"`
}
