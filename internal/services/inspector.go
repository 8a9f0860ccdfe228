package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/db"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/metrics"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/types"
)

var (
	// ErrScanNotFound is returned for an unknown run ID
	ErrScanNotFound = errors.New("scan not found")

	// ErrSampleNotFound is returned when resolving into a missing sample
	ErrSampleNotFound = errors.New("sample not found")

	// ErrInvalidRequest is returned when a resolve request lacks its argument
	ErrInvalidRequest = errors.New("invalid request")
)

// CheckSource provides the check list for new runs
type CheckSource interface {
	Checks() []scan.Check
}

// subscriber wraps a channel with safe close handling
type subscriber struct {
	ch        chan *types.ScanEvent
	closeOnce sync.Once
	closed    bool
}

// close and send are called with Inspector.subMu held
func (sub *subscriber) close() {
	sub.closeOnce.Do(func() {
		sub.closed = true
		close(sub.ch)
	})
}

func (sub *subscriber) send(event *types.ScanEvent) bool {
	if sub.closed {
		return false
	}
	select {
	case sub.ch <- event:
		return true
	default:
		return false
	}
}

// ScanInfo describes a scan run for API consumers
type ScanInfo struct {
	ID          string           `json:"id"`
	Status      scan.Status      `json:"status"`
	Progress    int              `json:"progress"`
	Checks      []scan.CheckItem `json:"checks,omitempty"`
	Score       *int             `json:"score,omitempty"`
	Resolved    bool             `json:"resolved"`
	Resolution  string           `json:"resolution,omitempty"`
	SampleID    string           `json:"sample_id,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ResolveRequest is the host's post-completion choice for a run
type ResolveRequest struct {
	Choice   string `json:"choice"`
	Name     string `json:"name,omitempty"`
	SampleID string `json:"sample_id,omitempty"`
}

// Inspector orchestrates scan runs and their registry records
type Inspector struct {
	db      *db.DB
	checks  CheckSource
	metrics *metrics.Collector
	opts    []scan.Option

	// Runs of this session by ID
	mu   sync.RWMutex
	runs map[string]*scan.Run

	// SSE subscribers
	subMu       sync.RWMutex
	subscribers map[string][]*subscriber
}

// NewInspector creates a new inspector service. opts apply to every run.
func NewInspector(database *db.DB, checks CheckSource, collector *metrics.Collector, opts ...scan.Option) *Inspector {
	return &Inspector{
		db:          database,
		checks:      checks,
		metrics:     collector,
		opts:        opts,
		runs:        make(map[string]*scan.Run),
		subscribers: make(map[string][]*subscriber),
	}
}

// Subscribe subscribes to updates for a scan
func (s *Inspector) Subscribe(runID string) chan *types.ScanEvent {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	sub := &subscriber{
		ch: make(chan *types.ScanEvent, 10),
	}
	s.subscribers[runID] = append(s.subscribers[runID], sub)
	return sub.ch
}

// Unsubscribe removes a subscriber
func (s *Inspector) Unsubscribe(runID string, ch chan *types.ScanEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	subs := s.subscribers[runID]
	for i, sub := range subs {
		if sub.ch == ch {
			// Remove from slice first, then close safely
			s.subscribers[runID] = append(subs[:i], subs[i+1:]...)
			sub.close()
			break
		}
	}

	if len(s.subscribers[runID]) == 0 {
		delete(s.subscribers, runID)
	}
}

// broadcast sends an event to all subscribers without blocking on slow ones
func (s *Inspector) broadcast(event *types.ScanEvent) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, sub := range s.subscribers[event.RunID] {
		sub.send(event)
	}
}

// closeSubscribers closes all subscriber channels for a scan
func (s *Inspector) closeSubscribers(runID string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, sub := range s.subscribers[runID] {
		sub.close()
	}
	delete(s.subscribers, runID)
}

// StartScan creates a run from the current check list and starts it. Extra
// options are applied after the inspector's own.
func (s *Inspector) StartScan(ctx context.Context, opts ...scan.Option) (*ScanInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	checks := s.checks.Checks()
	run, err := scan.New(checks, append(append([]scan.Option(nil), s.opts...), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	record, err := s.db.CreateScanRun(uuid.NewString(), len(checks))
	if err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}
	id := record.ID

	run.OnProgress(func(progress int, items []scan.CheckItem) {
		s.onProgress(id, progress, items)
	})
	run.OnComplete(func(score int) {
		s.onComplete(id, score)
	})
	run.OnCancel(func(reason error) {
		s.onCancel(id, reason)
	})

	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()

	if err := run.Start(); err != nil {
		s.mu.Lock()
		delete(s.runs, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to start scan: %w", err)
	}
	s.metrics.RunStarted()
	logger.Infof("inspector: started scan %s with %d checks", id, len(checks))

	return s.info(record, run), nil
}

func (s *Inspector) onProgress(id string, progress int, items []scan.CheckItem) {
	status := scan.StatusRunning
	if progress >= scan.MaxProgress {
		status = scan.StatusCompleting
	}
	// A run whose scorer failed is already cancelled at the limit
	if run := s.lookup(id); run != nil && run.Status() == scan.StatusCancelled {
		status = scan.StatusCancelled
	}

	if err := s.db.UpdateScanRunProgress(id, progress, db.ScanRunStatus(status)); err != nil {
		logger.Errorf("inspector: failed to record progress for %s: %v", id, err)
	}
	s.broadcast(&types.ScanEvent{
		RunID:    id,
		Status:   status,
		Progress: progress,
		Checks:   items,
	})
}

func (s *Inspector) onComplete(id string, score int) {
	if err := s.db.CompleteScanRun(id, db.ScanRunStatusCompleted, &score, nil); err != nil {
		logger.Errorf("inspector: failed to record completion for %s: %v", id, err)
	}
	s.metrics.RunCompleted(score)
	logger.Infof("inspector: scan %s completed with score %d", id, score)

	s.finish(id)
}

func (s *Inspector) onCancel(id string, reason error) {
	msg := reason.Error()
	if err := s.db.CompleteScanRun(id, db.ScanRunStatusCancelled, nil, &msg); err != nil {
		logger.Errorf("inspector: failed to record cancellation for %s: %v", id, err)
	}
	s.metrics.RunCancelled()
	if errors.Is(reason, scan.ErrScoringFailed) {
		logger.Warnf("inspector: scan %s cancelled: %v", id, reason)
	} else {
		logger.Infof("inspector: scan %s cancelled", id)
	}

	s.finish(id)
}

// finish sends the terminal event and releases subscribers
func (s *Inspector) finish(id string) {
	if run := s.lookup(id); run != nil {
		s.broadcast(eventFromSnapshot(id, run.Snapshot()))
	}
	s.closeSubscribers(id)
}

func (s *Inspector) lookup(id string) *scan.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id]
}

// CancelScan cancels an active scan. Cancelling a finished scan returns
// scan.ErrTerminalState.
func (s *Inspector) CancelScan(id string) error {
	run := s.lookup(id)
	if run == nil {
		return ErrScanNotFound
	}
	return run.Cancel()
}

// CancelAll cancels every scan still in progress
func (s *Inspector) CancelAll() {
	s.mu.RLock()
	runs := make([]*scan.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	for _, run := range runs {
		// Finished runs report ErrTerminalState, which is expected here
		_ = run.Cancel()
	}
}

// GetScan returns the current state of a scan
func (s *Inspector) GetScan(id string) (*ScanInfo, error) {
	run := s.lookup(id)
	if run == nil {
		return nil, ErrScanNotFound
	}

	record, err := s.db.GetScanRun(id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return s.info(record, run), nil
}

// Event returns the current state of a scan as an SSE event
func (s *Inspector) Event(id string) (*types.ScanEvent, error) {
	run := s.lookup(id)
	if run == nil {
		return nil, ErrScanNotFound
	}
	return eventFromSnapshot(id, run.Snapshot()), nil
}

// ListScans returns recent scans from the registry, newest first
func (s *Inspector) ListScans(limit, offset int) ([]*ScanInfo, error) {
	records, err := s.db.ListScanRuns(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	infos := make([]*ScanInfo, 0, len(records))
	for _, record := range records {
		infos = append(infos, s.info(record, s.lookup(record.ID)))
	}
	return infos, nil
}

// info merges a registry record with the live run, when there is one
func (s *Inspector) info(record *db.ScanRun, run *scan.Run) *ScanInfo {
	info := &ScanInfo{
		ID:          record.ID,
		Status:      scan.Status(record.Status),
		Progress:    record.Progress,
		Score:       record.Score,
		StartedAt:   record.StartedAt,
		CompletedAt: record.CompletedAt,
	}
	if record.ErrorMessage != nil {
		info.Error = *record.ErrorMessage
	}
	if record.Resolution != nil {
		info.Resolution = *record.Resolution
		info.Resolved = true
	}
	if record.SampleID != nil {
		info.SampleID = *record.SampleID
	}

	if run != nil {
		snap := run.Snapshot()
		info.Status = snap.Status
		info.Progress = snap.Progress
		info.Checks = snap.Checks
		info.Score = snap.Score
		info.Resolved = info.Resolved || snap.Resolved
		if snap.Err != nil {
			info.Error = snap.Err.Error()
		}
	}
	return info
}

// Resolve applies a completed scan's score to a new or an existing sample
func (s *Inspector) Resolve(id string, req ResolveRequest) (*db.Sample, error) {
	run := s.lookup(id)
	if run == nil {
		return nil, ErrScanNotFound
	}

	choice, err := scan.ParseChoice(req.Choice)
	if err != nil {
		return nil, err
	}

	var sample *db.Sample
	res := scan.Resolver{
		NewSample: func(score int) error {
			name := strings.TrimSpace(req.Name)
			if name == "" {
				name = "Sample " + id[:8]
			}
			created, err := s.db.CreateSample(name, score, id)
			if err != nil {
				return fmt.Errorf("failed to create sample: %w", err)
			}
			sample = created
			return nil
		},
		ExistingSample: func(score int) error {
			if req.SampleID == "" {
				return fmt.Errorf("%w: sample_id is required", ErrInvalidRequest)
			}
			updated, err := s.db.UpdateSampleScore(req.SampleID, score, id)
			if errors.Is(err, db.ErrNotFound) {
				return ErrSampleNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to update sample: %w", err)
			}
			sample = updated
			return nil
		},
	}

	if err := run.Resolve(choice, res); err != nil {
		return nil, err
	}

	if err := s.db.SetScanRunResolution(id, string(choice), sample.ID); err != nil {
		logger.Errorf("inspector: failed to record resolution for %s: %v", id, err)
	}
	s.metrics.Resolved(string(choice))
	logger.Infof("inspector: scan %s resolved as %s sample %s", id, choice, sample.ID)

	return sample, nil
}

// ListSamples returns the samples of this session
func (s *Inspector) ListSamples() ([]*db.Sample, error) {
	samples, err := s.db.ListSamples()
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	return samples, nil
}

// Dashboard returns aggregate statistics, counting scans since local midnight
func (s *Inspector) Dashboard() (*db.DashboardStats, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := s.db.GetDashboardStats(midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	return stats, nil
}

// Checks returns the check list new runs will use
func (s *Inspector) Checks() []scan.Check {
	return s.checks.Checks()
}

// Forget removes finished scans that ended more than olderThan ago from the
// registry and from memory. It returns the number of scans removed.
func (s *Inspector) Forget(olderThan time.Duration) (int, error) {
	ids, err := s.db.DeleteFinishedRunsBefore(time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished scans: %w", err)
	}

	s.mu.Lock()
	for _, id := range ids {
		delete(s.runs, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.closeSubscribers(id)
	}
	return len(ids), nil
}

func eventFromSnapshot(id string, snap scan.Snapshot) *types.ScanEvent {
	event := &types.ScanEvent{
		RunID:    id,
		Status:   snap.Status,
		Progress: snap.Progress,
		Checks:   snap.Checks,
		Score:    snap.Score,
	}
	if snap.Err != nil {
		event.Error = snap.Err.Error()
	}
	return event
}
