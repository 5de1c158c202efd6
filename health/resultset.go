package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/healthops/observe"
)

// ResultSet aggregates one evaluation round.
//
// Each dependency id moves through Init, Execute, Complete and Finalize at
// most once per round. Finalize alone folds results into the system status,
// which starts at StatusOK and only ever gets worse within the round.
//
// A ResultSet is safe for concurrent use. It is not meant to be reused across
// rounds; read it through Snapshot once the round is over.
type ResultSet struct {
	id     string
	start  time.Time
	now    func() time.Time
	logger observe.Logger

	mu        sync.Mutex
	appName   string
	system    CheckStatus
	pending   map[string]struct{}
	executing map[string]time.Time
	completed map[string]*CheckResult
}

// NewResultSet starts a new round. A nil logger discards lifecycle diagnostics.
func NewResultSet(logger observe.Logger) *ResultSet {
	return newResultSet(logger, time.Now)
}

func newResultSet(logger observe.Logger, now func() time.Time) *ResultSet {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &ResultSet{
		id:        uuid.NewString(),
		start:     now(),
		now:       now,
		logger:    logger,
		system:    StatusOK,
		pending:   make(map[string]struct{}),
		executing: make(map[string]time.Time),
		completed: make(map[string]*CheckResult),
	}
}

// Init registers the intent to check desc in this round.
// It fails when the id is already initialized, executing or completed in the round.
func (rs *ResultSet) Init(desc Descriptor) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.pending[desc.ID]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExecuting, desc.ID)
	}
	if _, ok := rs.executing[desc.ID]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExecuting, desc.ID)
	}
	if _, ok := rs.completed[desc.ID]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyCompleted, desc.ID)
	}
	rs.pending[desc.ID] = struct{}{}
	return nil
}

// Execute marks desc as executing.
func (rs *ResultSet) Execute(desc Descriptor) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.executing[desc.ID]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExecuting, desc.ID)
	}
	delete(rs.pending, desc.ID)
	rs.executing[desc.ID] = rs.now()
	return nil
}

// Complete records the result of a check and clears its executing marker.
//
// Only the first result per id is kept. An OK result for an id that never
// reached Execute is an internal inconsistency: it is logged and recorded.
func (rs *ResultSet) Complete(result *CheckResult) {
	if result == nil {
		rs.logger.Error(context.Background(), "ignoring nil result on completion", observe.F("round", rs.id))
		return
	}
	id := result.ID()

	rs.mu.Lock()
	_, started := rs.executing[id]
	delete(rs.pending, id)
	delete(rs.executing, id)
	_, duplicate := rs.completed[id]
	if !duplicate {
		rs.completed[id] = result
	}
	rs.mu.Unlock()

	if !started && result.Status() == StatusOK {
		rs.logger.Error(context.Background(), "OK result completed for a check that never started executing",
			observe.F("round", rs.id), observe.F("dependency", id))
	}
	if duplicate {
		rs.logger.Error(context.Background(), "attempted to record a second result",
			observe.F("round", rs.id), observe.F("dependency", id), observe.F("status", result.Status().String()))
	}
}

// Finalize folds the result into the system status through its urgency.
// It never fails; a missing completion record is restored first, and a result
// other than the one recorded for its id is logged and not folded.
func (rs *ResultSet) Finalize(result *CheckResult) {
	if result == nil {
		return
	}
	id := result.ID()

	rs.mu.Lock()
	kept, recorded := rs.completed[id]
	if recorded && kept != result {
		rs.mu.Unlock()
		rs.logger.Error(context.Background(), "ignoring finalization of a result that was not recorded",
			observe.F("round", rs.id), observe.F("dependency", id), observe.F("status", result.Status().String()))
		return
	}
	if !recorded {
		rs.completed[id] = result
		delete(rs.pending, id)
		delete(rs.executing, id)
	}
	prior := rs.system
	rs.system = result.Urgency().Downgrade(prior, result.Status())
	next := rs.system
	rs.mu.Unlock()

	if !recorded {
		fields := []observe.Field{observe.F("round", rs.id), observe.F("dependency", id)}
		if result.Status() == StatusOK {
			rs.logger.Error(context.Background(), "restored missing completion record with OK status", fields...)
		} else {
			rs.logger.Warn(context.Background(), "restored missing completion record", fields...)
		}
	}
	if next != prior {
		rs.logger.Debug(context.Background(), "system status reduced",
			observe.F("round", rs.id), observe.F("dependency", id),
			observe.F("from", prior.String()), observe.F("to", next.String()))
	}
}

// ID returns the unique round id.
func (rs *ResultSet) ID() string { return rs.id }

// StartTime returns when the round started.
func (rs *ResultSet) StartTime() time.Time { return rs.start }

// AppName returns the application name stamped on the round.
func (rs *ResultSet) AppName() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.appName
}

// SetAppName stamps the round with the application name.
func (rs *ResultSet) SetAppName(name string) {
	rs.mu.Lock()
	rs.appName = name
	rs.mu.Unlock()
}

// SystemStatus returns the status folded so far.
func (rs *ResultSet) SystemStatus() CheckStatus {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.system
}

// Result returns the completed result for id.
func (rs *ResultSet) Result(id string) (*CheckResult, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.completed[id]
	return r, ok
}

// Results returns completed results sorted by id.
func (rs *ResultSet) Results() []*CheckResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.sortedResultsLocked()
}

func (rs *ResultSet) sortedResultsLocked() []*CheckResult {
	out := make([]*CheckResult, 0, len(rs.completed))
	for _, r := range rs.completed {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Executing returns the ids still executing, sorted.
func (rs *ResultSet) Executing() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ids := make([]string, 0, len(rs.executing))
	for id := range rs.executing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns an independent report of the round as it stands.
func (rs *ResultSet) Snapshot() Snapshot {
	now := rs.now()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	s := Snapshot{
		ID:                    rs.id,
		AppName:               rs.appName,
		StartTime:             rs.start,
		Duration:              now.Sub(rs.start),
		SystemStatus:          rs.system,
		Results:               rs.sortedResultsLocked(),
		LeastRecentlyExecuted: now,
	}
	for id := range rs.executing {
		s.Executing = append(s.Executing, id)
	}
	sort.Strings(s.Executing)

	for _, r := range s.Results {
		if ts := r.Timestamp(); !ts.IsZero() && ts.Before(s.LeastRecentlyExecuted) {
			s.LeastRecentlyExecuted = ts
		}
	}
	return s
}
