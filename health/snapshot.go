package health

import "time"

// Snapshot is a point-in-time report of an evaluation round. It holds no
// reference back to the ResultSet it came from.
type Snapshot struct {
	ID           string
	AppName      string
	StartTime    time.Time
	Duration     time.Duration
	SystemStatus CheckStatus

	// Results holds completed results sorted by id.
	Results []*CheckResult

	// Executing lists ids that had not completed when the snapshot was taken.
	Executing []string

	// LeastRecentlyExecuted is the oldest result timestamp, or the snapshot
	// time when no result carries one.
	LeastRecentlyExecuted time.Time
}

// DCStatus returns "FAILOVER" when the system is in outage and "OK" otherwise.
func (s Snapshot) DCStatus() string {
	return s.SystemStatus.DCStatus()
}

// ByStatus groups results by status, keeping id order within each group.
func (s Snapshot) ByStatus() map[CheckStatus][]*CheckResult {
	groups := make(map[CheckStatus][]*CheckResult)
	for _, r := range s.Results {
		groups[r.Status()] = append(groups[r.Status()], r)
	}
	return groups
}

// Result returns the result for id.
func (s Snapshot) Result(id string) (*CheckResult, bool) {
	for _, r := range s.Results {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}
