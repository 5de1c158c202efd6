package report

import (
	"os"
	"time"

	"github.com/jonwraymond/healthops/health"
)

// DateFormat renders timestamps in reports, with millisecond precision and
// a numeric zone offset.
const DateFormat = "2006-01-02T15:04:05.000-0700"

// Summary is the public view of a round.
type Summary struct {
	Hostname string `json:"hostname"`

	// Duration is the round's elapsed time in milliseconds.
	Duration  int64              `json:"duration"`
	Condition health.CheckStatus `json:"condition"`
	DCStatus  string             `json:"dcStatus"`
}

// Detailed is the full view of a round.
type Detailed struct {
	Summary

	AppName                        string `json:"appname,omitempty"`
	LeastRecentlyExecutedDate      string `json:"leastRecentlyExecutedDate"`
	LeastRecentlyExecutedTimestamp int64  `json:"leastRecentlyExecutedTimestamp"`

	// Results groups results by status; each group is sorted by id.
	Results map[health.CheckStatus][]Result `json:"results"`
}

// Result is one dependency's outcome. Times are Unix milliseconds and
// durations are milliseconds.
type Result struct {
	ID                     string                `json:"id"`
	Status                 health.CheckStatus    `json:"status"`
	Description            string                `json:"description,omitempty"`
	ErrorMessage           string                `json:"errorMessage,omitempty"`
	DocumentationURL       string                `json:"documentationUrl,omitempty"`
	Urgency                health.Urgency        `json:"urgency"`
	Type                   health.DependencyType `json:"type,omitempty"`
	ServicePool            string                `json:"servicePool,omitempty"`
	Timestamp              int64                 `json:"timestamp"`
	Date                   string                `json:"date,omitempty"`
	Duration               int64                 `json:"duration"`
	LastKnownGoodTimestamp int64                 `json:"lastKnownGoodTimestamp"`
	Period                 int64                 `json:"period"`
	Thrown                 *health.Thrown        `json:"thrown,omitempty"`
}

// ReporterConfig configures a Reporter.
type ReporterConfig struct {
	// Hostname is reported in every view. Default: os.Hostname.
	Hostname string
}

// Reporter builds report views from snapshots.
type Reporter struct {
	hostname string
}

// NewReporter creates a Reporter.
func NewReporter(config ReporterConfig) *Reporter {
	if config.Hostname == "" {
		config.Hostname, _ = os.Hostname()
	}
	if config.Hostname == "" {
		config.Hostname = "unknown"
	}
	return &Reporter{hostname: config.Hostname}
}

// Hostname returns the reported hostname.
func (r *Reporter) Hostname() string { return r.hostname }

// Summary builds the public view of s.
func (r *Reporter) Summary(s health.Snapshot) Summary {
	return Summary{
		Hostname:  r.hostname,
		Duration:  s.Duration.Milliseconds(),
		Condition: s.SystemStatus,
		DCStatus:  s.DCStatus(),
	}
}

// Detailed builds the full view of s. Stack frames are dropped from thrown
// errors unless withStacks is set.
func (r *Reporter) Detailed(s health.Snapshot, withStacks bool) Detailed {
	d := Detailed{
		Summary:                        r.Summary(s),
		AppName:                        s.AppName,
		LeastRecentlyExecutedDate:      formatDate(s.LeastRecentlyExecuted),
		LeastRecentlyExecutedTimestamp: s.LeastRecentlyExecuted.UnixMilli(),
		Results:                        make(map[health.CheckStatus][]Result),
	}
	for status, results := range s.ByStatus() {
		group := make([]Result, 0, len(results))
		for _, cr := range results {
			group = append(group, convert(cr, withStacks))
		}
		d.Results[status] = group
	}
	return d
}

func convert(cr *health.CheckResult, withStacks bool) Result {
	res := Result{
		ID:                     cr.ID(),
		Status:                 cr.Status(),
		Description:            cr.Description(),
		ErrorMessage:           cr.ErrorMessage(),
		DocumentationURL:       cr.DocumentationURL(),
		Urgency:                cr.Urgency(),
		Type:                   cr.Type(),
		ServicePool:            cr.ServicePool(),
		Timestamp:              unixMilli(cr.Timestamp()),
		Date:                   formatDate(cr.Timestamp()),
		Duration:               cr.Duration().Milliseconds(),
		LastKnownGoodTimestamp: unixMilli(cr.LastKnownGood()),
		Period:                 cr.Period().Milliseconds(),
		Thrown:                 cr.Thrown(),
	}
	if !withStacks {
		res.Thrown = withoutStack(res.Thrown)
	}
	return res
}

// withoutStack copies t and its causes without stack frames.
func withoutStack(t *health.Thrown) *health.Thrown {
	if t == nil {
		return nil
	}
	return &health.Thrown{
		Type:    t.Type,
		Message: t.Message,
		Cause:   withoutStack(t.Cause),
	}
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}
