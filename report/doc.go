// Package report renders evaluation rounds for HTTP status endpoints.
//
// A Reporter converts a health.Snapshot into one of two JSON views:
//
//   - Summary: hostname, round duration, system condition and the
//     two-valued dcStatus understood by failover agents.
//   - Detailed: the summary plus the application name, the oldest result
//     timestamp and every result grouped by status.
//
// Handler serves those views from a Source (usually a *health.Manager).
// Dependencies launched as pingers report their cached sample; everything
// else is evaluated live on each request. Stack traces are included in the
// detailed view only for callers the auth middleware identified.
//
// # Endpoints
//
//	GET /healthcheck                 public summary (non-OUTAGE is 200)
//	GET /private/healthcheck         detailed view (non-OK is 512)
//	GET /healthcheck/updown          "OK" or "FAILOVER" as text
//	GET /healthcheck/live            summary of a round that skips pinger samples
//	GET /healthcheck/alive           liveness, always "OK"
//	GET /healthcheck/dependency/{id} detailed view of one dependency
package report
