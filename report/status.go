package report

import (
	"net/http"

	"github.com/jonwraymond/healthops/health"
)

// StatusError is the HTTP status code for an unhealthy report.
const StatusError = 512

// StatusMapper maps a system condition to an HTTP status code.
type StatusMapper func(health.CheckStatus) int

// PublicStatusCode fails only on OUTAGE. Degraded systems still take traffic.
func PublicStatusCode(s health.CheckStatus) int {
	switch s {
	case health.StatusOK, health.StatusMinor, health.StatusMajor:
		return http.StatusOK
	}
	return StatusError
}

// PrivateStatusCode fails on anything worse than OK.
func PrivateStatusCode(s health.CheckStatus) int {
	if s == health.StatusOK {
		return http.StatusOK
	}
	return StatusError
}
