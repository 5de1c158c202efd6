// Package observe provides the observability primitives shared by the health
// engine and the statusd daemon.
//
// It is a pure instrumentation library: an OpenTelemetry-backed Observer, a
// JSON structured Logger with key redaction, a Tracer that opens one span per
// dependency evaluation, and a Metrics sink for check, system and pinger
// measurements. Middleware composes the three around a single evaluation.
// Exporter selection lives in the exporters subpackage.
package observe
