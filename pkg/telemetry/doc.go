// Package telemetry provides the observability instrumentation for the
// operation engine: structured logging with zerolog, prometheus metrics for
// operations and gateway traffic, and an OpenTelemetry span per operation.
//
// Everything here is optional at the call sites: a nil *Metrics or *Tracer
// is a no-op, so the engine instruments unconditionally and callers opt in
// by wiring real instances.
package telemetry
