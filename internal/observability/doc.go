// Package observability builds the process logger and the OpenTelemetry
// tracer provider.
//
// Loggers are plain *zap.Logger values injected into every service and
// handler. Tracing is optional: when disabled the global no-op provider is
// left in place and spans cost nothing.
package observability
