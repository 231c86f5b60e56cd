// Package observability provides structured logging and metrics for the
// Market Bot service.
//
// Loggers are zap based. Metrics are Prometheus collectors registered on a
// private registry, exposed by the HTTP layer at the configured metrics path.
package observability
