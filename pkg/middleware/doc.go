// Package middleware provides optional observability and traffic-control
// wrappers for the app: Prometheus request metrics, OpenTelemetry tracing,
// and per-client rate limiting.
//
// Prometheus and OpenTelemetry wrap the app as standard http.Handler
// middleware so they observe every request including static files.
// RateLimit produces framework middleware for use with App.Use or
// route-local middleware stacks.
package middleware
