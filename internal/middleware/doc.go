// Package middleware provides HTTP middleware for streamhub.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request instrumentation
//   - Configurable filtering for segment traffic and health checks
package middleware
