// Package server provides the HTTP server for the pollboard dashboard.
//
// This package handles all HTTP concerns:
//
//   - Dashboard serving: the embedded HTML/CSS/JS page at "/"
//   - REST API: region snapshots at "/api/regions" and "/api/regions/{id}"
//   - Server-Sent Events: live region replacements at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//
// Routing uses chi with request IDs, request logging and panic recovery.
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
