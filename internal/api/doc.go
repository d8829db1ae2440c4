// Package api hosts the HTTP server and middleware of the audit service.
// Routes:
//   - GET /analyze?url=&keywords= runs one audit synchronously.
//   - GET /health for uptime checks, /healthz and /readyz for Kubernetes liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
package api
