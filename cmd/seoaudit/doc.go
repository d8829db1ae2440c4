// Package main hosts the SEO audit service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes GET /analyze plus health and metrics endpoints. Query parameters are
//     validated into an audit.Request and the audit runs synchronously inside the request.
//   - Audit pipeline: internal/audit.Service fetches the page (plain Colly fetch, with a Chromedp render when the shell
//     detector finds an unrendered client-side app), submits one SERP task per keyword in a single batch, polls them on a fixed interval under a
//     hard wall-clock budget, then merges SERP rankings with synchronous keyword metrics into per-keyword reports.
//   - Provider: internal/provider wraps the DataForSEO v3 JSON API behind basic auth, with an optional token-bucket
//     pacer and fixed-delay retries for transient failures only.
//   - Suggestions: internal/suggest asks an OpenAI-compatible model, through langchaingo, for a rewritten title and
//     description. A missing key yields an error block in the report, never a failed audit.
//   - Configuration & plumbing: Viper populates config from env/files (a .env file is loaded first when present); zap
//     provides structured logging; Prometheus metrics are exported via the metrics middleware and /metrics handler.
//     Completed audits are announced on Pub/Sub when events.project_id and events.topic are set.
//
// Operational notes:
//   - Audits share no state. Each request owns its tasks, its poll loop and its clock budget; the HTTP server's
//     per-request timeout (api.request_timeout_seconds) bounds the whole run.
//   - The service reacts to SIGTERM by draining in-flight requests for up to 10s.
//
// Quick checklist:
//   - Configure env vars: DATAFORSEO_LOGIN and DATAFORSEO_PASSWORD (or SEOAUDIT_PROVIDER_*), OPENAI_API_KEY for
//     suggestions, PORT or SEOAUDIT_SERVER_PORT, SEOAUDIT_POLL_MAX_WAIT_SECONDS to tune the poll budget.
//   - Run locally: go run ./cmd/seoaudit -config config.yaml (or rely solely on env overrides).
package main
