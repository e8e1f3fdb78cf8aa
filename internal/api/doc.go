// Package api hosts the HTTP server, middleware, and REST handlers for the
// crawl service. Notable routes:
//   - GET /healthz and /readyz for liveness/readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawls for crawl submission.
//   - GET /v1/crawls and /v1/crawls/{task_id}/... for task polling.
package api
