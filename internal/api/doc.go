// Package api hosts the HTTP trigger server. Routes:
//   - ANY / runs one ingestion and answers with a plain-text acknowledgement.
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /runs and /runs/{run_id} for run history, when a RunStore is configured.
package api
