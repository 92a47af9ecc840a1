// Package ingest defines the core types and interfaces shared by the ingestion pipeline:
// cursor persistence, upstream page fetching, warehouse provisioning and row loading.
package ingest
