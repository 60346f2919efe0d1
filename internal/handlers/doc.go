// Package handlers implements the HTTP surface: video ingest and
// deletion, manifest and segment serving, blob serving, and the health
// endpoints.
package handlers
