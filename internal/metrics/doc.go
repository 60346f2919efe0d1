// Package metrics provides Prometheus instrumentation for streamhub.
//
// All metrics are prefixed with "streamhub_" to avoid naming collisions with
// other applications. The metric families cover the HTTP surface, the sqlite
// metadata store, the job queue, and the transcoding pipeline (encodes,
// thumbnails, cleanup).
//
// Metrics are served on a dedicated port via Serve, separate from the
// application port, so that scrapes never contend with segment delivery.
package metrics
