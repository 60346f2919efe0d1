// Package database manages the sqlite metadata store for videos and their
// renditions.
//
// The store enforces the pipeline's structural invariants at the schema
// level: one rendition per (video, resolution) via a unique constraint,
// cascading deletion of renditions with their video, and a manifest path
// that is only ever persisted together with a completed status.
//
// All operations are instrumented with Prometheus query metrics.
package database
