// Package workers provides worker pool sizing heuristics that respect
// container CPU limits via GOMAXPROCS.
package workers
