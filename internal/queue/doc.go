// Package queue provides a durable, at-least-once background job queue
// backed by its own SQLite database.
//
// Jobs carry a type string and a JSON payload. Handlers are registered by
// type before the workers start. A claimed job that fails is retried with
// a growing delay until its attempt budget is exhausted, at which point it
// is marked failed and kept for inspection. Jobs left in the running state
// by a crashed process are returned to pending on startup.
package queue
