package queue

import (
	"context"
	"time"
)

// Job status values.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one unit of background work.
type Job struct {
	ID        int64
	Type      string
	Payload   []byte
	Status    string
	Attempts  int
	LastError string
	RunAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HandlerFunc processes one job. A nil return completes the job; an error
// schedules a retry or, once attempts are exhausted, fails it.
type HandlerFunc func(ctx context.Context, job *Job) error

// RetryPolicy controls how many times a job may run and how long to wait
// between attempts. The delay after attempt n is Backoff[n-1]; attempts
// beyond the slice reuse the last entry.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultRetryPolicy gives each job three attempts with growing delays.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
}

// Delay returns the wait before re-running a job that has already made
// attempts attempts.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}
