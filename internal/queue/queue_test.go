package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestQueue(t *testing.T, retry RetryPolicy) *Queue {
	t.Helper()
	q, err := Open(context.Background(), filepath.Join(t.TempDir(), "jobs.db"), retry, 5*time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { q.db.Close() })
	return q
}

func jobStatus(t *testing.T, q *Queue, id int64) (string, int) {
	t.Helper()
	var (
		status   string
		attempts int
	)
	err := q.db.QueryRow(`SELECT status, attempts FROM jobs WHERE id = ?`, id).
		Scan(&status, &attempts)
	if err != nil {
		t.Fatalf("query job %d: %v", id, err)
	}
	return status, attempts
}

func TestRetryPolicyDelay(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		want     time.Duration
	}{
		{"first attempt", 1, 10 * time.Second},
		{"second attempt", 2, 30 * time.Second},
		{"third attempt", 3, 60 * time.Second},
		{"beyond backoff slice", 7, 60 * time.Second},
		{"zero attempts", 0, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryPolicy.Delay(tt.attempts); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempts, got, tt.want)
			}
		})
	}
}

func TestEnqueueAndClaim(t *testing.T) {
	q := newTestQueue(t, DefaultRetryPolicy)

	type payload struct {
		VideoID string `json:"videoId"`
	}
	id, err := q.Enqueue(context.Background(), "transcode", payload{VideoID: "vid-1"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	job, err := q.claim()
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if job == nil {
		t.Fatal("claim() returned nil, want job")
	}
	if job.ID != id {
		t.Errorf("job.ID = %d, want %d", job.ID, id)
	}
	if job.Type != "transcode" {
		t.Errorf("job.Type = %q, want transcode", job.Type)
	}
	if job.Attempts != 1 {
		t.Errorf("job.Attempts = %d, want 1", job.Attempts)
	}
	var p payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.VideoID != "vid-1" {
		t.Errorf("payload VideoID = %q, want vid-1", p.VideoID)
	}

	// The job is running now, so a second claim finds nothing.
	second, err := q.claim()
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if second != nil {
		t.Errorf("second claim() = job %d, want nil", second.ID)
	}
}

func TestClaimEmptyQueue(t *testing.T) {
	q := newTestQueue(t, DefaultRetryPolicy)

	job, err := q.claim()
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if job != nil {
		t.Errorf("claim() = job %d, want nil", job.ID)
	}
}

func TestRunCompletesJob(t *testing.T) {
	q := newTestQueue(t, DefaultRetryPolicy)

	var calls int32
	q.Register("thumbnail", func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	id, err := q.Enqueue(context.Background(), "thumbnail", map[string]string{"videoId": "vid-1"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	job, err := q.claim()
	if err != nil || job == nil {
		t.Fatalf("claim() = %v, %v", job, err)
	}
	q.run(job)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("handler calls = %d, want 1", got)
	}
	status, attempts := jobStatus(t, q, id)
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRunRetriesThenFails(t *testing.T) {
	retry := RetryPolicy{MaxAttempts: 2, Backoff: []time.Duration{0}}
	q := newTestQueue(t, retry)

	handlerErr := errors.New("encode blew up")
	q.Register("transcode", func(ctx context.Context, job *Job) error {
		return handlerErr
	})

	id, err := q.Enqueue(context.Background(), "transcode", map[string]string{"videoId": "vid-1"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// First attempt fails and is rescheduled as pending.
	job, err := q.claim()
	if err != nil || job == nil {
		t.Fatalf("claim() = %v, %v", job, err)
	}
	q.run(job)
	status, attempts := jobStatus(t, q, id)
	if status != StatusPending {
		t.Errorf("status after first failure = %q, want %q", status, StatusPending)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}

	// Second attempt exhausts the budget and the job goes terminal.
	job, err = q.claim()
	if err != nil || job == nil {
		t.Fatalf("claim() = %v, %v", job, err)
	}
	q.run(job)
	status, attempts = jobStatus(t, q, id)
	if status != StatusFailed {
		t.Errorf("status after second failure = %q, want %q", status, StatusFailed)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}

	var lastError string
	if err := q.db.QueryRow(`SELECT last_error FROM jobs WHERE id = ?`, id).Scan(&lastError); err != nil {
		t.Fatalf("query last_error: %v", err)
	}
	if lastError != handlerErr.Error() {
		t.Errorf("last_error = %q, want %q", lastError, handlerErr.Error())
	}
}

func TestRunNoHandler(t *testing.T) {
	q := newTestQueue(t, DefaultRetryPolicy)

	id, err := q.Enqueue(context.Background(), "unknown", struct{}{})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	job, err := q.claim()
	if err != nil || job == nil {
		t.Fatalf("claim() = %v, %v", job, err)
	}
	q.run(job)

	status, _ := jobStatus(t, q, id)
	if status != StatusFailed {
		t.Errorf("status = %q, want %q", status, StatusFailed)
	}
}

func TestRetryNotDueYet(t *testing.T) {
	retry := RetryPolicy{MaxAttempts: 3, Backoff: []time.Duration{time.Hour}}
	q := newTestQueue(t, retry)

	q.Register("transcode", func(ctx context.Context, job *Job) error {
		return errors.New("fail once")
	})
	if _, err := q.Enqueue(context.Background(), "transcode", struct{}{}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	job, err := q.claim()
	if err != nil || job == nil {
		t.Fatalf("claim() = %v, %v", job, err)
	}
	q.run(job)

	// The retry is an hour out, so nothing is claimable now.
	job, err = q.claim()
	if err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if job != nil {
		t.Errorf("claim() = job %d before backoff elapsed, want nil", job.ID)
	}
}

func TestOpenResetsStaleRunning(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "jobs.db")

	q, err := Open(context.Background(), dbPath, DefaultRetryPolicy, time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	id, err := q.Enqueue(context.Background(), "transcode", struct{}{})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := q.claim(); err != nil {
		t.Fatalf("claim() error = %v", err)
	}
	if status, _ := jobStatus(t, q, id); status != StatusRunning {
		t.Fatalf("status = %q, want %q", status, StatusRunning)
	}
	// Simulate a crash: close without completing the job.
	if err := q.db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	q2, err := Open(context.Background(), dbPath, DefaultRetryPolicy, time.Second)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer q2.db.Close()

	status, attempts := jobStatus(t, q2, id)
	if status != StatusPending {
		t.Errorf("status after reopen = %q, want %q", status, StatusPending)
	}
	if attempts != 1 {
		t.Errorf("attempts after reopen = %d, want 1 (not rolled back)", attempts)
	}
}

func TestWorkersProcessJobs(t *testing.T) {
	q := newTestQueue(t, DefaultRetryPolicy)

	done := make(chan string, 4)
	q.Register("thumbnail", func(ctx context.Context, job *Job) error {
		var p struct {
			VideoID string `json:"videoId"`
		}
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return err
		}
		done <- p.VideoID
		return nil
	})

	q.Start(2)
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := q.Enqueue(context.Background(), "thumbnail", map[string]string{"videoId": id}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for jobs, processed %d of 4", i)
		}
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !seen[id] {
			t.Errorf("job for video %q was not processed", id)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestDepth(t *testing.T) {
	q := newTestQueue(t, DefaultRetryPolicy)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, "transcode", struct{}{}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	n, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Depth() = %d, want 3", n)
	}
}
