package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"streamhub/internal/logging"
	"streamhub/internal/metrics"
)

const (
	pollInterval   = 1 * time.Second
	defaultTimeout = 5 * time.Second
)

// Queue is a SQLite-backed job queue. Open it, register handlers, then
// call Start. Enqueue may be called from any goroutine.
type Queue struct {
	db         *sql.DB
	retry      RetryPolicy
	jobTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// Open connects to (or creates) the queue database at dbPath and resets
// any jobs a previous process left in the running state. jobTimeout bounds
// each handler invocation.
func Open(ctx context.Context, dbPath string, retry RetryPolicy, jobTimeout time.Duration) (*Queue, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}

	q := &Queue{
		db:         db,
		retry:      retry,
		jobTimeout: jobTimeout,
		handlers:   make(map[string]HandlerFunc),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}

	if err := q.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	reset, err := q.resetStale(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if reset > 0 {
		logging.Warn("Queue: reset %d stale running job(s) to pending", reset)
	}

	return q, nil
}

func (q *Queue) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		payload BLOB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		run_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_claim ON jobs(status, run_at);
	`
	if _, err := q.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initialize queue schema: %w", err)
	}
	return nil
}

// resetStale returns jobs stuck in running back to pending. Attempts are
// not rolled back, so a job that keeps crashing the process still exhausts
// its budget.
func (q *Queue) resetStale(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, updated_at = strftime('%s', 'now')
		WHERE status = ?`, StatusPending, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("reset stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// Register binds a handler to a job type. Must be called before Start.
func (q *Queue) Register(jobType string, h HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// Enqueue persists a new pending job. The payload is marshaled to JSON.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload interface{}) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", jobType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO jobs (type, payload) VALUES (?, ?)`, jobType, data)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	metrics.QueueJobsEnqueued.WithLabelValues(jobType).Inc()
	q.updateDepth()
	logging.Debug("Queue: enqueued %s job %d", jobType, id)

	// Wake one idle worker without blocking if all are busy.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return id, nil
}

// Start launches workers goroutines that claim and run jobs until Stop.
func (q *Queue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	logging.Info("Queue: starting %d worker(s)", workers)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish or the
// context to expire.
func (q *Queue) Stop(ctx context.Context) error {
	close(q.stop)
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.db.Close()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for {
			job, err := q.claim()
			if err != nil {
				logging.Error("Queue: worker %d claim failed: %v", id, err)
				break
			}
			if job == nil {
				break
			}
			q.run(job)
			select {
			case <-q.stop:
				return
			default:
			}
		}

		select {
		case <-q.stop:
			return
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// claim atomically moves the oldest due pending job to running and bumps
// its attempt count. Returns nil with no error when the queue is empty.
func (q *Queue) claim() (*Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	var (
		job   Job
		runAt int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, type, payload, attempts, run_at
		FROM jobs
		WHERE status = ? AND run_at <= strftime('%s', 'now')
		ORDER BY run_at, id
		LIMIT 1`, StatusPending,
	).Scan(&job.ID, &job.Type, &job.Payload, &job.Attempts, &runAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select pending job: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, attempts = attempts + 1, updated_at = strftime('%s', 'now')
		WHERE id = ?`, StatusRunning, job.ID)
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	job.Status = StatusRunning
	job.Attempts++
	job.RunAt = time.Unix(runAt, 0)
	return &job, nil
}

func (q *Queue) run(job *Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()
	if !ok {
		logging.Error("Queue: no handler for job type %q, failing job %d", job.Type, job.ID)
		q.fail(job, fmt.Errorf("no handler registered for type %q", job.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
	defer cancel()

	start := time.Now()
	err := handler(ctx, job)
	metrics.QueueJobDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())

	if err == nil {
		q.complete(job)
		return
	}

	if job.Attempts >= q.retry.MaxAttempts {
		logging.Error("Queue: %s job %d failed permanently after %d attempt(s): %v",
			job.Type, job.ID, job.Attempts, err)
		q.fail(job, err)
		return
	}

	delay := q.retry.Delay(job.Attempts)
	logging.Warn("Queue: %s job %d attempt %d/%d failed, retrying in %s: %v",
		job.Type, job.ID, job.Attempts, q.retry.MaxAttempts, delay, err)
	q.reschedule(job, err, delay)
}

func (q *Queue) complete(job *Job) {
	err := q.setFinal(job.ID, StatusCompleted, "")
	if err != nil {
		logging.Error("Queue: mark job %d completed: %v", job.ID, err)
		return
	}
	metrics.QueueJobsProcessed.WithLabelValues(job.Type, "completed").Inc()
	q.updateDepth()
	logging.Debug("Queue: %s job %d completed", job.Type, job.ID)
}

func (q *Queue) fail(job *Job, cause error) {
	if err := q.setFinal(job.ID, StatusFailed, cause.Error()); err != nil {
		logging.Error("Queue: mark job %d failed: %v", job.ID, err)
		return
	}
	metrics.QueueJobsProcessed.WithLabelValues(job.Type, "failed").Inc()
	q.updateDepth()
}

func (q *Queue) reschedule(job *Job, cause error, delay time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, last_error = ?,
		    run_at = strftime('%s', 'now') + ?,
		    updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		StatusPending, cause.Error(), int64(delay.Seconds()), job.ID)
	if err != nil {
		logging.Error("Queue: reschedule job %d: %v", job.ID, err)
		return
	}
	metrics.QueueJobsProcessed.WithLabelValues(job.Type, "retried").Inc()
}

func (q *Queue) setFinal(id int64, status, lastError string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, last_error = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, status, lastError, id)
	return err
}

// Depth counts jobs that are pending or running.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs WHERE status IN (?, ?)`,
		StatusPending, StatusRunning).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}

func (q *Queue) updateDepth() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if n, err := q.Depth(ctx); err == nil {
		metrics.QueueDepth.Set(float64(n))
	}
}
