package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateVideo inserts a new video row in pending state.
func (d *Database) CreateVideo(ctx context.Context, v *Video) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_video", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO videos (id, title, description, category, source_key, processing_status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Title, v.Description, v.Category, v.SourceKey, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

// GetVideo retrieves a video by id. Returns ErrNotFound if it does not exist.
func (d *Database) GetVideo(ctx context.Context, id string) (*Video, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_video", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	var (
		v         Video
		createdAt int64
		updatedAt int64
	)
	err = d.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, source_key, duration_seconds,
		       thumbnail_url, processing_status, created_at, updated_at
		FROM videos WHERE id = ?`, id,
	).Scan(&v.ID, &v.Title, &v.Description, &v.Category, &v.SourceKey,
		&v.DurationSeconds, &v.ThumbnailURL, &v.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}

	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)
	return &v, nil
}

// SetVideoStatus transitions a video's processing status.
func (d *Database) SetVideoStatus(ctx context.Context, id string, status Status) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_video_status", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	err = d.execOnVideo(ctx, id, `
		UPDATE videos
		SET processing_status = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, status, id)
	return err
}

// SetVideoDuration persists the probed source duration.
func (d *Database) SetVideoDuration(ctx context.Context, id string, seconds float64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_video_duration", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	err = d.execOnVideo(ctx, id, `
		UPDATE videos
		SET duration_seconds = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, seconds, id)
	return err
}

// SetVideoThumbnail persists the thumbnail URL produced by the thumbnail job.
func (d *Database) SetVideoThumbnail(ctx context.Context, id, url string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_video_thumbnail", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	err = d.execOnVideo(ctx, id, `
		UPDATE videos
		SET thumbnail_url = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, url, id)
	return err
}

// DeleteVideo removes a video row. Its renditions are removed by the
// ON DELETE CASCADE constraint. Returns ErrNotFound for an unknown id.
func (d *Database) DeleteVideo(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_video", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	rows, raErr := result.RowsAffected()
	if raErr == nil && rows == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

// execOnVideo runs an UPDATE that targets one video row and maps a zero
// rows-affected result to ErrNotFound.
func (d *Database) execOnVideo(ctx context.Context, id, query string, args ...interface{}) error {
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update video %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}
