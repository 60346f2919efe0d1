package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertRendition creates the rendition row for (videoID, resolution) or,
// if it already exists from an earlier run, resets it to processing. The
// manifest path is cleared in both cases: it may only exist alongside a
// completed status.
func (d *Database) UpsertRendition(ctx context.Context, videoID, resolution string, bitrateKbps int) (*Rendition, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_rendition", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO renditions (video_id, resolution, bitrate_kbps, processing_status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(video_id, resolution) DO UPDATE SET
			bitrate_kbps = excluded.bitrate_kbps,
			processing_status = excluded.processing_status,
			manifest_path = NULL,
			updated_at = strftime('%s', 'now')`,
		videoID, resolution, bitrateKbps, StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert rendition %s/%s: %w", videoID, resolution, err)
	}

	return d.getRendition(ctx, videoID, resolution)
}

// GetRendition retrieves the rendition for (videoID, resolution).
// Returns ErrNotFound if it does not exist.
func (d *Database) GetRendition(ctx context.Context, videoID, resolution string) (*Rendition, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_rendition", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	var r *Rendition
	r, err = d.getRendition(ctx, videoID, resolution)
	return r, err
}

func (d *Database) getRendition(ctx context.Context, videoID, resolution string) (*Rendition, error) {
	var (
		r         Rendition
		createdAt int64
		updatedAt int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, video_id, resolution, bitrate_kbps, manifest_path,
		       processing_status, created_at, updated_at
		FROM renditions WHERE video_id = ? AND resolution = ?`,
		videoID, resolution,
	).Scan(&r.ID, &r.VideoID, &r.Resolution, &r.BitrateKbps, &r.ManifestPath,
		&r.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rendition %s/%s: %w", videoID, resolution, err)
	}

	r.CreatedAt = time.Unix(createdAt, 0)
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

// SetRenditionStatus transitions a rendition to a non-completed status and
// clears its manifest path. Use CompleteRendition for the completed state.
func (d *Database) SetRenditionStatus(ctx context.Context, id int64, status Status) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_rendition_status", start, err) }()

	if status == StatusCompleted {
		err = fmt.Errorf("set rendition status: completed requires a manifest path, use CompleteRendition")
		return err
	}

	ctx, cancel := opContext(ctx)
	defer cancel()

	err = d.execOnRendition(ctx, id, `
		UPDATE renditions
		SET processing_status = ?, manifest_path = NULL, updated_at = strftime('%s', 'now')
		WHERE id = ?`, status, id)
	return err
}

// CompleteRendition marks a rendition completed and persists its manifest
// path in the same statement, keeping the status/path invariant atomic.
func (d *Database) CompleteRendition(ctx context.Context, id int64, manifestPath string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("complete_rendition", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	err = d.execOnRendition(ctx, id, `
		UPDATE renditions
		SET processing_status = ?, manifest_path = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`, StatusCompleted, manifestPath, id)
	return err
}

// ListRenditions returns all renditions of a video ordered by row id, which
// matches the configured ladder order because the orchestrator creates them
// in ladder order.
func (d *Database) ListRenditions(ctx context.Context, videoID string) ([]Rendition, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_renditions", start, err) }()

	ctx, cancel := opContext(ctx)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT id, video_id, resolution, bitrate_kbps, manifest_path,
		       processing_status, created_at, updated_at
		FROM renditions WHERE video_id = ? ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list renditions %s: %w", videoID, err)
	}
	defer rows.Close()

	var renditions []Rendition
	for rows.Next() {
		var (
			r         Rendition
			createdAt int64
			updatedAt int64
		)
		if err = rows.Scan(&r.ID, &r.VideoID, &r.Resolution, &r.BitrateKbps,
			&r.ManifestPath, &r.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan rendition: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)
		renditions = append(renditions, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	return renditions, nil
}

func (d *Database) execOnRendition(ctx context.Context, id int64, query string, args ...interface{}) error {
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update rendition %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}
