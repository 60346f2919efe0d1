package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"streamhub/internal/database"
	"streamhub/internal/logging"
	"streamhub/internal/queue"
	"streamhub/internal/transcoder"
)

// handleTranscode is the orchestrator for the transcode job type. It walks
// the ladder encoding every rendition; one rendition failing never stops
// the others. Errors outside a single rendition's scope mark the video
// failed and bubble up so the queue can retry the whole job. Re-runs are
// safe: renditions are upserted and output directories recreated.
func (p *Pipeline) handleTranscode(ctx context.Context, job *queue.Job) error {
	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode transcode payload: %w", err)
	}

	video, err := p.db.GetVideo(ctx, payload.VideoID)
	if errors.Is(err, database.ErrNotFound) {
		// Deleted between enqueue and claim. Nothing to do.
		logging.Info("Pipeline: video %s gone, skipping transcode", payload.VideoID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load video %s: %w", payload.VideoID, err)
	}

	sourcePath, err := p.store.Path(video.SourceKey)
	if err != nil {
		return p.failVideo(ctx, video.ID, fmt.Errorf("resolve source: %w", err))
	}

	if err := p.db.SetVideoStatus(ctx, video.ID, database.StatusProcessing); err != nil {
		return fmt.Errorf("mark video %s processing: %w", video.ID, err)
	}
	logging.Info("Pipeline: transcoding video %s (%d renditions)", video.ID, len(p.ladder))

	streamDir := filepath.Join(p.hlsDir, video.ID)
	var completed []transcoder.RenditionSpec

	for _, spec := range p.ladder {
		rendition, err := p.db.UpsertRendition(ctx, video.ID, spec.Name, spec.BitrateKbps)
		if err != nil {
			return p.failVideo(ctx, video.ID, fmt.Errorf("upsert rendition %s: %w", spec.Name, err))
		}

		outDir := filepath.Join(streamDir, spec.Name)
		result, encErr := p.encoder.Encode(ctx, sourcePath, spec, outDir)
		if encErr != nil {
			logging.Error("Pipeline: rendition %s of video %s failed: %v", spec.Name, video.ID, encErr)
			if err := p.db.SetRenditionStatus(ctx, rendition.ID, database.StatusFailed); err != nil {
				return p.failVideo(ctx, video.ID, fmt.Errorf("mark rendition %s failed: %w", spec.Name, err))
			}
			continue
		}

		manifestPath := path.Join(video.ID, spec.Name, filepath.Base(result.ManifestPath))
		if err := p.db.CompleteRendition(ctx, rendition.ID, manifestPath); err != nil {
			return p.failVideo(ctx, video.ID, fmt.Errorf("complete rendition %s: %w", spec.Name, err))
		}
		logging.Info("Pipeline: rendition %s of video %s completed (%d segments)",
			spec.Name, video.ID, len(result.Segments))
		completed = append(completed, spec)
	}

	if len(completed) == 0 {
		return p.failVideo(ctx, video.ID, fmt.Errorf("all %d renditions failed", len(p.ladder)))
	}

	if err := transcoder.WriteMaster(streamDir, completed); err != nil {
		return p.failVideo(ctx, video.ID, err)
	}

	if err := p.db.SetVideoStatus(ctx, video.ID, database.StatusCompleted); err != nil {
		return fmt.Errorf("mark video %s completed: %w", video.ID, err)
	}
	logging.Info("Pipeline: video %s completed with %d/%d renditions",
		video.ID, len(completed), len(p.ladder))
	return nil
}

// failVideo marks the video failed and returns the cause so the queue
// retries the job. A failed status write is logged but the original cause
// still wins.
func (p *Pipeline) failVideo(ctx context.Context, videoID string, cause error) error {
	if err := p.db.SetVideoStatus(ctx, videoID, database.StatusFailed); err != nil {
		logging.Error("Pipeline: could not mark video %s failed: %v", videoID, err)
	}
	return fmt.Errorf("transcode video %s: %w", videoID, cause)
}
