package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"streamhub/internal/blob"
	"streamhub/internal/database"
	"streamhub/internal/logging"
	"streamhub/internal/media"
	"streamhub/internal/metrics"
	"streamhub/internal/queue"
)

// handleThumbnail captures a poster frame for the video and stores it as
// a blob. It never touches the video's processing status; errors bubble
// up so the queue retries.
func (p *Pipeline) handleThumbnail(ctx context.Context, job *queue.Job) error {
	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode thumbnail payload: %w", err)
	}

	video, err := p.db.GetVideo(ctx, payload.VideoID)
	if errors.Is(err, database.ErrNotFound) {
		logging.Info("Pipeline: video %s gone, skipping thumbnail", payload.VideoID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load video %s: %w", payload.VideoID, err)
	}

	tmpPath, err := p.copySourceToTemp(video)
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return err
	}
	defer os.Remove(tmpPath)

	var duration float64
	if video.DurationSeconds != nil {
		duration = *video.DurationSeconds
	}
	at := media.ThumbnailTimestamp(duration)

	data, err := p.thumbs.ExtractThumbnail(ctx, tmpPath, at)
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("thumbnail video %s: %w", video.ID, err)
	}

	key := thumbnailKey(video)
	if _, err := p.store.Save(key, bytes.NewReader(data)); err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("store thumbnail for %s: %w", video.ID, err)
	}
	if err := p.db.SetVideoThumbnail(ctx, video.ID, blob.URL(key)); err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("persist thumbnail url for %s: %w", video.ID, err)
	}

	metrics.ThumbnailsTotal.WithLabelValues("success").Inc()
	logging.Info("Pipeline: thumbnail stored for video %s", video.ID)
	return nil
}

// copySourceToTemp stages the source blob as a local temp file for ffmpeg.
// The caller removes the file.
func (p *Pipeline) copySourceToTemp(video *database.Video) (string, error) {
	src, err := p.store.Open(video.SourceKey)
	if err != nil {
		return "", fmt.Errorf("open source for %s: %w", video.ID, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "thumbnail-*"+filepath.Ext(video.SourceKey))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	_, err = io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage source for %s: %w", video.ID, err)
	}
	return tmp.Name(), nil
}

// thumbnailKey derives the blob key for a video's thumbnail from its
// title, with path separators stripped so the key stays valid.
func thumbnailKey(video *database.Video) string {
	title := strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(video.Title)
	title = strings.TrimSpace(title)
	if title == "" || title == "." {
		title = "cover"
	}
	return fmt.Sprintf("thumbnails/%s/%s.jpg", video.ID, title)
}
