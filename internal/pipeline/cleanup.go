package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"streamhub/internal/blob"
	"streamhub/internal/database"
	"streamhub/internal/logging"
	"streamhub/internal/metrics"
)

// VideoDeleted removes a video's artifacts after its row (and, by
// cascade, its renditions) is gone. The three steps are best effort and
// isolated from each other: a failure is logged and counted, never
// returned, so a stuck blob cannot block the rest of the teardown.
func (p *Pipeline) VideoDeleted(ctx context.Context, video *database.Video) {
	if err := p.store.Delete(video.SourceKey); err != nil {
		logging.Error("Cleanup: delete source of video %s: %v", video.ID, err)
		metrics.CleanupFailures.WithLabelValues("source").Inc()
	}

	if video.ThumbnailURL != nil {
		if key, err := blob.KeyFromURL(*video.ThumbnailURL); err != nil {
			logging.Error("Cleanup: bad thumbnail url on video %s: %v", video.ID, err)
			metrics.CleanupFailures.WithLabelValues("thumbnail").Inc()
		} else if err := p.store.Delete(key); err != nil {
			logging.Error("Cleanup: delete thumbnail of video %s: %v", video.ID, err)
			metrics.CleanupFailures.WithLabelValues("thumbnail").Inc()
		}
	}

	if err := os.RemoveAll(filepath.Join(p.hlsDir, video.ID)); err != nil {
		logging.Error("Cleanup: delete stream directory of video %s: %v", video.ID, err)
		metrics.CleanupFailures.WithLabelValues("renditions").Inc()
	}

	logging.Info("Cleanup: video %s artifacts removed", video.ID)
}
