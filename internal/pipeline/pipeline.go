package pipeline

import (
	"context"
	"fmt"

	"streamhub/internal/blob"
	"streamhub/internal/database"
	"streamhub/internal/logging"
	"streamhub/internal/media"
	"streamhub/internal/queue"
	"streamhub/internal/transcoder"
)

// Job type names registered with the queue.
const (
	JobTypeTranscode = "transcode"
	JobTypeThumbnail = "thumbnail"
)

type jobPayload struct {
	VideoID string `json:"videoId"`
}

// Pipeline owns the processing flow of a video. Construct with New and
// call RegisterHandlers before the queue workers start.
type Pipeline struct {
	db     *database.Database
	queue  *queue.Queue
	store  *blob.Store
	hlsDir string

	prober  media.Prober
	thumbs  media.Thumbnailer
	encoder transcoder.Encoder
	ladder  []transcoder.RenditionSpec
}

// New builds a Pipeline wired to the real ffmpeg-backed implementations
// and the default rendition ladder. hlsDir is the root under which each
// video gets its stream directory.
func New(db *database.Database, q *queue.Queue, store *blob.Store, hlsDir string) *Pipeline {
	return &Pipeline{
		db:      db,
		queue:   q,
		store:   store,
		hlsDir:  hlsDir,
		prober:  media.FFProbe{},
		thumbs:  media.FFMpegThumbnailer{},
		encoder: transcoder.FFMpegEncoder{},
		ladder:  transcoder.DefaultLadder,
	}
}

// Ladder returns the rendition ladder the pipeline encodes with.
func (p *Pipeline) Ladder() []transcoder.RenditionSpec {
	return p.ladder
}

// RegisterHandlers binds the pipeline's job handlers to the queue.
func (p *Pipeline) RegisterHandlers() {
	p.queue.Register(JobTypeTranscode, p.handleTranscode)
	p.queue.Register(JobTypeThumbnail, p.handleThumbnail)
}

// VideoCreated kicks off processing for a freshly inserted video: probe
// the source for its duration, then enqueue the thumbnail and transcode
// jobs. A failed probe is logged and leaves the duration unset; it never
// blocks the pipeline.
func (p *Pipeline) VideoCreated(ctx context.Context, videoID string) error {
	video, err := p.db.GetVideo(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video %s: %w", videoID, err)
	}

	sourcePath, err := p.store.Path(video.SourceKey)
	if err != nil {
		return fmt.Errorf("resolve source for %s: %w", videoID, err)
	}

	if probe, probeErr := p.prober.Probe(ctx, sourcePath); probeErr != nil {
		logging.Warn("Pipeline: probe failed for video %s, duration unknown: %v", videoID, probeErr)
	} else if err := p.db.SetVideoDuration(ctx, videoID, probe.DurationSeconds); err != nil {
		return fmt.Errorf("persist duration for %s: %w", videoID, err)
	}

	payload := jobPayload{VideoID: videoID}
	if _, err := p.queue.Enqueue(ctx, JobTypeThumbnail, payload); err != nil {
		return fmt.Errorf("enqueue thumbnail job for %s: %w", videoID, err)
	}
	if _, err := p.queue.Enqueue(ctx, JobTypeTranscode, payload); err != nil {
		return fmt.Errorf("enqueue transcode job for %s: %w", videoID, err)
	}

	logging.Info("Pipeline: video %s queued for processing", videoID)
	return nil
}
