package database

import "time"

// Status is the processing state of a video or rendition.
type Status string

const (
	// StatusPending means processing has not started yet.
	StatusPending Status = "pending"
	// StatusProcessing means a pipeline job is working on the entity.
	StatusProcessing Status = "processing"
	// StatusCompleted means processing finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means processing finished with a terminal error.
	StatusFailed Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Video is an uploaded source video tracked through the pipeline.
// DurationSeconds and ThumbnailURL stay nil until the probe and the
// thumbnail job succeed; neither is required for playback.
type Video struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	SourceKey       string    `json:"-"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty"`
	ThumbnailURL    *string   `json:"thumbnailUrl,omitempty"`
	Status          Status    `json:"processingStatus"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Rendition is one resolution/bitrate variant of a video, packaged as its
// own segmented stream. ManifestPath is set only while Status is completed.
type Rendition struct {
	ID           int64     `json:"id"`
	VideoID      string    `json:"videoId"`
	Resolution   string    `json:"resolution"`
	BitrateKbps  int       `json:"bitrateKbps"`
	ManifestPath *string   `json:"-"`
	Status       Status    `json:"processingStatus"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
