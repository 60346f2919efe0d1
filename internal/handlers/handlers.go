package handlers

import (
	"streamhub/internal/blob"
	"streamhub/internal/database"
	"streamhub/internal/pipeline"
	"streamhub/internal/transcoder"
)

// Handlers carries the shared dependencies of every HTTP handler.
type Handlers struct {
	db       *database.Database
	store    *blob.Store
	pipeline *pipeline.Pipeline
	hlsDir   string

	maxUploadBytes int64
	resolutions    map[string]bool
}

// New builds the handler set. hlsDir is the rendition output root;
// maxUploadBytes bounds ingest request bodies.
func New(db *database.Database, store *blob.Store, p *pipeline.Pipeline, hlsDir string, maxUploadBytes int64) *Handlers {
	resolutions := make(map[string]bool)
	for _, name := range transcoder.LadderResolutions(p.Ladder()) {
		resolutions[name] = true
	}
	return &Handlers{
		db:             db,
		store:          store,
		pipeline:       p,
		hlsDir:         hlsDir,
		maxUploadBytes: maxUploadBytes,
		resolutions:    resolutions,
	}
}
