// Package pipeline drives a video from upload to playable stream.
//
// The ingest handler calls VideoCreated after the row commits, which
// probes the source and enqueues the thumbnail and transcode jobs. The
// job handlers run on queue workers: the transcode orchestrator walks the
// rendition ladder with per-rendition failure isolation, the thumbnail
// job captures and stores a poster frame. VideoDeleted tears a video's
// artifacts down with the same isolation between steps.
package pipeline
