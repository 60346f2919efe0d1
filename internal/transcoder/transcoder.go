package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"streamhub/internal/logging"
	"streamhub/internal/metrics"
)

const (
	segmentSeconds  = 4
	playlistName    = "index.m3u8"
	segmentPattern  = "segment%05d.ts"
	audioBitrate    = "128k"
	audioSampleRate = "48000"
)

// EncodeError reports a failed ffmpeg run with enough context to diagnose
// it from logs alone.
type EncodeError struct {
	Resolution string
	Args       []string
	Stderr     string
	Err        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v: %s", e.Resolution, e.Err, e.Stderr)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encoder produces one rendition of a source file. Implemented by
// FFMpegEncoder; the pipeline takes the interface so tests can stub it.
type Encoder interface {
	Encode(ctx context.Context, sourcePath string, spec RenditionSpec, outDir string) (*EncodeResult, error)
}

// EncodeResult reports what a successful encode left on disk.
type EncodeResult struct {
	// ManifestPath is the absolute path of the media playlist.
	ManifestPath string
	// Segments are the segment file names in the rendition directory.
	Segments []string
}

// FFMpegEncoder shells out to the ffmpeg binary.
type FFMpegEncoder struct{}

// Encode transcodes sourcePath into a segmented stream for spec under
// outDir: index.m3u8 plus numbered .ts segments. The playlist and at
// least one segment must exist afterwards or the encode fails.
func (FFMpegEncoder) Encode(ctx context.Context, sourcePath string, spec RenditionSpec, outDir string) (*EncodeResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create rendition directory: %w", err)
	}

	gop := segmentSeconds * 30
	args := []string{
		"-y",
		"-i", sourcePath,
		"-vf", fmt.Sprintf("scale=-2:%d", spec.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", fmt.Sprintf("%dk", spec.BitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", spec.BitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", spec.BitrateKbps*2),
		"-g", fmt.Sprintf("%d", gop),
		"-keyint_min", fmt.Sprintf("%d", gop),
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-ac", "2",
		"-b:a", audioBitrate,
		"-ar", audioSampleRate,
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outDir, segmentPattern),
		filepath.Join(outDir, playlistName),
	}

	logging.Debug("Encode: %s -> %s (%s, %dk)", sourcePath, outDir, spec.Name, spec.BitrateKbps)
	start := time.Now()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.EncodesTotal.WithLabelValues(spec.Name, "error").Inc()
		return nil, &EncodeError{
			Resolution: spec.Name,
			Args:       args,
			Stderr:     strings.TrimSpace(stderr.String()),
			Err:        err,
		}
	}

	segments, err := verifyOutput(outDir)
	if err != nil {
		metrics.EncodesTotal.WithLabelValues(spec.Name, "error").Inc()
		return nil, &EncodeError{
			Resolution: spec.Name,
			Args:       args,
			Stderr:     strings.TrimSpace(stderr.String()),
			Err:        err,
		}
	}

	metrics.EncodesTotal.WithLabelValues(spec.Name, "success").Inc()
	metrics.EncodeDuration.WithLabelValues(spec.Name).Observe(time.Since(start).Seconds())
	return &EncodeResult{
		ManifestPath: filepath.Join(outDir, playlistName),
		Segments:     segments,
	}, nil
}

// verifyOutput guards against ffmpeg exiting zero without producing a
// playable stream. Returns the segment file names it found.
func verifyOutput(outDir string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(outDir, playlistName)); err != nil {
		return nil, fmt.Errorf("playlist missing after encode: %w", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read rendition directory: %w", err)
	}
	var segments []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".ts") {
			segments = append(segments, entry.Name())
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments produced in %s", outDir)
	}
	return segments, nil
}
