package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"strings"

	_ "image/png"

	"github.com/disintegration/imaging"

	"streamhub/internal/logging"
)

const (
	// thumbnailWidth is the output width; height follows the aspect ratio.
	thumbnailWidth = 640
	// seekThreshold is the minimum duration for seeking into the video
	// instead of grabbing a frame near the start.
	seekThreshold = 20.0

	jpegQuality = 80
)

// ThumbnailTimestamp picks the frame extraction point for a video of the
// given duration: 20 seconds in for longer videos, 1 second otherwise.
// Durations may be zero when the probe failed.
func ThumbnailTimestamp(durationSeconds float64) float64 {
	if durationSeconds >= seekThreshold {
		return seekThreshold
	}
	return 1
}

// Thumbnailer extracts a representative JPEG frame from a video file.
// Implemented by FFMpegThumbnailer; the pipeline takes the interface so
// tests can stub it.
type Thumbnailer interface {
	ExtractThumbnail(ctx context.Context, path string, atSeconds float64) ([]byte, error)
}

// FFMpegThumbnailer shells out to ffmpeg for frame extraction and scales
// the frame in-process.
type FFMpegThumbnailer struct{}

// ExtractThumbnail seeks to atSeconds, grabs one frame as PNG over a pipe,
// scales it to the thumbnail width, and returns it JPEG-encoded.
func (FFMpegThumbnailer) ExtractThumbnail(ctx context.Context, path string, atSeconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.2f", atSeconds),
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode extracted frame: %w", err)
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	logging.Debug("Thumbnail: %s at %.2fs, %d bytes", path, atSeconds, buf.Len())
	return buf.Bytes(), nil
}
