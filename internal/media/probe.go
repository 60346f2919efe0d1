package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"streamhub/internal/logging"
)

// ProbeResult describes a source file as reported by ffprobe.
type ProbeResult struct {
	DurationSeconds float64
	Width           int
	Height          int
	VideoCodec      string
}

// Prober inspects media files. Implemented by FFProbe; the pipeline takes
// the interface so tests can stub it.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// FFProbe shells out to the ffprobe binary.
type FFProbe struct{}

// Probe runs ffprobe on path and parses its JSON report.
func (FFProbe) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	result, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	logging.Debug("Probe: %s duration=%.2fs %dx%d codec=%s",
		path, result.DurationSeconds, result.Width, result.Height, result.VideoCodec)
	return result, nil
}

type probeReport struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var report probeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}

	result := &ProbeResult{}
	if report.Format.Duration != "" {
		d, err := strconv.ParseFloat(report.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", report.Format.Duration, err)
		}
		result.DurationSeconds = d
	}

	for _, stream := range report.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			result.VideoCodec = stream.CodecName
			break
		}
	}
	if result.Width == 0 || result.Height == 0 {
		return nil, fmt.Errorf("no video stream found")
	}
	return result, nil
}
