package media

import (
	"testing"
)

func TestThumbnailTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     float64
	}{
		{"long video seeks in", 300, 20},
		{"exactly at threshold", 20, 20},
		{"short video", 12, 1},
		{"very short video", 0.5, 1},
		{"unknown duration", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThumbnailTimestamp(tt.duration); got != tt.want {
				t.Errorf("ThumbnailTimestamp(%v) = %v, want %v", tt.duration, got, tt.want)
			}
		})
	}
}

func TestParseProbeOutput(t *testing.T) {
	report := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080}
		],
		"format": {"duration": "125.433000"}
	}`)

	got, err := parseProbeOutput(report)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if got.DurationSeconds != 125.433 {
		t.Errorf("DurationSeconds = %v, want 125.433", got.DurationSeconds)
	}
	if got.Width != 1920 || got.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", got.Width, got.Height)
	}
	if got.VideoCodec != "h264" {
		t.Errorf("VideoCodec = %q, want h264", got.VideoCodec)
	}
}

func TestParseProbeOutputErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "ffprobe exploded"},
		{"no video stream", `{"streams": [{"codec_type": "audio", "codec_name": "aac"}], "format": {"duration": "10"}}`},
		{"bad duration", `{"streams": [{"codec_type": "video", "width": 1, "height": 1}], "format": {"duration": "soon"}}`},
		{"empty report", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseProbeOutput([]byte(tt.data)); err == nil {
				t.Errorf("parseProbeOutput(%q) expected error, got nil", tt.data)
			}
		})
	}
}
