package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamhub/internal/blob"
	"streamhub/internal/database"
)

func TestVideoDeletedRemovesAllArtifacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.addVideo(t, "vid-1")

	// Stage a thumbnail and a transcoded stream tree.
	thumbKey := "thumbnails/vid-1/cover.jpg"
	if _, err := env.store.Save(thumbKey, strings.NewReader("jpeg")); err != nil {
		t.Fatalf("save thumbnail: %v", err)
	}
	url := blob.URL(thumbKey)
	v.ThumbnailURL = &url

	streamDir := filepath.Join(env.p.hlsDir, "vid-1", "720p")
	if err := os.MkdirAll(streamDir, 0o755); err != nil {
		t.Fatalf("mkdir stream dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(streamDir, "index.m3u8"), []byte("#EXTM3U"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	env.p.VideoDeleted(ctx, v)

	if _, err := env.store.Open(v.SourceKey); !os.IsNotExist(err) {
		t.Errorf("source blob survived cleanup: %v", err)
	}
	if _, err := env.store.Open(thumbKey); !os.IsNotExist(err) {
		t.Errorf("thumbnail blob survived cleanup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.p.hlsDir, "vid-1")); !os.IsNotExist(err) {
		t.Errorf("stream directory survived cleanup: %v", err)
	}
}

func TestVideoDeletedStepsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// No source blob, no thumbnail, and a bad thumbnail URL: every step
	// degrades on its own without reaching the caller.
	badURL := "/media/..%2Fescape"
	v := &database.Video{ID: "vid-x", Title: "t", SourceKey: "sources/vid-x/input.mp4", ThumbnailURL: &badURL}

	streamDir := filepath.Join(env.p.hlsDir, "vid-x")
	if err := os.MkdirAll(streamDir, 0o755); err != nil {
		t.Fatalf("mkdir stream dir: %v", err)
	}

	env.p.VideoDeleted(ctx, v)

	// The rendition tree still went away although earlier steps failed.
	if _, err := os.Stat(streamDir); !os.IsNotExist(err) {
		t.Errorf("stream directory survived cleanup: %v", err)
	}
}
