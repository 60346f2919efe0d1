package database

import (
	"context"
	"errors"
	"testing"
)

func TestUpsertRendition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	r, err := db.UpsertRendition(ctx, "vid-1", "720p", 2400)
	if err != nil {
		t.Fatalf("UpsertRendition() error = %v", err)
	}
	if r.Status != StatusProcessing {
		t.Errorf("Status = %q, want %q", r.Status, StatusProcessing)
	}
	if r.BitrateKbps != 2400 {
		t.Errorf("BitrateKbps = %d, want 2400", r.BitrateKbps)
	}

	// A second upsert for the same (video, resolution) must reuse the row
	// and reset it rather than create a duplicate.
	if err := db.CompleteRendition(ctx, r.ID, "vid-1/720p/index.m3u8"); err != nil {
		t.Fatalf("CompleteRendition() error = %v", err)
	}
	again, err := db.UpsertRendition(ctx, "vid-1", "720p", 2400)
	if err != nil {
		t.Fatalf("UpsertRendition() again error = %v", err)
	}
	if again.ID != r.ID {
		t.Errorf("second upsert created new row: id %d, want %d", again.ID, r.ID)
	}
	if again.Status != StatusProcessing {
		t.Errorf("Status after reset = %q, want %q", again.Status, StatusProcessing)
	}
	if again.ManifestPath != nil {
		t.Errorf("ManifestPath after reset = %q, want nil", *again.ManifestPath)
	}

	all, err := db.ListRenditions(ctx, "vid-1")
	if err != nil {
		t.Fatalf("ListRenditions() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListRenditions() returned %d rows, want 1", len(all))
	}
}

func TestUpsertRenditionUnknownVideo(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpsertRendition(context.Background(), "missing", "720p", 2400)
	if err == nil {
		t.Fatal("UpsertRendition() for unknown video expected error, got nil")
	}
}

func TestGetRenditionNotFound(t *testing.T) {
	db := newTestDB(t)
	createTestVideo(t, db, "vid-1")

	_, err := db.GetRendition(context.Background(), "vid-1", "720p")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRendition() error = %v, want ErrNotFound", err)
	}
}

func TestCompleteRendition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	r, err := db.UpsertRendition(ctx, "vid-1", "1080p", 5000)
	if err != nil {
		t.Fatalf("UpsertRendition() error = %v", err)
	}
	if err := db.CompleteRendition(ctx, r.ID, "vid-1/1080p/index.m3u8"); err != nil {
		t.Fatalf("CompleteRendition() error = %v", err)
	}

	got, err := db.GetRendition(ctx, "vid-1", "1080p")
	if err != nil {
		t.Fatalf("GetRendition() error = %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, StatusCompleted)
	}
	if got.ManifestPath == nil || *got.ManifestPath != "vid-1/1080p/index.m3u8" {
		t.Errorf("ManifestPath = %v, want vid-1/1080p/index.m3u8", got.ManifestPath)
	}

	if err := db.CompleteRendition(ctx, 9999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteRendition(9999) error = %v, want ErrNotFound", err)
	}
}

func TestSetRenditionStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	r, err := db.UpsertRendition(ctx, "vid-1", "360p", 800)
	if err != nil {
		t.Fatalf("UpsertRendition() error = %v", err)
	}
	if err := db.CompleteRendition(ctx, r.ID, "vid-1/360p/index.m3u8"); err != nil {
		t.Fatalf("CompleteRendition() error = %v", err)
	}

	// Moving away from completed must clear the manifest path.
	if err := db.SetRenditionStatus(ctx, r.ID, StatusFailed); err != nil {
		t.Fatalf("SetRenditionStatus() error = %v", err)
	}
	got, err := db.GetRendition(ctx, "vid-1", "360p")
	if err != nil {
		t.Fatalf("GetRendition() error = %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, StatusFailed)
	}
	if got.ManifestPath != nil {
		t.Errorf("ManifestPath = %q, want nil", *got.ManifestPath)
	}

	if err := db.SetRenditionStatus(ctx, r.ID, StatusCompleted); err == nil {
		t.Error("SetRenditionStatus(completed) expected error, got nil")
	}
}

func TestDeleteVideoCascadesRenditions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	for _, res := range []struct {
		name    string
		bitrate int
	}{
		{"360p", 800},
		{"720p", 2400},
		{"1080p", 5000},
	} {
		if _, err := db.UpsertRendition(ctx, "vid-1", res.name, res.bitrate); err != nil {
			t.Fatalf("UpsertRendition(%s) error = %v", res.name, err)
		}
	}

	if err := db.DeleteVideo(ctx, "vid-1"); err != nil {
		t.Fatalf("DeleteVideo() error = %v", err)
	}

	left, err := db.ListRenditions(ctx, "vid-1")
	if err != nil {
		t.Fatalf("ListRenditions() error = %v", err)
	}
	if len(left) != 0 {
		t.Errorf("renditions survived video delete: %d rows", len(left))
	}
}

func TestListRenditionsOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	for _, res := range []string{"360p", "720p", "1080p"} {
		if _, err := db.UpsertRendition(ctx, "vid-1", res, 1000); err != nil {
			t.Fatalf("UpsertRendition(%s) error = %v", res, err)
		}
	}

	all, err := db.ListRenditions(ctx, "vid-1")
	if err != nil {
		t.Fatalf("ListRenditions() error = %v", err)
	}
	want := []string{"360p", "720p", "1080p"}
	if len(all) != len(want) {
		t.Fatalf("ListRenditions() returned %d rows, want %d", len(all), len(want))
	}
	for i, r := range all {
		if r.Resolution != want[i] {
			t.Errorf("rendition[%d] = %q, want %q", i, r.Resolution, want[i])
		}
	}
}
