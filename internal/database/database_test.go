package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestVideo(t *testing.T, db *Database, id string) *Video {
	t.Helper()
	v := &Video{
		ID:        id,
		Title:     "Test Video",
		Category:  "testing",
		SourceKey: "sources/" + id + "/input.mp4",
	}
	if err := db.CreateVideo(context.Background(), v); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}
	return v
}

func TestStatusValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusProcessing, true},
		{StatusCompleted, true},
		{StatusFailed, true},
		{Status(""), false},
		{Status("done"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestCreateAndGetVideo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestVideo(t, db, "vid-1")

	got, err := db.GetVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Title != "Test Video" {
		t.Errorf("Title = %q, want %q", got.Title, "Test Video")
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, StatusPending)
	}
	if got.DurationSeconds != nil {
		t.Errorf("DurationSeconds = %v, want nil", *got.DurationSeconds)
	}
	if got.ThumbnailURL != nil {
		t.Errorf("ThumbnailURL = %v, want nil", *got.ThumbnailURL)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestCreateVideoDuplicateID(t *testing.T) {
	db := newTestDB(t)

	createTestVideo(t, db, "vid-1")
	err := db.CreateVideo(context.Background(), &Video{ID: "vid-1", Title: "again"})
	if err == nil {
		t.Fatal("CreateVideo() with duplicate id expected error, got nil")
	}
}

func TestGetVideoNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetVideo(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVideo() error = %v, want ErrNotFound", err)
	}
}

func TestSetVideoStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	if err := db.SetVideoStatus(ctx, "vid-1", StatusProcessing); err != nil {
		t.Fatalf("SetVideoStatus() error = %v", err)
	}
	got, err := db.GetVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Status != StatusProcessing {
		t.Errorf("Status = %q, want %q", got.Status, StatusProcessing)
	}

	if err := db.SetVideoStatus(ctx, "missing", StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetVideoStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSetVideoDurationAndThumbnail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	if err := db.SetVideoDuration(ctx, "vid-1", 42.5); err != nil {
		t.Fatalf("SetVideoDuration() error = %v", err)
	}
	if err := db.SetVideoThumbnail(ctx, "vid-1", "/media/thumbnails%2Fvid-1%2Fcover.jpg"); err != nil {
		t.Fatalf("SetVideoThumbnail() error = %v", err)
	}

	got, err := db.GetVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 42.5 {
		t.Errorf("DurationSeconds = %v, want 42.5", got.DurationSeconds)
	}
	if got.ThumbnailURL == nil || *got.ThumbnailURL != "/media/thumbnails%2Fvid-1%2Fcover.jpg" {
		t.Errorf("ThumbnailURL = %v, want thumbnail url", got.ThumbnailURL)
	}
}

func TestDeleteVideo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestVideo(t, db, "vid-1")

	if err := db.DeleteVideo(ctx, "vid-1"); err != nil {
		t.Fatalf("DeleteVideo() error = %v", err)
	}
	if _, err := db.GetVideo(ctx, "vid-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVideo() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteVideo(ctx, "vid-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteVideo() again error = %v, want ErrNotFound", err)
	}
}
