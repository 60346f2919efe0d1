package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"streamhub/internal/database"
	"streamhub/internal/logging"
	"streamhub/internal/metrics"
)

const (
	manifestContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/MP2T"

	manifestCacheControl = "public, max-age=60"
	segmentCacheControl  = "public, max-age=31536000, immutable"
)

// GetMasterManifest serves /video/{id}/master.m3u8 once the video is
// completed.
func (h *Handlers) GetMasterManifest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validPathToken(id) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	video, err := h.db.GetVideo(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		logging.Error("Handlers: load video %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if video.Status != database.StatusCompleted {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	path := filepath.Join(h.hlsDir, id, "master.m3u8")
	data, err := os.ReadFile(path)
	if err != nil {
		// Completed without a master playlist on disk is an
		// inconsistency worth surfacing, not hiding as a miss.
		logging.Error("Handlers: master playlist missing for completed video %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "stream unavailable")
		return
	}

	w.Header().Set("Content-Type", manifestContentType)
	w.Header().Set("Cache-Control", manifestCacheControl)
	w.Write(data)
}

// GetManifest serves /video/{id}/{resolution}/index.m3u8 with segment
// lines rewritten to absolute request paths. Anything short of a
// completed rendition is a plain 404.
func (h *Handlers) GetManifest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, resolution := vars["id"], vars["resolution"]

	if !h.renditionServable(r.Context(), w, id, resolution) {
		return
	}

	path := filepath.Join(h.hlsDir, id, resolution, "index.m3u8")
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Error("Handlers: manifest missing for completed rendition %s/%s: %v", id, resolution, err)
		writeJSONError(w, http.StatusInternalServerError, "stream unavailable")
		return
	}

	w.Header().Set("Content-Type", manifestContentType)
	w.Header().Set("Cache-Control", manifestCacheControl)
	w.Write(rewriteManifest(data, id, resolution))
}

// rewriteManifest points each segment line at the segment route so the
// playlist works no matter where the player fetched it from.
func rewriteManifest(data []byte, id, resolution string) []byte {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines[i] = fmt.Sprintf("/video/%s/%s/%s", id, resolution, trimmed)
	}
	return []byte(strings.Join(lines, "\n"))
}

// GetSegment serves one MPEG-TS segment with long-lived caching. Invalid
// names, traversal attempts, and unknown renditions all answer 404 so the
// response shape leaks nothing about the on-disk layout.
func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, resolution, segment := vars["id"], vars["resolution"], vars["segment"]

	if !validSegmentName(segment) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if !h.renditionServable(r.Context(), w, id, resolution) {
		return
	}

	base := filepath.Join(h.hlsDir, id, resolution)
	full := filepath.Join(base, segment)

	// Second line of defense: after symlink resolution the target must
	// still live inside the rendition directory.
	resolvedBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if resolved != resolvedBase && !strings.HasPrefix(resolved, resolvedBase+string(os.PathSeparator)) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	metrics.SegmentsServed.Inc()
	w.Header().Set("Content-Type", segmentContentType)
	w.Header().Set("Cache-Control", segmentCacheControl)
	http.ServeFile(w, r, resolved)
}

// renditionServable answers whether the rendition exists and is completed,
// writing the 404/500 response itself when not.
func (h *Handlers) renditionServable(ctx context.Context, w http.ResponseWriter, id, resolution string) bool {
	if !validPathToken(id) || !h.resolutions[resolution] {
		writeJSONError(w, http.StatusNotFound, "not found")
		return false
	}

	rendition, err := h.db.GetRendition(ctx, id, resolution)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return false
	}
	if err != nil {
		logging.Error("Handlers: load rendition %s/%s: %v", id, resolution, err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if rendition.Status != database.StatusCompleted {
		writeJSONError(w, http.StatusNotFound, "not found")
		return false
	}
	return true
}

// validSegmentName admits plain .ts file names only.
func validSegmentName(name string) bool {
	if !strings.HasSuffix(name, ".ts") || len(name) == len(".ts") {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return false
	}
	return true
}

// validPathToken rejects ids that could alter the resolved path.
func validPathToken(token string) bool {
	return token != "" && !strings.Contains(token, "..") && !strings.ContainsAny(token, "/\\")
}
