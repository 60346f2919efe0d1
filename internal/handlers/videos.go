package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"streamhub/internal/database"
	"streamhub/internal/logging"
)

// CreateVideo handles POST /api/videos: store the uploaded source, insert
// the row in pending state, and kick the pipeline off.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	id := uuid.NewString()
	key := fmt.Sprintf("sources/%s/%s", id, filename)

	size, err := h.store.Save(key, file)
	if err != nil {
		logging.Error("Handlers: store upload: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	logging.Info("Handlers: received %s (%d bytes) as video %s", filename, size, id)

	video := &database.Video{
		ID:          id,
		Title:       title,
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		SourceKey:   key,
	}
	if err := h.db.CreateVideo(r.Context(), video); err != nil {
		logging.Error("Handlers: create video row: %v", err)
		h.store.Delete(key)
		writeJSONError(w, http.StatusInternalServerError, "could not create video")
		return
	}

	if err := h.pipeline.VideoCreated(r.Context(), id); err != nil {
		// The row exists; processing just has not been queued. Surface
		// the failure instead of pretending the pipeline is running.
		logging.Error("Handlers: start pipeline for %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "could not start processing")
		return
	}

	video, err = h.db.GetVideo(r.Context(), id)
	if err != nil {
		logging.Error("Handlers: reload video %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

// DeleteVideo handles DELETE /api/videos/{id}: remove the row (renditions
// cascade) and tear the artifacts down.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

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

	if err := h.db.DeleteVideo(r.Context(), id); err != nil && !errors.Is(err, database.ErrNotFound) {
		logging.Error("Handlers: delete video %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "could not delete video")
		return
	}

	h.pipeline.VideoDeleted(r.Context(), video)
	w.WriteHeader(http.StatusNoContent)
}

// sanitizeFilename keeps the upload's base name and nothing else.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "upload.bin"
	}
	return name
}
