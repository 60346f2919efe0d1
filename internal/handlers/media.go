package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"streamhub/internal/blob"
)

// GetMedia serves stored blobs read-only under /media/{key}, primarily so
// persisted thumbnail URLs resolve. The key arrives as one percent-escaped
// path element and must validate as a blob key.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	escaped := strings.TrimPrefix(r.URL.EscapedPath(), "/media/")
	key, err := url.PathUnescape(escaped)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err := blob.ValidateKey(key); err != nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	path, err := h.store.Path(key)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}
