package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/services"
)

type MediaHandler struct {
	mediaService services.MediaServiceInterface
}

func NewMediaHandler(mediaService services.MediaServiceInterface) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

type UploadResponse struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
}

// Upload accepts a multipart image under the "file" field and stores it at
// a caller-scoped path. The same path may be uploaded again; the new blob
// replaces the old one.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer file.Close()

	scope := r.FormValue("scope")
	if scope != "avatar" && scope != "message" {
		writeError(w, http.StatusBadRequest, "Invalid upload scope")
		return
	}

	var path string
	if scope == "avatar" {
		// Avatar uploads overwrite the previous avatar for the user.
		path = fmt.Sprintf("avatars/%s", user.ID)
	} else {
		path = fmt.Sprintf("messages/%s/%s-%s", user.ID, uuid.NewString(), header.Filename)
	}

	reference, err := h.mediaService.Put(path, file)
	if errors.Is(err, services.ErrMediaTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	if errors.Is(err, services.ErrUnsupportedMedia) {
		writeError(w, http.StatusUnsupportedMediaType, "Only image uploads are supported")
		return
	}
	if errors.Is(err, services.ErrInvalidMediaPath) {
		writeError(w, http.StatusBadRequest, "Invalid upload path")
		return
	}
	if err != nil {
		log.Printf("Error storing media: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Reference: reference,
		URL:       h.mediaService.Resolve(reference),
	})
}

// Serve streams a stored blob. References are public once issued, so no
// auth is required here.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("path")

	blob, err := h.mediaService.Open(reference)
	if errors.Is(err, services.ErrMediaNotFound) {
		writeError(w, http.StatusNotFound, "Media not found")
		return
	}
	if errors.Is(err, services.ErrInvalidMediaPath) {
		writeError(w, http.StatusBadRequest, "Invalid media path")
		return
	}
	if err != nil {
		log.Printf("Error opening media: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer blob.Close()

	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, blob); err != nil {
		log.Printf("Error streaming media: %v", err)
	}
}
