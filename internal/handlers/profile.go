package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/services"
)

type ProfileHandler struct {
	userService services.UserServiceInterface
}

func NewProfileHandler(userService services.UserServiceInterface) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
}

// Get serves any user's public profile; the id doubles as the friend code, so
// looking up an arbitrary id is expected.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), id)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("Error loading profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Update applies a partial merge to the caller's own profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		if trimmed == "" {
			writeError(w, http.StatusBadRequest, "Display name cannot be empty")
			return
		}
		if len(trimmed) > 100 {
			writeError(w, http.StatusBadRequest, "Display name is too long")
			return
		}
		req.DisplayName = &trimmed
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, models.UpdateProfileParams{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("Error updating profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: updated})
}
