package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/services"
)

type GroupHandler struct {
	conversationService services.ConversationServiceInterface
}

func NewGroupHandler(conversationService services.ConversationServiceInterface) *GroupHandler {
	return &GroupHandler{conversationService: conversationService}
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type RenameGroupRequest struct {
	Name string `json:"name"`
}

type GroupMemberRequest struct {
	UserID string `json:"user_id"`
}

type GroupResponse struct {
	Group   *models.GroupWithMembers `json:"group,omitempty"`
	Message string                   `json:"message,omitempty"`
}

type ConversationListResponse struct {
	Conversations []models.ConversationSummary `json:"conversations"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	members := make([]uuid.UUID, 0, len(req.Members))
	for _, m := range req.Members {
		id, err := uuid.Parse(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member ID")
			return
		}
		members = append(members, id)
	}

	group, err := h.conversationService.CreateGroup(r.Context(), user.ID, req.Name, members)
	if errors.Is(err, services.ErrEmptyGroupName) {
		writeError(w, http.StatusBadRequest, "Group name is required")
		return
	}
	if err != nil {
		log.Printf("Error creating group: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, GroupResponse{Group: group, Message: "Group created"})
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	group, err := h.conversationService.GetGroup(r.Context(), groupID)
	if errors.Is(err, services.ErrGroupNotFound) {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		log.Printf("Error fetching group: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, GroupResponse{Group: group})
}

func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	var req RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err = h.conversationService.Rename(r.Context(), groupID, user.ID, req.Name)
	if h.writeGroupError(w, err, "renaming group") {
		return
	}

	writeJSON(w, http.StatusOK, GroupResponse{Message: "Group renamed"})
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	var req GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	err = h.conversationService.AddMember(r.Context(), groupID, user.ID, targetID)
	if h.writeGroupError(w, err, "adding group member") {
		return
	}

	writeJSON(w, http.StatusOK, GroupResponse{Message: "Member added"})
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	targetID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	err = h.conversationService.RemoveMember(r.Context(), groupID, user.ID, targetID)
	if h.writeGroupError(w, err, "removing group member") {
		return
	}

	writeJSON(w, http.StatusOK, GroupResponse{Message: "Member removed"})
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}

	err = h.conversationService.LeaveGroup(r.Context(), groupID, user.ID)
	if h.writeGroupError(w, err, "leaving group") {
		return
	}

	writeJSON(w, http.StatusOK, GroupResponse{Message: "Left group"})
}

func (h *GroupHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	summaries, err := h.conversationService.ListSummaries(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing conversations: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ConversationListResponse{Conversations: summaries})
}

// writeGroupError maps group service errors to responses. Returns true
// if an error response was written.
func (h *GroupHandler) writeGroupError(w http.ResponseWriter, err error, action string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, services.ErrGroupNotFound) {
		writeError(w, http.StatusNotFound, "Group not found")
		return true
	}
	if errors.Is(err, services.ErrForbidden) {
		writeError(w, http.StatusForbidden, "Not allowed")
		return true
	}
	if errors.Is(err, services.ErrInvalidOperation) {
		writeError(w, http.StatusBadRequest, "Invalid operation")
		return true
	}
	if errors.Is(err, services.ErrEmptyGroupName) {
		writeError(w, http.StatusBadRequest, "Group name is required")
		return true
	}
	log.Printf("Error %s: %v", action, err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
	return true
}
