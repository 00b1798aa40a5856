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

type MessageHandler struct {
	messageService services.MessageServiceInterface
}

func NewMessageHandler(messageService services.MessageServiceInterface) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type MessageResponse struct {
	Message *models.Message `json:"message,omitempty"`
	Status  string          `json:"status,omitempty"`
}

type HistoryResponse struct {
	Messages []models.Message `json:"messages"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID := r.PathValue("id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := models.SendMessageParams{Text: req.Text}
	if req.Image != "" {
		params.ImageURL = &req.Image
	}

	msg, err := h.messageService.Send(r.Context(), conversationID, user.ID, params)
	if errors.Is(err, services.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "Message must have text or an image")
		return
	}
	if errors.Is(err, services.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if errors.Is(err, services.ErrNotParticipant) {
		writeError(w, http.StatusForbidden, "Not a participant in this conversation")
		return
	}
	if err != nil {
		log.Printf("Error sending message: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID := r.PathValue("id")

	messages, err := h.messageService.History(r.Context(), conversationID, user.ID)
	if errors.Is(err, services.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if errors.Is(err, services.ErrNotParticipant) {
		writeError(w, http.StatusForbidden, "Not a participant in this conversation")
		return
	}
	if err != nil {
		log.Printf("Error fetching message history: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Messages: messages})
}

func (h *MessageHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conversationID := r.PathValue("id")

	messageID, err := uuid.Parse(r.PathValue("messageId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	err = h.messageService.MarkSeen(r.Context(), conversationID, messageID, user.ID)
	if errors.Is(err, services.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if errors.Is(err, services.ErrNotParticipant) {
		writeError(w, http.StatusForbidden, "Not a participant in this conversation")
		return
	}
	if err != nil {
		log.Printf("Error marking message seen: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Status: "ok"})
}
