package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/services"
)

func TestMessageHandler_Send_Success(t *testing.T) {
	caller := testUser(uuid.New())
	convID := "conv_a"
	msgID := uuid.New()
	messages := &mockMessageService{
		SendFunc: func(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error) {
			if conversationID != convID || sender != caller.ID {
				t.Fatalf("unexpected args: %q %v", conversationID, sender)
			}
			if params.Text != "hello" || params.ImageURL != nil {
				t.Fatalf("unexpected params: %+v", params)
			}
			return &models.Message{ID: msgID, ConversationID: conversationID, Text: params.Text}, nil
		},
	}
	h := NewMessageHandler(messages)

	req := authedRequest(t, http.MethodPost, "/api/conversations/"+convID+"/messages", caller,
		SendMessageRequest{Text: "hello"})
	req.SetPathValue("id", convID)
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp MessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message == nil || resp.Message.ID != msgID {
		t.Fatalf("unexpected message: %+v", resp.Message)
	}
}

func TestMessageHandler_Send_ImageOnly(t *testing.T) {
	caller := testUser(uuid.New())
	messages := &mockMessageService{
		SendFunc: func(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error) {
			if params.ImageURL == nil || *params.ImageURL != "messages/pic.png" {
				t.Fatalf("expected image ref, got %+v", params)
			}
			return &models.Message{ID: uuid.New(), Kind: models.MessageKindImage}, nil
		},
	}
	h := NewMessageHandler(messages)

	req := authedRequest(t, http.MethodPost, "/api/conversations/c/messages", caller,
		SendMessageRequest{Image: "messages/pic.png"})
	req.SetPathValue("id", "c")
	rec := httptest.NewRecorder()
	h.Send(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestMessageHandler_Send_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"empty message", services.ErrEmptyMessage, http.StatusBadRequest},
		{"missing conversation", services.ErrConversationNotFound, http.StatusNotFound},
		{"outsider", services.ErrNotParticipant, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := &mockMessageService{
				SendFunc: func(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error) {
					return nil, tt.serviceErr
				},
			}
			h := NewMessageHandler(messages)

			req := authedRequest(t, http.MethodPost, "/api/conversations/c/messages", testUser(uuid.New()),
				SendMessageRequest{Text: "hi"})
			req.SetPathValue("id", "c")
			rec := httptest.NewRecorder()
			h.Send(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestMessageHandler_History(t *testing.T) {
	caller := testUser(uuid.New())
	messages := &mockMessageService{
		HistoryFunc: func(ctx context.Context, conversationID string, viewer uuid.UUID) ([]models.Message, error) {
			return []models.Message{
				{ID: uuid.New(), Text: "first"},
				{ID: uuid.New(), Text: "second"},
			}, nil
		},
	}
	h := NewMessageHandler(messages)

	req := authedRequest(t, http.MethodGet, "/api/conversations/c/messages", caller, nil)
	req.SetPathValue("id", "c")
	rec := httptest.NewRecorder()
	h.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("unexpected messages: %+v", resp.Messages)
	}
}

func TestMessageHandler_MarkSeen(t *testing.T) {
	caller := testUser(uuid.New())
	messageID := uuid.New()
	marked := false
	messages := &mockMessageService{
		MarkSeenFunc: func(ctx context.Context, conversationID string, id, viewer uuid.UUID) error {
			if id != messageID || viewer != caller.ID {
				t.Fatalf("unexpected args: %v %v", id, viewer)
			}
			marked = true
			return nil
		},
	}
	h := NewMessageHandler(messages)

	req := authedRequest(t, http.MethodPut,
		"/api/conversations/c/messages/"+messageID.String()+"/seen", caller, nil)
	req.SetPathValue("id", "c")
	req.SetPathValue("messageId", messageID.String())
	rec := httptest.NewRecorder()
	h.MarkSeen(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !marked {
		t.Fatal("expected MarkSeen call")
	}
}

func TestMessageHandler_MarkSeen_InvalidMessageID(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	req := authedRequest(t, http.MethodPut, "/api/conversations/c/messages/nope/seen", testUser(uuid.New()), nil)
	req.SetPathValue("id", "c")
	req.SetPathValue("messageId", "nope")
	rec := httptest.NewRecorder()
	h.MarkSeen(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
