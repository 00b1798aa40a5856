package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/services"
	"github.com/AzimPial/Chat-Us/internal/testutil"
)

func TestProfileHandler_Get_Success(t *testing.T) {
	profileID := uuid.New()
	name := "Bob"
	users := &mockUserService{
		GetProfileFunc: func(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
			if id != profileID {
				t.Fatalf("unexpected lookup id %s", id)
			}
			return &models.Profile{ID: profileID, DisplayName: &name}, nil
		},
	}
	h := NewProfileHandler(users)

	req := authedRequest(t, http.MethodGet, "/api/profiles/"+profileID.String(), testUser(uuid.New()), nil)
	req.SetPathValue("id", profileID.String())
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	if body["id"] != profileID.String() {
		t.Errorf("expected profile id %s, got %v", profileID, body["id"])
	}
	if body["display_name"] != "Bob" {
		t.Errorf("expected display name Bob, got %v", body["display_name"])
	}
}

func TestProfileHandler_Get_InvalidID(t *testing.T) {
	h := NewProfileHandler(&mockUserService{})

	req := authedRequest(t, http.MethodGet, "/api/profiles/not-a-uuid", testUser(uuid.New()), nil)
	req.SetPathValue("id", "not-a-uuid")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestProfileHandler_Get_NotFound(t *testing.T) {
	users := &mockUserService{
		GetProfileFunc: func(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
			return nil, services.ErrUserNotFound
		},
	}
	h := NewProfileHandler(users)

	unknown := uuid.New()
	req := authedRequest(t, http.MethodGet, "/api/profiles/"+unknown.String(), testUser(uuid.New()), nil)
	req.SetPathValue("id", unknown.String())
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusNotFound)
}

func TestProfileHandler_Update_Success(t *testing.T) {
	userID := uuid.New()
	user := testUser(userID)
	users := &mockUserService{
		UpdateProfileFunc: func(ctx context.Context, id uuid.UUID, params models.UpdateProfileParams) (*models.User, error) {
			if id != userID {
				t.Fatalf("expected caller's own id, got %s", id)
			}
			if params.DisplayName == nil || *params.DisplayName != "New Name" {
				t.Fatalf("expected trimmed display name, got %v", params.DisplayName)
			}
			if params.PhotoURL != nil {
				t.Fatalf("expected photo url untouched, got %v", params.PhotoURL)
			}
			updated := *user
			updated.DisplayName = params.DisplayName
			return &updated, nil
		},
	}
	h := NewProfileHandler(users)

	req := authedRequest(t, http.MethodPut, "/api/profile", user, map[string]any{
		"display_name": "  New Name  ",
	})
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertContains(t, rr.Body.String(), "New Name", "response body")
}

func TestProfileHandler_Update_EmptyDisplayName(t *testing.T) {
	h := NewProfileHandler(&mockUserService{})

	req := authedRequest(t, http.MethodPut, "/api/profile", testUser(uuid.New()), map[string]any{
		"display_name": "   ",
	})
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestProfileHandler_Update_RequiresAuth(t *testing.T) {
	h := NewProfileHandler(&mockUserService{})

	req := authedRequest(t, http.MethodPut, "/api/profile", nil, map[string]any{
		"display_name": "Name",
	})
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
}
