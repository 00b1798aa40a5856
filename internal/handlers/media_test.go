package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/services"
)

func multipartUpload(t *testing.T, scope, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("scope", scope); err != nil {
		t.Fatalf("writing scope field: %v", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing file part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestMediaHandler_Upload_Avatar(t *testing.T) {
	caller := testUser(uuid.New())
	var gotPath string
	media := &mockMediaService{
		PutFunc: func(path string, r io.Reader) (string, error) {
			gotPath = path
			return path, nil
		},
	}
	h := NewMediaHandler(media)

	req := multipartUpload(t, "avatar", "me.png", []byte("fake image bytes"))
	req = req.WithContext(SetUserInContext(req.Context(), caller))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	// Avatar path is stable per user so re-uploads overwrite.
	if gotPath != "avatars/"+caller.ID.String() {
		t.Fatalf("unexpected path: %q", gotPath)
	}
}

func TestMediaHandler_Upload_MessageScopeUniquePath(t *testing.T) {
	caller := testUser(uuid.New())
	paths := []string{}
	media := &mockMediaService{
		PutFunc: func(path string, r io.Reader) (string, error) {
			paths = append(paths, path)
			return path, nil
		},
	}
	h := NewMediaHandler(media)

	for i := 0; i < 2; i++ {
		req := multipartUpload(t, "message", "pic.png", []byte("fake image bytes"))
		req = req.WithContext(SetUserInContext(req.Context(), caller))
		rec := httptest.NewRecorder()
		h.Upload(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	}

	if len(paths) != 2 || paths[0] == paths[1] {
		t.Fatalf("message uploads must not collide: %v", paths)
	}
	if !strings.HasPrefix(paths[0], "messages/"+caller.ID.String()+"/") {
		t.Fatalf("unexpected path: %q", paths[0])
	}
}

func TestMediaHandler_Upload_InvalidScope(t *testing.T) {
	h := NewMediaHandler(&mockMediaService{})

	req := multipartUpload(t, "banner", "pic.png", []byte("x"))
	req = req.WithContext(SetUserInContext(req.Context(), testUser(uuid.New())))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMediaHandler_Upload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"too large", services.ErrMediaTooLarge, http.StatusRequestEntityTooLarge},
		{"not an image", services.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{"bad path", services.ErrInvalidMediaPath, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := &mockMediaService{
				PutFunc: func(path string, r io.Reader) (string, error) {
					return "", tt.serviceErr
				},
			}
			h := NewMediaHandler(media)

			req := multipartUpload(t, "avatar", "pic.png", []byte("x"))
			req = req.WithContext(SetUserInContext(req.Context(), testUser(uuid.New())))
			rec := httptest.NewRecorder()
			h.Upload(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestMediaHandler_Serve(t *testing.T) {
	media := &mockMediaService{
		OpenFunc: func(reference string) (io.ReadCloser, error) {
			if reference != "avatars/alice" {
				return nil, services.ErrMediaNotFound
			}
			return io.NopCloser(strings.NewReader("blob bytes")), nil
		},
	}
	h := NewMediaHandler(media)

	req := httptest.NewRequest(http.MethodGet, "/media/avatars/alice", nil)
	req.SetPathValue("path", "avatars/alice")
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "blob bytes" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/media/avatars/missing", nil)
	req.SetPathValue("path", "avatars/missing")
	rec = httptest.NewRecorder()
	h.Serve(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
