package services

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidMediaPath   = errors.New("invalid media path")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrMediaTooLarge      = errors.New("media exceeds size limit")
	ErrMediaNotFound      = errors.New("media not found")
)

// MediaService is a path-addressed blob store with overwrite semantics:
// re-uploading to the same path replaces the prior content. References
// resolve to stable URLs retrievable without auth; there is no delete
// operation, orphan cleanup is a batch concern outside this service.
type MediaService struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewMediaService(dir, baseURL string, maxBytes int64) (*MediaService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &MediaService{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// cleanPath rejects traversal and absolute paths; blobs live strictly under
// the store root.
func (s *MediaService) cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", ErrInvalidMediaPath
	}
	cleaned := path.Clean(p)
	if cleaned != p || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "../") {
		return "", ErrInvalidMediaPath
	}
	return cleaned, nil
}

// Put stores an image blob at the given path and returns its reference.
// Content is sniffed and must be an image. The write is atomic: a temp file
// is renamed over the destination, so readers never observe partial content.
func (s *MediaService) Put(p string, r io.Reader) (string, error) {
	cleaned, err := s.cleanPath(p)
	if err != nil {
		return "", err
	}

	limited := io.LimitReader(r, s.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrMediaTooLarge
	}
	if len(data) == 0 {
		return "", ErrUnsupportedMedia
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedMedia
	}

	dest := filepath.Join(s.dir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("publishing blob: %w", err)
	}

	return cleaned, nil
}

// Resolve turns a stored reference into its public URL.
func (s *MediaService) Resolve(reference string) string {
	return s.baseURL + "/" + reference
}

// Open returns the blob at reference for serving.
func (s *MediaService) Open(reference string) (io.ReadCloser, error) {
	cleaned, err := s.cleanPath(reference)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(cleaned)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}
