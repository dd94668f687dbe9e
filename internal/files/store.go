// Package files stores uploaded course material and extracts its text for
// document-scoped prompts.
package files

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("file not found")
	ErrInvalidName    = errors.New("invalid filename")
	ErrDisallowedType = errors.New("file type not allowed")
	ErrTooLarge       = errors.New("file exceeds the upload size limit")
)

// FileInfo is an entry of the file listing.
type FileInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store is the backing storage for uploads. Names passed in are already
// server-assigned and sanitised.
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Open(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]FileInfo, error)
	Delete(ctx context.Context, name string) error
}

// Uploaded describes a file accepted by Service.Upload.
type Uploaded struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
}

// Service applies the upload rules on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Upload validates and stores one file under a fresh unique name.
func (s *Service) Upload(ctx context.Context, originalName string, data []byte) (*Uploaded, error) {
	clean := SanitizeFilename(originalName)
	if clean == "" {
		return nil, ErrInvalidName
	}
	if !Allowed(clean) {
		return nil, ErrDisallowedType
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	name := UniqueName(clean, s.now())
	contentType := DetectType(data, clean)
	if err := s.store.Save(ctx, name, data, contentType); err != nil {
		return nil, err
	}
	return &Uploaded{
		Filename:     name,
		OriginalName: originalName,
		Size:         int64(len(data)),
		Type:         contentType,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]FileInfo, error) {
	return s.store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	if !validStoredName(name) {
		return ErrNotFound
	}
	return s.store.Delete(ctx, name)
}

func (s *Service) Open(ctx context.Context, name string) ([]byte, error) {
	if !validStoredName(name) {
		return nil, ErrNotFound
	}
	return s.store.Open(ctx, name)
}
