package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"insightsapi/internal/storage"
)

var ErrReaderNil = errors.New("reader is nil")

// UploadedImage describes a stored image: its durable URL is what ends up in
// an insight's image field.
type UploadedImage struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
	Size     int64  `json:"size"`
}

// ImageService handles article image uploads to object storage.
type ImageService interface {
	// Upload streams the content to object storage under a unique key derived
	// from the original filename and returns the durable URL.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*UploadedImage, error)
}

type imageService struct {
	store storage.Storage
}

// NewImageService constructs a new ImageService.
func NewImageService(store storage.Storage) ImageService {
	return &imageService{store: store}
}

func (s *imageService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*UploadedImage, error) {
	if r == nil {
		return nil, ErrReaderNil
	}

	// Random suffix keeps repeated uploads of the same filename from clobbering
	// each other; the extension is preserved for content negotiation.
	ext := filepath.Ext(originalFilename)
	base := strings.TrimSuffix(filepath.Base(originalFilename), ext)
	if base == "" || base == "." {
		base = "image"
	}
	key := filepath.ToSlash(filepath.Join("insights/images", fmt.Sprintf("%s-%s%s", base, uuid.New().String(), ext)))

	info, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	return &UploadedImage{
		URL:      info.URL,
		Pathname: info.Key,
		Size:     info.Size,
	}, nil
}
