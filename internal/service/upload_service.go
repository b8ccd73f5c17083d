package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/renderdeck/api/internal/client"
)

// MaxUploadBytes caps asset uploads at 10MB, matching vendor limits.
const MaxUploadBytes = 10 * 1024 * 1024

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ErrUnsupportedType means the uploaded file is not an accepted image type.
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrFileTooLarge means the uploaded file exceeds MaxUploadBytes.
var ErrFileTooLarge = errors.New("file too large")

// FileUploader turns a local file into a durable URL that can be referenced
// in a job submission. Submitting a non-durable local reference to the
// gateway is a caller-side contract violation; this is the adapter that
// prevents it.
type FileUploader interface {
	UploadImage(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}

// UploadService uploads assets to R2 when configured, falling back to the
// vendor's own short-retention upload endpoint.
type UploadService struct {
	storage client.StorageClient
	kie     *client.KieClient
}

func NewUploadService(storage client.StorageClient, kie *client.KieClient) *UploadService {
	return &UploadService{
		storage: storage,
		kie:     kie,
	}
}

// UploadImage validates and uploads an image, returning its durable URL.
func (s *UploadService) UploadImage(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}

	if s.storage != nil {
		key := fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)
		url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), contentType)
		if err != nil {
			return "", fmt.Errorf("failed to upload asset: %w", err)
		}
		return url, nil
	}

	if s.kie != nil && s.kie.IsConfigured() {
		name := safeFileName(fileName, ext)
		url, err := s.kie.UploadFile(ctx, name, bytes.NewReader(data), "uploads")
		if err != nil {
			return "", fmt.Errorf("failed to upload asset: %w", err)
		}
		return url, nil
	}

	return "", fmt.Errorf("no upload backend configured")
}

func safeFileName(fileName, ext string) string {
	base := path.Base(fileName)
	if base == "" || base == "." || base == "/" {
		return uuid.New().String() + ext
	}
	return base
}
