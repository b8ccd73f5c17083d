package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type stubStorage struct {
	uploadedKey string
	err         error
}

func (s *stubStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploadedKey = key
	return "https://assets.example.com/" + key, nil
}

func (s *stubStorage) Delete(ctx context.Context, key string) error { return nil }

func (s *stubStorage) GetPublicURL(key string) string {
	return "https://assets.example.com/" + key
}

func TestUploadImage_UsesStorage(t *testing.T) {
	storage := &stubStorage{}
	svc := NewUploadService(storage, nil)

	url, err := svc.UploadImage(context.Background(), "photo.png", "image/png", []byte("fake-png"))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if !strings.HasPrefix(url, "https://assets.example.com/uploads/") {
		t.Errorf("unexpected url %q", url)
	}
	if !strings.HasSuffix(storage.uploadedKey, ".png") {
		t.Errorf("expected .png key, got %q", storage.uploadedKey)
	}
}

func TestUploadImage_UnsupportedType(t *testing.T) {
	svc := NewUploadService(&stubStorage{}, nil)

	_, err := svc.UploadImage(context.Background(), "doc.pdf", "application/pdf", []byte("x"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadImage_TooLarge(t *testing.T) {
	svc := NewUploadService(&stubStorage{}, nil)

	_, err := svc.UploadImage(context.Background(), "big.jpg", "image/jpeg", make([]byte, MaxUploadBytes+1))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUploadImage_Empty(t *testing.T) {
	svc := NewUploadService(&stubStorage{}, nil)

	if _, err := svc.UploadImage(context.Background(), "empty.jpg", "image/jpeg", nil); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestUploadImage_NoBackend(t *testing.T) {
	svc := NewUploadService(nil, nil)

	if _, err := svc.UploadImage(context.Background(), "a.jpg", "image/jpeg", []byte("x")); err == nil {
		t.Error("expected error with no backend configured")
	}
}

func TestSafeFileName(t *testing.T) {
	if got := safeFileName("../../etc/passwd.png", ".png"); got != "passwd.png" {
		t.Errorf("expected path stripped, got %q", got)
	}
	if got := safeFileName("", ".png"); !strings.HasSuffix(got, ".png") {
		t.Errorf("expected generated name with extension, got %q", got)
	}
}
