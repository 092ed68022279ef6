package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadSize is the largest accepted upload, 5 MiB.
const MaxUploadSize = 5 << 20

const presignedURLExpiry = 7 * 24 * time.Hour

var allowedUploadTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type UploadService interface {
	// Upload stores a file under the organization's prefix. contentType is the
	// sniffed type of the content, not the client's claim.
	Upload(ctx context.Context, orgID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (*UploadResult, error)
	// Delete removes an object. Keys outside the organization's prefix are not found.
	Delete(ctx context.Context, orgID uuid.UUID, key string) error
	// Ready reports whether the upload bucket is reachable.
	Ready(ctx context.Context) error
}

type uploadService struct {
	store         MinioService
	bucket        string
	publicBaseURL string
	log           *zap.Logger
}

func NewUploadService(store MinioService, bucket, publicBaseURL string, log *zap.Logger) UploadService {
	return &uploadService{
		store:         store,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
}

// uploadExtension keeps the client's extension when it agrees with the content type.
func uploadExtension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType == "image/jpeg" && (ext == ".jpeg" || ext == ".jpg") {
		return ext
	}
	return allowedUploadTypes[contentType]
}

func (s *uploadService) Upload(ctx context.Context, orgID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (*UploadResult, error) {
	if size <= 0 {
		return nil, fmt.Errorf("file is empty: %w", models.ErrValidation)
	}
	if size > MaxUploadSize {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", MaxUploadSize, models.ErrValidation)
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if _, ok := allowedUploadTypes[contentType]; !ok {
		return nil, fmt.Errorf("content type %q is not allowed: %w", contentType, models.ErrValidation)
	}

	key := fmt.Sprintf("%s/%s%s", orgID, uuid.New(), uploadExtension(filename, contentType))
	if err := s.store.PutObject(ctx, s.bucket, key, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	url, err := s.objectURL(ctx, key)
	if err != nil {
		return nil, err
	}
	s.log.Info("file uploaded", zap.String("key", key), zap.String("content_type", contentType), zap.Int64("size", size))
	return &UploadResult{Key: key, URL: url, ContentType: contentType, Size: size}, nil
}

func (s *uploadService) objectURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key), nil
	}
	url, err := s.store.GetPresignedURL(ctx, s.bucket, key, presignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	return url, nil
}

func (s *uploadService) Delete(ctx context.Context, orgID uuid.UUID, key string) error {
	if !strings.HasPrefix(key, orgID.String()+"/") || strings.Contains(key, "..") {
		return fmt.Errorf("upload %q: %w", key, models.ErrNotFound)
	}
	if err := s.store.DeleteObject(ctx, s.bucket, key); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	s.log.Info("file deleted", zap.String("key", key))
	return nil
}

func (s *uploadService) Ready(ctx context.Context) error {
	ok, err := s.store.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
