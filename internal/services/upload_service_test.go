package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"dukapos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockMinioService) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucketName, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) DeleteObject(ctx context.Context, bucketName, objectName string) error {
	args := m.Called(ctx, bucketName, objectName)
	return args.Error(0)
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

func (m *MockMinioService) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func TestUpload_PublicURL(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	store := new(MockMinioService)
	store.On("PutObject", ctx, "uploads", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, orgID.String()+"/") && strings.HasSuffix(key, ".jpeg")
	}), mock.Anything, int64(4), "image/jpeg").Return(nil)

	svc := NewUploadService(store, "uploads", "https://cdn.example.com/", zap.NewNop())
	res, err := svc.Upload(ctx, orgID, "Shelf.JPEG", "image/jpeg", strings.NewReader("data"), 4)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/"+res.Key, res.URL)
	assert.Equal(t, "image/jpeg", res.ContentType)
	store.AssertExpectations(t)
}

func TestUpload_PresignedURL(t *testing.T) {
	ctx := context.Background()
	store := new(MockMinioService)
	store.On("PutObject", ctx, "uploads", mock.Anything, mock.Anything, int64(10), "application/pdf").Return(nil)
	store.On("GetPresignedURL", ctx, "uploads", mock.Anything, 7*24*time.Hour).Return("https://minio.local/uploads/x.pdf?sig=1", nil)

	svc := NewUploadService(store, "uploads", "", zap.NewNop())
	res, err := svc.Upload(ctx, uuid.New(), "invoice.txt", "application/pdf; charset=binary", strings.NewReader("%PDF-1.4.."), 10)

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Key, ".pdf"))
	assert.Equal(t, "https://minio.local/uploads/x.pdf?sig=1", res.URL)
	store.AssertExpectations(t)
}

func TestUpload_Rejections(t *testing.T) {
	store := new(MockMinioService)
	svc := NewUploadService(store, "uploads", "", zap.NewNop())
	ctx := context.Background()

	_, err := svc.Upload(ctx, uuid.New(), "a.png", "image/png", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Upload(ctx, uuid.New(), "a.png", "image/png", strings.NewReader("x"), MaxUploadSize+1)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Upload(ctx, uuid.New(), "run.sh", "text/x-shellscript", strings.NewReader("#!/bin/sh"), 9)
	assert.ErrorIs(t, err, models.ErrValidation)

	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_StoreFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockMinioService)
	store.On("PutObject", ctx, "uploads", mock.Anything, mock.Anything, int64(3), "image/png").Return(errors.New("connection refused"))

	svc := NewUploadService(store, "uploads", "", zap.NewNop())
	_, err := svc.Upload(ctx, uuid.New(), "a.png", "image/png", strings.NewReader("png"), 3)

	assert.ErrorContains(t, err, "store upload")
}

func TestUpload_DeleteScopedToOrganization(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	key := orgID.String() + "/" + uuid.New().String() + ".png"
	store := new(MockMinioService)
	store.On("DeleteObject", ctx, "uploads", key).Return(nil)
	svc := NewUploadService(store, "uploads", "", zap.NewNop())

	assert.NoError(t, svc.Delete(ctx, orgID, key))
	assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), key), models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, orgID, orgID.String()+"/../x.png"), models.ErrNotFound)
	store.AssertNumberOfCalls(t, "DeleteObject", 1)
}

func TestUpload_Ready(t *testing.T) {
	ctx := context.Background()
	store := new(MockMinioService)
	store.On("BucketExists", ctx, "uploads").Return(false, nil).Once()
	store.On("BucketExists", ctx, "uploads").Return(true, nil).Once()
	svc := NewUploadService(store, "uploads", "", zap.NewNop())

	assert.Error(t, svc.Ready(ctx))
	assert.NoError(t, svc.Ready(ctx))
}
