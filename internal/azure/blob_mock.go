package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// MockBlobStorageClient is an in-memory BlobStorage for tests and for
// running without Azure credentials
type MockBlobStorageClient struct {
	Storage      map[string][]byte
	ContentTypes map[string]string
	mu           sync.RWMutex
	logger       *zap.Logger
}

var _ BlobStorage = (*MockBlobStorageClient)(nil)

// NewMockBlobStorageClient creates a new mock blob storage client
func NewMockBlobStorageClient(logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
		logger:       logger,
	}
}

// UploadPhoto stores a photo in memory and returns a memory:// URL
func (c *MockBlobStorageClient) UploadPhoto(ctx context.Context, blobName, contentType string, data io.Reader) (string, error) {
	if err := validBlobName(blobName); err != nil {
		return "", err
	}

	b, err := io.ReadAll(io.LimitReader(data, MaxPhotoBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Storage[blobName] = b
	c.ContentTypes[blobName] = contentType

	if c.logger != nil {
		c.logger.Info("mock: photo uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(b)),
		)
	}

	return "memory://" + blobName, nil
}

// DownloadPhoto returns a copy of a stored photo
func (c *MockBlobStorageClient) DownloadPhoto(ctx context.Context, blobName string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.Storage[blobName]
	if !exists {
		return nil, fmt.Errorf("blob not found: %s", blobName)
	}

	return bytes.Clone(data), nil
}

// ListBlobs returns all blob names in storage
func (c *MockBlobStorageClient) ListBlobs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blobs := make([]string, 0, len(c.Storage))
	for name := range c.Storage {
		blobs = append(blobs, name)
	}

	return blobs
}
