package azure

import (
	"context"
	"io"
)

// BlobStorage defines the photo storage operations. It allows the
// in-memory implementation to stand in for Azure in tests and local runs.
type BlobStorage interface {
	UploadPhoto(ctx context.Context, blobName, contentType string, data io.Reader) (string, error)
	DownloadPhoto(ctx context.Context, blobName string) ([]byte, error)
}

// Ensure BlobStorageClient implements BlobStorage interface
var _ BlobStorage = (*BlobStorageClient)(nil)
