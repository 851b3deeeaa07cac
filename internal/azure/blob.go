package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"
)

// MaxPhotoBytes caps a single profile photo upload
const MaxPhotoBytes = 5 << 20

// BlobStorageClient wraps Azure Blob Storage SDK for therapist photos
type BlobStorageClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewBlobStorageClient creates a new Azure Blob Storage client
func NewBlobStorageClient(accountName, accountKey, containerName string, logger *zap.Logger) (*BlobStorageClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobStorageClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

func validBlobName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid blob name %q", name)
	}
	return nil
}

// UploadPhoto streams a photo to the container and returns its URL
func (c *BlobStorageClient) UploadPhoto(ctx context.Context, blobName, contentType string, data io.Reader) (string, error) {
	if err := validBlobName(blobName); err != nil {
		return "", err
	}

	c.logger.Info("uploading photo to blob storage",
		zap.String("blob_name", blobName),
		zap.String("content_type", contentType),
	)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadStream(ctx, io.LimitReader(data, MaxPhotoBytes), &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType:  &contentType,
			BlobCacheControl: toPtr("public, max-age=86400"),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload photo",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	c.logger.Info("photo uploaded successfully", zap.String("blob_name", blobName))

	return blobClient.URL(), nil
}

// DownloadPhoto downloads a photo from the container
func (c *BlobStorageClient) DownloadPhoto(ctx context.Context, blobName string) ([]byte, error) {
	if err := validBlobName(blobName); err != nil {
		return nil, err
	}

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download photo",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo data: %w", err)
	}

	return data, nil
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}
