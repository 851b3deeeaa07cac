package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mindcare-tw/mindcare-backend/internal/azure"
	"github.com/mindcare-tw/mindcare-backend/internal/config"
	"github.com/mindcare-tw/mindcare-backend/internal/notify"
)

// 1x1 transparent PNG
var testPhoto = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	failed := false

	logger.Info("=== Testing Azure Blob Storage Client ===")
	if !cfg.Azure.Storage.Enabled() {
		logger.Warn("Skipping blob storage test. Set AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY")
	} else if err := testBlobStorageClient(ctx, cfg.Azure.Storage, logger); err != nil {
		logger.Error("Blob storage client test failed", zap.Error(err))
		failed = true
	} else {
		logger.Info("Blob storage client test passed")
	}

	transport := cfg.MailTransport()
	logger.Info("=== Testing Mailer ===", zap.String("transport", transport))
	if transport == config.MailTransportLog || cfg.SMTP.AdminEmail == "" {
		logger.Warn("Skipping mail test. Set SENDGRID_API_KEY or SMTP_HOST, plus SMTP_FROM and ADMIN_EMAIL")
	} else if err := testMailer(ctx, cfg, logger); err != nil {
		logger.Error("Mailer test failed", zap.Error(err))
		failed = true
	} else {
		logger.Info("Mailer test passed")
	}

	logger.Info("=== All tests completed ===")
	if failed {
		os.Exit(1)
	}
}

func testBlobStorageClient(ctx context.Context, storage config.StorageConfig, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClient(storage.AccountName, storage.AccountKey, storage.PhotoContainer, logger)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}

	blobName := fmt.Sprintf("connectivity-check/%d.png", time.Now().Unix())
	logger.Info("Testing photo upload", zap.String("blob_name", blobName))

	url, err := client.UploadPhoto(ctx, blobName, "image/png", bytes.NewReader(testPhoto))
	if err != nil {
		return fmt.Errorf("photo upload failed: %w", err)
	}
	logger.Info("Photo uploaded successfully", zap.String("url", url))

	downloaded, err := client.DownloadPhoto(ctx, blobName)
	if err != nil {
		return fmt.Errorf("photo download failed: %w", err)
	}
	if !bytes.Equal(downloaded, testPhoto) {
		return fmt.Errorf("downloaded photo doesn't match uploaded photo")
	}

	logger.Info("Photo downloaded and verified successfully", zap.Int("size_bytes", len(downloaded)))
	return nil
}

func testMailer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var mailer notify.Mailer
	if cfg.MailTransport() == config.MailTransportSendGrid {
		sg, err := notify.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SMTP.From, logger)
		if err != nil {
			return fmt.Errorf("failed to create SendGrid mailer: %w", err)
		}
		mailer = sg
	} else {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			StartTLS: cfg.SMTP.StartTLS,
		}, logger)
	}

	err := mailer.Send(ctx, notify.Message{
		To:      []string{cfg.SMTP.AdminEmail},
		Subject: "[MindCare] 郵件連線測試",
		Body:    "這是一封測試郵件，收到即代表郵件設定正確。\n",
	})
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	logger.Info("Test e-mail sent", zap.String("to", cfg.SMTP.AdminEmail))
	return nil
}
