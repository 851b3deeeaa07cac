package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindcare-tw/mindcare-backend/internal/audit"
	"github.com/mindcare-tw/mindcare-backend/internal/azure"
	"github.com/mindcare-tw/mindcare-backend/internal/config"
	"github.com/mindcare-tw/mindcare-backend/internal/handler"
	"github.com/mindcare-tw/mindcare-backend/internal/middleware"
	"github.com/mindcare-tw/mindcare-backend/internal/migrations"
	"github.com/mindcare-tw/mindcare-backend/internal/notify"
	"github.com/mindcare-tw/mindcare-backend/internal/repository"
	"github.com/mindcare-tw/mindcare-backend/internal/security"
	"github.com/mindcare-tw/mindcare-backend/internal/service"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"go.uber.org/zap"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

// maxRequestBytes bounds request bodies; photo uploads are the largest
const maxRequestBytes = azure.MaxPhotoBytes + 1<<20

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Environment()),
		zap.String("port", cfg.Server.Port),
		zap.String("version", version),
	)

	pool, err := newPool(context.Background(), cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(context.Background(), migrations.FromPool(pool), logger); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	location, err := cfg.Clinic.Location()
	if err != nil {
		logger.Fatal("Invalid clinic timezone", zap.Error(err))
	}

	// Repositories
	assessmentRepo := repository.NewAssessmentRepository(pool, logger)
	therapistRepo := repository.NewTherapistRepository(pool, logger)
	appointmentRepo := repository.NewAppointmentRepository(pool, logger)
	scheduledEmailRepo := repository.NewScheduledEmailRepository(pool, logger)
	contentRepo := repository.NewContentRepository(pool, logger)

	// Mail
	mailer, err := newMailer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	notifier := notify.NewNotifier(mailer, cfg.SMTP.AdminEmail)

	// Photo storage
	var photos azure.BlobStorage
	if cfg.Azure.Storage.Enabled() {
		photos, err = azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.PhotoContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
	} else {
		logger.Warn("Azure storage not configured, photos are kept in memory")
		photos = azure.NewMockBlobStorageClient(logger)
	}

	auditLogger := audit.NewLogger(pool, logger)

	// Services
	reminderService := service.NewReminderService(scheduledEmailRepo, appointmentRepo, mailer, service.ReminderConfig{
		Interval:   cfg.Reminders.Interval,
		Lead:       cfg.Reminders.Lead,
		MaxRetries: cfg.Reminders.MaxRetries,
		BatchSize:  cfg.Reminders.BatchSize,
		ClaimLease: cfg.Reminders.ClaimLease,
	}, logger)

	appointmentOpts := []service.AppointmentOption{
		service.WithNotifier(notifier),
		service.WithReminders(reminderService),
		service.WithAuditRecorder(auditLogger),
		service.WithLocation(location),
	}
	if cfg.Security.EncryptionKey != "" {
		encryptor, err := security.NewEncryptorFromBase64(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal("Invalid encryption key", zap.Error(err))
		}
		appointmentOpts = append(appointmentOpts, service.WithEncryptor(encryptor))
	} else {
		logger.Warn("ENCRYPTION_KEY not set, intake details are stored unencrypted")
	}

	assessmentService := service.NewAssessmentService(assessmentRepo, logger)
	therapistService := service.NewTherapistService(therapistRepo, photos, auditLogger, logger)
	contentService := service.NewContentService(contentRepo, logger)
	appointmentService := service.NewAppointmentService(
		appointmentRepo,
		therapistRepo,
		security.NewIdentityHasher(cfg.Security.BcryptCost),
		logger,
		appointmentOpts...,
	)

	// Handlers
	server := handler.NewServer(
		handler.NewAssessmentHandler(assessmentService, logger),
		handler.NewAppointmentHandler(appointmentService, logger),
		handler.NewStaffHandler(appointmentService, logger),
		handler.NewTherapistHandler(therapistService, logger),
		handler.NewContentHandler(contentService, logger),
		handler.NewHealthHandler(pool, version, logger),
	)

	swagger, err := api.GetSwagger()
	if err != nil {
		logger.Fatal("Failed to load OpenAPI document", zap.Error(err))
	}
	validator, err := middleware.OpenAPIValidator(swagger, logger)
	if err != nil {
		logger.Fatal("Failed to build request validator", zap.Error(err))
	}

	if cfg.Environment() == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.BodyLimitMiddleware(maxRequestBytes))
	r.Use(middleware.AuthMiddleware(middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer), logger))
	r.Use(validator)

	r.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", api.SpecYAML)
	})

	api.RegisterHandlersWithOptions(r, server, api.GinServerOptions{
		ErrorHandler: handler.ValidationErrorHandler,
	})

	// Reminder dispatcher
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if cfg.Reminders.Enabled {
		go reminderService.Run(workerCtx)
		logger.Info("Reminder dispatcher started", zap.Duration("interval", cfg.Reminders.Interval))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Environment() == "production" {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	if cfg.Logging.Format != "" {
		zcfg.Encoding = cfg.Logging.Format
	}
	return zcfg.Build()
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	return pgxpool.NewWithConfig(ctx, pcfg)
}

// newMailer builds the configured mail transport
func newMailer(cfg *config.Config, logger *zap.Logger) (notify.Mailer, error) {
	switch cfg.MailTransport() {
	case config.MailTransportSendGrid:
		logger.Info("Sending e-mail through SendGrid")
		return notify.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SMTP.From, logger)
	case config.MailTransportSMTP:
		logger.Info("Sending e-mail through SMTP", zap.String("host", cfg.SMTP.Host))
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			StartTLS: cfg.SMTP.StartTLS,
		}, logger), nil
	}
	logger.Warn("No mail transport configured, e-mails will only be logged")
	return notify.NewLogMailer(logger), nil
}
