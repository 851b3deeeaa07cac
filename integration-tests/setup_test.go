package integration_tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindcare-tw/mindcare-backend/internal/audit"
	"github.com/mindcare-tw/mindcare-backend/internal/azure"
	"github.com/mindcare-tw/mindcare-backend/internal/handler"
	"github.com/mindcare-tw/mindcare-backend/internal/middleware"
	"github.com/mindcare-tw/mindcare-backend/internal/migrations"
	"github.com/mindcare-tw/mindcare-backend/internal/notify"
	"github.com/mindcare-tw/mindcare-backend/internal/repository"
	"github.com/mindcare-tw/mindcare-backend/internal/security"
	"github.com/mindcare-tw/mindcare-backend/internal/service"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const jwtSecret = "integration-secret-integration-secret"

// setupTestDatabase connects to TEST_DATABASE_URL when set and otherwise
// starts a throwaway PostgreSQL container. Migrations are applied either way.
func setupTestDatabase(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	terminate := func() {}

	if dbURL == "" {
		container, err := postgres.Run(ctx,
			"postgres:15-alpine",
			postgres.WithDatabase("mindcare_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Should be able to start PostgreSQL container")

		dbURL, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
		terminate = func() {
			if err := container.Terminate(ctx); err != nil {
				t.Logf("failed to terminate container: %s", err)
			}
		}
	}

	db, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "Should be able to connect to database")
	require.NoError(t, db.Ping(ctx), "Should be able to ping database")
	require.NoError(t, migrations.Apply(ctx, migrations.FromPool(db), zap.NewNop()))

	cleanup := func() {
		db.Close()
		terminate()
	}
	return db, cleanup
}

// recordingMailer keeps every message instead of sending it
type recordingMailer struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sentTo(addr string) []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notify.Message
	for _, msg := range m.messages {
		for _, to := range msg.To {
			if to == addr {
				out = append(out, msg)
			}
		}
	}
	return out
}

type testApp struct {
	router     *gin.Engine
	db         *pgxpool.Pool
	mailer     *recordingMailer
	photos     *azure.MockBlobStorageClient
	therapists *repository.TherapistRepository
	content    *repository.ContentRepository
	reminders  *service.ReminderService
	audit      *audit.Logger
}

// newTestApp wires the application the same way main does, with recording
// mail and in-memory photo storage
func newTestApp(t *testing.T, db *pgxpool.Pool) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	assessmentRepo := repository.NewAssessmentRepository(db, logger)
	therapistRepo := repository.NewTherapistRepository(db, logger)
	appointmentRepo := repository.NewAppointmentRepository(db, logger)
	scheduledEmailRepo := repository.NewScheduledEmailRepository(db, logger)
	contentRepo := repository.NewContentRepository(db, logger)

	mailer := &recordingMailer{}
	photos := azure.NewMockBlobStorageClient(logger)
	auditLogger := audit.NewLogger(db, logger)

	encryptor, err := security.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	reminders := service.NewReminderService(scheduledEmailRepo, appointmentRepo, mailer, service.ReminderConfig{
		Lead:       24 * time.Hour,
		MaxRetries: 3,
		BatchSize:  50,
	}, logger)

	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	appointments := service.NewAppointmentService(appointmentRepo, therapistRepo, security.NewIdentityHasher(4), logger,
		service.WithEncryptor(encryptor),
		service.WithNotifier(notify.NewNotifier(mailer, "admin@clinic.example")),
		service.WithReminders(reminders),
		service.WithAuditRecorder(auditLogger),
		service.WithLocation(taipei),
	)

	server := handler.NewServer(
		handler.NewAssessmentHandler(service.NewAssessmentService(assessmentRepo, logger), logger),
		handler.NewAppointmentHandler(appointments, logger),
		handler.NewStaffHandler(appointments, logger),
		handler.NewTherapistHandler(service.NewTherapistService(therapistRepo, photos, auditLogger, logger), logger),
		handler.NewContentHandler(service.NewContentService(contentRepo, logger), logger),
		handler.NewHealthHandler(db, "test", logger),
	)

	swagger, err := api.GetSwagger()
	require.NoError(t, err)
	validator, err := middleware.OpenAPIValidator(swagger, logger)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.BodyLimitMiddleware(azure.MaxPhotoBytes + 1<<20))
	r.Use(middleware.AuthMiddleware(middleware.NewAuthenticator(jwtSecret, ""), logger))
	r.Use(validator)
	api.RegisterHandlersWithOptions(r, server, api.GinServerOptions{ErrorHandler: handler.ValidationErrorHandler})

	return &testApp{
		router:     r,
		db:         db,
		mailer:     mailer,
		photos:     photos,
		therapists: therapistRepo,
		content:    contentRepo,
		reminders:  reminders,
		audit:      auditLogger,
	}
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	claims := middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request; bearer may be empty
func (a *testApp) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
