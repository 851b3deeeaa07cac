package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationRead   OperationType = "READ"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceAppointment      ResourceType = "appointment"
	ResourceAssessmentResult ResourceType = "assessment_result"
	ResourceTherapist        ResourceType = "therapist"
	ResourceClient           ResourceType = "client"
)

// AuditLog is one row of the audit trail
type AuditLog struct {
	UserID         string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]interface{}
}

// Recorder stores audit entries
type Recorder interface {
	Log(ctx context.Context, entry AuditLog) error
}

// Logger writes the audit trail to PostgreSQL
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log stores entry. Actor fields left empty are taken from the request
// context, and a zero Timestamp becomes now.
func (l *Logger) Log(ctx context.Context, entry AuditLog) error {
	actor := ActorFrom(ctx)
	if entry.UserID == "" {
		entry.UserID = actor.UserID
	}
	if entry.IPAddress == "" {
		entry.IPAddress = actor.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = actor.UserAgent
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var data []byte
	if len(entry.AdditionalData) > 0 {
		var err error
		if data, err = json.Marshal(entry.AdditionalData); err != nil {
			return fmt.Errorf("failed to encode audit data: %w", err)
		}
	}

	_, err := l.db.Exec(ctx, `
		INSERT INTO audit_logs (user_id, operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.UserID, entry.OperationType, entry.ResourceType, entry.ResourceID,
		entry.Timestamp, entry.IPAddress, entry.UserAgent, data,
	)
	if err != nil {
		l.logger.Error("failed to write audit log",
			zap.Error(err),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
			zap.String("resource_id", entry.ResourceID),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	l.logger.Debug("audit",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
	)
	return nil
}

// Trail returns up to limit entries for one resource, newest first
func (l *Logger) Trail(ctx context.Context, resourceType ResourceType, resourceID string, limit int) ([]AuditLog, error) {
	rows, err := l.db.Query(ctx, `
		SELECT user_id, operation_type, resource_type, resource_id,
		       timestamp, ip_address, user_agent, COALESCE(additional_data, '{}'::jsonb)
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp DESC, id DESC
		LIMIT $3`,
		resourceType, resourceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var trail []AuditLog
	for rows.Next() {
		var (
			entry AuditLog
			raw   []byte
		)
		if err := rows.Scan(&entry.UserID, &entry.OperationType, &entry.ResourceType, &entry.ResourceID,
			&entry.Timestamp, &entry.IPAddress, &entry.UserAgent, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal(raw, &entry.AdditionalData); err != nil {
			return nil, fmt.Errorf("failed to decode audit data: %w", err)
		}
		trail = append(trail, entry)
	}
	return trail, rows.Err()
}

// Nop discards entries. It is used when no database is wired, e.g. in tests.
type Nop struct{}

// Log implements Recorder
func (Nop) Log(context.Context, AuditLog) error { return nil }

type actorKey struct{}

// Actor identifies who triggered an operation and from where
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// WithActor attaches request metadata used to fill audit entries
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached by WithActor. Unknown callers are
// recorded as "anonymous".
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		if a.UserID == "" {
			a.UserID = "anonymous"
		}
		return a
	}
	return Actor{UserID: "anonymous"}
}
