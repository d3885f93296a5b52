package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SecurityEvent represents a security-related event to be logged
type SecurityEvent struct {
	Timestamp    time.Time              `json:"timestamp"`
	Service      string                 `json:"service"`
	Environment  string                 `json:"env"`
	Level        string                 `json:"level"`
	Severity     Severity               `json:"severity"`
	Event        EventType              `json:"event"`
	SubjectType  string                 `json:"subject_type,omitempty"`  // "email", "ip", "user_id"
	SubjectValue string                 `json:"subject_value,omitempty"` // masked or hashed
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// RequestMeta carries the request attributes attached to audit events.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

// SecurityLogger writes audit events through zap and optionally persists them.
type SecurityLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
	persistFunc func(ctx context.Context, event SecurityEvent) error
	pending     sync.WaitGroup
}

// NewSecurityLogger builds the production JSON logger used in containers.
func NewSecurityLogger(serviceName, environment string) *SecurityLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return WithZap(logger, serviceName, environment)
}

func WithZap(logger *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zapLogger:   logger,
		serviceName: serviceName,
		environment: environment,
	}
}

// NopLogger discards everything. Used by tests.
func NopLogger() *SecurityLogger {
	return WithZap(zap.NewNop(), "test", "test")
}

// SetPersistFunc sets the function to persist events to database
func (sl *SecurityLogger) SetPersistFunc(f func(ctx context.Context, event SecurityEvent) error) {
	sl.persistFunc = f
}

func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Service = sl.serviceName
	event.Environment = sl.environment
	event.Severity = GetSeverity(event.Event)

	level := levelFor(event.Severity)
	event.Level = level.String()

	fields := []zap.Field{
		zap.String("service", event.Service),
		zap.String("env", event.Environment),
		zap.String("event", string(event.Event)),
		zap.String("severity", string(event.Severity)),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	sl.zapLogger.Log(level, string(event.Event), fields...)

	if sl.persistFunc != nil {
		sl.pending.Add(1)
		go func(e SecurityEvent) {
			defer sl.pending.Done()
			// Request context is usually gone by the time this runs
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := sl.persistFunc(ctx, e); err != nil {
				sl.zapLogger.Error("Failed to persist security event", zap.Error(err))
			}
		}(event)
	}
}

func levelFor(s Severity) zapcore.Level {
	switch s {
	case SeverityINFO:
		return zapcore.InfoLevel
	case SeverityHIGH, SeverityCRITICAL:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

func (sl *SecurityLogger) LogLoginSuccess(ctx context.Context, userID string, meta RequestMeta, method string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginSuccess,
		SubjectType:  "user_id",
		SubjectValue: userID,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"method": method},
	})
}

func (sl *SecurityLogger) LogLoginFailed(ctx context.Context, email string, meta RequestMeta, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginFailed,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"reason": reason},
	})
}

// LogLoginBlocked logs when a login is blocked due to too many attempts
func (sl *SecurityLogger) LogLoginBlocked(ctx context.Context, email string, meta RequestMeta) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginBlocked,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"reason": "too_many_failed_attempts"},
	})
}

func (sl *SecurityLogger) LogLogout(ctx context.Context, userID string, meta RequestMeta) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLogout,
		SubjectType:  "user_id",
		SubjectValue: userID,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
	})
}

func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, meta RequestMeta, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: meta.IP,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"endpoint": endpoint},
	})
}

// LogAccessDenied records a route gate refusal for a signed-in user.
func (sl *SecurityLogger) LogAccessDenied(ctx context.Context, userID string, meta RequestMeta, path, decision string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventUnauthorizedAccess,
		SubjectType:  "user_id",
		SubjectValue: userID,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"path": path, "decision": decision},
	})
}

func (sl *SecurityLogger) LogCSRFViolation(ctx context.Context, meta RequestMeta, path, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventCSRFViolation,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		RequestID: meta.RequestID,
		Details:   map[string]interface{}{"path": path, "reason": reason},
	})
}

// LogRoleTransition traces a change of the signed-in user's role within one
// session (sign-in, role selection, sign-out).
func (sl *SecurityLogger) LogRoleTransition(ctx context.Context, userID, from, to, source string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRoleTransition,
		SubjectType:  "user_id",
		SubjectValue: userID,
		Details:      map[string]interface{}{"from": from, "to": to, "source": source},
	})
}

// LogRoleModified records an admin changing another user's role.
func (sl *SecurityLogger) LogRoleModified(ctx context.Context, actorID, targetID, from, to string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRoleModified,
		SubjectType:  "user_id",
		SubjectValue: targetID,
		Details:      map[string]interface{}{"actor": actorID, "from": from, "to": to},
	})
}

func (sl *SecurityLogger) LogSellerApproved(ctx context.Context, actorID, targetID string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventSellerApproved,
		SubjectType:  "user_id",
		SubjectValue: targetID,
		Details:      map[string]interface{}{"actor": actorID},
	})
}

func (sl *SecurityLogger) LogUserCreated(ctx context.Context, userID, email, role string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventUserCreated,
		SubjectType:  "user_id",
		SubjectValue: userID,
		Details:      map[string]interface{}{"email": MaskEmail(email), "role": role},
	})
}

func (sl *SecurityLogger) LogDataExport(ctx context.Context, actorID, dataset string, rows int) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventDataExport,
		SubjectType:  "user_id",
		SubjectValue: actorID,
		Details:      map[string]interface{}{"dataset": dataset, "rows": rows},
	})
}

// LogUploadRejected records a listing photo refused by the malware scanner.
func (sl *SecurityLogger) LogUploadRejected(ctx context.Context, userID string, meta RequestMeta, scanner, threat string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventUploadRejected,
		SubjectType:  "user_id",
		SubjectValue: userID,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"scanner": scanner, "threat": threat},
	})
}

// Close waits for in-flight persistence and flushes zap.
func (sl *SecurityLogger) Close() error {
	sl.pending.Wait()
	return sl.zapLogger.Sync()
}

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	atIndex := strings.IndexByte(email, '@')
	if atIndex <= 1 {
		return "***" + email[1:]
	}
	return string(email[0]) + "***" + email[atIndex:]
}

// HashValue returns a short SHA256 prefix for logging values without PII
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}
