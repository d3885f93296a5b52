package domain

import (
	"context"
	"time"
)

// AuditEvent is a persisted security event as shown to admins.
type AuditEvent struct {
	ID           int64                  `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	EventType    string                 `json:"eventType"`
	Severity     string                 `json:"severity"`
	SubjectType  string                 `json:"subjectType,omitempty"`
	SubjectValue string                 `json:"subjectValue,omitempty"`
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"userAgent,omitempty"`
	RequestID    string                 `json:"requestId,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

type AuditEventFilter struct {
	Since      *time.Time
	Until      *time.Time
	EventTypes []string
	Severities []string
	IP         string // prefix match
	Subject    string // substring match on subject_value
	Page       int
	PageSize   int
}

// AuditSummary counts events inside a trailing window.
type AuditSummary struct {
	Since      time.Time        `json:"since"`
	Total      int64            `json:"total"`
	BySeverity map[string]int64 `json:"bySeverity"`
	ByType     map[string]int64 `json:"byType"`
}

type AuditRepository interface {
	ListEvents(ctx context.Context, filter AuditEventFilter) ([]AuditEvent, int64, error)
	Summarize(ctx context.Context, since time.Time) (*AuditSummary, error)
}

type AuditUsecase interface {
	ListEvents(ctx context.Context, filter AuditEventFilter) (*PaginatedResult[AuditEvent], error)
	Summary(ctx context.Context, window time.Duration) (*AuditSummary, error)
}
