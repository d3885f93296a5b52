package security

// EventType represents the type of security event
type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailed        EventType = "login_failed"
	EventLoginBlocked       EventType = "login_blocked"
	EventLogout             EventType = "logout"
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventCSRFViolation      EventType = "csrf_violation"
	EventRoleTransition     EventType = "role_transition"
	EventRoleModified       EventType = "role_modified"
	EventSellerApproved     EventType = "seller_approved"
	EventUserCreated        EventType = "user_created"
	EventDataExport         EventType = "data_export"
	EventUploadRejected     EventType = "upload_rejected"
)

// Severity is derived from EventType, never supplied by callers
type Severity string

const (
	SeverityINFO   Severity = "INFO"
	SeverityMEDIUM Severity = "MEDIUM"
	SeverityWARN   Severity = "WARN"
	SeverityHIGH   Severity = "HIGH"
	// SeverityCRITICAL is reserved; no marketplace event maps to it yet.
	SeverityCRITICAL Severity = "CRITICAL"
)

var EventSeverityMap = map[EventType]Severity{
	EventLoginSuccess:   SeverityINFO,
	EventLogout:         SeverityINFO,
	EventRoleTransition: SeverityINFO,
	EventUserCreated:    SeverityINFO,

	EventDataExport:     SeverityMEDIUM,
	EventSellerApproved: SeverityMEDIUM,

	EventLoginFailed:        SeverityWARN,
	EventRateLimitTriggered: SeverityWARN,
	EventUnauthorizedAccess: SeverityWARN,

	EventLoginBlocked:  SeverityHIGH,
	EventCSRFViolation: SeverityHIGH,
	EventRoleModified:  SeverityHIGH,

	EventUploadRejected: SeverityHIGH,
}

// GetSeverity returns the severity for an event type, MEDIUM when unmapped.
func GetSeverity(eventType EventType) Severity {
	if severity, ok := EventSeverityMap[eventType]; ok {
		return severity
	}
	return SeverityMEDIUM
}

func IsHighOrAbove(eventType EventType) bool {
	severity := GetSeverity(eventType)
	return severity == SeverityHIGH || severity == SeverityCRITICAL
}
