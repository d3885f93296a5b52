package postgres

import (
	"campus-marketplace-backend/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type auditRepo struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) domain.AuditRepository {
	return &auditRepo{db: db}
}

// auditWhere builds the shared WHERE clause for list and count.
func auditWhere(f domain.AuditEventFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Since != nil {
		add("created_at >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("created_at <= $%d", *f.Until)
	}
	if len(f.EventTypes) > 0 {
		add("event_type = ANY($%d)", f.EventTypes)
	}
	if len(f.Severities) > 0 {
		add("severity = ANY($%d)", f.Severities)
	}
	if f.IP != "" {
		add("ip_address::text LIKE $%d", f.IP+"%")
	}
	if f.Subject != "" {
		add("subject_value ILIKE $%d", "%"+f.Subject+"%")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *auditRepo) ListEvents(ctx context.Context, f domain.AuditEventFilter) ([]domain.AuditEvent, int64, error) {
	where, args := auditWhere(f)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM security_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count security events: %w", err)
	}

	query := `
		SELECT id, created_at, event_type, severity,
		       COALESCE(subject_type, ''),
		       COALESCE(subject_value, ''),
		       COALESCE(host(ip_address), ''),
		       COALESCE(user_agent, ''),
		       COALESCE(request_id, ''),
		       COALESCE(details, 'null'::jsonb)
		FROM security_events` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var (
			e       domain.AuditEvent
			details []byte
		)
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.EventType, &e.Severity,
			&e.SubjectType, &e.SubjectValue, &e.IP, &e.UserAgent,
			&e.RequestID, &details,
		); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("decode event %d details: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *auditRepo) Summarize(ctx context.Context, since time.Time) (*domain.AuditSummary, error) {
	summary := &domain.AuditSummary{
		Since:      since,
		BySeverity: map[string]int64{},
		ByType:     map[string]int64{},
	}

	rows, err := r.db.Query(ctx, `
		SELECT event_type, severity, COUNT(*)
		FROM security_events
		WHERE created_at >= $1
		GROUP BY event_type, severity
	`, since)
	if err != nil {
		return nil, fmt.Errorf("summarize security events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType, severity string
			count               int64
		)
		if err := rows.Scan(&eventType, &severity, &count); err != nil {
			return nil, err
		}
		summary.Total += count
		summary.BySeverity[severity] += count
		summary.ByType[eventType] += count
	}
	return summary, rows.Err()
}
