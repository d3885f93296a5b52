package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/security"
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultAuditWindow = 24 * time.Hour
	maxAuditWindow     = 90 * 24 * time.Hour
)

type auditUsecase struct {
	repo domain.AuditRepository
	now  func() time.Time
}

func NewAuditUsecase(repo domain.AuditRepository) domain.AuditUsecase {
	return &auditUsecase{repo: repo, now: time.Now}
}

func (u *auditUsecase) ListEvents(ctx context.Context, filter domain.AuditEventFilter) (*domain.PaginatedResult[domain.AuditEvent], error) {
	if filter.Since != nil && filter.Until != nil && filter.Since.After(*filter.Until) {
		return nil, apperror.BadRequest("since must be before until")
	}

	severities, err := normalizeSeverities(filter.Severities)
	if err != nil {
		return nil, err
	}
	filter.Severities = severities

	for _, t := range filter.EventTypes {
		if _, ok := security.EventSeverityMap[security.EventType(t)]; !ok {
			return nil, apperror.BadRequest(fmt.Sprintf("Unknown event type %q", t))
		}
	}

	filter.Page, filter.PageSize = domain.NormalizePage(filter.Page, filter.PageSize)
	events, total, err := u.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return domain.NewPaginatedResult(events, total, filter.Page, filter.PageSize), nil
}

// Summary counts events over the trailing window, 24h when unset.
func (u *auditUsecase) Summary(ctx context.Context, window time.Duration) (*domain.AuditSummary, error) {
	if window <= 0 {
		window = defaultAuditWindow
	}
	if window > maxAuditWindow {
		return nil, apperror.BadRequest("window cannot exceed 90 days")
	}

	summary, err := u.repo.Summarize(ctx, u.now().UTC().Add(-window))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return summary, nil
}

func normalizeSeverities(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		switch sev := security.Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
		case security.SeverityINFO, security.SeverityMEDIUM, security.SeverityWARN, security.SeverityHIGH, security.SeverityCRITICAL:
			out = append(out, string(sev))
		default:
			return nil, apperror.BadRequest(fmt.Sprintf("Unknown severity %q", s))
		}
	}
	return out, nil
}
