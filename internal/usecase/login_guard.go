package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/security"
	"context"
)

// loginGuard adapts security.LoginTracker to domain.LoginGuard.
type loginGuard struct {
	tracker *security.LoginTracker
}

func NewLoginGuard(tracker *security.LoginTracker) domain.LoginGuard {
	return &loginGuard{tracker: tracker}
}

func (g *loginGuard) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	return g.tracker.IsBlocked(ctx, email, ip)
}

func (g *loginGuard) RecordFailure(ctx context.Context, email string, meta domain.ClientMeta, reason string) (bool, error) {
	blocked, _, err := g.tracker.RecordFailedAttempt(ctx, email, requestMeta(meta), reason)
	return blocked, err
}

func (g *loginGuard) Clear(ctx context.Context, email, ip string) error {
	return g.tracker.ClearAttempts(ctx, email, ip)
}

func requestMeta(m domain.ClientMeta) security.RequestMeta {
	return security.RequestMeta{IP: m.IP, UserAgent: m.UserAgent, RequestID: m.RequestID}
}
