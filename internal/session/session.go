package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"campus-marketplace-backend/internal/domain"
)

// Session bundles one client's identity feed, reconciler and cart. It
// implements domain.Session.
type Session struct {
	id         string
	feed       *Feed
	reconciler *Reconciler
	cart       *Cart

	lastSeen  atomic.Int64
	closeOnce sync.Once
	detach    []func()
}

var _ domain.Session = (*Session)(nil)

// New restores the session's snapshots from kv and wires the reconciler to
// the feed and the cart to the reconciler.
func New(ctx context.Context, id string, kv KV, profiles domain.ProfileRepository) *Session {
	store := NewStore(kv, id)
	s := &Session{
		id:         id,
		feed:       NewFeed(),
		reconciler: NewReconciler(ctx, store, profiles),
		cart:       NewCart(ctx, store),
	}
	s.detach = append(s.detach,
		s.reconciler.Attach(s.feed),
		s.cart.Watch(ctx, s.reconciler),
	)
	s.touch()
	return s
}

func (s *Session) ID() string { return s.id }

// Publish delivers an identity change (nil for signed out) and returns once
// it has been reconciled.
func (s *Session) Publish(ctx context.Context, identity *domain.Identity) {
	s.touch()
	s.feed.Publish(ctx, identity)
}

func (s *Session) CurrentUser() *domain.User { return s.reconciler.CurrentUser() }

func (s *Session) Identity() *domain.Identity { return s.reconciler.Identity() }

func (s *Session) Adopt(ctx context.Context, user domain.User) error {
	return s.reconciler.Adopt(ctx, user)
}

func (s *Session) Logout(ctx context.Context) { s.reconciler.Clear(ctx) }

func (s *Session) Refresh(ctx context.Context) error { return s.reconciler.Refresh(ctx) }

func (s *Session) Cart() domain.CartStore { return s.cart }

// OnUserChange exposes the reconciler's change notifications.
func (s *Session) OnUserChange(fn UserListener) func() {
	return s.reconciler.OnUserChange(fn)
}

// Close unsubscribes everything. Persisted snapshots are left in place so
// the session can be restored later.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for i := len(s.detach) - 1; i >= 0; i-- {
			s.detach[i]()
		}
	})
}

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}
