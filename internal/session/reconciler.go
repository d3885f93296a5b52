package session

import (
	"context"
	"net/http"
	"sync"

	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"
)

// UserListener is told about every change of the current user. prev and
// next are copies; either may be nil.
type UserListener func(ctx context.Context, prev, next *domain.User)

// Reconciler derives the current user from identity changes. Each change
// is resolved on its own: sign-out clears, a cached snapshot for the same
// identity is adopted as is, anything else is fetched from the profile
// store. Every resolution takes a sequence number when it starts and is
// dropped at commit time if a newer one has started since.
type Reconciler struct {
	store    *Store
	profiles domain.ProfileRepository

	mu       sync.Mutex
	current  *domain.User
	identity *domain.Identity
	seq      uint64

	subMu     sync.Mutex
	nextSub   int
	subs      map[int]UserListener
	subsOrder []int
}

// NewReconciler starts from the persisted snapshot, if any. The first
// identity event confirms or replaces it.
func NewReconciler(ctx context.Context, store *Store, profiles domain.ProfileRepository) *Reconciler {
	return &Reconciler{
		store:    store,
		profiles: profiles,
		current:  store.LoadUser(ctx),
		subs:     make(map[int]UserListener),
	}
}

func (r *Reconciler) CurrentUser() *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.current)
}

// Identity is the identity of the last event or adoption.
func (r *Reconciler) Identity() *domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identity == nil {
		return nil
	}
	id := *r.identity
	return &id
}

// Attach subscribes the reconciler to feed and returns the detach func.
func (r *Reconciler) Attach(feed *Feed) func() {
	return feed.Subscribe(r.HandleIdentityChange)
}

// OnUserChange registers fn and returns a function that removes it.
func (r *Reconciler) OnUserChange(fn UserListener) func() {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subsOrder = append(r.subsOrder, id)
	r.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			delete(r.subs, id)
			for i, v := range r.subsOrder {
				if v == id {
					r.subsOrder = append(r.subsOrder[:i], r.subsOrder[i+1:]...)
					break
				}
			}
		})
	}
}

// HandleIdentityChange resolves one identity event. Errors never escape;
// a failed profile fetch leaves the session signed out.
func (r *Reconciler) HandleIdentityChange(ctx context.Context, identity *domain.Identity) {
	r.mu.Lock()
	r.seq++
	seq := r.seq

	if identity == nil {
		r.identity = nil
		prev := r.current
		r.current = nil
		if err := r.store.ClearUser(ctx); err != nil {
			logger.Log.Warn("Failed to clear persisted user", "session_id", r.store.SessionID(), "error", err)
		}
		r.mu.Unlock()
		r.notify(ctx, prev, nil)
		return
	}

	id := *identity
	r.identity = &id
	r.mu.Unlock()

	if cached := r.store.LoadUser(ctx); cached != nil && cached.ID == identity.ID {
		r.commit(ctx, seq, cached, false)
		return
	}

	profile, err := r.profiles.Get(ctx, identity.ID)
	if err != nil {
		logger.Log.Error("Profile fetch failed during reconciliation",
			"session_id", r.store.SessionID(), "user_id", identity.ID, "error", err)
		r.commit(ctx, seq, nil, false)
		return
	}
	if profile == nil {
		// New identity that has not picked a role yet
		r.commit(ctx, seq, nil, false)
		return
	}

	u := profile.ToUser(identity.ID)
	r.commit(ctx, seq, &u, true)
}

// commit installs next if no newer resolution has started. Returns whether
// it was applied.
func (r *Reconciler) commit(ctx context.Context, seq uint64, next *domain.User, persist bool) bool {
	r.mu.Lock()
	if seq != r.seq {
		r.mu.Unlock()
		logger.Log.Debug("Dropping stale reconciliation result", "session_id", r.store.SessionID(), "seq", seq)
		return false
	}

	prev := r.current
	r.current = cloneUser(next)
	switch {
	case next == nil:
		if err := r.store.ClearUser(ctx); err != nil {
			logger.Log.Warn("Failed to remove persisted user", "session_id", r.store.SessionID(), "error", err)
		}
	case persist:
		if err := r.store.SaveUser(ctx, *next); err != nil {
			logger.Log.Warn("Failed to persist user", "session_id", r.store.SessionID(), "error", err)
		}
	}
	r.mu.Unlock()

	r.notify(ctx, prev, next)
	return true
}

// Adopt installs user directly after an explicit sign-in, registration or
// profile edit.
func (r *Reconciler) Adopt(ctx context.Context, user domain.User) error {
	if err := snapshotValidator.Struct(user); err != nil {
		return apperror.BadRequest("Invalid user record")
	}

	r.mu.Lock()
	r.seq++
	prev := r.current
	r.current = cloneUser(&user)
	r.identity = &domain.Identity{ID: user.ID, Email: user.Email, DisplayName: user.Name}
	if err := r.store.SaveUser(ctx, user); err != nil {
		logger.Log.Warn("Failed to persist user", "session_id", r.store.SessionID(), "error", err)
	}
	r.mu.Unlock()

	var fromRole domain.Role
	if prev != nil {
		fromRole = prev.Role
	}
	logger.Log.Info("Session user adopted",
		"session_id", r.store.SessionID(),
		"user_id", user.ID,
		"from_role", fromRole,
		"to_role", user.Role,
	)

	r.notify(ctx, prev, &user)
	return nil
}

// Clear signs the session out locally.
func (r *Reconciler) Clear(ctx context.Context) {
	r.HandleIdentityChange(ctx, nil)
}

// Refresh refetches the profile for the current identity. Unlike event
// handling, a fetch failure is returned and the current user is kept.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.identity == nil {
		r.mu.Unlock()
		return apperror.Identity(http.StatusUnauthorized, apperror.KindNotAuthenticated, "Not signed in", nil)
	}
	r.seq++
	seq := r.seq
	id := r.identity.ID
	r.mu.Unlock()

	profile, err := r.profiles.Get(ctx, id)
	if err != nil {
		return apperror.Unavailable("Profile store is unavailable", err)
	}
	if profile == nil {
		r.commit(ctx, seq, nil, false)
		return apperror.Identity(http.StatusNotFound, apperror.KindProfileNotFound, "Profile not found", nil)
	}

	u := profile.ToUser(id)
	r.commit(ctx, seq, &u, true)
	return nil
}

func (r *Reconciler) notify(ctx context.Context, prev, next *domain.User) {
	if sameUser(prev, next) {
		return
	}

	r.subMu.Lock()
	fns := make([]UserListener, 0, len(r.subsOrder))
	for _, id := range r.subsOrder {
		fns = append(fns, r.subs[id])
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(ctx, cloneUser(prev), cloneUser(next))
	}
}

func sameUser(a, b *domain.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
