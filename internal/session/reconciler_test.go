package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T, kv KV) (*Reconciler, *MockProfileRepo, *Store) {
	t.Helper()
	repo := new(MockProfileRepo)
	store := NewStore(kv, "sid-1")
	return NewReconciler(context.Background(), store, repo), repo, store
}

func TestReconciler_FastPathUsesCache(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	cached := testUser("u1", domain.RoleBuyer)
	require.NoError(t, NewStore(kv, "sid-1").SaveUser(ctx, cached))

	r, repo, _ := newTestReconciler(t, kv)
	r.HandleIdentityChange(ctx, &domain.Identity{ID: "u1"})

	require.NotNil(t, r.CurrentUser())
	assert.Equal(t, cached, *r.CurrentUser())
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestReconciler_SlowPathFetchesAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	require.NoError(t, NewStore(kv, "sid-1").SaveUser(ctx, testUser("u1", domain.RoleBuyer)))

	r, repo, store := newTestReconciler(t, kv)
	repo.On("Get", mock.Anything, "u2").Return(testProfile(domain.RoleSeller), nil).Once()

	r.HandleIdentityChange(ctx, &domain.Identity{ID: "u2"})

	cur := r.CurrentUser()
	require.NotNil(t, cur)
	assert.Equal(t, "u2", cur.ID)
	assert.Equal(t, domain.RoleSeller, cur.Role)

	persisted := store.LoadUser(ctx)
	require.NotNil(t, persisted)
	assert.Equal(t, "u2", persisted.ID)
	repo.AssertExpectations(t)
}

func TestReconciler_NoProfileLeavesUserAbsent(t *testing.T) {
	ctx := context.Background()
	r, repo, store := newTestReconciler(t, NewMemoryKV(0))
	repo.On("Get", mock.Anything, "u2").Return(nil, nil).Once()

	r.HandleIdentityChange(ctx, &domain.Identity{ID: "u2"})

	assert.Nil(t, r.CurrentUser())
	assert.Nil(t, store.LoadUser(ctx), "nothing persisted")
	require.NotNil(t, r.Identity())
	assert.Equal(t, "u2", r.Identity().ID)
}

func TestReconciler_FetchFailureDegradesToAbsent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	require.NoError(t, NewStore(kv, "sid-1").SaveUser(ctx, testUser("u1", domain.RoleBuyer)))

	r, repo, _ := newTestReconciler(t, kv)
	require.NotNil(t, r.CurrentUser(), "restored from snapshot")
	repo.On("Get", mock.Anything, "u3").Return(nil, errors.New("network down"))

	r.HandleIdentityChange(ctx, &domain.Identity{ID: "u3"})
	assert.Nil(t, r.CurrentUser())
}

func TestReconciler_SignOutClears(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	require.NoError(t, NewStore(kv, "sid-1").SaveUser(ctx, testUser("u1", domain.RoleBuyer)))

	r, _, store := newTestReconciler(t, kv)

	var changes [][2]*domain.User
	unsubscribe := r.OnUserChange(func(_ context.Context, prev, next *domain.User) {
		changes = append(changes, [2]*domain.User{prev, next})
	})
	defer unsubscribe()

	r.HandleIdentityChange(ctx, nil)

	assert.Nil(t, r.CurrentUser())
	assert.Nil(t, r.Identity())
	assert.Nil(t, store.LoadUser(ctx))
	require.Len(t, changes, 1)
	assert.Equal(t, "u1", changes[0][0].ID)
	assert.Nil(t, changes[0][1])
}

func TestReconciler_StaleFetchIsDropped(t *testing.T) {
	ctx := context.Background()
	r, repo, store := newTestReconciler(t, NewMemoryKV(0))

	started := make(chan struct{})
	release := make(chan struct{})
	repo.On("Get", mock.Anything, "u2").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(testProfile(domain.RoleBuyer), nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.HandleIdentityChange(ctx, &domain.Identity{ID: "u2"})
	}()

	<-started
	// Sign-out arrives while the fetch for u2 is still in flight
	r.HandleIdentityChange(ctx, nil)
	close(release)
	<-done

	assert.Nil(t, r.CurrentUser(), "late fetch result must not resurrect the user")
	assert.Nil(t, store.LoadUser(ctx))
}

func TestReconciler_AdoptSupersedesInflightFetch(t *testing.T) {
	ctx := context.Background()
	r, repo, store := newTestReconciler(t, NewMemoryKV(0))

	started := make(chan struct{})
	release := make(chan struct{})
	repo.On("Get", mock.Anything, "old").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(testProfile(domain.RoleSeller), nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.HandleIdentityChange(ctx, &domain.Identity{ID: "old"})
	}()

	<-started
	fresh := testUser("new", domain.RoleBuyer)
	require.NoError(t, r.Adopt(ctx, fresh))
	close(release)
	<-done

	require.NotNil(t, r.CurrentUser())
	assert.Equal(t, "new", r.CurrentUser().ID)
	assert.Equal(t, "new", store.LoadUser(ctx).ID)
}

func TestReconciler_Adopt(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestReconciler(t, NewMemoryKV(0))

	t.Run("valid user", func(t *testing.T) {
		u := testUser("u1", domain.RoleSeller)
		require.NoError(t, r.Adopt(ctx, u))
		assert.Equal(t, u, *r.CurrentUser())
		assert.Equal(t, u, *store.LoadUser(ctx))
		assert.Equal(t, "u1", r.Identity().ID)
	})

	t.Run("invalid user", func(t *testing.T) {
		err := r.Adopt(ctx, domain.User{ID: "u2", Role: "root"})
		assert.Error(t, err)
		assert.Equal(t, "u1", r.CurrentUser().ID)
	})

	t.Run("store failure keeps in-memory state", func(t *testing.T) {
		r2, _, _ := newTestReconciler(t, failingKV{inner: NewMemoryKV(0)})
		u := testUser("u9", domain.RoleBuyer)
		require.NoError(t, r2.Adopt(ctx, u))
		assert.Equal(t, "u9", r2.CurrentUser().ID)
	})
}

func TestReconciler_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("not signed in", func(t *testing.T) {
		r, _, _ := newTestReconciler(t, NewMemoryKV(0))
		err := r.Refresh(ctx)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperror.KindNotAuthenticated, appErr.Kind)
	})

	t.Run("picks up admin changes", func(t *testing.T) {
		r, repo, _ := newTestReconciler(t, NewMemoryKV(0))
		require.NoError(t, r.Adopt(ctx, testUser("u1", domain.RoleSeller)))

		approved := testProfile(domain.RoleSeller)
		approved.Approved = true
		approved.Campus = "East"
		repo.On("Get", mock.Anything, "u1").Return(approved, nil).Once()

		require.NoError(t, r.Refresh(ctx))
		assert.Equal(t, "East", r.CurrentUser().Campus)
	})

	t.Run("fetch failure keeps user", func(t *testing.T) {
		r, repo, _ := newTestReconciler(t, NewMemoryKV(0))
		require.NoError(t, r.Adopt(ctx, testUser("u1", domain.RoleBuyer)))
		repo.On("Get", mock.Anything, "u1").Return(nil, errors.New("timeout")).Once()

		err := r.Refresh(ctx)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
		assert.NotNil(t, r.CurrentUser())
	})

	t.Run("deleted profile is not restored from the snapshot", func(t *testing.T) {
		r, repo, store := newTestReconciler(t, NewMemoryKV(0))
		require.NoError(t, r.Adopt(ctx, testUser("u1", domain.RoleSeller)))
		repo.On("Get", mock.Anything, "u1").Return(nil, nil)

		err := r.Refresh(ctx)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperror.KindProfileNotFound, appErr.Kind)
		assert.Nil(t, r.CurrentUser())
		assert.Nil(t, store.LoadUser(ctx))

		r.HandleIdentityChange(ctx, &domain.Identity{ID: "u1"})
		assert.Nil(t, r.CurrentUser())
		assert.Nil(t, store.LoadUser(ctx))
	})
}

func TestReconciler_ListenersOnlySeeChanges(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	require.NoError(t, NewStore(kv, "sid-1").SaveUser(ctx, testUser("u1", domain.RoleBuyer)))
	r, _, _ := newTestReconciler(t, kv)

	calls := 0
	unsubscribe := r.OnUserChange(func(context.Context, *domain.User, *domain.User) { calls++ })

	r.HandleIdentityChange(ctx, &domain.Identity{ID: "u1"})
	r.HandleIdentityChange(ctx, &domain.Identity{ID: "u1"})
	assert.Equal(t, 0, calls, "same cached user, no change")

	r.HandleIdentityChange(ctx, nil)
	assert.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe()
	require.NoError(t, r.Adopt(ctx, testUser("u1", domain.RoleBuyer)))
	assert.Equal(t, 1, calls, "unsubscribed")
}
