package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddRequiresUser(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(ctx, NewStore(NewMemoryKV(0), "sid"))

	_, err := cart.Add(ctx, nil, testProduct("p1", 10, "A"))
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindNotAuthenticated, appErr.Kind)
	assert.Empty(t, cart.Items())
}

func TestCart_SameProductTwiceGetsDistinctSlots(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(ctx, NewStore(NewMemoryKV(0), "sid"))
	u := testUser("u1", domain.RoleBuyer)

	a, err := cart.Add(ctx, &u, testProduct("p1", 10, "A"))
	require.NoError(t, err)
	b, err := cart.Add(ctx, &u, testProduct("p1", 10, "A"))
	require.NoError(t, err)

	assert.NotEqual(t, a.SlotID, b.SlotID)
	assert.Len(t, cart.Items(), 2)
}

func TestCart_SlotCollisionIsRetried(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(ctx, NewStore(NewMemoryKV(0), "sid"))
	ids := []string{"dup", "dup", "fresh"}
	n := 0
	cart.newSlot = func() string { id := ids[n]; n++; return id }
	u := testUser("u1", domain.RoleBuyer)

	_, err := cart.Add(ctx, &u, testProduct("p1", 1, "A"))
	require.NoError(t, err)
	second, err := cart.Add(ctx, &u, testProduct("p2", 1, "A"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.SlotID)
}

func TestCart_RemoveAbsentSlotIsNoop(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(ctx, NewStore(NewMemoryKV(0), "sid"))
	u := testUser("u1", domain.RoleBuyer)
	_, err := cart.Add(ctx, &u, testProduct("p1", 10, "A"))
	require.NoError(t, err)

	before := cart.Items()
	cart.Remove(ctx, "no-such-slot")
	assert.Equal(t, before, cart.Items())
}

func TestCart_RemoveSlotsKeepsOthers(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(0), "sid")
	cart := NewCart(ctx, store)
	u := testUser("u1", domain.RoleBuyer)

	var added []domain.CartItem
	for i := 0; i < 3; i++ {
		it, err := cart.Add(ctx, &u, testProduct(fmt.Sprintf("p%d", i), 10, "A"))
		require.NoError(t, err)
		added = append(added, it)
	}

	cart.RemoveSlots(ctx, []string{added[0].SlotID, added[2].SlotID, "no-such-slot"})
	assert.Equal(t, []domain.CartItem{added[1]}, cart.Items())
	assert.Equal(t, []domain.CartItem{added[1]}, store.LoadCart(ctx))

	cart.RemoveSlots(ctx, nil)
	assert.Len(t, cart.Items(), 1)
}

func TestCart_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	store := NewStore(kv, "sid")
	cart := NewCart(ctx, store)
	u := testUser("u1", domain.RoleBuyer)

	var added []domain.CartItem
	for i := 0; i < 4; i++ {
		it, err := cart.Add(ctx, &u, testProduct(fmt.Sprintf("p%d", i), float64(i*10), "A"))
		require.NoError(t, err)
		added = append(added, it)
	}
	assert.Equal(t, added, store.LoadCart(ctx))

	cart.Remove(ctx, added[1].SlotID)
	assert.Equal(t, []domain.CartItem{added[0], added[2], added[3]}, store.LoadCart(ctx))

	reloaded := NewCart(ctx, store)
	assert.Equal(t, cart.Items(), reloaded.Items())

	cart.Clear(ctx)
	assert.Empty(t, store.LoadCart(ctx))
}

func TestCart_PersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(ctx, NewStore(failingKV{inner: NewMemoryKV(0)}, "sid"))
	u := testUser("u1", domain.RoleBuyer)

	_, err := cart.Add(ctx, &u, testProduct("p1", 5, "A"))
	require.NoError(t, err)
	assert.Len(t, cart.Items(), 1)
}

func TestCart_ClearedOnSignOut(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	u := testUser("u1", domain.RoleBuyer)
	require.NoError(t, NewStore(kv, "sid").SaveUser(ctx, u))

	repo := new(MockProfileRepo)
	s := New(ctx, "sid", kv, repo)
	defer s.Close()

	s.Publish(ctx, &domain.Identity{ID: "u1"})
	_, err := s.Cart().Add(ctx, s.CurrentUser(), testProduct("p1", 100, "A"))
	require.NoError(t, err)

	s.Logout(ctx)

	assert.Empty(t, s.Cart().Items())
	_, err = kv.Get(ctx, CartKey("sid"))
	assert.ErrorIs(t, err, ErrKeyNotFound, "persisted cart key removed")
}

func TestCart_ClearedOnIdentitySwitch(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	repo := new(MockProfileRepo)
	repo.On("Get", ctx, "u2").Return(testProfile(domain.RoleBuyer), nil)

	s := New(ctx, "sid", kv, repo)
	defer s.Close()
	u1 := testUser("u1", domain.RoleBuyer)
	require.NoError(t, s.Adopt(ctx, u1))
	_, err := s.Cart().Add(ctx, s.CurrentUser(), testProduct("p1", 100, "A"))
	require.NoError(t, err)

	s.Publish(ctx, &domain.Identity{ID: "u2"})

	assert.Equal(t, "u2", s.CurrentUser().ID)
	assert.Empty(t, s.Cart().Items())
}

func TestCart_OrphanSnapshotDroppedOnRestore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	require.NoError(t, NewStore(kv, "sid").SaveCart(ctx, []domain.CartItem{{SlotID: "s", ProductID: "p"}}))

	s := New(ctx, "sid", kv, new(MockProfileRepo))
	defer s.Close()
	assert.Empty(t, s.Cart().Items())
}
