package session

import (
	"context"
	"testing"
	"time"

	"campus-marketplace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(0), "sid-1")

	assert.Nil(t, store.LoadUser(ctx))

	u := testUser("u1", domain.RoleSeller)
	require.NoError(t, store.SaveUser(ctx, u))

	got := store.LoadUser(ctx)
	require.NotNil(t, got)
	assert.Equal(t, u, *got)

	require.NoError(t, store.ClearUser(ctx))
	assert.Nil(t, store.LoadUser(ctx))
}

func TestStore_MalformedBlobsAreEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	store := NewStore(kv, "sid-1")

	tests := []struct {
		name string
		user string
		cart string
	}{
		{"garbage", "{not json", "[{"},
		{"wrong shape", `"just a string"`, `{"slotId":"x"}`},
		{"missing required fields", `{"name":"no id"}`, `[{"slotId":"","productId":"p"}]`},
		{"bad role", `{"id":"u1","role":"superuser"}`, `[{"slotId":"s","productId":"p","price":-5}]`},
		{"duplicate slots", `{"id":"u1","role":"buyer","email":"not-an-email"}`,
			`[{"slotId":"s","productId":"p1"},{"slotId":"s","productId":"p2"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, kv.Set(ctx, UserKey("sid-1"), []byte(tt.user)))
			require.NoError(t, kv.Set(ctx, CartKey("sid-1"), []byte(tt.cart)))

			assert.Nil(t, store.LoadUser(ctx))
			assert.Empty(t, store.LoadCart(ctx))
		})
	}
}

func TestStore_CartRoundTripKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(0), "sid-1")

	items := []domain.CartItem{
		{SlotID: "c", ProductID: "p3", Title: "Lamp", Price: 30, SellerCampus: "A"},
		{SlotID: "a", ProductID: "p1", Title: "Book", Price: 10, SellerCampus: "B"},
		{SlotID: "b", ProductID: "p1", Title: "Book", Price: 10, SellerCampus: "B"},
	}
	require.NoError(t, store.SaveCart(ctx, items))
	assert.Equal(t, items, store.LoadCart(ctx))
}

func TestStore_KeysAreScopedPerSession(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	a := NewStore(kv, "a")
	b := NewStore(kv, "b")

	require.NoError(t, a.SaveUser(ctx, testUser("u1", domain.RoleBuyer)))
	assert.Nil(t, b.LoadUser(ctx))
	assert.Equal(t, "session:a:user", UserKey("a"))
	assert.Equal(t, "session:a:cart", CartKey("a"))
}

func TestMemoryKV_Expiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, 1, kv.Sweep())
}
