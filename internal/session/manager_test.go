package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-marketplace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetReturnsSameSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryKV(0), new(MockProfileRepo), time.Minute)

	id := NewID()
	assert.True(t, ValidID(id))
	assert.False(t, ValidID("not-a-session"))

	var wg sync.WaitGroup
	got := make([]*Session, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, m.Len())
}

func TestManager_EvictionKeepsSnapshots(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	m := NewManager(kv, new(MockProfileRepo), time.Minute)

	s := m.Get(ctx, "sid")
	require.NoError(t, s.Adopt(ctx, testUser("u1", domain.RoleBuyer)))

	assert.Equal(t, 0, m.EvictIdle(time.Now()))
	assert.Equal(t, 1, m.EvictIdle(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, m.Len())

	restored := m.Get(ctx, "sid")
	assert.NotSame(t, s, restored)
	require.NotNil(t, restored.CurrentUser())
	assert.Equal(t, "u1", restored.CurrentUser().ID)
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(NewMemoryKV(0), new(MockProfileRepo), time.Millisecond)
	m.Get(context.Background(), "sid")
	m.Start(5 * time.Millisecond)

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestFeed_SubscribeOrderAndUnsubscribe(t *testing.T) {
	f := NewFeed()
	var got []string

	unsubA := f.Subscribe(func(_ context.Context, id *domain.Identity) { got = append(got, "a:"+id.ID) })
	f.Subscribe(func(_ context.Context, id *domain.Identity) { got = append(got, "b:"+id.ID) })

	f.Publish(context.Background(), &domain.Identity{ID: "u1"})
	unsubA()
	unsubA()
	f.Publish(context.Background(), &domain.Identity{ID: "u2"})

	assert.Equal(t, []string{"a:u1", "b:u1", "b:u2"}, got)
	assert.Equal(t, 1, f.Len())
}

func TestSession_CloseDetachesFromFeed(t *testing.T) {
	s := New(context.Background(), "sid", NewMemoryKV(0), new(MockProfileRepo))
	assert.Equal(t, 1, s.feed.Len())
	s.Close()
	assert.Equal(t, 0, s.feed.Len())
}
