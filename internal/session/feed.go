package session

import (
	"context"
	"sync"

	"campus-marketplace-backend/internal/domain"
)

// IdentityListener receives identity changes. nil means signed out.
type IdentityListener func(ctx context.Context, identity *domain.Identity)

// Feed fans identity changes out to subscribers in subscription order.
// Publish runs listeners on the caller's goroutine.
type Feed struct {
	mu        sync.Mutex
	next      int
	listeners map[int]IdentityListener
	order     []int
}

func NewFeed() *Feed {
	return &Feed{listeners: make(map[int]IdentityListener)}
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (f *Feed) Subscribe(fn IdentityListener) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.order = append(f.order, id)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners, id)
			for i, v := range f.order {
				if v == id {
					f.order = append(f.order[:i], f.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (f *Feed) Publish(ctx context.Context, identity *domain.Identity) {
	f.mu.Lock()
	fns := make([]IdentityListener, 0, len(f.order))
	for _, id := range f.order {
		fns = append(fns, f.listeners[id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		var ev *domain.Identity
		if identity != nil {
			cp := *identity
			ev = &cp
		}
		fn(ctx, ev)
	}
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}
