package session

import (
	"context"
	"net/http"
	"sync"

	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"

	"github.com/google/uuid"
)

// Cart is a session's ordered list of selected products. Every mutation
// writes the whole snapshot back to the store.
type Cart struct {
	store   *Store
	newSlot func() string

	mu    sync.Mutex
	items []domain.CartItem
}

// NewCart restores the persisted snapshot for the session.
func NewCart(ctx context.Context, store *Store) *Cart {
	return &Cart{
		store:   store,
		newSlot: uuid.NewString,
		items:   store.LoadCart(ctx),
	}
}

// Add appends product under a fresh slot id. Signed-out callers are refused.
func (c *Cart) Add(ctx context.Context, user *domain.User, product domain.Product) (domain.CartItem, error) {
	if user == nil {
		return domain.CartItem{}, apperror.Identity(http.StatusUnauthorized, apperror.KindNotAuthenticated,
			"Please sign in to add items to your cart", nil)
	}
	if product.ID == "" {
		return domain.CartItem{}, apperror.BadRequest("Product is required")
	}
	if product.Price < 0 {
		return domain.CartItem{}, apperror.BadRequest("Product price cannot be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item := domain.CartItem{
		SlotID:       c.uniqueSlot(),
		ProductID:    product.ID,
		Title:        product.Title,
		Price:        product.Price,
		SellerCampus: product.SellerCampus,
		ImageURL:     product.ImageURL,
	}
	c.items = append(c.items, item)
	c.persist(ctx)
	return item, nil
}

func (c *Cart) uniqueSlot() string {
	for {
		id := c.newSlot()
		if c.indexOf(id) < 0 {
			return id
		}
	}
}

// Remove deletes the slot. Unknown slots are ignored.
func (c *Cart) Remove(ctx context.Context, slotID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(slotID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.persist(ctx)
}

// RemoveSlots deletes every listed slot and persists once. Items added
// after the caller read the cart are kept.
func (c *Cart) RemoveSlots(ctx context.Context, slotIDs []string) {
	if len(slotIDs) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		drop[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]domain.CartItem, 0, len(c.items))
	for _, item := range c.items {
		if _, ok := drop[item.SlotID]; !ok {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(c.items) {
		return
	}
	c.items = kept
	c.persist(ctx)
}

func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = []domain.CartItem{}
	c.persist(ctx)
}

func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// reset empties the cart and removes the persisted key.
func (c *Cart) reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = []domain.CartItem{}
	if err := c.store.ClearCart(ctx); err != nil {
		logger.Log.Warn("Failed to remove persisted cart", "session_id", c.store.SessionID(), "error", err)
	}
}

// Watch ties the cart to r: it is reset whenever the session signs out or
// switches to a different user. A cart restored without a signed-in user
// is reset immediately.
func (c *Cart) Watch(ctx context.Context, r *Reconciler) func() {
	if r.CurrentUser() == nil && c.Len() > 0 {
		c.reset(ctx)
	}
	return r.OnUserChange(func(ctx context.Context, prev, next *domain.User) {
		if next == nil || (prev != nil && prev.ID != next.ID) {
			c.reset(ctx)
		}
	})
}

func (c *Cart) indexOf(slotID string) int {
	for i := range c.items {
		if c.items[i].SlotID == slotID {
			return i
		}
	}
	return -1
}

func (c *Cart) persist(ctx context.Context) {
	if err := c.store.SaveCart(ctx, c.items); err != nil {
		logger.Log.Warn("Failed to persist cart", "session_id", c.store.SessionID(), "error", err)
	}
}
