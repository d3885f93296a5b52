package domain

import "context"

// CartItem is one slot in a cart. The same product may occupy several
// slots; SlotID tells them apart.
type CartItem struct {
	SlotID       string  `json:"slotId" validate:"required"`
	ProductID    string  `json:"productId" validate:"required"`
	Title        string  `json:"title"`
	Price        float64 `json:"price" validate:"gte=0"`
	SellerCampus string  `json:"sellerCampus"`
	ImageURL     string  `json:"imageUrl,omitempty"`
}

// CartLine is a cart item with its delivery surcharge applied.
type CartLine struct {
	CartItem
	DeliveryFee float64 `json:"deliveryFee"`
	LineTotal   float64 `json:"lineTotal"`
}

type CartTotals struct {
	Lines         []CartLine `json:"lines"`
	Subtotal      float64    `json:"subtotal"`
	TotalDelivery float64    `json:"totalDelivery"`
	Total         float64    `json:"total"`
}

// CartStore is a session's cart. Mutations persist the new snapshot;
// persistence failures are logged, never returned.
type CartStore interface {
	Add(ctx context.Context, user *User, product Product) (CartItem, error)
	Remove(ctx context.Context, slotID string)
	RemoveSlots(ctx context.Context, slotIDs []string)
	Clear(ctx context.Context)
	Items() []CartItem
}

type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
}

type CartView struct {
	Items  []CartItem `json:"items"`
	Count  int        `json:"count"`
	Totals CartTotals `json:"totals"`
}

type CartUsecase interface {
	View(ctx context.Context, sess Session) CartView
	AddProduct(ctx context.Context, sess Session, productID string) (*CartItem, error)
	Remove(ctx context.Context, sess Session, slotID string) CartView
	Clear(ctx context.Context, sess Session) CartView
}
