package domain

import (
	"context"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderConfirmed OrderStatus = "Confirmed"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderDelivered, OrderCancelled},
}

// CanTransition reports whether an order may move from s to next.
// Delivered and Cancelled are terminal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingInfo struct {
	Name    string `json:"name" binding:"required,min=2,max=80,valid_name"`
	Phone   string `json:"phone" binding:"required,valid_phone"`
	Campus  string `json:"campus" binding:"required,max=80,campus"`
	Address string `json:"address" binding:"required,min=5,max=300"`
	Note    string `json:"note" binding:"max=300"`
}

type OrderItem struct {
	ProductID    string  `json:"productId"`
	SellerID     string  `json:"sellerId"`
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	SellerCampus string  `json:"sellerCampus"`
	DeliveryFee  float64 `json:"deliveryFee"`
	LineTotal    float64 `json:"lineTotal"`
}

type Order struct {
	ID            string       `json:"id"`
	BuyerID       string       `json:"buyerId"`
	BuyerName     string       `json:"buyerName"`
	BuyerCampus   string       `json:"buyerCampus"`
	Items         []OrderItem  `json:"items"`
	Subtotal      float64      `json:"subtotal"`
	DeliveryTotal float64      `json:"deliveryTotal"`
	Total         float64      `json:"total"`
	Status        OrderStatus  `json:"status"`
	Shipping      ShippingInfo `json:"shipping"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// HasSeller reports whether any line of the order belongs to sellerID.
func (o *Order) HasSeller(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

type CheckoutRequest struct {
	Shipping ShippingInfo `json:"shipping" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,oneof=Confirmed Delivered Cancelled"`
}

type OrderRepository interface {
	// Create inserts the order and its items and marks the products sold,
	// all in one transaction. Returns a Conflict error if any product is
	// no longer available.
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string, page, pageSize int) ([]Order, int64, error)
	ListBySeller(ctx context.Context, sellerID string, page, pageSize int) ([]Order, int64, error)
	// UpdateStatus returns the products to Available when cancelling.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}

type OrderUsecase interface {
	Checkout(ctx context.Context, sess Session, req CheckoutRequest) (*Order, error)
	Get(ctx context.Context, sess Session, id string) (*Order, error)
	ListMine(ctx context.Context, sess Session, page, pageSize int) (*PaginatedResult[Order], error)
	ListForSeller(ctx context.Context, sess Session, page, pageSize int) (*PaginatedResult[Order], error)
	UpdateStatus(ctx context.Context, sess Session, id string, status OrderStatus) (*Order, error)
}
