package session

import (
	"strings"

	"campus-marketplace-backend/internal/domain"
)

// DefaultDeliveryFee is the flat surcharge for an item shipped across campuses.
const DefaultDeliveryFee = 50.0

// Calculator prices a cart for a buyer.
type Calculator struct {
	Fee float64
}

func NewCalculator(fee float64) Calculator {
	if fee < 0 {
		fee = DefaultDeliveryFee
	}
	return Calculator{Fee: fee}
}

// DeliveryFee is charged only when both campuses are known and differ,
// ignoring case and surrounding whitespace.
func (c Calculator) DeliveryFee(buyerCampus, itemCampus string) float64 {
	b := strings.TrimSpace(buyerCampus)
	i := strings.TrimSpace(itemCampus)
	if b == "" || i == "" || strings.EqualFold(b, i) {
		return 0
	}
	return c.Fee
}

func (c Calculator) ItemTotal(item domain.CartItem, buyerCampus string) float64 {
	return item.Price + c.DeliveryFee(buyerCampus, item.SellerCampus)
}

func (c Calculator) CartTotal(items []domain.CartItem, buyerCampus string) float64 {
	var total float64
	for _, it := range items {
		total += c.ItemTotal(it, buyerCampus)
	}
	return total
}

func (c Calculator) TotalDelivery(items []domain.CartItem, buyerCampus string) float64 {
	var total float64
	for _, it := range items {
		total += c.DeliveryFee(buyerCampus, it.SellerCampus)
	}
	return total
}

// Summarize prices every line. Total always equals Subtotal + TotalDelivery.
func (c Calculator) Summarize(items []domain.CartItem, buyerCampus string) domain.CartTotals {
	totals := domain.CartTotals{Lines: make([]domain.CartLine, 0, len(items))}
	for _, it := range items {
		fee := c.DeliveryFee(buyerCampus, it.SellerCampus)
		totals.Lines = append(totals.Lines, domain.CartLine{
			CartItem:    it,
			DeliveryFee: fee,
			LineTotal:   it.Price + fee,
		})
		totals.Subtotal += it.Price
		totals.TotalDelivery += fee
	}
	totals.Total = totals.Subtotal + totals.TotalDelivery
	return totals
}
