package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type orderUsecase struct {
	orders   domain.OrderRepository
	products domain.ProductRepository
	calc     session.Calculator
	now      func() time.Time
}

func NewOrderUsecase(orders domain.OrderRepository, products domain.ProductRepository, calc session.Calculator) domain.OrderUsecase {
	return &orderUsecase{
		orders:   orders,
		products: products,
		calc:     calc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Checkout turns the session's cart into one pending order. Prices and
// seller campuses are re-read from the catalogue; the checked-out slots are
// removed only once the order is stored.
func (u *orderUsecase) Checkout(ctx context.Context, sess domain.Session, req domain.CheckoutRequest) (*domain.Order, error) {
	user := sess.CurrentUser()
	if d := session.Authorize(user, domain.RoleBuyer, "/checkout"); d != session.Allow {
		return nil, gateError(d)
	}

	items := sess.Cart().Items()
	if len(items) == 0 {
		return nil, apperror.BadRequest("Your cart is empty")
	}

	// Listings are single units, so a product may be bought once per order.
	ids := make([]string, 0, len(items))
	slots := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ProductID]; dup {
			return nil, apperror.Conflict(fmt.Sprintf("%s is in your cart more than once", it.Title))
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
		slots = append(slots, it.SlotID)
	}
	products, err := u.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var unavailable []string
	sellers := make(map[string]string, len(items))
	fresh := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || p.Status != domain.ProductAvailable {
			unavailable = append(unavailable, it.Title)
			continue
		}
		it.Price = p.Price
		it.SellerCampus = p.SellerCampus
		it.Title = p.Title
		sellers[p.ID] = p.SellerID
		fresh = append(fresh, it)
	}
	if len(unavailable) > 0 {
		return nil, apperror.Conflict(fmt.Sprintf("No longer available: %s", strings.Join(unavailable, ", ")))
	}

	totals := u.calc.Summarize(fresh, user.Campus)
	now := u.now()
	order := &domain.Order{
		BuyerID:       user.ID,
		BuyerName:     user.Name,
		BuyerCampus:   user.Campus,
		Items:         make([]domain.OrderItem, 0, len(totals.Lines)),
		Subtotal:      totals.Subtotal,
		DeliveryTotal: totals.TotalDelivery,
		Total:         totals.Total,
		Status:        domain.OrderPending,
		Shipping:      req.Shipping,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, line := range totals.Lines {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:    line.ProductID,
			SellerID:     sellers[line.ProductID],
			Title:        line.Title,
			Price:        line.Price,
			SellerCampus: line.SellerCampus,
			DeliveryFee:  line.DeliveryFee,
			LineTotal:    line.LineTotal,
		})
	}

	if err := u.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	sess.Cart().RemoveSlots(ctx, slots)

	logger.Log.Info("Order placed", "order_id", order.ID, "buyer_id", user.ID, "items", len(order.Items), "total", order.Total)
	return order, nil
}

func (u *orderUsecase) Get(ctx context.Context, sess domain.Session, id string) (*domain.Order, error) {
	user := sess.CurrentUser()
	if user == nil {
		return nil, notSignedIn()
	}
	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != user.ID && !order.HasSeller(user.ID) && user.Role != domain.RoleAdmin {
		return nil, apperror.Forbidden("You can only view your own orders")
	}
	return order, nil
}

func (u *orderUsecase) ListMine(ctx context.Context, sess domain.Session, page, pageSize int) (*domain.PaginatedResult[domain.Order], error) {
	user := sess.CurrentUser()
	if user == nil {
		return nil, notSignedIn()
	}
	page, pageSize = domain.NormalizePage(page, pageSize)
	orders, total, err := u.orders.ListByBuyer(ctx, user.ID, page, pageSize)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return domain.NewPaginatedResult(orders, total, page, pageSize), nil
}

func (u *orderUsecase) ListForSeller(ctx context.Context, sess domain.Session, page, pageSize int) (*domain.PaginatedResult[domain.Order], error) {
	user := sess.CurrentUser()
	if d := session.Authorize(user, domain.RoleSeller, "/seller-dashboard"); d != session.Allow {
		return nil, gateError(d)
	}
	page, pageSize = domain.NormalizePage(page, pageSize)
	orders, total, err := u.orders.ListBySeller(ctx, user.ID, page, pageSize)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return domain.NewPaginatedResult(orders, total, page, pageSize), nil
}

// UpdateStatus lets a seller with a line in the order, or an admin, move it
// along. Buyers may cancel their own pending orders.
func (u *orderUsecase) UpdateStatus(ctx context.Context, sess domain.Session, id string, status domain.OrderStatus) (*domain.Order, error) {
	user := sess.CurrentUser()
	if user == nil {
		return nil, notSignedIn()
	}
	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}

	buyerCancel := order.BuyerID == user.ID && status == domain.OrderCancelled && order.Status == domain.OrderPending
	if !buyerCancel && !order.HasSeller(user.ID) && user.Role != domain.RoleAdmin {
		return nil, apperror.Forbidden("You cannot update this order")
	}
	if !order.Status.CanTransition(status) {
		return nil, apperror.BadRequest(fmt.Sprintf("Cannot move order from %s to %s", order.Status, status))
	}

	if err := u.orders.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Order not found")
		}
		return nil, err
	}
	order.Status = status
	order.UpdatedAt = u.now()

	logger.Log.Info("Order status changed", "order_id", id, "status", status, "by", user.ID)
	return order, nil
}

func (u *orderUsecase) load(ctx context.Context, id string) (*domain.Order, error) {
	order, err := u.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Order not found")
		}
		return nil, apperror.Internal(err)
	}
	return order, nil
}

func notSignedIn() error {
	return apperror.Identity(http.StatusUnauthorized, apperror.KindNotAuthenticated, "Not signed in", nil)
}

// gateError maps a refused gate decision to an API error.
func gateError(d session.Decision) error {
	switch d {
	case session.RedirectLogin:
		return notSignedIn()
	case session.RedirectCompleteProfile:
		return apperror.Forbidden("Please complete your profile first")
	case session.RedirectPendingApproval:
		return apperror.Forbidden("Your seller account is awaiting approval")
	default:
		return apperror.Forbidden("You do not have access to this resource")
	}
}
