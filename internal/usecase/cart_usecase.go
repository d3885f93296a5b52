package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"errors"
)

type cartUsecase struct {
	products domain.ProductRepository
	calc     session.Calculator
}

func NewCartUsecase(products domain.ProductRepository, calc session.Calculator) domain.CartUsecase {
	return &cartUsecase{products: products, calc: calc}
}

// View prices the cart for the signed-in user's campus. Signed-out
// sessions see an empty cart.
func (u *cartUsecase) View(ctx context.Context, sess domain.Session) domain.CartView {
	items := sess.Cart().Items()
	var campus string
	if user := sess.CurrentUser(); user != nil {
		campus = user.Campus
	}
	return domain.CartView{
		Items:  items,
		Count:  len(items),
		Totals: u.calc.Summarize(items, campus),
	}
}

func (u *cartUsecase) AddProduct(ctx context.Context, sess domain.Session, productID string) (*domain.CartItem, error) {
	user := sess.CurrentUser()
	if user == nil {
		// Let the cart produce the sign-in error
		_, err := sess.Cart().Add(ctx, nil, domain.Product{ID: productID})
		return nil, err
	}

	product, err := u.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, apperror.Internal(err)
	}
	if product.Status != domain.ProductAvailable {
		return nil, apperror.Conflict("This product is no longer available")
	}
	if product.SellerID == user.ID {
		return nil, apperror.BadRequest("You cannot add your own listing to the cart")
	}

	item, err := sess.Cart().Add(ctx, user, *product)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (u *cartUsecase) Remove(ctx context.Context, sess domain.Session, slotID string) domain.CartView {
	sess.Cart().Remove(ctx, slotID)
	return u.View(ctx, sess)
}

func (u *cartUsecase) Clear(ctx context.Context, sess domain.Session) domain.CartView {
	sess.Cart().Clear(ctx)
	return u.View(ctx, sess)
}
