package usecase_test

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/internal/usecase"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCartUsecase(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepo)
	uc := usecase.NewCartUsecase(products, session.NewCalculator(50))

	products.On("GetByID", mock.Anything, "p-near").Return(product("p-near", "s1", 300, "north "), nil)
	products.On("GetByID", mock.Anything, "p-far").Return(product("p-far", "s2", 100, "South"), nil)
	sold := product("p-sold", "s1", 10, "North")
	sold.Status = domain.ProductSold
	products.On("GetByID", mock.Anything, "p-sold").Return(sold, nil)
	products.On("GetByID", mock.Anything, "p-none").Return(nil, domain.ErrNotFound)

	t.Run("signed out cannot add", func(t *testing.T) {
		sess := newSession(t, new(MockProfileRepo))
		_, err := uc.AddProduct(ctx, sess, "p-near")
		assert.True(t, apperror.IsKind(err, apperror.KindNotAuthenticated))
		products.AssertNotCalled(t, "GetByID", mock.Anything, "p-near")
	})

	t.Run("totals follow the buyer campus", func(t *testing.T) {
		sess := signedIn(t, new(MockProfileRepo), buyer("b1", "North"))
		_, err := uc.AddProduct(ctx, sess, "p-near")
		require.NoError(t, err)
		_, err = uc.AddProduct(ctx, sess, "p-far")
		require.NoError(t, err)

		view := uc.View(ctx, sess)
		assert.Equal(t, 2, view.Count)
		assert.Equal(t, 400.0, view.Totals.Subtotal)
		assert.Equal(t, 50.0, view.Totals.TotalDelivery)
		assert.Equal(t, 450.0, view.Totals.Total)

		view = uc.Remove(ctx, sess, view.Items[1].SlotID)
		assert.Equal(t, 1, view.Count)
		assert.Equal(t, 300.0, view.Totals.Total)

		view = uc.Clear(ctx, sess)
		assert.Zero(t, view.Count)
	})

	t.Run("unavailable products", func(t *testing.T) {
		sess := signedIn(t, new(MockProfileRepo), buyer("b1", "North"))

		_, err := uc.AddProduct(ctx, sess, "p-sold")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusConflict, appErr.Code)

		_, err = uc.AddProduct(ctx, sess, "p-none")
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
		assert.Empty(t, sess.Cart().Items())
	})

	t.Run("sellers cannot buy their own listing", func(t *testing.T) {
		sess := signedIn(t, new(MockProfileRepo), seller("s1", "North", true))
		_, err := uc.AddProduct(ctx, sess, "p-near")
		assert.Error(t, err)
	})
}
