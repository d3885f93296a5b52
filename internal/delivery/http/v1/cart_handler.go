package v1

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cartUC domain.CartUsecase
}

func NewCartHandler(r *gin.RouterGroup, cartUC domain.CartUsecase) {
	handler := &CartHandler{cartUC: cartUC}

	cart := r.Group("/cart")
	{
		cart.GET("", handler.View)
		cart.POST("/items", handler.Add)
		cart.DELETE("/items/:slotId", handler.Remove)
		cart.DELETE("", handler.Clear)
	}
}

// View godoc
// @Summary      The session's cart with delivery charges applied
// @Tags         cart
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.CartView}
// @Router       /cart [get]
func (h *CartHandler) View(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, "Cart", h.cartUC.View(c.Request.Context(), sess))
}

// Add godoc
// @Summary      Add a product to the cart
// @Description  The same product may be added more than once; each addition gets its own slot.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        body  body      domain.AddToCartRequest  true  "Product"
// @Success      201   {object}  response.Response{data=domain.CartView}
// @Failure      401   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /cart/items [post]
func (h *CartHandler) Add(c *gin.Context) {
	var req domain.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	if _, err := h.cartUC.AddProduct(c.Request.Context(), sess, req.ProductID); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Added to cart", h.cartUC.View(c.Request.Context(), sess))
}

// Remove godoc
// @Summary      Remove one cart slot
// @Description  Removing a slot that is not in the cart is a no-op.
// @Tags         cart
// @Produce      json
// @Param        slotId  path      string  true  "Slot id"
// @Success      200     {object}  response.Response{data=domain.CartView}
// @Router       /cart/items/{slotId} [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, "Removed from cart", h.cartUC.Remove(c.Request.Context(), sess, c.Param("slotId")))
}

// Clear godoc
// @Summary      Empty the cart
// @Tags         cart
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.CartView}
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, "Cart cleared", h.cartUC.Clear(c.Request.Context(), sess))
}
