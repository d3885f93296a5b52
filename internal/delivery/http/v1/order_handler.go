package v1

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"net/http"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderUC domain.OrderUsecase
}

func NewOrderHandler(members *gin.RouterGroup, buyers *gin.RouterGroup, sellers *gin.RouterGroup, orderUC domain.OrderUsecase) {
	handler := &OrderHandler{orderUC: orderUC}

	buyers.POST("/orders/checkout", handler.Checkout)
	members.GET("/orders/my", handler.ListMine)
	sellers.GET("/orders/seller", handler.ListForSeller)
	members.GET("/orders/:id", handler.Get)
	members.PATCH("/orders/:id/status", handler.UpdateStatus)
}

// Checkout godoc
// @Summary      Place an order for the cart
// @Description  Prices are re-read from the catalogue. The cart is emptied once the order is stored; on failure it is kept.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      domain.CheckoutRequest  true  "Shipping details"
// @Success      201   {object}  response.Response{data=domain.Order}
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /orders/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req domain.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	order, err := h.orderUC.Checkout(c.Request.Context(), sess, req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Order placed", order)
}

// ListMine godoc
// @Summary      The buyer's orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /orders/my [get]
func (h *OrderHandler) ListMine(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	result, err := h.orderUC.ListMine(c.Request.Context(), sess, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Your orders", result)
}

// ListForSeller godoc
// @Summary      Orders containing the seller's products
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /orders/seller [get]
func (h *OrderHandler) ListForSeller(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	result, err := h.orderUC.ListForSeller(c.Request.Context(), sess, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Orders for your listings", result)
}

// Get godoc
// @Summary      One order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  response.Response{data=domain.Order}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	order, err := h.orderUC.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Order", order)
}

// UpdateStatus godoc
// @Summary      Move an order along
// @Description  Pending to Confirmed to Delivered; Pending or Confirmed may be Cancelled.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                          true  "Order id"
// @Param        body  body      domain.UpdateOrderStatusRequest true  "New status"
// @Success      200   {object}  response.Response{data=domain.Order}
// @Failure      400   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req domain.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	order, err := h.orderUC.UpdateStatus(c.Request.Context(), sess, c.Param("id"), req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Order updated", order)
}
