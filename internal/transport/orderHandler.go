package transport

import (
	"net/http"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/service"
	"github.com/ds124wfegd/afritix/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	bookingService service.BookingService
}

func NewOrderHandler(bookingService service.BookingService) *OrderHandler {
	return &OrderHandler{bookingService: bookingService}
}

func (h *OrderHandler) Purchase(c *gin.Context) {
	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	details, err := h.bookingService.Purchase(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, details)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, offset := pagination(c)

	orders, err := h.bookingService.ListUserOrders(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []*entity.Order{}
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	details, err := h.bookingService.GetOrder(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.bookingService.CancelOrder(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
