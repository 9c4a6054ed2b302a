package handlers

import (
	"net/http"

	"laundry-api/fulfillment"
	"laundry-api/models"
	"laundry-api/settlement"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PlaceOrder creates a pending order for the caller
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req fulfillment.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.fulfillment.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders lists the caller's orders, optionally filtered by ?status=
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.fulfillment.ListOrders(c.Request.Context(), fulfillment.ListFilter{
		Status: models.OrderStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order's full detail with history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":       order,
		"balance_due": order.BalanceDue().StringFixed(2),
	})
}

// CancelOrder withdraws a pending order
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.Transition(c.Request.Context(), id, models.StatusCancelled, "cancelled by customer")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}

// PayOrder settles the outstanding balance by card, wallet or both
func (h *Handler) PayOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req settlement.PayInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.settlement.Pay(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Payment received",
		"charged":        res.Charged.StringFixed(2),
		"wallet_amount":  res.WalletAmount.StringFixed(2),
		"gateway_amount": res.GatewayAmount.StringFixed(2),
		"order":          res.Order,
	})
}

type TipRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SubmitTip adds a one-off tip once the order is on its way
func (h *Handler) SubmitTip(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tip, err := h.settlement.SubmitTip(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thanks for the tip", "tip": tip})
}
