package handlers

import (
	"net/http"
	"slices"

	"laundry-api/fulfillment"
	"laundry-api/middleware"
	"laundry-api/models"

	"github.com/gin-gonic/gin"
)

// GetAvailableOrders shows unclaimed orders waiting for pickup or delivery
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.fulfillment.ListOrders(c.Request.Context(), fulfillment.ListFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	orders = slices.DeleteFunc(orders, func(o models.Order) bool { return o.DriverID != nil })
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetMyDeliveries returns all orders claimed by the logged-in driver
func (h *Handler) GetMyDeliveries(c *gin.Context) {
	driverID := middleware.GetUserID(c)
	orders, err := h.fulfillment.ListOrders(c.Request.Context(), fulfillment.ListFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	orders = slices.DeleteFunc(orders, func(o models.Order) bool {
		return o.DriverID == nil || *o.DriverID != driverID
	})
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// PickupOrder collects a confirmed bag from the customer
func (h *Handler) PickupOrder(c *gin.Context) {
	h.driverTransition(c, models.StatusPickedUp, "Driver picked up the order", "Order picked up successfully")
}

// OutForDelivery takes a ready order out to the customer
func (h *Handler) OutForDelivery(c *gin.Context) {
	h.driverTransition(c, models.StatusOutForDelivery, "Driver left for delivery", "Order is out for delivery")
}

// DeliverOrder hands the clean laundry back
func (h *Handler) DeliverOrder(c *gin.Context) {
	h.driverTransition(c, models.StatusDelivered, "Order delivered to customer", "Order delivered successfully")
}

func (h *Handler) driverTransition(c *gin.Context, target models.OrderStatus, note, message string) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.Transition(c.Request.Context(), id, target, note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  message,
		"order_id": order.ID,
		"status":   order.Status,
	})
}
