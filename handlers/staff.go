package handlers

import (
	"net/http"
	"strconv"

	"laundry-api/fulfillment"
	"laundry-api/models"
	"laundry-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetStoreOrders lists the tenant's orders; filter by ?status= and ?location_id=
func (h *Handler) GetStoreOrders(c *gin.Context) {
	filter := fulfillment.ListFilter{Status: models.OrderStatus(c.Query("status"))}
	if loc := c.Query("location_id"); loc != "" {
		id, err := strconv.ParseUint(loc, 10, 64)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.LocationID = uint(id)
	}
	orders, err := h.fulfillment.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := map[models.OrderStatus]int{}
	for _, o := range orders {
		summary[o.Status]++
	}
	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus moves an order along the state machine
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.fulfillment.Transition(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Order status updated",
		"order":             order,
		"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
	})
}

// StartProcessing records intake and puts the order on a washer
func (h *Handler) StartProcessing(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req fulfillment.StartProcessingInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	order, err := h.fulfillment.StartProcessing(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Processing started", "order": order})
}

// UpdateEquipment moves the order onto another washer or a dryer
func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req fulfillment.EquipmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.fulfillment.UpdateEquipmentAssignment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Equipment updated", "order": order})
}

// MarkReady finishes processing and frees the machine
func (h *Handler) MarkReady(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.MarkOrderReady(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order is ready", "order": order})
}

func (h *Handler) AddItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req fulfillment.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.fulfillment.AddItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item added", "order": order})
}

func (h *Handler) RemoveItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	order, err := h.fulfillment.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed", "order": order})
}

type WeightRequest struct {
	TotalWeightLbs decimal.Decimal `json:"total_weight_lbs"`
}

// UpdateWeight records the weighed load and reprices per-lb lines
func (h *Handler) UpdateWeight(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req WeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.fulfillment.UpdateWeight(c.Request.Context(), id, req.TotalWeightLbs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Weight updated", "order": order})
}

func (h *Handler) GetOrderHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := h.fulfillment.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(history), "history": history})
}

// GetOccupancy shows which washers and dryers are busy at a location
func (h *Handler) GetOccupancy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	occ, err := h.fulfillment.Occupancy(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occupancy": occ})
}
