package handlers

import (
	"net/http"

	"laundry-api/models"
	"laundry-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetStateMachineInfo returns the full state machine for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	terminal := []models.OrderStatus{}
	for _, s := range models.AllStatuses {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":      statemachine.GetAllTransitions(),
		"terminal_states":    terminal,
		"occupying_statuses": statemachine.OccupyingStatuses,
		"description":        "Laundry Order Lifecycle State Machine",
	})
}

// Health reports liveness and whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "Laundry Order Fulfillment API",
	})
}
