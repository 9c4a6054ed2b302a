package handlers

import (
	"net/http"
	"strconv"

	"laundry-api/authz"
	"laundry-api/equipment"
	"laundry-api/models"
	"laundry-api/settlement"

	"github.com/gin-gonic/gin"
)

// RefundOrder returns money to the customer, in full when no amount is given
func (h *Handler) RefundOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req settlement.RefundInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.settlement.Refund(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Refund issued",
		"refund_amount": res.RefundAmount.StringFixed(2),
		"refund_type":   res.RefundType,
		"refund":        res.Refund,
		"order":         res.Order,
	})
}

func (h *Handler) ListRefunds(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	refunds, err := h.settlement.Refunds(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(refunds), "refunds": refunds})
}

// ReleaseSlot frees a washer or dryer by hand, e.g. after a machine fault
func (h *Handler) ReleaseSlot(c *gin.Context) {
	locationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	kind, err := equipment.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.fulfillment.ReleaseSlot(c.Request.Context(), locationID, kind, number); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Slot released",
		"location_id": locationID,
		"kind":        kind,
		"number":      number,
	})
}

// ListUsers returns the tenant's users, optionally filtered by ?role=
func (h *Handler) ListUsers(c *gin.Context) {
	actor, _ := authz.ActorFrom(c.Request.Context())
	query := h.db.WithContext(c.Request.Context()).Where("tenant_id = ?", actor.TenantID)
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	var users []models.User
	if err := query.Order("id").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

type CreateStaffRequest struct {
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=6"`
	Role     models.UserRole `json:"role" binding:"required,oneof=attendant driver manager"`
	Phone    string          `json:"phone"`
}

// CreateStaff adds an attendant, driver or manager to the owner's tenant
func (h *Handler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	actor, _ := authz.ActorFrom(c.Request.Context())
	user, err := h.createUser(c, actor.TenantID, req.Name, req.Email, req.Password, req.Phone, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Staff account created", "user": userView(user)})
}
