package handlers

import (
	"net/http"
	"strings"

	"laundry-api/apperr"
	"laundry-api/authz"
	"laundry-api/models"
	"laundry-api/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ── Catalog ─────────────────────────────────────────────────────────────────

// ListServices returns the caller's tenant catalog. ?available=true hides
// services switched off by the store.
func (h *Handler) ListServices(c *gin.Context) {
	actor, _ := authz.ActorFrom(c.Request.Context())
	query := h.db.WithContext(c.Request.Context()).Where("tenant_id = ?", actor.TenantID)
	if c.Query("available") == "true" {
		query = query.Where("is_available = ?", true)
	}
	if unit := c.Query("unit"); unit != "" {
		query = query.Where("unit = ?", unit)
	}
	var services []models.Service
	if err := query.Order("name").Find(&services).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(services), "services": services})
}

// ListLocations returns the tenant's stores with their machine counts
func (h *Handler) ListLocations(c *gin.Context) {
	actor, _ := authz.ActorFrom(c.Request.Context())
	var locations []models.Location
	err := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", actor.TenantID).
		Order("id").
		Find(&locations).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(locations), "locations": locations})
}

type DeliveryFeeRequest struct {
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// UpdateDeliveryFee sets the fee charged on new orders at a location.
func (h *Handler) UpdateDeliveryFee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req DeliveryFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.DeliveryFee.IsNegative() {
		respondError(c, apperr.Validation("delivery fee must not be negative"))
		return
	}
	actor, _ := authz.ActorFrom(c.Request.Context())
	db := h.db.WithContext(c.Request.Context())

	var loc models.Location
	if err := db.Where("tenant_id = ?", actor.TenantID).First(&loc, id).Error; err != nil {
		respondError(c, store.NotFound(err, "location"))
		return
	}
	if err := db.Model(&loc).Update("delivery_fee", req.DeliveryFee.Round(2)).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery fee updated", "location": loc})
}

type ServiceRequest struct {
	Name        string             `json:"name" binding:"required"`
	Unit        models.PricingUnit `json:"unit" binding:"required,oneof=per_item per_lb"`
	Price       decimal.Decimal    `json:"price"`
	IsAvailable *bool              `json:"is_available"`
}

// AddService adds a priced entry to the catalog
func (h *Handler) AddService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Price.IsPositive() {
		respondError(c, apperr.Validation("price must be positive"))
		return
	}
	actor, _ := authz.ActorFrom(c.Request.Context())
	svc := models.Service{
		TenantID:    actor.TenantID,
		Name:        req.Name,
		Unit:        req.Unit,
		Price:       req.Price.Round(2),
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&svc).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Service added", "service": svc})
}

// UpdateService changes name, price or availability. Existing orders keep
// the price they were placed at.
func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := paramID(c, "serviceId")
	if !ok {
		return
	}
	actor, _ := authz.ActorFrom(c.Request.Context())
	db := h.db.WithContext(c.Request.Context())

	var svc models.Service
	if err := db.Where("tenant_id = ?", actor.TenantID).First(&svc, id).Error; err != nil {
		respondError(c, store.NotFound(err, "service"))
		return
	}
	var req struct {
		Name        *string          `json:"name"`
		Price       *decimal.Decimal `json:"price"`
		IsAvailable *bool            `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// Only allow safe fields
	update := map[string]any{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		update["name"] = *req.Name
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			respondError(c, apperr.Validation("price must be positive"))
			return
		}
		update["price"] = req.Price.Round(2)
	}
	if req.IsAvailable != nil {
		update["is_available"] = *req.IsAvailable
	}
	if len(update) > 0 {
		if err := db.Model(&svc).Updates(update).Error; err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service updated", "service": svc})
}

type PromoRequest struct {
	Code  string           `json:"code" binding:"required"`
	Type  models.PromoType `json:"type" binding:"required,oneof=percent flat"`
	Value decimal.Decimal  `json:"value"`
}

// AddPromoCode creates an active promo code for the tenant
func (h *Handler) AddPromoCode(c *gin.Context) {
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Value.IsPositive() || (req.Type == models.PromoPercent && req.Value.GreaterThan(decimal.NewFromInt(100))) {
		respondError(c, apperr.Validation("promo value out of range"))
		return
	}
	actor, _ := authz.ActorFrom(c.Request.Context())
	promo := models.PromoCode{
		TenantID: actor.TenantID,
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:     req.Type,
		Value:    req.Value.Round(2),
		Active:   true,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&promo).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Promo code created", "promo_code": promo})
}
