package handlers

import (
	"errors"
	"net/http"
	"strings"

	"laundry-api/apperr"
	"laundry-api/middleware"
	"laundry-api/models"
	"laundry-api/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	TenantID uint   `json:"tenant_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	TenantID uint   `json:"tenant_id" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a customer account. Staff accounts are created by an owner.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var tenant models.Tenant
	if err := h.db.WithContext(c.Request.Context()).First(&tenant, req.TenantID).Error; err != nil {
		respondError(c, store.NotFound(err, "tenant"))
		return
	}
	user, err := h.createUser(c, req.TenantID, req.Name, req.Email, req.Password, req.Phone, models.RoleCustomer)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := middleware.GenerateToken(user, h.auth)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"token":   token,
		"user":    userView(user),
	})
}

// Login authenticates a user of one tenant and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND email = ?", req.TenantID, strings.ToLower(req.Email)).
		First(&user).Error
	if err != nil {
		respondError(c, apperr.Unauthorized("invalid email or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, apperr.Unauthorized("invalid email or password"))
		return
	}

	token, err := middleware.GenerateToken(&user, h.auth)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    userView(&user),
	})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, middleware.GetUserID(c)).Error; err != nil {
		respondError(c, store.NotFound(err, "user"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) createUser(c *gin.Context, tenantID uint, name, email, password, phone string, role models.UserRole) (*models.User, error) {
	email = strings.ToLower(email)
	var existing int64
	err := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.Validation("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		TenantID:     tenantID,
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        phone,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("email already registered")
		}
		return nil, err
	}
	return user, nil
}

func userView(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"tenant_id": u.TenantID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
	}
}
