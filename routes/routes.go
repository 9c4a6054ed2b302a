package routes

import (
	"laundry-api/config"
	"laundry-api/handlers"
	"laundry-api/middleware"
	"laundry-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	r.GET("/health", h.Health)

	authRequired := middleware.AuthRequired(cfg.Auth.JWTSecret)
	managers := []models.UserRole{models.RoleManager, models.RoleOwner}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", handlers.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authRequired)
	{
		auth.GET("/profile", h.GetProfile)
		auth.GET("/services", h.ListServices)
		auth.GET("/locations", h.ListLocations)
		auth.GET("/orders/:id", h.GetOrderDetail)
		auth.GET("/orders/:id/history", h.GetOrderHistory)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", h.PlaceOrder)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrderDetail)
		customer.PUT("/orders/:id/cancel", h.CancelOrder)
		customer.POST("/orders/:id/pay", h.PayOrder)
		customer.POST("/orders/:id/tip", h.SubmitTip)
	}

	// ── Store staff routes ─────────────────────────────────────────
	staff := r.Group("/api/staff")
	staff.Use(authRequired, middleware.RoleRequired(models.StaffRoles...))
	{
		staff.POST("/orders", h.PlaceOrder)
		staff.GET("/orders", h.GetStoreOrders)
		staff.PUT("/orders/:id/status", h.UpdateOrderStatus)
		staff.POST("/orders/:id/start-processing", h.StartProcessing)
		staff.PUT("/orders/:id/equipment", h.UpdateEquipment)
		staff.POST("/orders/:id/ready", h.MarkReady)
		staff.POST("/orders/:id/items", h.AddItem)
		staff.DELETE("/orders/:id/items/:itemId", h.RemoveItem)
		staff.PUT("/orders/:id/weight", h.UpdateWeight)
		staff.POST("/orders/:id/pay", h.PayOrder)

		staff.GET("/locations/:id/occupancy", h.GetOccupancy)
	}

	// ── Driver routes ──────────────────────────────────────────────
	driver := r.Group("/api/driver")
	driver.Use(authRequired, middleware.RoleRequired(models.RoleDriver))
	{
		driver.GET("/orders/available", h.GetAvailableOrders)
		driver.GET("/orders/my-deliveries", h.GetMyDeliveries)
		driver.PUT("/orders/:id/pickup", h.PickupOrder)
		driver.PUT("/orders/:id/out-for-delivery", h.OutForDelivery)
		driver.PUT("/orders/:id/deliver", h.DeliverOrder)
	}

	// ── Manager routes ─────────────────────────────────────────────
	manager := r.Group("/api/manager")
	manager.Use(authRequired, middleware.RoleRequired(managers...))
	{
		manager.POST("/orders/:id/refund", h.RefundOrder)
		manager.GET("/orders/:id/refunds", h.ListRefunds)
		manager.DELETE("/locations/:id/equipment/:kind/:number", h.ReleaseSlot)
		manager.PUT("/locations/:id/delivery-fee", h.UpdateDeliveryFee)

		manager.POST("/services", h.AddService)
		manager.PUT("/services/:serviceId", h.UpdateService)
		manager.POST("/promo-codes", h.AddPromoCode)
		manager.GET("/users", h.ListUsers)
	}

	// ── Owner routes ───────────────────────────────────────────────
	owner := r.Group("/api/owner")
	owner.Use(authRequired, middleware.RoleRequired(models.RoleOwner))
	{
		owner.POST("/staff", h.CreateStaff)
	}
}
