// Package fulfillment drives orders through the status table together with
// their equipment and pricing side effects. Every operation is one unit of work.
package fulfillment

import (
	"context"
	"strconv"

	"laundry-api/apperr"
	"laundry-api/authz"
	"laundry-api/equipment"
	"laundry-api/logger"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/statemachine"
	"laundry-api/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	uow  *store.UnitOfWork
	gate authz.Gate
}

func NewService(uow *store.UnitOfWork, gate authz.Gate) *Service {
	return &Service{uow: uow, gate: gate}
}

// Transition moves an order to target if the table and the caller's role allow it.
func (s *Service) Transition(ctx context.Context, orderID uint, target models.OrderStatus, note string) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Order
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := lockVisible(tx, actor, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(actor, o.Status, target); err != nil {
			return err
		}
		if err := applyTransition(tx, o, target, actor, note); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("order transitioned",
		zap.Uint("order_id", out.ID),
		zap.String("status", string(out.Status)),
		zap.Uint("actor_id", actor.ID),
	)
	return out, nil
}

func lockVisible(tx *store.Tx, actor authz.Actor, orderID uint) (*models.Order, error) {
	o, err := store.LockOrder(tx.DB, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanSeeOrder(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

func checkTransition(actor authz.Actor, from, to models.OrderStatus) error {
	if err := statemachine.CanTransition(from, to); err != nil {
		return err
	}
	if !statemachine.RoleAllowed(from, to, actor.Role) {
		return apperr.Forbidden("role " + string(actor.Role) + " cannot move an order from " +
			string(from) + " to " + string(to))
	}
	return nil
}

// applyTransition sets the status, applies equipment side effects, persists
// the order, appends history and queues the notification. The caller has
// already validated the move.
func applyTransition(tx *store.Tx, o *models.Order, target models.OrderStatus, actor authz.Actor, note string) error {
	from := o.Status
	o.Status = target

	switch target {
	case models.StatusCancelled, models.StatusCompleted, models.StatusOutForDelivery:
		equipment.ReleaseOrder(o)
	}
	if actor.Role == models.RoleDriver && o.DriverID == nil {
		id := actor.ID
		o.DriverID = &id
	}

	if err := store.SaveOrder(tx.DB, o); err != nil {
		return err
	}
	if err := store.AppendHistory(tx.DB, o.ID, from, target, actor.ID, note); err != nil {
		return err
	}
	tx.Emit(statusEvent(o, from))
	return nil
}

func statusEvent(o *models.Order, from models.OrderStatus) notify.Event {
	typ := notify.EventStatusChanged
	if o.Status == models.StatusReady {
		typ = notify.EventOrderReady
	}
	return notify.Event{
		Type:      typ,
		TenantID:  o.TenantID,
		OrderID:   o.ID,
		Recipient: recipient(o),
		Variables: map[string]string{
			"order_number": strconv.Itoa(o.OrderNumber),
			"from":         string(from),
			"status":       string(o.Status),
		},
	}
}

func recipient(o *models.Order) uint {
	if o.CustomerID == nil {
		return 0
	}
	return *o.CustomerID
}

// GetOrder returns the order with its items and history.
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	var o models.Order
	err = s.uow.DB(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&o, orderID).Error
	if err != nil {
		return nil, store.NotFound(err, "order")
	}
	if err := authz.CanSeeOrder(actor, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListFilter narrows ListOrders. Zero values mean no filter.
type ListFilter struct {
	Status     models.OrderStatus
	LocationID uint
}

// ListOrders returns the caller's orders: customers see their own, drivers
// see delivery work, staff see the tenant.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, error) {
	actor, err := s.gate.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	q := s.uow.DB(ctx).Where("tenant_id = ?", actor.TenantID)
	switch actor.Role {
	case models.RoleCustomer:
		q = q.Where("customer_id = ?", actor.ID)
	case models.RoleDriver:
		q = q.Where("(driver_id = ? OR (driver_id IS NULL AND status IN ?))", actor.ID,
			[]models.OrderStatus{models.StatusConfirmed, models.StatusReady})
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.LocationID != 0 {
		q = q.Where("location_id = ?", f.LocationID)
	}
	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// History returns the audit trail in creation order.
func (s *Service) History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.StatusHistory, nil
}

// Occupancy is the staff view of washers and dryers at a location.
func (s *Service) Occupancy(ctx context.Context, locationID uint) (equipment.Occupancy, error) {
	actor, err := s.gate.RequireRole(ctx, models.StaffRoles...)
	if err != nil {
		return equipment.Occupancy{}, err
	}
	db := s.uow.DB(ctx)
	loc, err := store.LoadLocation(db, locationID)
	if err != nil {
		return equipment.Occupancy{}, err
	}
	if loc.TenantID != actor.TenantID {
		return equipment.Occupancy{}, apperr.NotFound("location not found")
	}
	return equipment.CurrentOccupancy(db, locationID)
}

// ReleaseSlot frees a washer or dryer by hand, e.g. after a machine fault.
func (s *Service) ReleaseSlot(ctx context.Context, locationID uint, kind equipment.Kind, number int) error {
	actor, err := s.gate.RequireRole(ctx, models.RoleManager, models.RoleOwner)
	if err != nil {
		return err
	}
	return s.uow.Execute(ctx, func(tx *store.Tx) error {
		loc, err := store.LoadLocation(tx.DB, locationID)
		if err != nil {
			return err
		}
		if loc.TenantID != actor.TenantID {
			return apperr.NotFound("location not found")
		}
		return equipment.Release(tx.DB, locationID, kind, number)
	})
}
