// Package equipment tracks which washers and dryers are in use at a location.
// Occupancy is never stored; it is read from the live order rows.
package equipment

import (
	"errors"
	"fmt"
	"slices"

	"laundry-api/apperr"
	"laundry-api/models"
	"laundry-api/statemachine"
	"laundry-api/store"

	"gorm.io/gorm"
)

type Kind string

const (
	Washer Kind = "washer"
	Dryer  Kind = "dryer"
)

func (k Kind) column() string {
	if k == Dryer {
		return "dryer_number"
	}
	return "washer_number"
}

func (k Kind) capacity(loc *models.Location) int {
	if k == Dryer {
		return loc.TotalDryers
	}
	return loc.TotalWashers
}

// Occupancy is the in-use view of one location.
type Occupancy struct {
	LocationID   uint  `json:"location_id"`
	TotalWashers int   `json:"total_washers"`
	TotalDryers  int   `json:"total_dryers"`
	WashersInUse []int `json:"washers_in_use"`
	DryersInUse  []int `json:"dryers_in_use"`
}

// Assign reserves slot number of kind for order and sets the matching field
// on it. The caller persists the order in the same transaction.
//
// The location's equipment_version is bumped before the conflict check so
// concurrent assigners at one location queue behind the row lock.
func Assign(tx *gorm.DB, order *models.Order, kind Kind, number int) error {
	res := tx.Model(&models.Location{}).
		Where("id = ?", order.LocationID).
		Update("equipment_version", gorm.Expr("equipment_version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("location not found")
	}
	loc, err := store.LoadLocation(tx, order.LocationID)
	if err != nil {
		return err
	}
	if err := validateNumber(loc, kind, number); err != nil {
		return err
	}

	var holder models.Order
	err = tx.Select("id", "order_number").
		Where("location_id = ? AND status IN ? AND "+kind.column()+" = ? AND id <> ?",
			order.LocationID, statemachine.OccupyingStatuses, number, order.ID).
		Take(&holder).Error
	switch {
	case err == nil:
		return apperr.EquipmentConflict(
			fmt.Sprintf("%s #%d is in use by order #%d", kind, number, holder.OrderNumber),
		).WithDetail("kind", kind).
			WithDetail("number", number).
			WithDetail("held_by_order", holder.OrderNumber)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	n := number
	if kind == Dryer {
		order.DryerNumber = &n
	} else {
		order.WasherNumber = &n
	}
	return nil
}

func validateNumber(loc *models.Location, kind Kind, number int) error {
	total := kind.capacity(loc)
	if total == 0 {
		return apperr.Validation(fmt.Sprintf("%s tracking is disabled at this location", kind)).
			WithDetail("reason", "equipment_disabled")
	}
	if number < 1 || number > total {
		return apperr.Validation(fmt.Sprintf("%s number must be between 1 and %d", kind, total)).
			WithDetail("kind", kind).
			WithDetail("number", number)
	}
	return nil
}

// Release frees slot number of kind by clearing it from any occupying order.
// Releasing a free slot is a no-op.
func Release(tx *gorm.DB, locationID uint, kind Kind, number int) error {
	return tx.Model(&models.Order{}).
		Where("location_id = ? AND status IN ? AND "+kind.column()+" = ?",
			locationID, statemachine.OccupyingStatuses, number).
		Updates(map[string]any{
			kind.column(): nil,
			"version":     gorm.Expr("version + 1"),
		}).Error
}

// ReleaseOrder clears both slot fields on an order held in memory.
func ReleaseOrder(order *models.Order) {
	order.WasherNumber = nil
	order.DryerNumber = nil
}

// CurrentOccupancy lists the slots held at locationID, ascending.
func CurrentOccupancy(db *gorm.DB, locationID uint) (Occupancy, error) {
	loc, err := store.LoadLocation(db, locationID)
	if err != nil {
		return Occupancy{}, err
	}
	var rows []models.Order
	err = db.Select("washer_number", "dryer_number").
		Where("location_id = ? AND status IN ?", locationID, statemachine.OccupyingStatuses).
		Where("washer_number IS NOT NULL OR dryer_number IS NOT NULL").
		Find(&rows).Error
	if err != nil {
		return Occupancy{}, err
	}

	occ := Occupancy{
		LocationID:   loc.ID,
		TotalWashers: loc.TotalWashers,
		TotalDryers:  loc.TotalDryers,
		WashersInUse: []int{},
		DryersInUse:  []int{},
	}
	for _, r := range rows {
		if r.WasherNumber != nil {
			occ.WashersInUse = append(occ.WashersInUse, *r.WasherNumber)
		}
		if r.DryerNumber != nil {
			occ.DryersInUse = append(occ.DryersInUse, *r.DryerNumber)
		}
	}
	slices.Sort(occ.WashersInUse)
	slices.Sort(occ.DryersInUse)
	return occ, nil
}

// Available reports whether slot number of kind is free at the location.
func (o Occupancy) Available(kind Kind, number int) bool {
	if kind == Dryer {
		return !slices.Contains(o.DryersInUse, number)
	}
	return !slices.Contains(o.WashersInUse, number)
}

// ParseKind accepts "washer" or "dryer".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Washer, Dryer:
		return Kind(s), nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown equipment kind %q", s))
}
