package fulfillment

import (
	"context"
	"strconv"
	"strings"

	"laundry-api/apperr"
	"laundry-api/equipment"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/statemachine"
	"laundry-api/store"

	"github.com/shopspring/decimal"
)

// StartProcessingInput carries the intake details recorded when a bag goes
// into a machine. Nil fields are left unchanged.
type StartProcessingInput struct {
	BinNumber      *string          `json:"bin_number"`
	WasherNumber   *int             `json:"washer_number"`
	TotalWeightLbs *decimal.Decimal `json:"total_weight_lbs"`
	NumBags        *int             `json:"num_bags"`
}

// StartProcessing assigns the washer, records intake and moves the order to
// processing. A washer conflict rolls back every field.
func (s *Service) StartProcessing(ctx context.Context, orderID uint, in StartProcessingInput) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx, models.StaffRoles...)
	if err != nil {
		return nil, err
	}
	if in.NumBags != nil && *in.NumBags < 0 {
		return nil, apperr.Validation("num_bags must not be negative")
	}

	var out *models.Order
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := lockVisible(tx, actor, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(actor, o.Status, models.StatusProcessing); err != nil {
			return err
		}
		if in.WasherNumber != nil {
			if err := equipment.Assign(tx.DB, o, equipment.Washer, *in.WasherNumber); err != nil {
				return err
			}
		}
		if in.BinNumber != nil {
			o.BinNumber = strings.TrimSpace(*in.BinNumber)
		}
		if in.NumBags != nil {
			o.NumBags = *in.NumBags
		}
		if in.TotalWeightLbs != nil {
			if err := setWeight(tx, o, *in.TotalWeightLbs); err != nil {
				return err
			}
		}
		if err := applyTransition(tx, o, models.StatusProcessing, actor, ""); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EquipmentInput names the slot to assign. Exactly one field is set.
type EquipmentInput struct {
	WasherNumber *int `json:"washer_number"`
	DryerNumber  *int `json:"dryer_number"`
}

// UpdateEquipmentAssignment moves an order onto a washer or dryer. A washer
// may be pre-assigned before processing; a dryer only during processing.
// Moving to a dryer clears the washer in the same write.
func (s *Service) UpdateEquipmentAssignment(ctx context.Context, orderID uint, in EquipmentInput) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx, models.StaffRoles...)
	if err != nil {
		return nil, err
	}
	if (in.WasherNumber == nil) == (in.DryerNumber == nil) {
		return nil, apperr.Validation("exactly one of washer_number or dryer_number is required")
	}

	var out *models.Order
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := lockVisible(tx, actor, orderID)
		if err != nil {
			return err
		}

		var kind equipment.Kind
		var number int
		if in.DryerNumber != nil {
			if o.Status != models.StatusProcessing {
				return apperr.OrderNotEditable("a dryer can only be assigned while the order is processing").
					WithDetail("current_status", o.Status)
			}
			kind, number = equipment.Dryer, *in.DryerNumber
		} else {
			if !statemachine.IsOccupying(o.Status) {
				return apperr.OrderNotEditable("a washer can only be assigned before or during processing").
					WithDetail("current_status", o.Status)
			}
			kind, number = equipment.Washer, *in.WasherNumber
		}

		if err := equipment.Assign(tx.DB, o, kind, number); err != nil {
			return err
		}
		if kind == equipment.Dryer {
			o.WasherNumber = nil
		} else {
			o.DryerNumber = nil
		}
		if err := store.SaveOrder(tx.DB, o); err != nil {
			return err
		}
		tx.Emit(notify.Event{
			Type:     notify.EventEquipmentAssigned,
			TenantID: o.TenantID,
			OrderID:  o.ID,
			Variables: map[string]string{
				"order_number": strconv.Itoa(o.OrderNumber),
				"kind":         string(kind),
				"number":       strconv.Itoa(number),
			},
		})
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOrderReady moves processing to ready. The slot numbers stay on the
// order for display but stop counting as in use.
func (s *Service) MarkOrderReady(ctx context.Context, orderID uint) (*models.Order, error) {
	actor, err := s.gate.RequireRole(ctx, models.StaffRoles...)
	if err != nil {
		return nil, err
	}
	var out *models.Order
	err = s.uow.Execute(ctx, func(tx *store.Tx) error {
		o, err := lockVisible(tx, actor, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(actor, o.Status, models.StatusReady); err != nil {
			return err
		}
		if err := applyTransition(tx, o, models.StatusReady, actor, ""); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
