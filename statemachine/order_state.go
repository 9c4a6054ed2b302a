package statemachine

import (
	"slices"
	"strings"

	"laundry-api/apperr"
	"laundry-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Roles []models.UserRole  `json:"roles"`
}

var (
	staff         = models.StaffRoles
	staffOrDriver = append(slices.Clone(models.StaffRoles), models.RoleDriver)
	anyoneOwning  = append(slices.Clone(models.StaffRoles), models.RoleCustomer)
)

// validTransitions is the authoritative state machine definition.
// Refund statuses are reached only through settlement, never through this table.
var validTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusConfirmed, Roles: staff},
	// customers may withdraw an order nobody has accepted yet
	{From: models.StatusPending, To: models.StatusCancelled, Roles: anyoneOwning},

	// driver collects the bag from the customer
	{From: models.StatusConfirmed, To: models.StatusPickedUp, Roles: staffOrDriver},
	// walk-in drop-off goes straight to the machines
	{From: models.StatusConfirmed, To: models.StatusProcessing, Roles: staff},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Roles: staff},

	{From: models.StatusPickedUp, To: models.StatusProcessing, Roles: staff},
	{From: models.StatusPickedUp, To: models.StatusCancelled, Roles: staff},

	{From: models.StatusProcessing, To: models.StatusReady, Roles: staff},
	{From: models.StatusProcessing, To: models.StatusCancelled, Roles: staff},

	{From: models.StatusReady, To: models.StatusOutForDelivery, Roles: staffOrDriver},
	// customer collects in store
	{From: models.StatusReady, To: models.StatusCompleted, Roles: staff},
	{From: models.StatusReady, To: models.StatusCancelled, Roles: staff},

	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Roles: staffOrDriver},
	{From: models.StatusOutForDelivery, To: models.StatusCancelled, Roles: staff},

	{From: models.StatusDelivered, To: models.StatusCompleted, Roles: staff},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

var transitionMap = func() map[transitionKey]Transition {
	m := make(map[transitionKey]Transition, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = t
	}
	return m
}()

var terminal = map[models.OrderStatus]bool{
	models.StatusCancelled: true,
	models.StatusCompleted: true,
	models.StatusRefunded:  true,
}

// IsTerminal reports whether no transition can leave status.
func IsTerminal(status models.OrderStatus) bool {
	return terminal[status]
}

// IsEditable reports whether line items, weight and totals may change.
func IsEditable(status models.OrderStatus) bool {
	switch status {
	case models.StatusConfirmed, models.StatusPickedUp, models.StatusProcessing:
		return true
	}
	return false
}

// OccupyingStatuses are the statuses under which an order's washer/dryer
// numbers count as in use.
var OccupyingStatuses = []models.OrderStatus{
	models.StatusConfirmed,
	models.StatusPickedUp,
	models.StatusProcessing,
}

func IsOccupying(status models.OrderStatus) bool {
	return slices.Contains(OccupyingStatuses, status)
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks the table only; role checks are separate so callers
// can tell an illegal move from an unauthorised one.
func CanTransition(from, to models.OrderStatus) error {
	if _, ok := transitionMap[transitionKey{from, to}]; ok {
		return nil
	}
	return apperr.InvalidTransition(
		"invalid transition: "+string(from)+" → "+string(to)+
			". Valid transitions from "+string(from)+" are: "+describeValidFrom(from),
	).WithDetail("current_status", from).
		WithDetail("valid_next_states", ValidTransitionsFrom(from))
}

// RoleAllowed reports whether role may perform the (legal) transition.
func RoleAllowed(from, to models.OrderStatus, role models.UserRole) bool {
	t, ok := transitionMap[transitionKey{from, to}]
	return ok && slices.Contains(t.Roles, role)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return slices.Clone(validTransitions)
}
