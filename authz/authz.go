// Package authz carries the authenticated actor through a request context.
package authz

import (
	"context"
	"slices"

	"laundry-api/apperr"
	"laundry-api/models"
)

type Actor struct {
	ID       uint
	Role     models.UserRole
	TenantID uint
}

func (a Actor) IsStaff() bool {
	return slices.Contains(models.StaffRoles, a.Role)
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Gate authorises an operation for the caller in ctx.
type Gate interface {
	RequireRole(ctx context.Context, roles ...models.UserRole) (Actor, error)
}

// ContextGate reads the actor that the auth middleware placed on the context.
type ContextGate struct{}

// RequireRole fails with Unauthorized when no actor is present and with
// Forbidden when the actor's role is not listed. No roles means any actor.
func (ContextGate) RequireRole(ctx context.Context, roles ...models.UserRole) (Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok || a.ID == 0 {
		return Actor{}, apperr.Unauthorized("authentication required")
	}
	if len(roles) > 0 && !slices.Contains(roles, a.Role) {
		return Actor{}, apperr.Forbidden("insufficient permissions").
			WithDetail("role", a.Role)
	}
	return a, nil
}

// CanSeeOrder reports whether a may read or act on o. Orders of another
// tenant are reported as missing rather than forbidden.
func CanSeeOrder(a Actor, o *models.Order) error {
	if o.TenantID != a.TenantID {
		return apperr.NotFound("order not found")
	}
	switch a.Role {
	case models.RoleCustomer:
		if o.CustomerID == nil || *o.CustomerID != a.ID {
			return apperr.NotFound("order not found")
		}
	case models.RoleDriver:
		if o.DriverID != nil && *o.DriverID != a.ID {
			return apperr.Forbidden("order is assigned to another driver")
		}
	}
	return nil
}
