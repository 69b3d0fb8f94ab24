package services

import (
	"context"
	"fmt"

	"github.com/charlesng35/innkeep/internal/auditctx"
	"github.com/charlesng35/innkeep/internal/permissions"
	apperrors "github.com/charlesng35/innkeep/pkg/errors"
)

// Authorizer is the slice of the permission evaluator the services depend on.
type Authorizer interface {
	Authorize(ctx context.Context, userID uint, hotelID *uint, action, resource string) (bool, error)
	IsSuperadmin(ctx context.Context, userID uint) (bool, error)
	HotelsWithPermission(ctx context.Context, userID uint, action, resource string) (permissions.Scope, error)
	EffectivePermissions(ctx context.Context, userID uint, hotelID *uint) (permissions.Grants, error)
}

// requireActor returns the authenticated caller carried by ctx.
func requireActor(ctx context.Context) (auditctx.Actor, error) {
	actor, ok := auditctx.FromContext(ctx)
	if !ok {
		return auditctx.Actor{}, apperrors.ErrUnauthorized
	}
	return actor, nil
}

// authorize checks that the caller may perform action on resource in hotelID
// (nil for the global context). A deny surfaces as Forbidden.
func authorize(ctx context.Context, authz Authorizer, hotelID *uint, action, resource string) (auditctx.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return actor, err
	}
	allowed, err := authz.Authorize(ctx, actor.UserID, hotelID, action, resource)
	if err != nil {
		return actor, fmt.Errorf("authorize %s: %w", permissions.Name(action, resource), err)
	}
	if !allowed {
		return actor, forbidden(action, resource)
	}
	return actor, nil
}

// authorizeSelfOr lets users act on their own record and falls back to a
// global permission check for everyone else.
func authorizeSelfOr(ctx context.Context, authz Authorizer, userID uint, action, resource string) (auditctx.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return actor, err
	}
	if actor.UserID == userID {
		return actor, nil
	}
	return authorize(ctx, authz, nil, action, resource)
}

// scopeFor resolves the hotels in which the caller holds (action, resource).
func scopeFor(ctx context.Context, authz Authorizer, action, resource string) (auditctx.Actor, permissions.Scope, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return actor, permissions.Scope{}, err
	}
	scope, err := authz.HotelsWithPermission(ctx, actor.UserID, action, resource)
	if err != nil {
		return actor, permissions.Scope{}, fmt.Errorf("resolve scope %s: %w", permissions.Name(action, resource), err)
	}
	return actor, scope, nil
}

// requireSuperadmin guards operations only the superadmin may perform, such as
// handing out the superadmin role.
func requireSuperadmin(ctx context.Context, authz Authorizer, actor auditctx.Actor) error {
	ok, err := authz.IsSuperadmin(ctx, actor.UserID)
	if err != nil {
		return fmt.Errorf("check superadmin: %w", err)
	}
	if !ok {
		return apperrors.ErrForbidden.WithMessage("Only a superadmin may do this")
	}
	return nil
}

func forbidden(action, resource string) *apperrors.AppError {
	return apperrors.ErrForbidden.WithMessage(fmt.Sprintf("Missing permission %s", permissions.Name(action, resource)))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
