package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/logger"
	"github.com/charlesng35/innkeep/pkg/metrics"
)

// UserSource resolves users and the roles bound to them.
type UserSource interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	RolesInContext(ctx context.Context, userID uint, hotelID *uint) ([]models.Role, error)
	HotelsGranting(ctx context.Context, userID uint, action, resource string) ([]uint, error)
}

// PermissionSource resolves the permissions held by roles.
type PermissionSource interface {
	PermissionsForRoles(ctx context.Context, roleIDs []uint) ([]models.Permission, error)
}

var ErrInvalidRequest = errors.New("permission: action and resource are required")

// Evaluator answers authorization questions by reading the current role graph
// on every call. Nothing is cached.
type Evaluator struct {
	users UserSource
	perms PermissionSource
	log   *zap.Logger
}

func NewEvaluator(users UserSource, perms PermissionSource) (*Evaluator, error) {
	if users == nil || perms == nil {
		return nil, errors.New("permission evaluator: user and permission sources are required")
	}
	return &Evaluator{users: users, perms: perms, log: logger.WithModule("permissions")}, nil
}

// NewStoreEvaluator wires the evaluator to the repository store.
func NewStoreEvaluator(store *repository.Store) (*Evaluator, error) {
	if store == nil {
		return nil, errors.New("permission evaluator: store is required")
	}
	return NewEvaluator(store.Users, store.Roles)
}

// Authorize reports whether userID may perform action on resource within
// hotelID. A nil hotelID evaluates global roles only. Superadmins are always
// allowed; unknown or inactive users are denied without error.
func (e *Evaluator) Authorize(ctx context.Context, userID uint, hotelID *uint, action, resource string) (bool, error) {
	ctx = ensureContext(ctx)
	action = strings.TrimSpace(action)
	resource = strings.TrimSpace(resource)

	allowed, err := e.authorize(ctx, userID, hotelID, action, resource)

	result := "deny"
	switch {
	case err != nil:
		result = "error"
	case allowed:
		result = "allow"
	}
	metrics.PermissionChecks.WithLabelValues(action, resource, result).Inc()
	e.log.Debug("authorization decision",
		zap.Uint("user_id", userID),
		zap.Uintp("hotel_id", hotelID),
		zap.String("action", action),
		zap.String("resource", resource),
		zap.String("result", result),
	)
	return allowed, err
}

func (e *Evaluator) authorize(ctx context.Context, userID uint, hotelID *uint, action, resource string) (bool, error) {
	if action == "" || resource == "" {
		return false, ErrInvalidRequest
	}

	user, ok, err := e.activeUser(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	if user.GlobalRole != nil && user.GlobalRole.IsSuperadmin() {
		return true, nil
	}

	roles, err := e.users.RolesInContext(ctx, userID, hotelID)
	if err != nil {
		return false, fmt.Errorf("permission evaluator: load roles: %w", err)
	}
	return e.rolesGrant(ctx, roles, action, resource)
}

func (e *Evaluator) rolesGrant(ctx context.Context, roles []models.Role, action, resource string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	ids := make([]uint, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}

	perms, err := e.perms.PermissionsForRoles(ctx, ids)
	if err != nil {
		return false, fmt.Errorf("permission evaluator: load permissions: %w", err)
	}
	for _, perm := range perms {
		if perm.Matches(action, resource) {
			return true, nil
		}
	}
	return false, nil
}

// IsSuperadmin reports whether the user holds the global superadmin role.
func (e *Evaluator) IsSuperadmin(ctx context.Context, userID uint) (bool, error) {
	user, ok, err := e.activeUser(ensureContext(ctx), userID)
	if err != nil || !ok {
		return false, err
	}
	return user.GlobalRole != nil && user.GlobalRole.IsSuperadmin(), nil
}

// Scope lists where a permission applies. All means every hotel.
type Scope struct {
	All      bool
	HotelIDs []uint
}

// Contains reports whether hotelID falls inside the scope.
func (s Scope) Contains(hotelID uint) bool {
	if s.All {
		return true
	}
	for _, id := range s.HotelIDs {
		if id == hotelID {
			return true
		}
	}
	return false
}

// HotelsWithPermission returns the hotels in which the user may perform
// action on resource. A superadmin, or a global role holding the pair, yields
// Scope{All: true}.
func (e *Evaluator) HotelsWithPermission(ctx context.Context, userID uint, action, resource string) (Scope, error) {
	ctx = ensureContext(ctx)
	globally, err := e.Authorize(ctx, userID, nil, action, resource)
	if err != nil {
		return Scope{}, err
	}
	if globally {
		return Scope{All: true}, nil
	}

	if _, ok, err := e.activeUser(ctx, userID); err != nil || !ok {
		return Scope{}, err
	}
	ids, err := e.users.HotelsGranting(ctx, userID, action, resource)
	if err != nil {
		return Scope{}, fmt.Errorf("permission evaluator: load hotels: %w", err)
	}
	return Scope{HotelIDs: ids}, nil
}

// Grants describes what a user can do in one context.
type Grants struct {
	Superadmin  bool                `json:"superadmin"`
	Roles       []models.Role       `json:"roles"`
	Permissions []models.Permission `json:"permissions"`
}

// EffectivePermissions lists the roles and permissions that apply to the user
// in hotelID, following the same rules as Authorize.
func (e *Evaluator) EffectivePermissions(ctx context.Context, userID uint, hotelID *uint) (Grants, error) {
	ctx = ensureContext(ctx)
	user, ok, err := e.activeUser(ctx, userID)
	if err != nil || !ok {
		return Grants{}, err
	}

	roles, err := e.users.RolesInContext(ctx, userID, hotelID)
	if err != nil {
		return Grants{}, fmt.Errorf("permission evaluator: load roles: %w", err)
	}
	grants := Grants{
		Superadmin: user.GlobalRole != nil && user.GlobalRole.IsSuperadmin(),
		Roles:      roles,
	}
	if len(roles) == 0 {
		return grants, nil
	}

	ids := make([]uint, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	grants.Permissions, err = e.perms.PermissionsForRoles(ctx, ids)
	if err != nil {
		return Grants{}, fmt.Errorf("permission evaluator: load permissions: %w", err)
	}
	return grants, nil
}

func (e *Evaluator) activeUser(ctx context.Context, userID uint) (*models.User, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	user, err := e.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("permission evaluator: load user: %w", err)
	}
	if !user.IsActive {
		return nil, false, nil
	}
	return user, true, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
