package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
)

type CreateRoleInput struct {
	Name        string `json:"name" validate:"required,notblank,max=128"`
	HotelID     *uint  `json:"hotel_id"`
	Description string `json:"description" validate:"max=1024"`
}

type UpdateRoleInput struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
}

type CreatePermissionInput struct {
	Action      string `json:"action" validate:"required,notblank,max=64"`
	Resource    string `json:"resource" validate:"required,notblank,max=64"`
	Name        string `json:"name" validate:"max=128"`
	Description string `json:"description" validate:"max=1024"`
}

// UserRoles is the full role picture of a user.
type UserRoles struct {
	GlobalRole *models.Role       `json:"global_role"`
	Bindings   []models.UserRole `json:"bindings"`
}

// RBACService administers roles, permissions and user bindings. Every
// mutation runs in one transaction and is audited after it commits.
type RBACService struct {
	store *repository.Store
	authz Authorizer
	audit *AuditService
}

func NewRBACService(store *repository.Store, authz Authorizer, audit *AuditService) (*RBACService, error) {
	if store == nil {
		return nil, errors.New("rbac service: store is required")
	}
	if authz == nil {
		return nil, errors.New("rbac service: authorizer is required")
	}
	return &RBACService{store: store, authz: authz, audit: audit}, nil
}

// CreateRole creates a global role (nil HotelID) or a role scoped to a hotel.
// Names are unique per context.
func (s *RBACService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)
	input.Name = strings.TrimSpace(input.Name)
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.authz, input.HotelID, permissions.ActionCreate, permissions.ResourceRole); err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        input.Name,
		HotelID:     input.HotelID,
		Description: strings.TrimSpace(input.Description),
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if input.HotelID != nil {
			exists, err := tx.Hotels.Exists(ctx, *input.HotelID)
			if err != nil {
				return err
			}
			if !exists {
				return fail(ErrHotelNotFound)
			}
		}
		if err := ensureRoleNameFree(ctx, tx, input.Name, input.HotelID, 0); err != nil {
			return err
		}
		return mapRepoErr(tx.Roles.Create(ctx, role), nil, ErrRoleConflict)
	})
	if err != nil {
		return nil, wrapErr("rbac service: create role", err)
	}

	recordAudit(ctx, s.audit, role.HotelID, "role.create", permissions.ResourceRole, map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})
	return role, nil
}

// ensureRoleNameFree covers the global case the unique index cannot, since
// NULL hotel ids never collide in SQL.
func ensureRoleNameFree(ctx context.Context, tx *repository.Store, name string, hotelID *uint, selfID uint) error {
	existing, err := tx.Roles.FindByName(ctx, name, hotelID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	}
	return fail(ErrRoleConflict)
}

func (s *RBACService) GetRole(ctx context.Context, id uint) (*models.Role, []models.Permission, error) {
	ctx = ensureContext(ctx)
	role, err := s.store.Roles.FindByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepoErr(err, ErrRoleNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, role.HotelID, permissions.ActionRead, permissions.ResourceRole); err != nil {
		return nil, nil, err
	}
	perms, err := s.store.Roles.ListPermissions(ctx, role.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("rbac service: list role permissions: %w", err)
	}
	return role, perms, nil
}

// ListRoles lists the roles of one hotel, or the global roles when hotelID is
// nil.
func (s *RBACService) ListRoles(ctx context.Context, hotelID *uint) ([]models.Role, error) {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, hotelID, permissions.ActionRead, permissions.ResourceRole); err != nil {
		return nil, err
	}
	filter := repository.RoleFilter{HotelID: hotelID, GlobalOnly: hotelID == nil}
	roles, err := s.store.Roles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("rbac service: list roles: %w", err)
	}
	return roles, nil
}

func (s *RBACService) UpdateRole(ctx context.Context, id uint, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	current, err := s.store.Roles.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrRoleNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, current.HotelID, permissions.ActionUpdate, permissions.ResourceRole); err != nil {
		return nil, err
	}

	var role *models.Role
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		role, err = tx.Roles.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrRoleNotFound, nil)
		}

		updates := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name != role.Name {
				if role.IsSystem {
					return fail(ErrRoleImmutable)
				}
				if err := ensureRoleNameFree(ctx, tx, name, role.HotelID, role.ID); err != nil {
					return err
				}
				updates["name"] = name
			}
		}
		if input.Description != nil {
			updates["description"] = strings.TrimSpace(*input.Description)
		}
		return mapRepoErr(tx.Roles.Update(ctx, role, updates), ErrRoleNotFound, ErrRoleConflict)
	})
	if err != nil {
		return nil, wrapErr("rbac service: update role", err)
	}

	recordAudit(ctx, s.audit, role.HotelID, "role.update", permissions.ResourceRole, map[string]any{"role_id": role.ID})
	return role, nil
}

// DeleteRole removes the role with its grants and bindings and clears it from
// users holding it globally.
func (s *RBACService) DeleteRole(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	role, err := s.store.Roles.FindByID(ctx, id)
	if err != nil {
		return mapRepoErr(err, ErrRoleNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, role.HotelID, permissions.ActionDelete, permissions.ResourceRole); err != nil {
		return err
	}
	if role.IsSystem {
		return fail(ErrRoleImmutable)
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Roles.Delete(ctx, id), ErrRoleNotFound, nil)
	})
	if err != nil {
		return wrapErr("rbac service: delete role", err)
	}

	recordAudit(ctx, s.audit, role.HotelID, "role.delete", permissions.ResourceRole, map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})
	return nil
}

// CreatePermission registers a new (action, resource) pair.
func (s *RBACService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)
	input.Action = strings.ToLower(strings.TrimSpace(input.Action))
	input.Resource = strings.ToLower(strings.TrimSpace(input.Resource))
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.authz, nil, permissions.ActionCreate, permissions.ResourcePermission); err != nil {
		return nil, err
	}

	perm := &models.Permission{
		Action:      input.Action,
		Resource:    input.Resource,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}
	if perm.Name == "" {
		perm.Name = permissions.Name(perm.Action, perm.Resource)
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Permissions.Create(ctx, perm), nil, ErrPermissionConflict)
	})
	if err != nil {
		return nil, wrapErr("rbac service: create permission", err)
	}

	recordAudit(ctx, s.audit, nil, "permission.create", permissions.ResourcePermission, map[string]any{
		"permission_id": perm.ID,
		"name":          perm.Name,
	})
	return perm, nil
}

// ListPermissions is open to anyone holding read permission in some context.
func (s *RBACService) ListPermissions(ctx context.Context, resource string) ([]models.Permission, error) {
	ctx = ensureContext(ctx)
	_, scope, err := scopeFor(ctx, s.authz, permissions.ActionRead, permissions.ResourcePermission)
	if err != nil {
		return nil, err
	}
	if !scope.All && len(scope.HotelIDs) == 0 {
		return nil, forbidden(permissions.ActionRead, permissions.ResourcePermission)
	}
	perms, err := s.store.Permissions.List(ctx, strings.ToLower(strings.TrimSpace(resource)))
	if err != nil {
		return nil, fmt.Errorf("rbac service: list permissions: %w", err)
	}
	return perms, nil
}

// DeletePermission removes the permission and every grant of it.
func (s *RBACService) DeletePermission(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, nil, permissions.ActionDelete, permissions.ResourcePermission); err != nil {
		return err
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Permissions.Delete(ctx, id), ErrPermissionNotFound, nil)
	})
	if err != nil {
		return wrapErr("rbac service: delete permission", err)
	}
	recordAudit(ctx, s.audit, nil, "permission.delete", permissions.ResourcePermission, map[string]any{"permission_id": id})
	return nil
}

// GrantPermission attaches a permission to a role. Granting twice is a no-op.
func (s *RBACService) GrantPermission(ctx context.Context, roleID, permissionID uint) error {
	return s.changeGrant(ctx, roleID, permissionID, true)
}

// RevokePermission detaches a permission from a role. Revoking an absent
// grant is a no-op.
func (s *RBACService) RevokePermission(ctx context.Context, roleID, permissionID uint) error {
	return s.changeGrant(ctx, roleID, permissionID, false)
}

func (s *RBACService) changeGrant(ctx context.Context, roleID, permissionID uint, grant bool) error {
	ctx = ensureContext(ctx)
	role, err := s.store.Roles.FindByID(ctx, roleID)
	if err != nil {
		return mapRepoErr(err, ErrRoleNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, role.HotelID, permissions.ActionUpdate, permissions.ResourceRole); err != nil {
		return err
	}

	var changed bool
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Permissions.FindByID(ctx, permissionID); err != nil {
			return mapRepoErr(err, ErrPermissionNotFound, nil)
		}
		if grant {
			changed, err = tx.Grants.Grant(ctx, roleID, permissionID)
		} else {
			changed, err = tx.Grants.Revoke(ctx, roleID, permissionID)
		}
		return mapRepoErr(err, nil, nil)
	})
	op := "role.revoke"
	if grant {
		op = "role.grant"
	}
	if err != nil {
		return wrapErr("rbac service: "+op, err)
	}

	if changed {
		recordAudit(ctx, s.audit, role.HotelID, op, permissions.ResourceRole, map[string]any{
			"role_id":       roleID,
			"permission_id": permissionID,
		})
	}
	return nil
}

// AssignUserRole binds a hotel-scoped role to a user inside that hotel. The
// role must belong to hotelID; global roles go through SetGlobalRole.
func (s *RBACService) AssignUserRole(ctx context.Context, userID, roleID, hotelID uint) error {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, &hotelID, permissions.ActionUpdate, permissions.ResourceRole); err != nil {
		return err
	}
	role, err := s.store.Roles.FindByID(ctx, roleID)
	if err != nil {
		return mapRepoErr(err, ErrRoleNotFound, nil)
	}
	if role.IsGlobal() {
		return fail(ErrGlobalRoleBinding)
	}
	if *role.HotelID != hotelID {
		return fail(ErrRoleHotelMismatch)
	}

	var created bool
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return mapRepoErr(err, ErrUserNotFound, nil)
		}
		created, err = tx.Grants.Bind(ctx, userID, roleID, hotelID)
		return mapRepoErr(err, nil, nil)
	})
	if err != nil {
		return wrapErr("rbac service: assign user role", err)
	}

	if created {
		recordAudit(ctx, s.audit, &hotelID, "user.role.assign", permissions.ResourceRole, map[string]any{
			"user_id": userID,
			"role_id": roleID,
		})
	}
	return nil
}

// RemoveUserRole deletes exactly the (user, role, hotel) binding, if present.
func (s *RBACService) RemoveUserRole(ctx context.Context, userID, roleID, hotelID uint) error {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, &hotelID, permissions.ActionUpdate, permissions.ResourceRole); err != nil {
		return err
	}

	var removed bool
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		removed, err = tx.Grants.Unbind(ctx, userID, roleID, hotelID)
		return err
	})
	if err != nil {
		return wrapErr("rbac service: remove user role", err)
	}

	if removed {
		recordAudit(ctx, s.audit, &hotelID, "user.role.remove", permissions.ResourceRole, map[string]any{
			"user_id": userID,
			"role_id": roleID,
		})
	}
	return nil
}

// SetGlobalRole replaces the user's global role; nil clears it. Granting or
// taking away superadmin requires the caller to be superadmin.
func (s *RBACService) SetGlobalRole(ctx context.Context, userID uint, roleID *uint) (*models.User, error) {
	ctx = ensureContext(ctx)
	actor, err := authorize(ctx, s.authz, nil, permissions.ActionUpdate, permissions.ResourceRole)
	if err != nil {
		return nil, err
	}

	target, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err, ErrUserNotFound, nil)
	}

	var role *models.Role
	if roleID != nil {
		role, err = s.store.Roles.FindByID(ctx, *roleID)
		if err != nil {
			return nil, mapRepoErr(err, ErrRoleNotFound, nil)
		}
		if !role.IsGlobal() {
			return nil, fail(ErrRoleNotGlobal)
		}
	}

	touchesSuperadmin := (role != nil && role.IsSuperadmin()) ||
		(target.GlobalRole != nil && target.GlobalRole.IsSuperadmin())
	if touchesSuperadmin {
		if err := requireSuperadmin(ctx, s.authz, actor); err != nil {
			return nil, err
		}
	}

	var user *models.User
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Users.SetGlobalRole(ctx, userID, roleID); err != nil {
			return mapRepoErr(err, ErrUserNotFound, nil)
		}
		user, err = tx.Users.FindByID(ctx, userID)
		return mapRepoErr(err, ErrUserNotFound, nil)
	})
	if err != nil {
		return nil, wrapErr("rbac service: set global role", err)
	}

	meta := map[string]any{"user_id": userID}
	if roleID != nil {
		meta["role_id"] = *roleID
	}
	recordAudit(ctx, s.audit, nil, "user.global_role", permissions.ResourceRole, meta)
	return user, nil
}

// ListUserRoles returns the global role and hotel bindings of a user. Users
// may always read their own.
func (s *RBACService) ListUserRoles(ctx context.Context, userID uint) (UserRoles, error) {
	ctx = ensureContext(ctx)
	if _, err := authorizeSelfOr(ctx, s.authz, userID, permissions.ActionRead, permissions.ResourceUser); err != nil {
		return UserRoles{}, err
	}

	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return UserRoles{}, mapRepoErr(err, ErrUserNotFound, nil)
	}
	bindings, err := s.store.Users.Bindings(ctx, userID)
	if err != nil {
		return UserRoles{}, fmt.Errorf("rbac service: list bindings: %w", err)
	}
	return UserRoles{GlobalRole: user.GlobalRole, Bindings: bindings}, nil
}

// PermissionCheck asks whether a user holds (Action, Resource) in a context.
// UserID defaults to the caller.
type PermissionCheck struct {
	UserID   *uint  `json:"user_id"`
	HotelID  *uint  `json:"hotel_id"`
	Action   string `json:"action" validate:"required,notblank,max=64"`
	Resource string `json:"resource" validate:"required,notblank,max=64"`
}

type PermissionDecision struct {
	UserID   uint   `json:"user_id"`
	HotelID  *uint  `json:"hotel_id"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Allowed  bool   `json:"allowed"`
}

// CheckPermission evaluates a permission for the caller, or for another user
// when the caller may read users.
func (s *RBACService) CheckPermission(ctx context.Context, check PermissionCheck) (PermissionDecision, error) {
	ctx = ensureContext(ctx)
	if err := validate(check); err != nil {
		return PermissionDecision{}, err
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return PermissionDecision{}, err
	}
	userID := actor.UserID
	if check.UserID != nil {
		userID = *check.UserID
	}
	if _, err := authorizeSelfOr(ctx, s.authz, userID, permissions.ActionRead, permissions.ResourceUser); err != nil {
		return PermissionDecision{}, err
	}

	action := strings.ToLower(strings.TrimSpace(check.Action))
	resource := strings.ToLower(strings.TrimSpace(check.Resource))
	allowed, err := s.authz.Authorize(ctx, userID, check.HotelID, action, resource)
	if err != nil {
		return PermissionDecision{}, fmt.Errorf("rbac service: check permission: %w", err)
	}
	return PermissionDecision{
		UserID:   userID,
		HotelID:  check.HotelID,
		Action:   action,
		Resource: resource,
		Allowed:  allowed,
	}, nil
}

// EffectivePermissions lists the roles and permissions that apply to a user
// in hotelID (nil for the global context).
func (s *RBACService) EffectivePermissions(ctx context.Context, userID uint, hotelID *uint) (permissions.Grants, error) {
	ctx = ensureContext(ctx)
	if _, err := authorizeSelfOr(ctx, s.authz, userID, permissions.ActionRead, permissions.ResourceUser); err != nil {
		return permissions.Grants{}, err
	}
	grants, err := s.authz.EffectivePermissions(ctx, userID, hotelID)
	if err != nil {
		return permissions.Grants{}, fmt.Errorf("rbac service: effective permissions: %w", err)
	}
	if grants.Roles == nil {
		grants.Roles = []models.Role{}
	}
	if grants.Permissions == nil {
		grants.Permissions = []models.Permission{}
	}
	return grants, nil
}
