package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/crypto"
	apperrors "github.com/charlesng35/innkeep/pkg/errors"
)

type CreateUserInput struct {
	Username          string `json:"username" validate:"required,notblank,min=3,max=64"`
	Email             string `json:"email" validate:"required,email,max=255"`
	Password          string `json:"password" validate:"required,min=8,max=128"`
	FirstName         string `json:"first_name" validate:"max=128"`
	LastName          string `json:"last_name" validate:"max=128"`
	IsActive          *bool  `json:"is_active"`
	MustResetPassword bool   `json:"must_reset_password"`
}

// UpdateUserInput is a partial update. Users may edit their own profile but
// only holders of update user can change IsActive.
type UpdateUserInput struct {
	Username  *string `json:"username" validate:"omitempty,notblank,min=3,max=64"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	FirstName *string `json:"first_name" validate:"omitempty,max=128"`
	LastName  *string `json:"last_name" validate:"omitempty,max=128"`
	IsActive  *bool   `json:"is_active"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

type UserListOptions struct {
	Search   string
	Page     int
	PageSize int
}

// UserService manages operator accounts. User administration happens in the
// global context.
type UserService struct {
	store *repository.Store
	authz Authorizer
	audit *AuditService
}

func NewUserService(store *repository.Store, authz Authorizer, audit *AuditService) (*UserService, error) {
	if store == nil {
		return nil, errors.New("user service: store is required")
	}
	if authz == nil {
		return nil, errors.New("user service: authorizer is required")
	}
	return &UserService{store: store, authz: authz, audit: audit}, nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.authz, nil, permissions.ActionCreate, permissions.ResourceUser); err != nil {
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:          input.Username,
		Email:             input.Email,
		Password:          hashed,
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		IsActive:          true,
		MustResetPassword: input.MustResetPassword,
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Users.Create(ctx, user), nil, ErrUserConflict)
	})
	if err != nil {
		return nil, wrapErr("user service: create", err)
	}

	recordAudit(ctx, s.audit, nil, "user.create", permissions.ResourceUser, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return user, nil
}

// Get returns a user. Callers can always read themselves.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	ctx = ensureContext(ctx)
	if _, err := authorizeSelfOr(ctx, s.authz, id, permissions.ActionRead, permissions.ResourceUser); err != nil {
		return nil, err
	}
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrUserNotFound, nil)
	}
	return user, nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context) (*models.User, error) {
	ctx = ensureContext(ctx)
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor.UserID)
}

func (s *UserService) List(ctx context.Context, opts UserListOptions) (repository.PageResult[models.User], error) {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, nil, permissions.ActionRead, permissions.ResourceUser); err != nil {
		return repository.PageResult[models.User]{}, err
	}
	result, err := s.store.Users.List(ctx, opts.Search, repository.PageRequest{Page: opts.Page, PageSize: opts.PageSize})
	if err != nil {
		return result, fmt.Errorf("user service: list: %w", err)
	}
	return result, nil
}

func (s *UserService) Update(ctx context.Context, id uint, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := authorizeSelfOr(ctx, s.authz, id, permissions.ActionUpdate, permissions.ResourceUser); err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		actor, err := authorize(ctx, s.authz, nil, permissions.ActionUpdate, permissions.ResourceUser)
		if err != nil {
			return nil, err
		}
		if actor.UserID == id && !*input.IsActive {
			return nil, invalid("You cannot deactivate your own account")
		}
	}

	updates := map[string]any{}
	setTrimmed(updates, "username", input.Username)
	setTrimmed(updates, "first_name", input.FirstName)
	setTrimmed(updates, "last_name", input.LastName)
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	var user *models.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		user, err = tx.Users.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrUserNotFound, nil)
		}
		return mapRepoErr(tx.Users.Update(ctx, user, updates), ErrUserNotFound, ErrUserConflict)
	})
	if err != nil {
		return nil, wrapErr("user service: update", err)
	}

	recordAudit(ctx, s.audit, nil, "user.update", permissions.ResourceUser, map[string]any{
		"user_id": id,
		"fields":  updateKeys(updates),
	})
	return user, nil
}

// Delete removes a user with its role bindings. Deleting a superadmin takes a
// superadmin.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	actor, err := authorize(ctx, s.authz, nil, permissions.ActionDelete, permissions.ResourceUser)
	if err != nil {
		return err
	}
	if actor.UserID == id {
		return fail(ErrSelfDelete)
	}

	target, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return mapRepoErr(err, ErrUserNotFound, nil)
	}
	if target.GlobalRole != nil && target.GlobalRole.IsSuperadmin() {
		if err := requireSuperadmin(ctx, s.authz, actor); err != nil {
			return err
		}
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Users.Delete(ctx, id), ErrUserNotFound, nil)
	})
	if err != nil {
		return wrapErr("user service: delete", err)
	}

	recordAudit(ctx, s.audit, nil, "user.delete", permissions.ResourceUser, map[string]any{
		"user_id":  id,
		"username": target.Username,
	})
	return nil
}

// ChangePassword replaces the caller's password and clears a pending reset.
func (s *UserService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return err
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}

	hashed, err := crypto.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByID(ctx, actor.UserID)
		if err != nil {
			return mapRepoErr(err, ErrUserNotFound, nil)
		}
		if !crypto.VerifyPassword(user.Password, input.CurrentPassword) {
			return apperrors.ErrInvalidCredentials.WithMessage("Current password is incorrect")
		}
		return tx.Users.Update(ctx, user, map[string]any{
			"password":            hashed,
			"must_reset_password": false,
		})
	})
	if err != nil {
		return wrapErr("user service: change password", err)
	}

	recordAudit(ctx, s.audit, nil, "user.password.change", permissions.ResourceUser, map[string]any{"user_id": actor.UserID})
	return nil
}

// ResetPassword sets a temporary password that must be changed at next login.
func (s *UserService) ResetPassword(ctx context.Context, id uint, temporary string) error {
	ctx = ensureContext(ctx)
	if len(temporary) < crypto.MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", crypto.MinPasswordLength))
	}
	actor, err := authorize(ctx, s.authz, nil, permissions.ActionUpdate, permissions.ResourceUser)
	if err != nil {
		return err
	}

	target, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return mapRepoErr(err, ErrUserNotFound, nil)
	}
	if target.GlobalRole != nil && target.GlobalRole.IsSuperadmin() && actor.UserID != id {
		if err := requireSuperadmin(ctx, s.authz, actor); err != nil {
			return err
		}
	}

	hashed, err := crypto.HashPassword(temporary)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrUserNotFound, nil)
		}
		return tx.Users.Update(ctx, user, map[string]any{
			"password":            hashed,
			"must_reset_password": true,
		})
	})
	if err != nil {
		return wrapErr("user service: reset password", err)
	}

	recordAudit(ctx, s.audit, nil, "user.password.reset", permissions.ResourceUser, map[string]any{"user_id": id})
	return nil
}
