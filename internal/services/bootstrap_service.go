package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/crypto"
	"github.com/charlesng35/innkeep/pkg/logger"
)

// SuperadminAccount describes the account created on first start.
type SuperadminAccount struct {
	Username string
	Email    string
	Password string
}

// Bootstrap syncs the permission catalogue and makes sure a superadmin
// account exists. The account is created once, with a mandatory password
// reset, and left alone afterwards. It reports whether the account was
// created.
func Bootstrap(ctx context.Context, store *repository.Store, account SuperadminAccount) (bool, error) {
	ctx = ensureContext(ctx)
	if store == nil {
		return false, errors.New("bootstrap: store is required")
	}
	if err := permissions.Sync(ctx, store.DB()); err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}

	account.Username = strings.TrimSpace(account.Username)
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if account.Username == "" || account.Password == "" {
		return false, nil
	}
	if account.Email == "" {
		account.Email = account.Username + "@localhost"
	}

	log := logger.WithModule("bootstrap")
	created := false
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		role, err := tx.Roles.FindByName(ctx, models.RoleSuperadmin, nil)
		if err != nil {
			return fmt.Errorf("load superadmin role: %w", err)
		}

		existing, err := tx.Users.FindByIdentifier(ctx, account.Username)
		switch {
		case err == nil:
			if existing.GlobalRoleID == nil {
				log.Warn("bootstrap user exists without a global role", zap.String("username", existing.Username))
			}
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		hashed, err := crypto.HashPassword(account.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user := &models.User{
			Username:          account.Username,
			Email:             account.Email,
			Password:          hashed,
			IsActive:          true,
			MustResetPassword: true,
			GlobalRoleID:      &role.ID,
		}
		if err := tx.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("create superadmin: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	if created {
		log.Info("superadmin account created", zap.String("username", account.Username))
	}
	return created, nil
}
