package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/pkg/crypto"
	apperrors "github.com/charlesng35/innkeep/pkg/errors"
)

func TestUserCreateAndConflict(t *testing.T) {
	f := newFixture(t)
	ctx := f.rootCtx()

	user, err := f.users.Create(ctx, CreateUserInput{
		Username: "  frontdesk ",
		Email:    "Desk@Hotel.Example",
		Password: "s3cretpass",
	})
	require.NoError(t, err)
	require.Equal(t, "frontdesk", user.Username)
	require.Equal(t, "desk@hotel.example", user.Email)
	require.True(t, user.IsActive)
	require.NotEqual(t, "s3cretpass", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "s3cretpass"))

	_, err = f.users.Create(ctx, CreateUserInput{Username: "frontdesk", Email: "other@hotel.example", Password: "s3cretpass"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	require.ErrorIs(t, err, ErrUserConflict)

	_, err = f.users.Create(ctx, CreateUserInput{Username: "short", Email: "short@hotel.example", Password: "tiny"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	nobody := f.user("nobody")
	_, err = f.users.Create(f.as(nobody), CreateUserInput{Username: "sneaky", Email: "s@hotel.example", Password: "s3cretpass"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUserSelfService(t *testing.T) {
	f := newFixture(t)
	eve := f.user("eve")
	other := f.user("other")
	ctx := f.as(eve)

	me, err := f.users.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, eve.ID, me.ID)

	_, err = f.users.Get(ctx, other.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	first := "Eve"
	updated, err := f.users.Update(ctx, eve.ID, UpdateUserInput{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Eve", updated.FirstName)

	inactive := false
	_, err = f.users.Update(ctx, eve.ID, UpdateUserInput{IsActive: &inactive})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.users.Update(f.rootCtx(), f.root.ID, UpdateUserInput{IsActive: &inactive})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err = f.users.Update(f.rootCtx(), eve.ID, UpdateUserInput{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
}

func TestUserPasswordFlows(t *testing.T) {
	f := newFixture(t)
	frank := f.user("frank")
	ctx := f.as(frank)

	err := f.users.ChangePassword(ctx, ChangePasswordInput{CurrentPassword: "wrong-password", NewPassword: "brandnew123"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	err = f.users.ChangePassword(ctx, ChangePasswordInput{CurrentPassword: "password123", NewPassword: "password123"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, f.users.ResetPassword(f.rootCtx(), frank.ID, "temporary1"))
	reloaded, err := f.store.Users.FindByID(ctx, frank.ID)
	require.NoError(t, err)
	require.True(t, reloaded.MustResetPassword)

	require.NoError(t, f.users.ChangePassword(ctx, ChangePasswordInput{CurrentPassword: "temporary1", NewPassword: "brandnew123"}))
	reloaded, err = f.store.Users.FindByID(ctx, frank.ID)
	require.NoError(t, err)
	require.False(t, reloaded.MustResetPassword)
	require.True(t, crypto.VerifyPassword(reloaded.Password, "brandnew123"))

	require.ErrorIs(t, f.users.ResetPassword(f.rootCtx(), frank.ID, "short"), apperrors.ErrValidation)
}

func TestUserDeleteGuards(t *testing.T) {
	f := newFixture(t)
	admin := f.userWithGlobalRole("admin", models.RoleAdmin)
	second := f.userWithGlobalRole("second-root", models.RoleSuperadmin)
	grace := f.user("grace")

	require.ErrorIs(t, f.users.Delete(f.as(admin), admin.ID), ErrSelfDelete)
	require.ErrorIs(t, f.users.Delete(f.as(admin), second.ID), apperrors.ErrForbidden)

	require.NoError(t, f.users.Delete(f.as(admin), grace.ID))
	_, err := f.users.Get(f.rootCtx(), grace.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, f.users.Delete(f.rootCtx(), second.ID))
}

func TestUserList(t *testing.T) {
	f := newFixture(t)
	f.user("alpha")
	f.user("beta")

	all, err := f.users.List(f.rootCtx(), UserListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)

	filtered, err := f.users.List(f.rootCtx(), UserListOptions{Search: "alp"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, "alpha", filtered.Items[0].Username)
}
