package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/database/testutil"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
)

func TestBootstrapCreatesSuperadminOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store, err := repository.NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	account := SuperadminAccount{Username: "root", Password: "changeme123"}
	created, err := Bootstrap(ctx, store, account)
	require.NoError(t, err)
	require.True(t, created)

	user, err := store.Users.FindByIdentifier(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, "root@localhost", user.Email)
	require.True(t, user.MustResetPassword)
	require.NotNil(t, user.GlobalRole)
	require.True(t, user.GlobalRole.IsSuperadmin())

	created, err = Bootstrap(ctx, store, account)
	require.NoError(t, err)
	require.False(t, created)

	count, err := store.Users.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	eval, err := permissions.NewStoreEvaluator(store)
	require.NoError(t, err)
	allowed, err := eval.Authorize(ctx, user.ID, nil, permissions.ActionDelete, permissions.ResourcePermission)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestBootstrapWithoutAccountOnlySyncs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store, err := repository.NewStore(db)
	require.NoError(t, err)

	created, err := Bootstrap(context.Background(), store, SuperadminAccount{})
	require.NoError(t, err)
	require.False(t, created)

	var perms []models.Permission
	require.NoError(t, db.Find(&perms).Error)
	require.Len(t, perms, len(permissions.Builtin()))
}
