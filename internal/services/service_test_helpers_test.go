package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/auditctx"
	"github.com/charlesng35/innkeep/internal/database/testutil"
	"github.com/charlesng35/innkeep/internal/events"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/crypto"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	t         *testing.T
	store     *repository.Store
	eval      *permissions.Evaluator
	audit     *AuditService
	rbac      *RBACService
	hotels    *HotelService
	rooms     *RoomService
	bookings  *BookingService
	users     *UserService
	published *recordingPublisher
	root      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store, err := repository.NewStore(db)
	require.NoError(t, err)
	require.NoError(t, permissions.Sync(context.Background(), db))

	eval, err := permissions.NewStoreEvaluator(store)
	require.NoError(t, err)

	f := &fixture{t: t, store: store, eval: eval, published: &recordingPublisher{}}
	f.audit, err = NewAuditService(db, eval)
	require.NoError(t, err)
	f.rbac, err = NewRBACService(store, eval, f.audit)
	require.NoError(t, err)
	f.hotels, err = NewHotelService(store, eval, f.audit)
	require.NoError(t, err)
	f.rooms, err = NewRoomService(store, eval, f.audit)
	require.NoError(t, err)
	f.bookings, err = NewBookingService(store, eval, f.audit, f.published)
	require.NoError(t, err)
	f.users, err = NewUserService(store, eval, f.audit)
	require.NoError(t, err)

	f.root = f.userWithGlobalRole("root", models.RoleSuperadmin)
	return f
}

// user inserts an active account directly, bypassing authorization.
func (f *fixture) user(username string) *models.User {
	f.t.Helper()
	hashed, err := crypto.HashPassword("password123")
	require.NoError(f.t, err)
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(f.t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) userWithGlobalRole(username, roleName string) *models.User {
	f.t.Helper()
	u := f.user(username)
	role, err := f.store.Roles.FindByName(context.Background(), roleName, nil)
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.Users.SetGlobalRole(context.Background(), u.ID, &role.ID))
	return u
}

func (f *fixture) as(u *models.User) context.Context {
	return auditctx.WithActor(context.Background(), auditctx.Actor{UserID: u.ID, Username: u.Username, RequestID: "req-test"})
}

func (f *fixture) rootCtx() context.Context {
	return f.as(f.root)
}

func (f *fixture) perm(action, resource string) *models.Permission {
	f.t.Helper()
	p, err := f.store.Permissions.FindByPair(context.Background(), action, resource)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) hotel(name string) *models.Hotel {
	f.t.Helper()
	h, err := f.hotels.Create(f.rootCtx(), CreateHotelInput{Name: name, City: "Porto"})
	require.NoError(f.t, err)
	return h
}

func (f *fixture) room(hotelID uint, number string, price float64, capacity int) *models.Room {
	f.t.Helper()
	r, err := f.rooms.Create(f.rootCtx(), hotelID, CreateRoomInput{
		RoomNumber: number,
		Type:       "double",
		Price:      price,
		Capacity:   capacity,
	})
	require.NoError(f.t, err)
	return r
}

// scopedRole creates a role in hotelID holding the given (action, resource)
// pairs and binds it to user.
func (f *fixture) scopedRole(user *models.User, hotelID uint, name string, pairs ...[2]string) *models.Role {
	f.t.Helper()
	ctx := f.rootCtx()
	role, err := f.rbac.CreateRole(ctx, CreateRoleInput{Name: name, HotelID: &hotelID})
	require.NoError(f.t, err)
	for _, pair := range pairs {
		require.NoError(f.t, f.rbac.GrantPermission(ctx, role.ID, f.perm(pair[0], pair[1]).ID))
	}
	require.NoError(f.t, f.rbac.AssignUserRole(ctx, user.ID, role.ID, hotelID))
	return role
}
