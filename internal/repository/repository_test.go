package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/database/testutil"
	"github.com/charlesng35/innkeep/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(testutil.MustOpenTestDB(t, testutil.WithSeedData()))
	require.NoError(t, err)
	return store
}

func mustHotel(t *testing.T, s *Store, name string) *models.Hotel {
	t.Helper()
	hotel := &models.Hotel{Name: name, City: "Lisbon"}
	require.NoError(t, s.Hotels.Create(context.Background(), hotel))
	return hotel
}

func mustRoom(t *testing.T, s *Store, hotelID uint, number string) *models.Room {
	t.Helper()
	room := &models.Room{HotelID: &hotelID, RoomNumber: number, Type: "double", Price: 100, Capacity: 2, IsAvailable: true}
	require.NoError(t, s.Rooms.Create(context.Background(), room))
	return room
}

func mustUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: true}
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

func TestNewStoreRequiresDB(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
}

func TestFindMissingReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Hotels.FindByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Rooms.FindByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Bookings.Delete(ctx, 999), ErrNotFound)
	require.ErrorIs(t, s.Roles.Delete(ctx, 999), ErrNotFound)
}

func TestHotelDeleteOrphansRoomsAndRemovesDependents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Seaside")
	room := mustRoom(t, s, hotel.ID, "101")
	booking := &models.Booking{HotelID: hotel.ID, RoomID: room.ID, GuestName: "Ada", CheckIn: time.Now(), CheckOut: time.Now().Add(24 * time.Hour)}
	require.NoError(t, s.Bookings.Create(ctx, booking))

	user := mustUser(t, s, "manager")
	role := &models.Role{Name: "Manager", HotelID: &hotel.ID}
	require.NoError(t, s.Roles.Create(ctx, role))
	_, err := s.Grants.Bind(ctx, user.ID, role.ID, hotel.ID)
	require.NoError(t, err)

	require.NoError(t, s.Transaction(ctx, func(tx *Store) error {
		return tx.Hotels.Delete(ctx, hotel.ID)
	}))

	orphan, err := s.Rooms.FindByID(ctx, room.ID)
	require.NoError(t, err)
	require.True(t, orphan.Orphaned())

	_, err = s.Bookings.FindByID(ctx, booking.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Roles.FindByID(ctx, role.ID)
	require.ErrorIs(t, err, ErrNotFound)

	bindings, err := s.Users.Bindings(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, bindings)

	require.ErrorIs(t, s.Hotels.Delete(ctx, hotel.ID), ErrNotFound)
}

func TestRoomDeleteRemovesBookings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Harbour")
	room := mustRoom(t, s, hotel.ID, "12")
	booking := &models.Booking{HotelID: hotel.ID, RoomID: room.ID, GuestName: "Lin", CheckIn: time.Now(), CheckOut: time.Now().Add(time.Hour)}
	require.NoError(t, s.Bookings.Create(ctx, booking))

	require.NoError(t, s.Rooms.Delete(ctx, room.ID))

	_, err := s.Bookings.FindByID(ctx, booking.ID)
	require.ErrorIs(t, err, ErrNotFound)

	rooms, err := s.Hotels.ListRooms(ctx, hotel.ID)
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestUserDeleteReleasesHotelsAndBindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := mustUser(t, s, "owner")
	hotel := &models.Hotel{Name: "Owned", City: "Porto", AdminID: &owner.ID}
	require.NoError(t, s.Hotels.Create(ctx, hotel))
	role := &models.Role{Name: "desk", HotelID: &hotel.ID}
	require.NoError(t, s.Roles.Create(ctx, role))
	_, err := s.Grants.Bind(ctx, owner.ID, role.ID, hotel.ID)
	require.NoError(t, err)

	require.NoError(t, s.Users.Delete(ctx, owner.ID))

	reloaded, err := s.Hotels.FindByID(ctx, hotel.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.AdminID)

	var bindings int64
	require.NoError(t, s.DB().Model(&models.UserRole{}).Where("user_id = ?", owner.ID).Count(&bindings).Error)
	require.Zero(t, bindings)

	require.ErrorIs(t, s.Users.Delete(ctx, owner.ID), ErrNotFound)
}

func TestRoleUniquenessPerHotel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustHotel(t, s, "A")
	b := mustHotel(t, s, "B")

	require.NoError(t, s.Roles.Create(ctx, &models.Role{Name: "Manager", HotelID: &a.ID}))
	require.NoError(t, s.Roles.Create(ctx, &models.Role{Name: "Manager", HotelID: &b.ID}))

	err := s.Roles.Create(ctx, &models.Role{Name: "Manager", HotelID: &a.ID})
	require.ErrorIs(t, err, ErrDuplicate)
	require.True(t, IsUniqueViolation(err))

	found, err := s.Roles.FindByName(ctx, "Manager", &b.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, *found.HotelID)

	_, err = s.Roles.FindByName(ctx, "Manager", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGrantAndBindAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Alpine")
	user := mustUser(t, s, "clerk")
	role := &models.Role{Name: "Clerk", HotelID: &hotel.ID}
	require.NoError(t, s.Roles.Create(ctx, role))
	perm := &models.Permission{Name: "room.read", Action: "read", Resource: "room"}
	require.NoError(t, s.Permissions.Create(ctx, perm))

	created, err := s.Grants.Grant(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	require.True(t, created)
	created, err = s.Grants.Grant(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	require.False(t, created)

	bound, err := s.Grants.Bind(ctx, user.ID, role.ID, hotel.ID)
	require.NoError(t, err)
	require.True(t, bound)
	bound, err = s.Grants.Bind(ctx, user.ID, role.ID, hotel.ID)
	require.NoError(t, err)
	require.False(t, bound)

	removed, err := s.Grants.Revoke(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = s.Grants.Revoke(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	require.False(t, removed)

	removed, err = s.Grants.Unbind(ctx, user.ID, role.ID, hotel.ID+1)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestGrantUnknownRoleIsInvalidReference(t *testing.T) {
	s := newTestStore(t)
	perm := &models.Permission{Name: "hotel.read", Action: "read", Resource: "hotel"}
	require.NoError(t, s.Permissions.Create(context.Background(), perm))

	_, err := s.Grants.Grant(context.Background(), 4242, perm.ID)
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestRolesInContext(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h1 := mustHotel(t, s, "One")
	h2 := mustHotel(t, s, "Two")
	user := mustUser(t, s, "multi")

	admin, err := s.Roles.FindByName(ctx, models.RoleAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, s.Users.SetGlobalRole(ctx, user.ID, &admin.ID))

	m1 := &models.Role{Name: "Manager", HotelID: &h1.ID}
	m2 := &models.Role{Name: "Manager", HotelID: &h2.ID}
	require.NoError(t, s.Roles.Create(ctx, m1))
	require.NoError(t, s.Roles.Create(ctx, m2))
	_, err = s.Grants.Bind(ctx, user.ID, m1.ID, h1.ID)
	require.NoError(t, err)

	roles, err := s.Users.RolesInContext(ctx, user.ID, nil)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, admin.ID, roles[0].ID)

	roles, err = s.Users.RolesInContext(ctx, user.ID, &h1.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{admin.ID, m1.ID}, roleIDs(roles))

	roles, err = s.Users.RolesInContext(ctx, user.ID, &h2.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{admin.ID}, roleIDs(roles))
}

func TestHotelsGranting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h1 := mustHotel(t, s, "One")
	h2 := mustHotel(t, s, "Two")
	h3 := mustHotel(t, s, "Three")
	user := mustUser(t, s, "reader")

	read := &models.Permission{Name: "booking.read", Action: "read", Resource: "booking"}
	require.NoError(t, s.Permissions.Create(ctx, read))

	for _, h := range []*models.Hotel{h1, h3} {
		role := &models.Role{Name: "Reader", HotelID: &h.ID}
		require.NoError(t, s.Roles.Create(ctx, role))
		_, err := s.Grants.Grant(ctx, role.ID, read.ID)
		require.NoError(t, err)
		_, err = s.Grants.Bind(ctx, user.ID, role.ID, h.ID)
		require.NoError(t, err)
	}
	idle := &models.Role{Name: "Idle", HotelID: &h2.ID}
	require.NoError(t, s.Roles.Create(ctx, idle))
	_, err := s.Grants.Bind(ctx, user.ID, idle.ID, h2.ID)
	require.NoError(t, err)

	ids, err := s.Users.HotelsGranting(ctx, user.ID, "read", "booking")
	require.NoError(t, err)
	require.Equal(t, []uint{h1.ID, h3.ID}, ids)

	ids, err = s.Users.HotelsGranting(ctx, user.ID, "delete", "booking")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestRoleDeleteClearsEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Edge")
	user := mustUser(t, s, "edge")
	global := &models.Role{Name: "Auditor"}
	require.NoError(t, s.Roles.Create(ctx, global))
	require.NoError(t, s.Users.SetGlobalRole(ctx, user.ID, &global.ID))

	scoped := &models.Role{Name: "Desk", HotelID: &hotel.ID}
	require.NoError(t, s.Roles.Create(ctx, scoped))
	perm := &models.Permission{Name: "room.update", Action: "update", Resource: "room"}
	require.NoError(t, s.Permissions.Create(ctx, perm))
	_, err := s.Grants.Grant(ctx, scoped.ID, perm.ID)
	require.NoError(t, err)
	_, err = s.Grants.Bind(ctx, user.ID, scoped.ID, hotel.ID)
	require.NoError(t, err)

	require.NoError(t, s.Roles.Delete(ctx, scoped.ID))
	require.NoError(t, s.Roles.Delete(ctx, global.ID))

	reloaded, err := s.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.GlobalRoleID)

	var edges int64
	require.NoError(t, s.DB().Model(&models.RolePermission{}).Where("permission_id = ?", perm.ID).Count(&edges).Error)
	require.Zero(t, edges)

	_, err = s.Permissions.FindByID(ctx, perm.ID)
	require.NoError(t, err, "deleting a role keeps its permissions")
}

func TestPermissionDeleteKeepsBindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Keep")
	user := mustUser(t, s, "keeper")
	role := &models.Role{Name: "Keeper", HotelID: &hotel.ID}
	require.NoError(t, s.Roles.Create(ctx, role))
	perm := &models.Permission{Name: "hotel.update", Action: "update", Resource: "hotel"}
	require.NoError(t, s.Permissions.Create(ctx, perm))
	_, err := s.Grants.Grant(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	_, err = s.Grants.Bind(ctx, user.ID, role.ID, hotel.ID)
	require.NoError(t, err)

	require.NoError(t, s.Permissions.Delete(ctx, perm.ID))

	perms, err := s.Roles.ListPermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Empty(t, perms)

	bindings, err := s.Users.Bindings(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	require.Equal(t, "Keeper", bindings[0].Role.Name)
}

func TestBookingOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Overlap")
	room := mustRoom(t, s, hotel.ID, "7")
	start := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)
	existing := &models.Booking{HotelID: hotel.ID, RoomID: room.ID, GuestName: "A", CheckIn: start, CheckOut: start.Add(72 * time.Hour)}
	require.NoError(t, s.Bookings.Create(ctx, existing))

	overlap, err := s.Bookings.HasOverlap(ctx, room.ID, start.Add(48*time.Hour), start.Add(96*time.Hour), 0)
	require.NoError(t, err)
	require.True(t, overlap)

	overlap, err = s.Bookings.HasOverlap(ctx, room.ID, start.Add(72*time.Hour), start.Add(96*time.Hour), 0)
	require.NoError(t, err)
	require.False(t, overlap, "back-to-back stays do not overlap")

	overlap, err = s.Bookings.HasOverlap(ctx, room.ID, start, start.Add(24*time.Hour), existing.ID)
	require.NoError(t, err)
	require.False(t, overlap)

	require.NoError(t, s.Bookings.Update(ctx, existing, map[string]any{"status": "cancelled"}))
	overlap, err = s.Bookings.HasOverlap(ctx, room.ID, start, start.Add(24*time.Hour), 0)
	require.NoError(t, err)
	require.False(t, overlap)
}

func TestMaxActiveGuests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hotel := mustHotel(t, s, "Party")
	room := mustRoom(t, s, hotel.ID, "3")
	largest, err := s.Bookings.MaxActiveGuests(ctx, room.ID)
	require.NoError(t, err)
	require.Zero(t, largest)

	start := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	pair := &models.Booking{HotelID: hotel.ID, RoomID: room.ID, GuestName: "Pair", Guests: 2, CheckIn: start, CheckOut: start.Add(24 * time.Hour)}
	solo := &models.Booking{HotelID: hotel.ID, RoomID: room.ID, GuestName: "Solo", Guests: 1, CheckIn: start.Add(48 * time.Hour), CheckOut: start.Add(72 * time.Hour)}
	require.NoError(t, s.Bookings.Create(ctx, pair))
	require.NoError(t, s.Bookings.Create(ctx, solo))

	largest, err = s.Bookings.MaxActiveGuests(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, 2, largest)

	require.NoError(t, s.Bookings.Update(ctx, pair, map[string]any{"status": "no_show"}))
	largest, err = s.Bookings.MaxActiveGuests(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, 1, largest)
}

func TestBookingStatusActive(t *testing.T) {
	for _, status := range []string{"pending", "confirmed", "checked_in"} {
		require.True(t, BookingStatusActive(status), status)
	}
	for _, status := range []string{"cancelled", "canceled", "checked_out", "no_show"} {
		require.False(t, BookingStatusActive(status), status)
	}
}

func TestHotelListRestrictAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []uint
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		ids = append(ids, mustHotel(t, s, name).ID)
	}

	page, err := s.Hotels.List(ctx, HotelFilter{}, PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)

	page, err = s.Hotels.List(ctx, HotelFilter{Restrict: true, IDs: ids[1:2]}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Bravo", page.Items[0].Name)

	page, err = s.Hotels.List(ctx, HotelFilter{Restrict: true}, PageRequest{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	page, err = s.Hotels.List(ctx, HotelFilter{Search: "char"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.Hotels.Create(ctx, &models.Hotel{Name: "Ghost"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	page, err := s.Hotels.List(ctx, HotelFilter{Search: "ghost"}, PageRequest{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestPageRequestNormalize(t *testing.T) {
	require.Equal(t, PageRequest{Page: 1, PageSize: DefaultPageSize}, PageRequest{}.Normalize())
	require.Equal(t, PageRequest{Page: 3, PageSize: MaxPageSize}, PageRequest{Page: 3, PageSize: 1000}.Normalize())
}

func roleIDs(roles []models.Role) []uint {
	out := make([]uint, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.ID)
	}
	return out
}
