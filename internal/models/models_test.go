package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBookingBeforeCreateFillsDefaults(t *testing.T) {
	b := &Booking{}
	require.NoError(t, b.BeforeCreate(nil))

	require.Len(t, b.ReferenceCode, 36)
	require.Equal(t, BookingStatusPending, b.Status)
	require.Equal(t, 1, b.Guests)
}

func TestBookingBeforeCreateKeepsExplicitValues(t *testing.T) {
	b := &Booking{ReferenceCode: "ABC", Status: "confirmed", Guests: 3}
	require.NoError(t, b.BeforeCreate(nil))

	require.Equal(t, "ABC", b.ReferenceCode)
	require.Equal(t, "confirmed", b.Status)
	require.Equal(t, 3, b.Guests)
}

func TestBookingNights(t *testing.T) {
	checkIn := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		checkOut time.Time
		want     int
	}{
		{"two nights", checkIn.Add(48 * time.Hour), 2},
		{"late checkout rounds up", checkIn.Add(49 * time.Hour), 3},
		{"same instant", checkIn, 0},
		{"reversed", checkIn.Add(-time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Booking{CheckIn: checkIn, CheckOut: tc.checkOut}
			require.Equal(t, tc.want, b.Nights())
		})
	}
}

func TestRoleScope(t *testing.T) {
	hotelID := uint(5)

	global := Role{Name: RoleSuperadmin}
	scoped := Role{Name: RoleSuperadmin, HotelID: &hotelID}

	require.True(t, global.IsGlobal())
	require.True(t, global.IsSuperadmin())
	require.False(t, scoped.IsGlobal())
	require.False(t, scoped.IsSuperadmin(), "a hotel role named superadmin is not the override")
}

func TestPermissionMatches(t *testing.T) {
	p := Permission{Action: "create", Resource: "booking"}

	require.True(t, p.Matches("create", "booking"))
	require.False(t, p.Matches("delete", "booking"))
	require.False(t, p.Matches("create", "room"))
}

func TestAuditLogBeforeCreateGeneratesID(t *testing.T) {
	var entry AuditLog
	require.NoError(t, entry.BeforeCreate(nil))
	require.NotEmpty(t, entry.ID)
}

func TestRoomOrphaned(t *testing.T) {
	id := uint(1)
	require.True(t, (&Room{}).Orphaned())
	require.False(t, (&Room{HotelID: &id}).Orphaned())
}
