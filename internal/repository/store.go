package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Store groups the typed repositories sharing one connection or transaction.
// It is built once at start-up and handed to the services that need it.
type Store struct {
	db *gorm.DB

	Hotels      *HotelRepository
	Rooms       *RoomRepository
	Bookings    *BookingRepository
	Users       *UserRepository
	Roles       *RoleRepository
	Permissions *PermissionRepository
	Grants      *GrantRepository
}

func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("repository: db is required")
	}
	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Hotels:      &HotelRepository{db: db},
		Rooms:       &RoomRepository{db: db},
		Bookings:    &BookingRepository{db: db},
		Users:       &UserRepository{db: db},
		Roles:       &RoleRepository{db: db},
		Permissions: &PermissionRepository{db: db},
		Grants:      &GrantRepository{db: db},
	}
}

// DB exposes the handle for packages that persist their own tables (audit, cache).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx))
	})
}
