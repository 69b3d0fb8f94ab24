package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
)

type CreateRoomInput struct {
	RoomNumber  string   `json:"room_number" validate:"required,notblank,max=32"`
	Type        string   `json:"type" validate:"required,notblank,max=64"`
	Price       float64  `json:"price" validate:"gte=0"`
	Capacity    int      `json:"capacity" validate:"gte=0"`
	IsAvailable *bool    `json:"is_available"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities" validate:"omitempty,dive,notblank"`
}

// UpdateRoomInput is a partial update. Setting HotelID attaches the room to
// another hotel, which is only allowed while the room has no bookings.
type UpdateRoomInput struct {
	HotelID     *uint     `json:"hotel_id"`
	RoomNumber  *string   `json:"room_number" validate:"omitempty,notblank,max=32"`
	Type        *string   `json:"type" validate:"omitempty,notblank,max=64"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Capacity    *int      `json:"capacity" validate:"omitempty,gte=0"`
	IsAvailable *bool     `json:"is_available"`
	Description *string   `json:"description"`
	Amenities   *[]string `json:"amenities"`
}

type RoomListOptions struct {
	HotelID   *uint
	Orphaned  bool
	Available *bool
	Type      string
	Page      int
	PageSize  int
}

// RoomService manages rooms. A room is authorized in its hotel's context;
// orphaned rooms fall back to the global context.
type RoomService struct {
	store *repository.Store
	authz Authorizer
	audit *AuditService
}

func NewRoomService(store *repository.Store, authz Authorizer, audit *AuditService) (*RoomService, error) {
	if store == nil {
		return nil, errors.New("room service: store is required")
	}
	if authz == nil {
		return nil, errors.New("room service: authorizer is required")
	}
	return &RoomService{store: store, authz: authz, audit: audit}, nil
}

func (s *RoomService) Create(ctx context.Context, hotelID uint, input CreateRoomInput) (*models.Room, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.authz, &hotelID, permissions.ActionCreate, permissions.ResourceRoom); err != nil {
		return nil, err
	}

	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}
	room := &models.Room{
		HotelID:     &hotelID,
		RoomNumber:  strings.TrimSpace(input.RoomNumber),
		Type:        strings.TrimSpace(input.Type),
		Price:       input.Price,
		Capacity:    input.Capacity,
		IsAvailable: available,
		Description: input.Description,
		Amenities:   datatypes.NewJSONSlice(normaliseStrings(input.Amenities)),
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		exists, err := tx.Hotels.Exists(ctx, hotelID)
		if err != nil {
			return err
		}
		if !exists {
			return fail(ErrHotelNotFound)
		}
		return mapRepoErr(tx.Rooms.Create(ctx, room), nil, nil)
	})
	if err != nil {
		return nil, wrapErr("room service: create", err)
	}

	recordAudit(ctx, s.audit, &hotelID, "room.create", permissions.ResourceRoom, map[string]any{
		"room_id":     room.ID,
		"room_number": room.RoomNumber,
	})
	return room, nil
}

func (s *RoomService) Get(ctx context.Context, id uint) (*models.Room, error) {
	ctx = ensureContext(ctx)
	room, err := s.load(ctx, id, permissions.ActionRead)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// List returns rooms of one hotel, orphaned rooms, or every room the caller
// may read.
func (s *RoomService) List(ctx context.Context, opts RoomListOptions) (repository.PageResult[models.Room], error) {
	ctx = ensureContext(ctx)
	filter := repository.RoomFilter{
		HotelID:   opts.HotelID,
		Orphaned:  opts.Orphaned,
		Available: opts.Available,
		Type:      strings.TrimSpace(opts.Type),
	}

	switch {
	case opts.HotelID != nil:
		if _, err := authorize(ctx, s.authz, opts.HotelID, permissions.ActionRead, permissions.ResourceRoom); err != nil {
			return repository.PageResult[models.Room]{}, err
		}
	case opts.Orphaned:
		if _, err := authorize(ctx, s.authz, nil, permissions.ActionRead, permissions.ResourceRoom); err != nil {
			return repository.PageResult[models.Room]{}, err
		}
	default:
		_, scope, err := scopeFor(ctx, s.authz, permissions.ActionRead, permissions.ResourceRoom)
		if err != nil {
			return repository.PageResult[models.Room]{}, err
		}
		filter.Restrict = !scope.All
		filter.HotelIDs = scope.HotelIDs
	}

	result, err := s.store.Rooms.List(ctx, filter, repository.PageRequest{Page: opts.Page, PageSize: opts.PageSize})
	if err != nil {
		return result, fmt.Errorf("room service: list: %w", err)
	}
	return result, nil
}

func (s *RoomService) Update(ctx context.Context, id uint, input UpdateRoomInput) (*models.Room, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id, permissions.ActionUpdate)
	if err != nil {
		return nil, err
	}

	moving := input.HotelID != nil && (current.HotelID == nil || *current.HotelID != *input.HotelID)
	if moving {
		if _, err := authorize(ctx, s.authz, input.HotelID, permissions.ActionCreate, permissions.ResourceRoom); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{}
	setTrimmed(updates, "room_number", input.RoomNumber)
	setTrimmed(updates, "type", input.Type)
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.Capacity != nil {
		updates["capacity"] = *input.Capacity
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Amenities != nil {
		updates["amenities"] = datatypes.NewJSONSlice(normaliseStrings(*input.Amenities))
	}
	if moving {
		updates["hotel_id"] = *input.HotelID
	}

	var room *models.Room
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		room, err = tx.Rooms.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrRoomNotFound, nil)
		}
		if moving {
			exists, err := tx.Hotels.Exists(ctx, *input.HotelID)
			if err != nil {
				return err
			}
			if !exists {
				return fail(ErrHotelNotFound)
			}
			bookings, err := tx.Rooms.ListBookings(ctx, id)
			if err != nil {
				return err
			}
			if len(bookings) > 0 {
				return invalid("Rooms with bookings cannot move to another hotel")
			}
		}
		if input.Capacity != nil {
			largest, err := tx.Bookings.MaxActiveGuests(ctx, id)
			if err != nil {
				return err
			}
			if *input.Capacity < largest {
				return invalid(fmt.Sprintf("Room has an active booking for %d guests", largest))
			}
		}
		return mapRepoErr(tx.Rooms.Update(ctx, room, updates), ErrRoomNotFound, nil)
	})
	if err != nil {
		return nil, wrapErr("room service: update", err)
	}

	recordAudit(ctx, s.audit, room.HotelID, "room.update", permissions.ResourceRoom, map[string]any{
		"room_id": room.ID,
		"fields":  updateKeys(updates),
	})
	return room, nil
}

// Delete removes the room and its bookings.
func (s *RoomService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	room, err := s.load(ctx, id, permissions.ActionDelete)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Rooms.Delete(ctx, id), ErrRoomNotFound, nil)
	})
	if err != nil {
		return wrapErr("room service: delete", err)
	}

	recordAudit(ctx, s.audit, room.HotelID, "room.delete", permissions.ResourceRoom, map[string]any{"room_id": id})
	return nil
}

// ListBookings returns the bookings of one room.
func (s *RoomService) ListBookings(ctx context.Context, roomID uint) ([]models.Booking, error) {
	ctx = ensureContext(ctx)
	room, err := s.store.Rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, mapRepoErr(err, ErrRoomNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, room.HotelID, permissions.ActionRead, permissions.ResourceBooking); err != nil {
		return nil, err
	}
	bookings, err := s.store.Rooms.ListBookings(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room service: list bookings: %w", err)
	}
	return bookings, nil
}

// load fetches the room and authorizes action on it in the room's context.
func (s *RoomService) load(ctx context.Context, id uint, action string) (*models.Room, error) {
	room, err := s.store.Rooms.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrRoomNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, room.HotelID, action, permissions.ResourceRoom); err != nil {
		return nil, err
	}
	return room, nil
}
