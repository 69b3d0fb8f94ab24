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

type CreateHotelInput struct {
	Name        string   `json:"name" validate:"required,notblank,max=255"`
	AdminID     *uint    `json:"admin_id"`
	Address     string   `json:"address" validate:"max=512"`
	City        string   `json:"city" validate:"max=128"`
	State       string   `json:"state" validate:"max=128"`
	Country     string   `json:"country" validate:"max=128"`
	ZipCode     string   `json:"zip_code" validate:"max=32"`
	Phone       string   `json:"phone" validate:"max=64"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Description string   `json:"description"`
	StarRating  int      `json:"star_rating" validate:"min=0,max=5"`
	Amenities   []string `json:"amenities" validate:"omitempty,dive,notblank"`
}

// UpdateHotelInput is a partial update; nil fields are left untouched.
type UpdateHotelInput struct {
	Name        *string   `json:"name" validate:"omitempty,notblank,max=255"`
	AdminID     *uint     `json:"admin_id"`
	Address     *string   `json:"address" validate:"omitempty,max=512"`
	City        *string   `json:"city" validate:"omitempty,max=128"`
	State       *string   `json:"state" validate:"omitempty,max=128"`
	Country     *string   `json:"country" validate:"omitempty,max=128"`
	ZipCode     *string   `json:"zip_code" validate:"omitempty,max=32"`
	Phone       *string   `json:"phone" validate:"omitempty,max=64"`
	Email       *string   `json:"email" validate:"omitempty,email"`
	Description *string   `json:"description"`
	StarRating  *int      `json:"star_rating" validate:"omitempty,min=0,max=5"`
	Amenities   *[]string `json:"amenities"`
}

type HotelListOptions struct {
	City     string
	Search   string
	Page     int
	PageSize int
}

// HotelService manages hotels. Each hotel is its own authorization context.
type HotelService struct {
	store *repository.Store
	authz Authorizer
	audit *AuditService
}

func NewHotelService(store *repository.Store, authz Authorizer, audit *AuditService) (*HotelService, error) {
	if store == nil {
		return nil, errors.New("hotel service: store is required")
	}
	if authz == nil {
		return nil, errors.New("hotel service: authorizer is required")
	}
	return &HotelService{store: store, authz: authz, audit: audit}, nil
}

// Create requires create hotel in the global context. The admin defaults to
// the caller.
func (s *HotelService) Create(ctx context.Context, input CreateHotelInput) (*models.Hotel, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	actor, err := authorize(ctx, s.authz, nil, permissions.ActionCreate, permissions.ResourceHotel)
	if err != nil {
		return nil, err
	}

	adminID := input.AdminID
	if adminID == nil {
		id := actor.UserID
		adminID = &id
	}

	hotel := &models.Hotel{
		AdminID:     adminID,
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		City:        strings.TrimSpace(input.City),
		State:       strings.TrimSpace(input.State),
		Country:     strings.TrimSpace(input.Country),
		ZipCode:     strings.TrimSpace(input.ZipCode),
		Phone:       strings.TrimSpace(input.Phone),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Description: input.Description,
		StarRating:  input.StarRating,
		Amenities:   datatypes.NewJSONSlice(normaliseStrings(input.Amenities)),
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, *adminID); err != nil {
			return mapRepoErr(err, ErrUserNotFound, nil)
		}
		return mapRepoErr(tx.Hotels.Create(ctx, hotel), nil, nil)
	})
	if err != nil {
		return nil, wrapErr("hotel service: create", err)
	}

	recordAudit(ctx, s.audit, &hotel.ID, "hotel.create", permissions.ResourceHotel, map[string]any{"name": hotel.Name})
	return hotel, nil
}

func (s *HotelService) Get(ctx context.Context, id uint) (*models.Hotel, error) {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, &id, permissions.ActionRead, permissions.ResourceHotel); err != nil {
		return nil, err
	}
	hotel, err := s.store.Hotels.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrHotelNotFound, nil)
	}
	return hotel, nil
}

// List returns the hotels the caller may read.
func (s *HotelService) List(ctx context.Context, opts HotelListOptions) (repository.PageResult[models.Hotel], error) {
	ctx = ensureContext(ctx)
	_, scope, err := scopeFor(ctx, s.authz, permissions.ActionRead, permissions.ResourceHotel)
	if err != nil {
		return repository.PageResult[models.Hotel]{}, err
	}

	filter := repository.HotelFilter{
		IDs:      scope.HotelIDs,
		Restrict: !scope.All,
		City:     opts.City,
		Search:   opts.Search,
	}
	result, err := s.store.Hotels.List(ctx, filter, repository.PageRequest{Page: opts.Page, PageSize: opts.PageSize})
	if err != nil {
		return result, fmt.Errorf("hotel service: list: %w", err)
	}
	return result, nil
}

func (s *HotelService) Update(ctx context.Context, id uint, input UpdateHotelInput) (*models.Hotel, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.authz, &id, permissions.ActionUpdate, permissions.ResourceHotel); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setTrimmed(updates, "name", input.Name)
	setTrimmed(updates, "address", input.Address)
	setTrimmed(updates, "city", input.City)
	setTrimmed(updates, "state", input.State)
	setTrimmed(updates, "country", input.Country)
	setTrimmed(updates, "zip_code", input.ZipCode)
	setTrimmed(updates, "phone", input.Phone)
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.StarRating != nil {
		updates["star_rating"] = *input.StarRating
	}
	if input.Amenities != nil {
		updates["amenities"] = datatypes.NewJSONSlice(normaliseStrings(*input.Amenities))
	}
	if input.AdminID != nil {
		updates["admin_id"] = *input.AdminID
	}

	var hotel *models.Hotel
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		hotel, err = tx.Hotels.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrHotelNotFound, nil)
		}
		if input.AdminID != nil {
			if _, err := tx.Users.FindByID(ctx, *input.AdminID); err != nil {
				return mapRepoErr(err, ErrUserNotFound, nil)
			}
		}
		return mapRepoErr(tx.Hotels.Update(ctx, hotel, updates), ErrHotelNotFound, nil)
	})
	if err != nil {
		return nil, wrapErr("hotel service: update", err)
	}

	recordAudit(ctx, s.audit, &hotel.ID, "hotel.update", permissions.ResourceHotel, map[string]any{"fields": updateKeys(updates)})
	return hotel, nil
}

// Delete removes the hotel. Its rooms are kept with no hotel, while its
// bookings and scoped roles go with it.
func (s *HotelService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, &id, permissions.ActionDelete, permissions.ResourceHotel); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Hotels.Delete(ctx, id), ErrHotelNotFound, nil)
	})
	if err != nil {
		return wrapErr("hotel service: delete", err)
	}

	recordAudit(ctx, s.audit, &id, "hotel.delete", permissions.ResourceHotel, nil)
	return nil
}

// ListRooms returns the rooms attached to the hotel.
func (s *HotelService) ListRooms(ctx context.Context, hotelID uint) ([]models.Room, error) {
	ctx = ensureContext(ctx)
	if err := s.requireHotel(ctx, hotelID, permissions.ActionRead, permissions.ResourceRoom); err != nil {
		return nil, err
	}
	rooms, err := s.store.Hotels.ListRooms(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("hotel service: list rooms: %w", err)
	}
	return rooms, nil
}

func (s *HotelService) ListBookings(ctx context.Context, hotelID uint) ([]models.Booking, error) {
	ctx = ensureContext(ctx)
	if err := s.requireHotel(ctx, hotelID, permissions.ActionRead, permissions.ResourceBooking); err != nil {
		return nil, err
	}
	bookings, err := s.store.Hotels.ListBookings(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("hotel service: list bookings: %w", err)
	}
	return bookings, nil
}

func (s *HotelService) ListRoles(ctx context.Context, hotelID uint) ([]models.Role, error) {
	ctx = ensureContext(ctx)
	if err := s.requireHotel(ctx, hotelID, permissions.ActionRead, permissions.ResourceRole); err != nil {
		return nil, err
	}
	roles, err := s.store.Hotels.ListRoles(ctx, hotelID)
	if err != nil {
		return nil, fmt.Errorf("hotel service: list roles: %w", err)
	}
	return roles, nil
}

func (s *HotelService) requireHotel(ctx context.Context, hotelID uint, action, resource string) error {
	if _, err := authorize(ctx, s.authz, &hotelID, action, resource); err != nil {
		return err
	}
	exists, err := s.store.Hotels.Exists(ctx, hotelID)
	if err != nil {
		return fmt.Errorf("hotel service: lookup hotel: %w", err)
	}
	if !exists {
		return fail(ErrHotelNotFound)
	}
	return nil
}
