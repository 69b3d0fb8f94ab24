package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/internal/auditctx"
	"github.com/charlesng35/innkeep/internal/events"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/logger"
)

type CreateBookingInput struct {
	HotelID         uint      `json:"hotel_id" validate:"required"`
	RoomID          uint      `json:"room_id" validate:"required"`
	GuestName       string    `json:"guest_name" validate:"required,notblank,max=255"`
	GuestEmail      string    `json:"guest_email" validate:"omitempty,email"`
	GuestPhone      string    `json:"guest_phone" validate:"max=64"`
	CheckIn         time.Time `json:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" validate:"required"`
	Guests          int       `json:"guests" validate:"gte=0"`
	TotalAmount     *float64  `json:"total_amount" validate:"omitempty,gte=0"`
	Status          string    `json:"status" validate:"max=32"`
	SpecialRequests string    `json:"special_requests"`
}

// UpdateBookingInput is a partial update. Changing the stay re-runs the
// capacity and overlap checks and recomputes the total unless one is given.
type UpdateBookingInput struct {
	GuestName       *string    `json:"guest_name" validate:"omitempty,notblank,max=255"`
	GuestEmail      *string    `json:"guest_email" validate:"omitempty,email"`
	GuestPhone      *string    `json:"guest_phone" validate:"omitempty,max=64"`
	CheckIn         *time.Time `json:"check_in"`
	CheckOut        *time.Time `json:"check_out"`
	Guests          *int       `json:"guests" validate:"omitempty,gte=1"`
	TotalAmount     *float64   `json:"total_amount" validate:"omitempty,gte=0"`
	Status          *string    `json:"status" validate:"omitempty,notblank,max=32"`
	SpecialRequests *string    `json:"special_requests"`
}

type BookingListOptions struct {
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// BookingService manages reservations. Bookings are authorized in their
// hotel's context and every committed change is published as an event.
type BookingService struct {
	store     *repository.Store
	authz     Authorizer
	audit     *AuditService
	publisher events.Publisher
	log       *zap.Logger
}

// NewBookingService wires the service. A nil publisher discards events.
func NewBookingService(store *repository.Store, authz Authorizer, audit *AuditService, publisher events.Publisher) (*BookingService, error) {
	if store == nil {
		return nil, errors.New("booking service: store is required")
	}
	if authz == nil {
		return nil, errors.New("booking service: authorizer is required")
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &BookingService{
		store:     store,
		authz:     authz,
		audit:     audit,
		publisher: publisher,
		log:       logger.WithModule("bookings"),
	}, nil
}

func (s *BookingService) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	ctx = ensureContext(ctx)
	input.GuestName = strings.TrimSpace(input.GuestName)
	if err := validate(input); err != nil {
		return nil, err
	}
	if !input.CheckOut.After(input.CheckIn) {
		return nil, invalid("check_out must be after check_in")
	}
	if _, err := authorize(ctx, s.authz, &input.HotelID, permissions.ActionCreate, permissions.ResourceBooking); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		HotelID:         input.HotelID,
		RoomID:          input.RoomID,
		GuestName:       input.GuestName,
		GuestEmail:      strings.ToLower(strings.TrimSpace(input.GuestEmail)),
		GuestPhone:      strings.TrimSpace(input.GuestPhone),
		CheckIn:         input.CheckIn.UTC(),
		CheckOut:        input.CheckOut.UTC(),
		Guests:          input.Guests,
		Status:          strings.TrimSpace(input.Status),
		SpecialRequests: input.SpecialRequests,
	}
	if booking.Guests == 0 {
		booking.Guests = 1
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		room, err := tx.Rooms.FindByID(ctx, input.RoomID)
		if err != nil {
			return mapRepoErr(err, ErrRoomNotFound, nil)
		}
		if room.HotelID == nil || *room.HotelID != input.HotelID {
			return fail(ErrRoomHotelMismatch)
		}
		if !room.IsAvailable {
			return fail(ErrRoomUnavailable)
		}
		if err := checkStay(ctx, tx, room, booking, 0); err != nil {
			return err
		}
		if input.TotalAmount != nil {
			booking.TotalAmount = *input.TotalAmount
		} else {
			booking.TotalAmount = stayTotal(booking, room)
		}
		return mapRepoErr(tx.Bookings.Create(ctx, booking), nil, nil)
	})
	if err != nil {
		return nil, wrapErr("booking service: create", err)
	}

	s.afterCommit(ctx, events.BookingCreated, "booking.create", *booking)
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	ctx = ensureContext(ctx)
	return s.load(ctx, id, permissions.ActionRead)
}

// GetByReference looks a booking up by its public reference code.
func (s *BookingService) GetByReference(ctx context.Context, ref string) (*models.Booking, error) {
	ctx = ensureContext(ctx)
	booking, err := s.store.Bookings.FindByReference(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, mapRepoErr(err, ErrBookingNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, &booking.HotelID, permissions.ActionRead, permissions.ResourceBooking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) Update(ctx context.Context, id uint, input UpdateBookingInput) (*models.Booking, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id, permissions.ActionUpdate); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		booking, err = tx.Bookings.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrBookingNotFound, nil)
		}

		updates := map[string]any{}
		setTrimmed(updates, "guest_name", input.GuestName)
		setTrimmed(updates, "guest_phone", input.GuestPhone)
		setTrimmed(updates, "status", input.Status)
		if input.GuestEmail != nil {
			updates["guest_email"] = strings.ToLower(strings.TrimSpace(*input.GuestEmail))
		}
		if input.SpecialRequests != nil {
			updates["special_requests"] = *input.SpecialRequests
		}

		stayChanged := input.CheckIn != nil || input.CheckOut != nil || input.Guests != nil
		if stayChanged {
			next := *booking
			if input.CheckIn != nil {
				next.CheckIn = input.CheckIn.UTC()
			}
			if input.CheckOut != nil {
				next.CheckOut = input.CheckOut.UTC()
			}
			if input.Guests != nil {
				next.Guests = *input.Guests
			}
			if !next.CheckOut.After(next.CheckIn) {
				return invalid("check_out must be after check_in")
			}

			room, err := tx.Rooms.FindByID(ctx, booking.RoomID)
			if err != nil {
				return mapRepoErr(err, ErrRoomNotFound, nil)
			}
			if err := checkStay(ctx, tx, room, &next, booking.ID); err != nil {
				return err
			}
			updates["check_in"] = next.CheckIn
			updates["check_out"] = next.CheckOut
			updates["guests"] = next.Guests
			if input.TotalAmount == nil {
				updates["total_amount"] = stayTotal(&next, room)
			}
		} else if input.Status != nil {
			if err := checkReactivation(ctx, tx, booking, strings.TrimSpace(*input.Status)); err != nil {
				return err
			}
		}
		if input.TotalAmount != nil {
			updates["total_amount"] = *input.TotalAmount
		}

		return mapRepoErr(tx.Bookings.Update(ctx, booking, updates), ErrBookingNotFound, nil)
	})
	if err != nil {
		return nil, wrapErr("booking service: update", err)
	}

	s.afterCommit(ctx, events.BookingUpdated, "booking.update", *booking)
	return booking, nil
}

// UpdateStatus sets the free-form status, e.g. confirmed or cancelled.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Booking, error) {
	ctx = ensureContext(ctx)
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, invalid("status is required")
	}
	if len(status) > 32 {
		return nil, invalid("status must be at most 32 characters")
	}
	if _, err := s.load(ctx, id, permissions.ActionUpdate); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		booking, err = tx.Bookings.FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrBookingNotFound, nil)
		}
		if err := checkReactivation(ctx, tx, booking, status); err != nil {
			return err
		}
		return mapRepoErr(tx.Bookings.Update(ctx, booking, map[string]any{"status": status}), ErrBookingNotFound, nil)
	})
	if err != nil {
		return nil, wrapErr("booking service: update status", err)
	}

	s.afterCommit(ctx, events.BookingStatusChanged, "booking.status", *booking)
	return booking, nil
}

func (s *BookingService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	booking, err := s.load(ctx, id, permissions.ActionDelete)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return mapRepoErr(tx.Bookings.Delete(ctx, id), ErrBookingNotFound, nil)
	})
	if err != nil {
		return wrapErr("booking service: delete", err)
	}

	s.afterCommit(ctx, events.BookingDeleted, "booking.delete", *booking)
	return nil
}

// List returns bookings across every hotel the caller may read.
func (s *BookingService) List(ctx context.Context, opts BookingListOptions) (repository.PageResult[models.Booking], error) {
	ctx = ensureContext(ctx)
	_, scope, err := scopeFor(ctx, s.authz, permissions.ActionRead, permissions.ResourceBooking)
	if err != nil {
		return repository.PageResult[models.Booking]{}, err
	}
	filter := s.filter(opts)
	filter.Restrict = !scope.All
	filter.HotelIDs = scope.HotelIDs
	return s.list(ctx, filter, opts)
}

func (s *BookingService) ListByHotel(ctx context.Context, hotelID uint, opts BookingListOptions) (repository.PageResult[models.Booking], error) {
	ctx = ensureContext(ctx)
	if _, err := authorize(ctx, s.authz, &hotelID, permissions.ActionRead, permissions.ResourceBooking); err != nil {
		return repository.PageResult[models.Booking]{}, err
	}
	exists, err := s.store.Hotels.Exists(ctx, hotelID)
	if err != nil {
		return repository.PageResult[models.Booking]{}, fmt.Errorf("booking service: lookup hotel: %w", err)
	}
	if !exists {
		return repository.PageResult[models.Booking]{}, fail(ErrHotelNotFound)
	}

	filter := s.filter(opts)
	filter.Restrict = true
	filter.HotelIDs = []uint{hotelID}
	return s.list(ctx, filter, opts)
}

func (s *BookingService) ListByRoom(ctx context.Context, roomID uint, opts BookingListOptions) (repository.PageResult[models.Booking], error) {
	ctx = ensureContext(ctx)
	room, err := s.store.Rooms.FindByID(ctx, roomID)
	if err != nil {
		return repository.PageResult[models.Booking]{}, mapRepoErr(err, ErrRoomNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, room.HotelID, permissions.ActionRead, permissions.ResourceBooking); err != nil {
		return repository.PageResult[models.Booking]{}, err
	}

	filter := s.filter(opts)
	filter.RoomID = &roomID
	return s.list(ctx, filter, opts)
}

func (s *BookingService) filter(opts BookingListOptions) repository.BookingFilter {
	return repository.BookingFilter{
		Status: strings.TrimSpace(opts.Status),
		From:   opts.From,
		To:     opts.To,
	}
}

func (s *BookingService) list(ctx context.Context, filter repository.BookingFilter, opts BookingListOptions) (repository.PageResult[models.Booking], error) {
	result, err := s.store.Bookings.List(ctx, filter, repository.PageRequest{Page: opts.Page, PageSize: opts.PageSize})
	if err != nil {
		return result, fmt.Errorf("booking service: list: %w", err)
	}
	return result, nil
}

func (s *BookingService) load(ctx context.Context, id uint, action string) (*models.Booking, error) {
	booking, err := s.store.Bookings.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrBookingNotFound, nil)
	}
	if _, err := authorize(ctx, s.authz, &booking.HotelID, action, permissions.ResourceBooking); err != nil {
		return nil, err
	}
	return booking, nil
}

// afterCommit audits the change and publishes the event. Delivery failures
// are logged by the publisher and do not fail the request.
func (s *BookingService) afterCommit(ctx context.Context, eventType, auditAction string, booking models.Booking) {
	recordAudit(ctx, s.audit, &booking.HotelID, auditAction, permissions.ResourceBooking, map[string]any{
		"booking_id":     booking.ID,
		"reference_code": booking.ReferenceCode,
	})

	var actorID uint
	if actor, ok := auditctx.FromContext(ctx); ok {
		actorID = actor.UserID
	}
	if err := s.publisher.Publish(ctx, events.NewBookingEvent(eventType, booking, actorID)); err != nil {
		s.log.Debug("booking event not fully delivered", zap.String("type", eventType), zap.Error(err))
	}
}

// checkStay enforces capacity and the no-overlap rule for the room.
func checkStay(ctx context.Context, tx *repository.Store, room *models.Room, booking *models.Booking, excludeID uint) error {
	if booking.Guests > room.Capacity {
		return invalid(fmt.Sprintf("Room holds at most %d guests", room.Capacity))
	}
	overlap, err := tx.Bookings.HasOverlap(ctx, room.ID, booking.CheckIn, booking.CheckOut, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return fail(ErrBookingOverlap)
	}
	return nil
}

// checkReactivation validates a move from an inactive status back to one that
// holds the room again.
func checkReactivation(ctx context.Context, tx *repository.Store, booking *models.Booking, status string) error {
	if repository.BookingStatusActive(booking.Status) || !repository.BookingStatusActive(status) {
		return nil
	}
	room, err := tx.Rooms.FindByID(ctx, booking.RoomID)
	if err != nil {
		return mapRepoErr(err, ErrRoomNotFound, nil)
	}
	return checkStay(ctx, tx, room, booking, booking.ID)
}

// stayTotal is nights times the nightly price, rounded to cents.
func stayTotal(booking *models.Booking, room *models.Room) float64 {
	return math.Round(float64(booking.Nights())*room.Price*100) / 100
}
