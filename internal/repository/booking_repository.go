package repository

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

type BookingRepository struct {
	db *gorm.DB
}

// BookingFilter narrows List. HotelIDs with Restrict behaves like HotelFilter.
type BookingFilter struct {
	HotelIDs []uint
	Restrict bool
	RoomID   *uint
	Status   string
	From     *time.Time
	To       *time.Time
}

// Statuses that no longer hold a room.
var inactiveBookingStatuses = []string{"cancelled", "canceled", "checked_out", "no_show"}

// BookingStatusActive reports whether a booking in status still holds its
// room. It matches the filter HasOverlap applies in SQL.
func BookingStatusActive(status string) bool {
	return !slices.Contains(inactiveBookingStatuses, status)
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return translate(r.db.WithContext(ctx).Create(booking).Error)
}

func (r *BookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *BookingRepository) FindByReference(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("reference_code = ?", ref).First(&booking).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *BookingRepository) List(ctx context.Context, filter BookingFilter, page PageRequest) (PageResult[models.Booking], error) {
	page = page.Normalize()
	if filter.Restrict && len(filter.HotelIDs) == 0 {
		return newPageResult([]models.Booking{}, page, 0), nil
	}

	query := r.db.WithContext(ctx).Model(&models.Booking{})
	if filter.Restrict {
		query = query.Where("hotel_id IN ?", filter.HotelIDs)
	}
	if filter.RoomID != nil {
		query = query.Where("room_id = ?", *filter.RoomID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("check_out > ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("check_in < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return PageResult[models.Booking]{}, err
	}
	var bookings []models.Booking
	if err := query.Order("check_in ASC, id ASC").Offset(page.offset()).Limit(page.PageSize).Find(&bookings).Error; err != nil {
		return PageResult[models.Booking]{}, err
	}
	return newPageResult(bookings, page, total), nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(booking).Updates(updates).Error; err != nil {
		return translate(err)
	}
	return translate(db.First(booking, booking.ID).Error)
}

func (r *BookingRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Booking{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasOverlap reports whether an active booking for the room intersects
// [checkIn, checkOut). excludeID skips the booking being edited.
func (r *BookingRepository) HasOverlap(ctx context.Context, roomID uint, checkIn, checkOut time.Time, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("room_id = ?", roomID).
		Where("status NOT IN ?", inactiveBookingStatuses).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MaxActiveGuests returns the largest party among the room's active bookings,
// zero when there are none.
func (r *BookingRepository) MaxActiveGuests(ctx context.Context, roomID uint) (int, error) {
	var largest int
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("room_id = ?", roomID).
		Where("status NOT IN ?", inactiveBookingStatuses).
		Select("COALESCE(MAX(guests), 0)").
		Scan(&largest).Error
	return largest, err
}
