package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

type RoomRepository struct {
	db *gorm.DB
}

// RoomFilter narrows List. HotelID wins over Orphaned; HotelIDs with Restrict
// limits the result to those hotels.
type RoomFilter struct {
	HotelID   *uint
	Orphaned  bool
	HotelIDs  []uint
	Restrict  bool
	Available *bool
	Type      string
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return translate(r.db.WithContext(ctx).Create(room).Error)
}

func (r *RoomRepository) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *RoomRepository) List(ctx context.Context, filter RoomFilter, page PageRequest) (PageResult[models.Room], error) {
	page = page.Normalize()
	if filter.Restrict && filter.HotelID == nil && !filter.Orphaned && len(filter.HotelIDs) == 0 {
		return newPageResult([]models.Room{}, page, 0), nil
	}

	query := r.db.WithContext(ctx).Model(&models.Room{})
	switch {
	case filter.HotelID != nil:
		query = query.Where("hotel_id = ?", *filter.HotelID)
	case filter.Orphaned:
		query = query.Where("hotel_id IS NULL")
	case filter.Restrict:
		query = query.Where("hotel_id IN ?", filter.HotelIDs)
	}
	if filter.Available != nil {
		query = query.Where("is_available = ?", *filter.Available)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return PageResult[models.Room]{}, err
	}
	var rooms []models.Room
	if err := query.Order("room_number ASC, id ASC").Offset(page.offset()).Limit(page.PageSize).Find(&rooms).Error; err != nil {
		return PageResult[models.Room]{}, err
	}
	return newPageResult(rooms, page, total), nil
}

func (r *RoomRepository) Update(ctx context.Context, room *models.Room, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(room).Updates(updates).Error; err != nil {
		return translate(err)
	}
	return translate(db.First(room, room.ID).Error)
}

// Delete removes the room together with its bookings.
func (r *RoomRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("room_id = ?", id).Delete(&models.Booking{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Room{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RoomRepository) ListBookings(ctx context.Context, roomID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("check_in ASC, id ASC").Find(&bookings).Error
	return bookings, err
}
