package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

type HotelRepository struct {
	db *gorm.DB
}

// HotelFilter narrows List. When Restrict is set only IDs are returned, so an
// empty IDs slice yields no rows.
type HotelFilter struct {
	IDs      []uint
	Restrict bool
	City     string
	Search   string
}

func (r *HotelRepository) Create(ctx context.Context, hotel *models.Hotel) error {
	return translate(r.db.WithContext(ctx).Create(hotel).Error)
}

func (r *HotelRepository) FindByID(ctx context.Context, id uint) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := r.db.WithContext(ctx).First(&hotel, id).Error; err != nil {
		return nil, translate(err)
	}
	return &hotel, nil
}

func (r *HotelRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Hotel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, translate(err)
}

func (r *HotelRepository) List(ctx context.Context, filter HotelFilter, page PageRequest) (PageResult[models.Hotel], error) {
	page = page.Normalize()
	if filter.Restrict && len(filter.IDs) == 0 {
		return newPageResult([]models.Hotel{}, page, 0), nil
	}

	query := r.db.WithContext(ctx).Model(&models.Hotel{})
	if filter.Restrict {
		query = query.Where("id IN ?", filter.IDs)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return PageResult[models.Hotel]{}, err
	}

	var hotels []models.Hotel
	if err := query.Order("name ASC, id ASC").Offset(page.offset()).Limit(page.PageSize).Find(&hotels).Error; err != nil {
		return PageResult[models.Hotel]{}, err
	}
	return newPageResult(hotels, page, total), nil
}

// Update writes only the supplied columns and reloads the row.
func (r *HotelRepository) Update(ctx context.Context, hotel *models.Hotel, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(hotel).Updates(updates).Error; err != nil {
		return translate(err)
	}
	return translate(db.First(hotel, hotel.ID).Error)
}

// Delete removes the hotel. Rooms are orphaned, while bookings, hotel-scoped
// roles and their bindings are removed. The writes mirror the foreign key
// actions so the outcome does not depend on the driver enforcing them; callers
// run it inside a transaction.
func (r *HotelRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Room{}).Where("hotel_id = ?", id).Update("hotel_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("hotel_id = ?", id).Delete(&models.Booking{}).Error; err != nil {
		return err
	}
	if err := db.Where("hotel_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}

	scopedRoles := db.Model(&models.Role{}).Select("id").Where("hotel_id = ?", id)
	if err := db.Where("role_id IN (?)", scopedRoles).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	if err := db.Where("role_id IN (?)", scopedRoles).Delete(&models.RolePermission{}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Where("global_role_id IN (?)", scopedRoles).Update("global_role_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("hotel_id = ?", id).Delete(&models.Role{}).Error; err != nil {
		return err
	}

	res := db.Delete(&models.Hotel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRooms returns the rooms currently attached to the hotel.
func (r *HotelRepository) ListRooms(ctx context.Context, hotelID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).Where("hotel_id = ?", hotelID).Order("room_number ASC").Find(&rooms).Error
	return rooms, err
}

func (r *HotelRepository) ListBookings(ctx context.Context, hotelID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).Where("hotel_id = ?", hotelID).Order("check_in ASC, id ASC").Find(&bookings).Error
	return bookings, err
}

// ListRoles returns the roles scoped to the hotel.
func (r *HotelRepository) ListRoles(ctx context.Context, hotelID uint) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).Where("hotel_id = ?", hotelID).Order("name ASC").Find(&roles).Error
	return roles, err
}
