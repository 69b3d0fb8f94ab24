package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

type RoleRepository struct {
	db *gorm.DB
}

// RoleFilter selects global roles, roles of one hotel, or everything.
type RoleFilter struct {
	HotelID    *uint
	GlobalOnly bool
}

func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	return translate(r.db.WithContext(ctx).Create(role).Error)
}

func (r *RoleRepository) FindByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// FindByName looks a role up by its (name, hotel) key. A nil hotelID matches
// global roles only.
func (r *RoleRepository) FindByName(ctx context.Context, name string, hotelID *uint) (*models.Role, error) {
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if hotelID == nil {
		query = query.Where("hotel_id IS NULL")
	} else {
		query = query.Where("hotel_id = ?", *hotelID)
	}
	var role models.Role
	if err := query.First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *RoleRepository) List(ctx context.Context, filter RoleFilter) ([]models.Role, error) {
	query := r.db.WithContext(ctx).Model(&models.Role{})
	switch {
	case filter.HotelID != nil:
		query = query.Where("hotel_id = ?", *filter.HotelID)
	case filter.GlobalOnly:
		query = query.Where("hotel_id IS NULL")
	}
	var roles []models.Role
	err := query.Order("hotel_id ASC, name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) Update(ctx context.Context, role *models.Role, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(role).Updates(updates).Error; err != nil {
		return translate(err)
	}
	return translate(db.First(role, role.ID).Error)
}

// Delete removes the role with its permission edges and user bindings, and
// clears it from users holding it as their global role.
func (r *RoleRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
		return err
	}
	if err := db.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Where("global_role_id = ?", id).Update("global_role_id", nil).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Role{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPermissions returns the permissions granted to the role.
func (r *RoleRepository) ListPermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	return r.PermissionsForRoles(ctx, []uint{roleID})
}

// PermissionsForRoles returns the union of permissions held by roleIDs.
func (r *RoleRepository) PermissionsForRoles(ctx context.Context, roleIDs []uint) ([]models.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	db := r.db.WithContext(ctx)
	granted := db.Model(&models.RolePermission{}).Select("permission_id").Where("role_id IN ?", roleIDs)

	var perms []models.Permission
	err := db.Where("id IN (?)", granted).
		Order("resource ASC, action ASC").
		Find(&perms).Error
	return perms, err
}
