package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/innkeep/internal/models"
)

// GrantRepository owns the two join tables. Rows are only ever inserted or
// deleted; the composite keys are never updated.
type GrantRepository struct {
	db *gorm.DB
}

// Grant adds the role→permission edge. It reports false when the edge existed.
func (r *GrantRepository) Grant(ctx context.Context, roleID, permissionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RolePermission{RoleID: roleID, PermissionID: permissionID})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Revoke removes the edge, reporting whether one was present.
func (r *GrantRepository) Revoke(ctx context.Context, roleID, permissionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&models.RolePermission{})
	return res.RowsAffected > 0, res.Error
}

// Bind adds the (user, role, hotel) binding, reporting false when it existed.
func (r *GrantRepository) Bind(ctx context.Context, userID, roleID, hotelID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID, HotelID: hotelID})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unbind removes exactly the (user, role, hotel) binding.
func (r *GrantRepository) Unbind(ctx context.Context, userID, roleID, hotelID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND hotel_id = ?", userID, roleID, hotelID).
		Delete(&models.UserRole{})
	return res.RowsAffected > 0, res.Error
}
