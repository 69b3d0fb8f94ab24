package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

type PermissionRepository struct {
	db *gorm.DB
}

func (r *PermissionRepository) Create(ctx context.Context, perm *models.Permission) error {
	return translate(r.db.WithContext(ctx).Create(perm).Error)
}

func (r *PermissionRepository) FindByID(ctx context.Context, id uint) (*models.Permission, error) {
	var perm models.Permission
	if err := r.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

func (r *PermissionRepository) FindByPair(ctx context.Context, action, resource string) (*models.Permission, error) {
	var perm models.Permission
	if err := r.db.WithContext(ctx).Where("action = ? AND resource = ?", action, resource).First(&perm).Error; err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

func (r *PermissionRepository) List(ctx context.Context, resource string) ([]models.Permission, error) {
	query := r.db.WithContext(ctx).Model(&models.Permission{})
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}
	var perms []models.Permission
	err := query.Order("resource ASC, action ASC").Find(&perms).Error
	return perms, err
}

// Delete removes the permission and its role edges. User bindings are untouched.
func (r *PermissionRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Permission{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
