package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID loads the user with its global role.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("GlobalRole").First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByIdentifier matches a username or an email, case-insensitively.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("GlobalRole").
		Where("LOWER(username) = ? OR LOWER(email) = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, search string, page PageRequest) (PageResult[models.User], error) {
	page = page.Normalize()
	query := r.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return PageResult[models.User]{}, err
	}
	var users []models.User
	if err := query.Preload("GlobalRole").Order("username ASC").Offset(page.offset()).Limit(page.PageSize).Find(&users).Error; err != nil {
		return PageResult[models.User]{}, err
	}
	return newPageResult(users, page, total), nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return translate(err)
	}
	return translate(db.Preload("GlobalRole").First(user, user.ID).Error)
}

// RecordLogin stamps the last successful login.
func (r *UserRepository) RecordLogin(ctx context.Context, userID uint, ip string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{"last_login_at": at, "last_login_ip": ip}).Error
}

// SetGlobalRole replaces the user's global role; nil clears it.
func (r *UserRepository) SetGlobalRole(ctx context.Context, userID uint, roleID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("global_role_id", roleID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user, its role bindings and its hotel ownership.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Hotel{}).Where("admin_id = ?", id).Update("admin_id", nil).Error; err != nil {
		return err
	}
	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RolesInContext returns the roles that apply to the user for hotelID: the
// global role, if any, plus every role bound through user_roles for exactly
// that hotel. A nil hotelID yields the global role only.
func (r *UserRepository) RolesInContext(ctx context.Context, userID uint, hotelID *uint) ([]models.Role, error) {
	db := r.db.WithContext(ctx)

	var roles []models.Role
	global := db.Model(&models.User{}).Select("global_role_id").Where("id = ? AND global_role_id IS NOT NULL", userID)
	if hotelID == nil {
		err := db.Where("id IN (?)", global).Find(&roles).Error
		return roles, err
	}

	bound := db.Model(&models.UserRole{}).Select("role_id").Where("user_id = ? AND hotel_id = ?", userID, *hotelID)
	err := db.Where("id IN (?) OR id IN (?)", global, bound).Order("id ASC").Find(&roles).Error
	return roles, err
}

// ListRoles is the relationship accessor for the roles a user holds in one
// hotel context.
func (r *UserRepository) ListRoles(ctx context.Context, userID uint, hotelID *uint) ([]models.Role, error) {
	return r.RolesInContext(ctx, userID, hotelID)
}

// Bindings lists the user's hotel-scoped role bindings with the role loaded.
func (r *UserRepository) Bindings(ctx context.Context, userID uint) ([]models.UserRole, error) {
	var bindings []models.UserRole
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ?", userID).
		Order("hotel_id ASC, role_id ASC").
		Find(&bindings).Error
	return bindings, err
}

// HotelsGranting returns the hotels in which one of the user's bound roles
// holds (action, resource).
func (r *UserRepository) HotelsGranting(ctx context.Context, userID uint, action, resource string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Distinct().
		Joins("JOIN role_permissions ON role_permissions.role_id = user_roles.role_id").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("user_roles.user_id = ? AND permissions.action = ? AND permissions.resource = ?", userID, action, resource).
		Order("user_roles.hotel_id ASC").
		Pluck("user_roles.hotel_id", &ids).Error
	return ids, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
