package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/models"
)

// AutoMigrate creates or updates the schema. Parents are listed before the
// tables holding foreign keys to them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Hotel{},
		&models.Role{},
		&models.Permission{},
		&models.User{},
		&models.Room{},
		&models.Booking{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData creates the global system roles. The permission catalogue and the
// admin grants are synced by the permissions package.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			Name:        models.RoleSuperadmin,
			Description: "Unrestricted access to every hotel",
			IsSystem:    true,
		},
		{
			Name:        models.RoleAdmin,
			Description: "Manages hotels, rooms, bookings and users",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where("name = ? AND hotel_id IS NULL", role.Name).
			Attrs(role).
			FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}
	return nil
}
