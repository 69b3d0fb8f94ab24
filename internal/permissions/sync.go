package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/innkeep/internal/models"
)

// Sync upserts the built-in catalogue into the permissions table. The first
// time the global admin role is seen without permissions it receives every
// definition flagged Admin; later syncs leave its grants alone.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adminIDs := make([]uint, 0, len(builtin))
		for _, def := range builtin {
			record := models.Permission{
				Name:        def.Name(),
				Action:      def.Action,
				Resource:    def.Resource,
				Description: def.Description,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "action"}, {Name: "resource"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("permission: sync %s: %w", def.Name(), err)
			}

			if !def.Admin {
				continue
			}
			var stored models.Permission
			if err := tx.Where("action = ? AND resource = ?", def.Action, def.Resource).First(&stored).Error; err != nil {
				return fmt.Errorf("permission: reload %s: %w", def.Name(), err)
			}
			adminIDs = append(adminIDs, stored.ID)
		}

		return seedAdminGrants(tx, adminIDs)
	})
}

func seedAdminGrants(tx *gorm.DB, permissionIDs []uint) error {
	var admin models.Role
	err := tx.Where("name = ? AND hotel_id IS NULL", models.RoleAdmin).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("permission: load admin role: %w", err)
	}

	var existing int64
	if err := tx.Model(&models.RolePermission{}).Where("role_id = ?", admin.ID).Count(&existing).Error; err != nil {
		return fmt.Errorf("permission: count admin grants: %w", err)
	}
	if existing > 0 {
		return nil
	}

	edges := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		edges = append(edges, models.RolePermission{RoleID: admin.ID, PermissionID: id})
	}
	if len(edges) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error; err != nil {
		return fmt.Errorf("permission: grant admin: %w", err)
	}
	return nil
}
