package models

import "time"

// UserRole binds a user to a role inside one hotel. The composite key is
// immutable; changes are made by removing and re-adding the row.
type UserRole struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	RoleID    uint      `gorm:"primaryKey" json:"role_id"`
	HotelID   uint      `gorm:"primaryKey" json:"hotel_id"`
	CreatedAt time.Time `json:"created_at"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Role  Role  `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"role"`
	Hotel Hotel `gorm:"foreignKey:HotelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
