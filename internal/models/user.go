package models

import "time"

// User is an operator account. GlobalRoleID points at a role with no hotel;
// hotel-scoped roles are bound through UserRole.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email    string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsActive          bool `gorm:"not null" json:"is_active"`
	MustResetPassword bool `gorm:"not null" json:"must_reset_password"`

	GlobalRoleID *uint `gorm:"index" json:"global_role_id"`
	GlobalRole   *Role `gorm:"foreignKey:GlobalRoleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"global_role,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`
}
