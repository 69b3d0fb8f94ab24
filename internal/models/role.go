package models

// Global role names seeded at startup.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
)

// Role is global when HotelID is nil and hotel-scoped otherwise. The pair
// (name, hotel_id) is unique; the NULL case is enforced by the RBAC service.
type Role struct {
	BaseModel

	Name        string `gorm:"not null;size:128;uniqueIndex:idx_roles_name_hotel" json:"name"`
	HotelID     *uint  `gorm:"uniqueIndex:idx_roles_name_hotel;index" json:"hotel_id"`
	Hotel       *Hotel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"not null" json:"is_system"`
}

func (r *Role) IsGlobal() bool {
	return r.HotelID == nil
}

func (r *Role) IsSuperadmin() bool {
	return r.IsGlobal() && r.Name == RoleSuperadmin
}
