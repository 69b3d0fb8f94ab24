package models

import "gorm.io/datatypes"

// Hotel is the tenant boundary: rooms, bookings and scoped roles hang off it.
// AdminID has no foreign key so that users and hotels can be migrated in any
// order; user deletion clears it explicitly.
type Hotel struct {
	BaseModel

	AdminID     *uint                       `gorm:"index" json:"admin_id"`
	Name        string                      `gorm:"not null;size:255" json:"name"`
	Address     string                      `json:"address"`
	City        string                      `gorm:"index" json:"city"`
	State       string                      `json:"state"`
	Country     string                      `json:"country"`
	ZipCode     string                      `json:"zip_code"`
	Phone       string                      `json:"phone"`
	Email       string                      `json:"email"`
	Description string                      `gorm:"type:text" json:"description"`
	StarRating  int                         `gorm:"not null;default:0" json:"star_rating"`
	Amenities   datatypes.JSONSlice[string] `json:"amenities"`
}
