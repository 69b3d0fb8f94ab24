package models

import "gorm.io/datatypes"

// Room belongs to at most one hotel. Deleting the hotel orphans the room
// (hotel_id becomes NULL) instead of removing it.
type Room struct {
	BaseModel

	HotelID     *uint                       `gorm:"index" json:"hotel_id"`
	Hotel       *Hotel                      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	RoomNumber  string                      `gorm:"not null;size:32" json:"room_number"`
	Type        string                      `gorm:"not null;size:64" json:"type"`
	Price       float64                     `gorm:"type:decimal(10,2);not null" json:"price"`
	Capacity    int                         `gorm:"not null" json:"capacity"`
	IsAvailable bool                        `gorm:"not null" json:"is_available"`
	Description string                      `gorm:"type:text" json:"description"`
	Amenities   datatypes.JSONSlice[string] `json:"amenities"`
}

// Orphaned reports whether the room lost its hotel.
func (r *Room) Orphaned() bool {
	return r.HotelID == nil
}
