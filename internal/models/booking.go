package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingStatusPending is the status assigned when none is supplied. Status is
// otherwise free text.
const BookingStatusPending = "pending"

// Booking is removed together with its hotel or its room.
type Booking struct {
	BaseModel

	HotelID         uint      `gorm:"not null;index" json:"hotel_id"`
	Hotel           *Hotel    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	RoomID          uint      `gorm:"not null;index" json:"room_id"`
	Room            *Room     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ReferenceCode   string    `gorm:"uniqueIndex;size:36;not null" json:"reference_code"`
	GuestName       string    `gorm:"not null" json:"guest_name"`
	GuestEmail      string    `json:"guest_email"`
	GuestPhone      string    `json:"guest_phone"`
	CheckIn         time.Time `gorm:"not null;index" json:"check_in"`
	CheckOut        time.Time `gorm:"not null" json:"check_out"`
	Guests          int       `gorm:"not null;default:1" json:"guests"`
	TotalAmount     float64   `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	Status          string    `gorm:"not null;size:32;default:pending;index" json:"status"`
	SpecialRequests string    `gorm:"type:text" json:"special_requests"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ReferenceCode == "" {
		b.ReferenceCode = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
	if b.Guests == 0 {
		b.Guests = 1
	}
	return nil
}

// Nights is the number of nights between check-in and check-out, rounded up.
func (b *Booking) Nights() int {
	d := b.CheckOut.Sub(b.CheckIn)
	if d <= 0 {
		return 0
	}
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}
