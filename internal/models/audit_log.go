package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records administrative mutations. UserID is not a foreign key so
// entries outlive the user.
type AuditLog struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	UserID    *uint             `gorm:"index" json:"user_id"`
	Username  string            `json:"username"`
	HotelID   *uint             `gorm:"index" json:"hotel_id"`
	Action    string            `gorm:"not null;index" json:"action"`
	Resource  string            `gorm:"index" json:"resource"`
	Result    string            `gorm:"not null" json:"result"`
	IPAddress string            `json:"ip_address"`
	UserAgent string            `json:"user_agent"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
