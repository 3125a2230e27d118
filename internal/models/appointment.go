package models

import (
	"time"
)

// AppointmentStatus represents the lifecycle of a booking request.
type AppointmentStatus string

const (
	AppointmentStatusRequested AppointmentStatus = "requested"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booking between a client and an artist.
type Appointment struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ArtistID  string            `gorm:"type:varchar(36);not null;index" json:"artist_id"`
	UserID    string            `gorm:"type:varchar(36);not null;index" json:"user_id"`
	DateTime  time.Time         `gorm:"not null" json:"date_time"`
	Status    AppointmentStatus `gorm:"type:varchar(20);not null;default:'requested'" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Appointment) TableName() string {
	return "appointments"
}
