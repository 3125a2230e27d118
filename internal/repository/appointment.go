package repository

import (
	"context"

	"inkd/internal/models"

	"gorm.io/gorm"
)

// AppointmentRepository stores booking requests.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	ListForUser(ctx context.Context, userID string) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.Status == "" {
		appt.Status = models.AppointmentStatusRequested
	}
	if err := r.db.WithContext(ctx).Create(appt).Error; err != nil {
		return mapError(err, "Appointment", appt.ID)
	}
	return nil
}

// ListForUser returns bookings where userID is the artist or the client, soonest first.
func (r *appointmentRepository) ListForUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("artist_id = ? OR user_id = ?", userID, userID).
		Order("date_time ASC").
		Find(&appts).Error
	if err != nil {
		return nil, mapError(err, "Appointment", userID)
	}
	return appts, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return mapError(res.Error, "Appointment", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Appointment", id)
	}
	return nil
}
