package server

import (
	"time"

	"inkd/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AppointmentRequest is the body of POST /api/appointments.
type AppointmentRequest struct {
	ArtistID string    `json:"artist_id"`
	DateTime time.Time `json:"date_time"`
}

// GetAppointments handles GET /api/appointments
// @Summary My appointments
// @Description Every booking the signed-in user is part of, as client or artist, soonest first.
// @Tags appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} store.BookingsState
// @Failure 401 {object} models.ErrorResponse
// @Router /appointments [get]
func (s *Server) GetAppointments(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	if err := w.Bookings.FetchAppointments(c.UserContext()); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Bookings.Snapshot())
}

// RequestAppointment handles POST /api/appointments
// @Summary Request an appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AppointmentRequest true "Appointment"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Router /appointments [post]
func (s *Server) RequestAppointment(c *fiber.Ctx) error {
	var req AppointmentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	appt, err := currentWorkspace(c).Bookings.RequestAppointment(c.UserContext(), req.ArtistID, req.DateTime)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

// SetAppointmentStatus handles PUT /api/appointments/:id/status
// @Summary Confirm or cancel an appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param request body object{status=string} true "confirmed or cancelled"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /appointments/{id}/status [put]
func (s *Server) SetAppointmentStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	appt, err := currentWorkspace(c).Bookings.SetAppointmentStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(appt)
}
