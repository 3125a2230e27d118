package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"inkd/internal/featureflags"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/remote"
	"inkd/internal/validation"
)

// BookingsState is a snapshot of the Bookings container.
type BookingsState struct {
	Appointments []models.Appointment `json:"appointments"`
	Loading      bool                 `json:"loading"`
	Error        *FetchError          `json:"error,omitempty"`
}

// Bookings owns the signed-in user's appointments, as artist or as client,
// soonest first.
type Bookings struct {
	deps   Deps
	app    *AppContext
	events *emitter

	mu           sync.RWMutex
	userID       string
	appointments collection[models.Appointment]
}

func newBookings(deps Deps, app *AppContext, events *emitter) *Bookings {
	return &Bookings{deps: deps, app: app, events: events}
}

func (b *Bookings) Snapshot() BookingsState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BookingsState{
		Appointments: b.appointments.snapshot(),
		Loading:      b.appointments.loading,
		Error:        b.appointments.err,
	}
}

func (b *Bookings) resolve() (string, error) {
	me := b.app.UserID()
	if me == "" {
		return "", notAuthenticated()
	}
	if !b.deps.Flags.Enabled(featureflags.Bookings, me) {
		return "", featureDisabled("Bookings are not enabled for this account")
	}
	return me, nil
}

// target switches to userID. Caller holds the lock.
func (b *Bookings) target(userID string) {
	if b.userID == userID {
		return
	}
	b.userID = userID
	b.appointments.reset()
}

// FetchAppointments loads every booking the user is part of.
func (b *Bookings) FetchAppointments(ctx context.Context) error {
	userID, err := b.resolve()
	if err != nil {
		return err
	}
	done := observability.TrackOperation("bookings", "fetch_appointments")
	b.mu.Lock()
	b.target(userID)
	seq := b.appointments.begin()
	b.mu.Unlock()

	appts, err := b.deps.Remote.Appointments.ListForUser(ctx, userID)
	if err != nil {
		logReadFailure(ctx, "bookings", "fetch_appointments", err)
	}

	b.mu.Lock()
	applied := b.userID == userID && b.appointments.finish(seq, appts, err)
	b.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		b.events.emit("bookings", "appointments", 0, nil)
	}
	return nil
}

// RequestAppointment books artistID at the given time for the signed-in user.
func (b *Bookings) RequestAppointment(ctx context.Context, artistID string, at time.Time) (*models.Appointment, error) {
	userID, err := b.resolve()
	if err != nil {
		return nil, err
	}
	if artistID == "" {
		return nil, models.NewValidationError("artist_id is required")
	}
	if artistID == userID {
		return nil, models.NewValidationError("You cannot book an appointment with yourself")
	}
	if err := validation.ValidateAppointmentTime(at, b.deps.now()); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	done := observability.TrackOperation("bookings", "request_appointment")

	artist, err := b.deps.Remote.Users.GetByID(ctx, artistID)
	if err != nil {
		done("error")
		return nil, remote.Classify(err)
	}
	if !artist.IsArtist {
		done("error")
		return nil, models.NewValidationError("Appointments can only be requested with artists")
	}

	b.mu.Lock()
	b.target(userID)
	version := b.appointments.version
	b.mu.Unlock()

	appt := &models.Appointment{
		ArtistID: artistID,
		UserID:   userID,
		DateTime: at.UTC(),
		Status:   models.AppointmentStatusRequested,
	}
	if err := b.deps.Remote.Appointments.Create(ctx, appt); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}

	b.mu.Lock()
	applied := b.userID == userID && b.appointments.version == version
	if applied {
		b.appointments.items = insertByTime(b.appointments.items, *appt)
	}
	b.mu.Unlock()

	done(outcome(applied, nil))
	b.events.emit("bookings", "appointment_requested", 0, appt)
	return appt, nil
}

// SetAppointmentStatus confirms or cancels a booking. Only the artist may
// confirm a request; either party may cancel. Cancelled bookings are final.
func (b *Bookings) SetAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	userID, err := b.resolve()
	if err != nil {
		return nil, err
	}
	if status != models.AppointmentStatusConfirmed && status != models.AppointmentStatusCancelled {
		return nil, models.NewValidationError("Status must be confirmed or cancelled")
	}
	done := observability.TrackOperation("bookings", "set_status")

	appts, err := b.deps.Remote.Appointments.ListForUser(ctx, userID)
	if err != nil {
		done("error")
		return nil, remote.Classify(err)
	}
	i := slices.IndexFunc(appts, func(a models.Appointment) bool { return a.ID == id })
	if i < 0 {
		done("error")
		return nil, models.NewNotFoundError("Appointment", id)
	}
	appt := appts[i]

	switch {
	case appt.Status == models.AppointmentStatusCancelled:
		done("error")
		return nil, models.NewValidationError("Appointment is already cancelled")
	case status == models.AppointmentStatusConfirmed && appt.ArtistID != userID:
		done("error")
		return nil, models.NewUnauthorizedError("Only the artist can confirm an appointment")
	case status == models.AppointmentStatusConfirmed && appt.Status != models.AppointmentStatusRequested:
		done("error")
		return nil, models.NewValidationError("Only requested appointments can be confirmed")
	}

	if err := b.deps.Remote.Appointments.UpdateStatus(ctx, id, status); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}
	appt.Status = status

	b.mu.Lock()
	if b.userID == userID {
		for j := range b.appointments.items {
			if b.appointments.items[j].ID == id {
				b.appointments.items[j].Status = status
			}
		}
	}
	b.mu.Unlock()

	done("ok")
	b.events.emit("bookings", "appointment_"+string(status), 0, appt)
	return &appt, nil
}

func insertByTime(appts []models.Appointment, appt models.Appointment) []models.Appointment {
	i := slices.IndexFunc(appts, func(a models.Appointment) bool { return a.DateTime.After(appt.DateTime) })
	if i < 0 {
		return append(appts, appt)
	}
	return slices.Insert(slices.Clone(appts), i, appt)
}
