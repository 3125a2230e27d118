package server

import (
	"net/http"
	"testing"
	"time"

	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointments_RequestConfirmCancel(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	artist := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	client := ts.signUp(t, "sam@example.com", "Sam Lee", "sam.lee", false)
	when := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	resp := ts.do(t, http.MethodPost, "/api/appointments", AppointmentRequest{
		ArtistID: artist.Session.User.ID,
		DateTime: when,
	}, client.Session.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decode[models.Appointment](t, resp)
	assert.Equal(t, models.AppointmentStatusRequested, appt.Status)
	assert.Equal(t, client.Session.User.ID, appt.UserID)

	// Only the artist may confirm.
	resp = ts.do(t, http.MethodPut, "/api/appointments/"+appt.ID+"/status",
		map[string]string{"status": "confirmed"}, client.Session.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/appointments/"+appt.ID+"/status",
		map[string]string{"status": "confirmed"}, artist.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AppointmentStatusConfirmed, decode[models.Appointment](t, resp).Status)

	resp = ts.do(t, http.MethodPut, "/api/appointments/"+appt.ID+"/status",
		map[string]string{"status": "cancelled"}, client.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/appointments/"+appt.ID+"/status",
		map[string]string{"status": "confirmed"}, artist.Session.AccessToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/appointments", nil, artist.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[store.BookingsState](t, resp)
	require.Len(t, st.Appointments, 1)
	assert.Equal(t, models.AppointmentStatusCancelled, st.Appointments[0].Status)
}

func TestAppointments_Validation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	artist := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	client := ts.signUp(t, "sam@example.com", "Sam Lee", "sam.lee", false)
	future := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name   string
		token  string
		req    AppointmentRequest
		status int
	}{
		{"past date", client.Session.AccessToken, AppointmentRequest{ArtistID: artist.Session.User.ID, DateTime: time.Now().Add(-time.Hour)}, http.StatusBadRequest},
		{"self booking", artist.Session.AccessToken, AppointmentRequest{ArtistID: artist.Session.User.ID, DateTime: future}, http.StatusBadRequest},
		{"not an artist", artist.Session.AccessToken, AppointmentRequest{ArtistID: client.Session.User.ID, DateTime: future}, http.StatusBadRequest},
		{"unknown artist", client.Session.AccessToken, AppointmentRequest{ArtistID: uuid.NewString(), DateTime: future}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/appointments", tt.req, tt.token)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := ts.do(t, http.MethodPut, "/api/appointments/"+uuid.NewString()+"/status",
		map[string]string{"status": "cancelled"}, client.Session.AccessToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/appointments/"+uuid.NewString()+"/status",
		map[string]string{"status": "pending"}, client.Session.AccessToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
