package server

import (
	"net/http"
	"testing"

	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_SignupSignsInImmediately(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	out := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	assert.Equal(t, store.StatusAuthenticated, out.State.Status)
	assert.False(t, out.NeedsVerification)
	assert.NotEmpty(t, out.Session.AccessToken)

	resp := ts.do(t, http.MethodGet, "/api/auth/session", nil, out.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[store.SessionState](t, resp)
	assert.Equal(t, store.StatusAuthenticated, st.Status)
	require.NotNil(t, st.User)
	assert.Equal(t, "rosa@example.com", st.User.Email)
	assert.Equal(t, 1, ts.srv.workspaces.Len())
}

func TestAuth_SignupValidation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"short password", SignupRequest{Email: "a@example.com", Password: "abc1", Name: "A", Handle: "aaa"}},
		{"bad email", SignupRequest{Email: "nope", Password: testPassword, Name: "A", Handle: "aaa"}},
		{"short handle", SignupRequest{Email: "b@example.com", Password: testPassword, Name: "B", Handle: "bb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/auth/signup", tt.req, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[models.ErrorResponse](t, resp)
			assert.Equal(t, string(models.KindValidation), string(body.Kind))
		})
	}
	assert.Equal(t, 0, ts.srv.workspaces.Len())
}

func TestAuth_LoginRememberMeAndWrongPassword(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	resp := ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "rosa@example.com", Password: "wrong-pass1"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, string(models.KindCredential), string(body.Kind))

	resp = ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
		Email:      "rosa@example.com",
		Password:   testPassword,
		RememberMe: true,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[AuthResponse](t, resp)
	require.NotNil(t, out.Session)
	assert.Equal(t, store.StatusAuthenticated, out.State.Status)

	resp = ts.do(t, http.MethodGet, "/api/auth/remembered", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	remembered := decode[map[string]any](t, resp)
	assert.Equal(t, "rosa@example.com", remembered["email"])
	assert.Equal(t, true, remembered["remember_me"])
}

func TestAuth_LogoutRevokesToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	out := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	token := out.Session.AccessToken

	resp := ts.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[store.SessionState](t, resp)
	assert.Equal(t, store.StatusUnauthenticated, st.Status)

	_, ok := ts.srv.workspaces.Get(out.Session.ID)
	assert.False(t, ok)

	resp = ts.do(t, http.MethodPost, "/api/auth/refresh", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// An unknown token on an optional route reads as signed out.
	resp = ts.do(t, http.MethodGet, "/api/auth/session", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = decode[store.SessionState](t, resp)
	assert.Equal(t, store.StatusUnauthenticated, st.Status)
}

func TestAuth_RefreshKeepsSession(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	out := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	resp := ts.do(t, http.MethodPost, "/api/auth/refresh", nil, out.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decode[AuthResponse](t, resp)
	require.NotNil(t, refreshed.Session)
	assert.Equal(t, out.Session.ID, refreshed.Session.ID)
	assert.Equal(t, store.StatusAuthenticated, refreshed.State.Status)
}

func TestAuth_SessionRestoredAfterEviction(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	out := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	ts.srv.workspaces.Remove(out.Session.ID)

	resp := ts.do(t, http.MethodGet, "/api/auth/session", nil, out.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[store.SessionState](t, resp)
	assert.Equal(t, store.StatusAuthenticated, st.Status)

	_, ok := ts.srv.workspaces.Get(out.Session.ID)
	assert.True(t, ok)
}

func TestAuth_RequiredRoutesRejectAnonymous(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	for _, path := range []string{"/api/auth/logout", "/api/auth/refresh"} {
		resp := ts.do(t, http.MethodPost, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
	resp := ts.do(t, http.MethodGet, "/api/appointments", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
