package store

import (
	"context"
	"testing"

	"inkd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rosa = models.ProfileFields{Name: "Rosa Vega", Handle: "rosa.ink", IsArtist: true}

func TestSession_SignInAuthenticatesAndRemembersEmail(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signedIn(t, "rosa@example.com", rosa)

	w := h.workspace(t)
	assert.Equal(t, StatusLoading, w.Session.Status())

	sess, err := w.Session.SignIn(context.Background(), "rosa@example.com", testPassword, true)
	require.NoError(t, err)

	st := w.Session.Snapshot()
	assert.Equal(t, StatusAuthenticated, st.Status)
	require.NotNil(t, st.User)
	assert.Equal(t, "rosa@example.com", st.User.Email)
	assert.Equal(t, sess.ID, w.ID())

	email, ok := w.Session.RememberedEmail(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "rosa@example.com", email)
}

func TestSession_SignInWithoutRememberMeClearsPreference(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signedIn(t, "rosa@example.com", rosa)
	w := h.workspace(t)
	ctx := context.Background()

	_, err := w.Session.SignIn(ctx, "rosa@example.com", testPassword, true)
	require.NoError(t, err)
	_, err = w.Session.SignIn(ctx, "rosa@example.com", testPassword, false)
	require.NoError(t, err)

	_, ok := w.Session.RememberedEmail(ctx)
	assert.False(t, ok)
}

func TestSession_FailedSignInLeavesIdentityUntouched(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signedIn(t, "rosa@example.com", rosa)
	w := h.workspace(t)
	ctx := context.Background()

	require.NoError(t, w.Session.Initialize(ctx, ""))
	_, err := w.Session.SignIn(ctx, "rosa@example.com", "wrong-password1", true)
	require.Error(t, err)
	assert.Equal(t, models.KindCredential, models.KindOf(err))

	assert.Equal(t, StatusUnauthenticated, w.Session.Status())
	assert.Nil(t, w.App.User())
	_, ok := w.Session.RememberedEmail(ctx)
	assert.False(t, ok)
}

func TestSession_FailedSignInKeepsExistingSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)
	before := w.App.SessionID()

	_, err := w.Session.SignIn(context.Background(), "rosa@example.com", "wrong-password1", false)
	require.Error(t, err)

	assert.Equal(t, StatusAuthenticated, w.Session.Status())
	assert.Equal(t, before, w.App.SessionID())
}

func TestSession_SignUpCreatesProfileRow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)

	row, err := h.remote.Users.GetByID(context.Background(), w.App.UserID())
	require.NoError(t, err)
	assert.Equal(t, "rosa@example.com", row.Email)
	require.NotNil(t, row.Handle)
	assert.Equal(t, "rosa.ink", *row.Handle)
	assert.True(t, row.IsArtist)
}

func TestSession_SignUpRejectsDuplicate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signedIn(t, "rosa@example.com", rosa)
	w := h.workspace(t)

	_, err := w.Session.SignUp(context.Background(), "rosa@example.com", testPassword, rosa)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	assert.Equal(t, StatusUnauthenticated, w.Session.Status())
}

func TestSession_SignOutRevokesToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)
	ctx := context.Background()
	token := w.App.AccessToken()
	events := record(w)

	require.NoError(t, w.Session.SignOut(ctx))
	assert.Equal(t, StatusUnauthenticated, w.Session.Status())
	assert.Empty(t, w.App.UserID())
	events.waitFor(t, "session.signed_out")

	sess, err := h.auth.GetSession(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSession_Initialize(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	owner := h.signedIn(t, "rosa@example.com", rosa)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		want  SessionStatus
	}{
		{name: "no token", token: "", want: StatusUnauthenticated},
		{name: "garbage token", token: "not-a-jwt", want: StatusUnauthenticated},
		{name: "valid token", token: owner.App.AccessToken(), want: StatusAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := h.workspace(t)
			require.NoError(t, w.Session.Initialize(ctx, tt.token))
			assert.Equal(t, tt.want, w.Session.Status())
		})
	}
}

func TestSession_FollowsSignOutFromElsewhere(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	owner := h.signedIn(t, "rosa@example.com", rosa)
	ctx := context.Background()

	// A second workspace restored from the same token, like a second tab.
	tab := h.workspace(t)
	require.NoError(t, tab.Session.Initialize(ctx, owner.App.AccessToken()))
	events := record(tab)

	require.NoError(t, owner.Session.SignOut(ctx))

	events.waitFor(t, "session.signed_out")
	assert.Equal(t, StatusUnauthenticated, tab.Session.Status())
	assert.Nil(t, tab.App.Session())
}

func TestSession_RefreshKeepsSessionID(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)
	ctx := context.Background()
	before := w.App.Session()

	sess, err := w.Session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.ID, sess.ID)
	assert.Equal(t, sess.AccessToken, w.App.AccessToken())
	assert.Equal(t, StatusAuthenticated, w.Session.Status())
}
