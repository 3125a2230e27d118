package server

import (
	"net/http"
	"testing"
	"time"

	"inkd/internal/config"
	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistant_MessageGetsReplyWhenEnabled(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	token := rosa.Session.AccessToken

	resp := ts.do(t, http.MethodPut, "/api/assistant/settings", store.SettingsInput{Enabled: true}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[models.AssistantSettings](t, resp)
	assert.True(t, settings.Enabled)
	assert.Equal(t, rosa.Session.User.ID, settings.ArtistID)

	resp = ts.do(t, http.MethodPost, "/api/assistant/messages", SendMessageRequest{Content: "How should I price flash?"}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[models.AssistantMessage](t, resp)
	assert.Equal(t, models.RoleUser, msg.Role)

	w, ok := ts.srv.workspaces.Get(rosa.Session.ID)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		msgs := w.Assistant.Snapshot().Messages
		return len(msgs) == 2 && msgs[1].Role == models.RoleAssistant
	}, 5*time.Second, 10*time.Millisecond)

	// Replies are never stored, so a refetch only has the artist's message.
	resp = ts.do(t, http.MethodGet, "/api/assistant/messages", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[store.AssistantState](t, resp)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "How should I price flash?", st.Messages[0].Content)

	resp = ts.do(t, http.MethodGet, "/api/assistant/events?limit=10", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := decode[[]models.AssistantEvent](t, resp)
	assert.NotEmpty(t, events)
}

func TestAssistant_NoReplyWhenDisabled(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	resp := ts.do(t, http.MethodPut, "/api/assistant/settings", store.SettingsInput{Enabled: false}, rosa.Session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/assistant/messages", SendMessageRequest{Content: "hello"}, rosa.Session.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	w, ok := ts.srv.workspaces.Get(rosa.Session.ID)
	require.True(t, ok)
	w.Assistant.Wait()
	assert.Len(t, w.Assistant.Snapshot().Messages, 1)
}

func TestAssistant_MarketResearchCompletes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	token := rosa.Session.AccessToken

	resp := ts.do(t, http.MethodPost, "/api/assistant/reports", store.ResearchRequest{
		Query:  "fine line demand",
		Region: "Bay Area",
	}, token)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	report := decode[models.AssistantReport](t, resp)
	assert.Equal(t, models.ReportStatusPending, report.Status)

	w, ok := ts.srv.workspaces.Get(rosa.Session.ID)
	require.True(t, ok)
	w.Assistant.Wait()

	resp = ts.do(t, http.MethodGet, "/api/assistant/reports", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[store.AssistantState](t, resp)
	require.Len(t, st.Reports, 1)
	assert.Equal(t, models.ReportStatusCompleted, st.Reports[0].Status)

	resp = ts.do(t, http.MethodPost, "/api/assistant/reports", store.ResearchRequest{Query: "  "}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssistant_OtherArtistRejected(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	theo := ts.signUp(t, "theo@example.com", "Theo Park", "theo.ink", true)

	resp := ts.do(t, http.MethodGet, "/api/assistant/messages?artist_id="+theo.Session.User.ID, nil, rosa.Session.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAssistant_FeatureFlagOff(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "bookings=on" })
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	resp := ts.do(t, http.MethodGet, "/api/assistant/settings", nil, rosa.Session.AccessToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "FEATURE_DISABLED", body.Code)
}
