package assistant

import (
	"context"
	"testing"
	"time"

	"inkd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCanned(t *testing.T) {
	t.Parallel()
	c := DefaultCanned()
	assert.Contains(t, c.Reply.Default.Content, "This is a demo response.")
	assert.True(t, c.Reply.Default.SuggestedReply)
	assert.Len(t, c.Report.Sources, 3)
	assert.Equal(t, "medium", c.Report.Confidence)
}

func TestParseCanned_Errors(t *testing.T) {
	t.Parallel()
	_, err := ParseCanned([]byte("reply: ["))
	assert.Error(t, err)

	_, err = ParseCanned([]byte("report:\n  summary: x\n"))
	assert.ErrorContains(t, err, "default reply")

	_, err = ParseCanned([]byte("reply:\n  default:\n    content: hi\n"))
	assert.ErrorContains(t, err, "report summary")
}

func TestSimulated_ReplyPicksRule(t *testing.T) {
	t.Parallel()
	s := NewSimulated(nil, 0, 0)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	tests := []struct {
		content     string
		appointment bool
		research    bool
		suggested   bool
	}{
		{"Hey there!", false, false, true},
		{"Can I BOOK a session next week?", true, false, false},
		{"what styles are trending?", false, true, false},
	}
	for _, tt := range tests {
		msg, err := s.Reply(context.Background(), "artist-1", tt.content)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAssistant, msg.Role)
		assert.Equal(t, "assistant-1772366400000", msg.ID)
		assert.Equal(t, fixed, msg.Timestamp)
		require.NotNil(t, msg.Metadata)
		assert.Equal(t, tt.appointment, msg.Metadata.AppointmentRequest, tt.content)
		assert.Equal(t, tt.research, msg.Metadata.MarketResearch, tt.content)
		assert.Equal(t, tt.suggested, msg.Metadata.SuggestedReply, tt.content)
	}
}

func TestSimulated_WaitsAndHonoursCancel(t *testing.T) {
	t.Parallel()
	s := NewSimulated(nil, 20*time.Millisecond, time.Hour)

	start := time.Now()
	_, err := s.Reply(context.Background(), "a", "hi")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Research(ctx, models.AssistantReport{ID: "r1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulated_ResearchReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewSimulated(nil, 0, 0)
	f, err := s.Research(context.Background(), models.AssistantReport{ID: "r1"})
	require.NoError(t, err)
	assert.NotEmpty(t, f.Summary)
	assert.NotEmpty(t, f.Methodology)

	f.Sources[0].Title = "mutated"
	again, err := s.Research(context.Background(), models.AssistantReport{ID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "Instagram Tattoo Hashtag Analysis", again.Sources[0].Title)
}
