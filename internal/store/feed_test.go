package store

import (
	"context"
	"testing"
	"time"

	"inkd/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(t *testing.T, h *harness, userID, image string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, ImageURL: image, Tags: []string{}, CreatedAt: at}
	require.NoError(t, h.remote.Posts.Create(context.Background(), p))
	return p
}

func TestFeed_CreatePostThenFetchRoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)
	ctx := context.Background()

	post, err := w.Feed.CreatePost(ctx, models.PostInput{
		ImageURL:    "https://cdn.example.com/koi.png",
		Description: "Fresh koi sleeve",
		Tags:        []string{"japanese", "koi"},
	})
	require.NoError(t, err)
	assert.Equal(t, w.App.UserID(), post.UserID)

	st := w.Feed.Snapshot()
	require.Len(t, st.Posts, 1)
	assert.Equal(t, post.ID, st.Posts[0].ID)

	w.Feed.FetchPosts(ctx)
	st = w.Feed.Snapshot()
	require.Len(t, st.Posts, 1)
	assert.Equal(t, post.ID, st.Posts[0].ID)
	require.NotNil(t, st.Posts[0].User)
	assert.Equal(t, "rosa.ink", *st.Posts[0].User.Handle)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Error)
}

func TestFeed_CreatePostRequiresIdentity(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.workspace(t)

	_, err := w.Feed.CreatePost(context.Background(), models.PostInput{ImageURL: "https://cdn.example.com/a.png"})
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))
	assert.Empty(t, w.Feed.Snapshot().Posts)
}

func TestFeed_CreatePostValidates(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)

	_, err := w.Feed.CreatePost(context.Background(), models.PostInput{ImageURL: ""})
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestFeed_FetchPostsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.deps.FeedLimit = 2
	w := h.signedIn(t, "rosa@example.com", rosa)
	me := w.App.UserID()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := seedPost(t, h, me, "https://cdn.example.com/1.png", base)
	mid := seedPost(t, h, me, "https://cdn.example.com/2.png", base.Add(time.Hour))
	newest := seedPost(t, h, me, "https://cdn.example.com/3.png", base.Add(2*time.Hour))
	_ = old

	w.Feed.FetchPosts(context.Background())

	got := ids(w.Feed.Snapshot().Posts, postID)
	if diff := cmp.Diff([]string{newest.ID, mid.ID}, got); diff != "" {
		t.Errorf("feed order mismatch (-want +got):\n%s", diff)
	}
}

func TestFeed_DailyHighlights(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	today := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.deps.Now = func() time.Time { return today }
	w := h.signedIn(t, "rosa@example.com", rosa)
	ctx := context.Background()

	w.Feed.FetchDailyHighlights(ctx)
	st := w.Feed.Snapshot()
	require.NotNil(t, st.Highlights)
	assert.True(t, st.Highlights.Empty())
	assert.Nil(t, st.HighlightsError)

	me := w.App.UserID()
	art := seedPost(t, h, me, "https://cdn.example.com/art.png", today)
	sugg := seedPost(t, h, me, "https://cdn.example.com/sugg.png", today)
	missing := "00000000-0000-0000-0000-000000000000"
	require.NoError(t, h.remote.Highlights.Upsert(ctx, &models.DailyHighlight{
		Date:          "2026-03-01",
		ArtworkPostID: &art.ID,
		ArtistUserID:  &missing,
		Suggestions:   []string{sugg.ID},
	}))

	w.Feed.FetchDailyHighlights(ctx)
	st = w.Feed.Snapshot()
	require.NotNil(t, st.Highlights)
	require.NotNil(t, st.Highlights.ArtworkOfTheDay)
	assert.Equal(t, art.ID, st.Highlights.ArtworkOfTheDay.ID)
	assert.Nil(t, st.Highlights.ArtistOfTheDay)
	assert.Equal(t, []string{sugg.ID}, ids(st.Highlights.Suggestions, postID))
}

func TestFeed_RefreshFeedRunsBothReads(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)
	events := record(w)

	w.Feed.RefreshFeed(context.Background())

	assert.Equal(t, "feed.posts", events.waitFor(t, "feed.posts").Type)
	events.waitFor(t, "feed.highlights")
}

func TestFeed_GetPostNotFound(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.signedIn(t, "rosa@example.com", rosa)

	_, err := w.Feed.GetPost(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}
