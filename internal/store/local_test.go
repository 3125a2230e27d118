package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"inkd/internal/geo"
	"inkd/internal/models"
	"inkd/internal/repository"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingUsers counts ListArtists calls and can hold the first one back.
type countingUsers struct {
	repository.UserRepository
	calls atomic.Int32
	hold  chan struct{}
	held  chan struct{}
}

func (u *countingUsers) ListArtists(ctx context.Context) ([]models.User, error) {
	n := u.calls.Add(1)
	artists, err := u.UserRepository.ListArtists(ctx)
	if n == 1 && u.hold != nil {
		close(u.held)
		<-u.hold
	}
	return artists, err
}

func seedArtists(t *testing.T, h *harness) (ana, ben, cleo *models.User) {
	t.Helper()
	ana = h.artist(t, "aaaaaaaa-0000-0000-0000-000000000001", "Ana Black", 37.7749, -122.4194, "blackwork", "fineline")
	ben = h.artist(t, "aaaaaaaa-0000-0000-0000-000000000002", "Ben Traditional", 37.8044, -122.2712, "traditional")
	cleo = h.artist(t, "aaaaaaaa-0000-0000-0000-000000000003", "Cleo Koi", 37.3382, -121.8863, "japanese", "blackwork")
	return ana, ben, cleo
}

func TestLocal_FetchArtistsFiltersAndIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ana, _, cleo := seedArtists(t, h)
	w := h.workspace(t)
	ctx := context.Background()

	w.Local.SetStyleFilters(ctx, []string{"blackwork"})
	first := ids(w.Local.Snapshot().Artists, userID)
	w.Local.FetchArtists(ctx)
	second := ids(w.Local.Snapshot().Artists, userID)

	assert.ElementsMatch(t, []string{ana.ID, cleo.ID}, first)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("refetch changed the result (-first +second):\n%s", diff)
	}

	w.Local.SetSearchQuery(ctx, "KOI")
	assert.Equal(t, []string{cleo.ID}, ids(w.Local.Snapshot().Artists, userID))
}

func TestLocal_StyleFilterFetchCounts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	seedArtists(t, h)
	users := &countingUsers{UserRepository: h.remote.Users}
	h.remote.Users = users
	w := h.workspace(t)
	ctx := context.Background()

	w.Local.AddStyleFilter(ctx, "japanese")
	w.Local.AddStyleFilter(ctx, "japanese")
	assert.Equal(t, int32(1), users.calls.Load(), "adding an active style must not refetch")

	w.Local.RemoveStyleFilter(ctx, "japanese")
	w.Local.RemoveStyleFilter(ctx, "japanese")
	assert.Equal(t, int32(3), users.calls.Load(), "removing always refetches")
	assert.Empty(t, w.Local.Snapshot().StyleFilters)
}

func TestLocal_StaleResponseIsDropped(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ana, _, _ := seedArtists(t, h)
	users := &countingUsers{
		UserRepository: h.remote.Users,
		hold:           make(chan struct{}),
		held:           make(chan struct{}),
	}
	h.remote.Users = users
	w := h.workspace(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Local.FetchArtists(ctx) // held back, issued first
	}()
	<-users.held

	w.Local.SetSearchQuery(ctx, "ana")
	assert.Equal(t, []string{ana.ID}, ids(w.Local.Snapshot().Artists, userID))

	close(users.hold)
	<-done

	st := w.Local.Snapshot()
	assert.Equal(t, []string{ana.ID}, ids(st.Artists, userID))
	assert.False(t, st.Loading)
}

func TestLocal_SelectionRecentresMap(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	seedArtists(t, h)
	w := h.workspace(t)
	ctx := context.Background()

	assert.Equal(t, DefaultViewport, w.Local.Snapshot().Viewport)

	w.Local.FetchArtists(ctx)
	require.NoError(t, w.Local.SetSelectedArtistIndex(0))
	st := w.Local.Snapshot()
	a := st.Artists[0]
	assert.Equal(t, Viewport{Latitude: *a.Lat, Longitude: *a.Lng, Zoom: ArtistZoom}, st.Viewport)
	assert.Equal(t, 0, st.SelectedArtistIndex)

	err := w.Local.SetSelectedArtistIndex(len(st.Artists))
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	require.NoError(t, w.Local.SetSelectedArtistIndex(-1))
}

func TestLocal_RequestLocation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.workspace(t)
	ctx := context.Background()

	_, err := w.Local.RequestLocation(ctx, geo.Failing(geo.ErrPermissionDenied))
	require.ErrorIs(t, err, geo.ErrPermissionDenied)
	st := w.Local.Snapshot()
	assert.Nil(t, st.UserLocation)
	assert.Equal(t, DefaultViewport, st.Viewport)

	oakland := geo.Coordinates{Lat: 37.8044, Lng: -122.2712}
	got, err := w.Local.RequestLocation(ctx, geo.Static(oakland))
	require.NoError(t, err)
	assert.Equal(t, oakland, got)
	st = w.Local.Snapshot()
	require.NotNil(t, st.UserLocation)
	assert.Equal(t, Viewport{Latitude: oakland.Lat, Longitude: oakland.Lng, Zoom: DefaultZoom}, st.Viewport)

	// A denial right after a good fix still leaves the panned map alone.
	panned := Viewport{Latitude: 37.70, Longitude: -122.45, Zoom: 15}
	require.NoError(t, w.Local.SetMapViewport(panned))
	for _, failure := range []error{geo.ErrPermissionDenied, geo.ErrTimeout, errors.New("position unavailable")} {
		_, err = w.Local.RequestLocation(ctx, geo.Failing(failure))
		require.ErrorIs(t, err, failure)
		st = w.Local.Snapshot()
		assert.Equal(t, panned, st.Viewport)
		require.NotNil(t, st.UserLocation)
		assert.Equal(t, oakland, *st.UserLocation)
	}

	// A newer position is taken as reported.
	sf := geo.Coordinates{Lat: 37.7749, Lng: -122.4194}
	got, err = w.Local.RequestLocation(ctx, geo.Static(sf))
	require.NoError(t, err)
	assert.Equal(t, sf, got)
	assert.Equal(t, Viewport{Latitude: sf.Lat, Longitude: sf.Lng, Zoom: DefaultZoom}, w.Local.Snapshot().Viewport)

	_, err = w.Local.RequestLocation(ctx, nil)
	assert.ErrorIs(t, err, geo.ErrUnsupported)
}

func TestLocal_Distances(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ana, ben, _ := seedArtists(t, h)
	w := h.workspace(t)
	ctx := context.Background()

	w.Local.SetSearchQuery(ctx, "b")
	for _, d := range w.Local.Distances() {
		assert.Nil(t, d.Miles)
	}

	require.NoError(t, w.Local.SetUserLocation(geo.Coordinates{Lat: *ana.Lat, Lng: *ana.Lng}))
	byID := map[string]ArtistDistance{}
	for _, d := range w.Local.Distances() {
		byID[d.Artist.ID] = d
	}
	require.NotNil(t, byID[ana.ID].Miles)
	assert.InDelta(t, 0, *byID[ana.ID].Miles, 1e-9)
	require.NotNil(t, byID[ben.ID].Miles)
	assert.InDelta(t, 8.3, *byID[ben.ID].Miles, 0.1)
	assert.Equal(t, "8.3 mi", byID[ben.ID].Label)
}

func TestLocal_ViewportValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	w := h.workspace(t)

	tests := []struct {
		name string
		v    Viewport
		ok   bool
	}{
		{name: "valid", v: Viewport{Latitude: 40.7, Longitude: -74, Zoom: 10}, ok: true},
		{name: "latitude out of range", v: Viewport{Latitude: 91, Longitude: 0, Zoom: 10}},
		{name: "zoom out of range", v: Viewport{Latitude: 0, Longitude: 0, Zoom: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := w.Local.SetMapViewport(tt.v)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, models.KindValidation, models.KindOf(err))
		})
	}
}
