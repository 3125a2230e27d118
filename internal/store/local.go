package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"inkd/internal/geo"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/validation"
)

const (
	ArtistZoom  = 14.0
	DefaultZoom = 12.0
)

// Viewport is the map camera.
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
}

// DefaultViewport is centred on San Francisco.
var DefaultViewport = Viewport{Latitude: 37.7749, Longitude: -122.4194, Zoom: DefaultZoom}

// LocalState is a snapshot of the Local container.
type LocalState struct {
	Artists             []models.User    `json:"artists"`
	Loading             bool             `json:"loading"`
	Error               *FetchError      `json:"error,omitempty"`
	Version             uint64           `json:"version"`
	SelectedArtistIndex int              `json:"selected_artist_index"`
	SearchQuery         string           `json:"search_query"`
	StyleFilters        []string         `json:"style_filters"`
	FullscreenMap       bool             `json:"fullscreen_map"`
	UserLocation        *geo.Coordinates `json:"user_location"`
	Viewport            Viewport         `json:"viewport"`
}

// ArtistDistance pairs an artist with the distance from the user, when both
// positions are known.
type ArtistDistance struct {
	Artist models.User `json:"artist"`
	Miles  *float64    `json:"miles"`
	Label  string      `json:"label,omitempty"`
}

// Local owns the filtered artist directory, the map viewport and the user's
// position. Every filter change triggers a fresh fetch.
type Local struct {
	deps    Deps
	events  *emitter
	locator *geo.CachedLocator

	mu         sync.RWMutex
	artists    collection[models.User]
	selected   int
	query      string
	styles     []string
	fullscreen bool
	location   *geo.Coordinates
	viewport   Viewport
}

func newLocal(deps Deps, events *emitter) *Local {
	return &Local{
		deps:     deps,
		events:   events,
		locator:  geo.NewCachedLocator(nil, deps.GeolocationTimeout, deps.GeolocationMaxAge),
		selected: -1,
		styles:   []string{},
		viewport: DefaultViewport,
	}
}

// Snapshot returns a copy of the directory state.
func (l *Local) Snapshot() LocalState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := LocalState{
		Artists:             l.artists.snapshot(),
		Loading:             l.artists.loading,
		Error:               l.artists.err,
		Version:             l.artists.version,
		SelectedArtistIndex: l.selected,
		SearchQuery:         l.query,
		StyleFilters:        slices.Clone(l.styles),
		FullscreenMap:       l.fullscreen,
		Viewport:            l.viewport,
	}
	if l.location != nil {
		loc := *l.location
		st.UserLocation = &loc
	}
	return st
}

// FetchArtists loads every artist with coordinates and keeps those matching
// the search query and style filters in force when the response lands.
func (l *Local) FetchArtists(ctx context.Context) {
	done := observability.TrackOperation("local", "fetch_artists")
	l.mu.Lock()
	seq := l.artists.begin()
	l.mu.Unlock()

	artists, err := l.deps.Remote.Users.ListArtists(ctx)
	if err != nil {
		logReadFailure(ctx, "local", "fetch_artists", err)
	}

	l.mu.Lock()
	if err == nil {
		artists = FilterArtists(artists, l.query, l.styles)
	}
	applied := l.artists.finish(seq, artists, err)
	if applied && err == nil && l.selected >= len(l.artists.items) {
		l.selected = -1
	}
	version := l.artists.version
	l.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		l.events.emit("local", "artists", version, nil)
	}
}

// FilterArtists keeps artists whose name or handle contains query, ignoring
// case, and who carry at least one of styles. Empty criteria match everyone.
func FilterArtists(artists []models.User, query string, styles []string) []models.User {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.User, 0, len(artists))
	for _, a := range artists {
		if q != "" && !containsFold(a.Name, q) && !containsFold(a.Handle, q) {
			continue
		}
		if len(styles) > 0 && !a.HasAnyStyle(styles) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func containsFold(s *string, lowerQuery string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), lowerQuery)
}

// SetSearchQuery replaces the free-text filter and refetches.
func (l *Local) SetSearchQuery(ctx context.Context, query string) {
	l.mu.Lock()
	l.query = query
	l.mu.Unlock()
	l.FetchArtists(ctx)
}

// AddStyleFilter adds a style tag and refetches. Adding a tag that is already
// active changes nothing and does not fetch.
func (l *Local) AddStyleFilter(ctx context.Context, style string) {
	style = strings.TrimSpace(style)
	l.mu.Lock()
	if style == "" || slices.Contains(l.styles, style) {
		l.mu.Unlock()
		return
	}
	l.styles = append(slices.Clone(l.styles), style)
	l.mu.Unlock()
	l.FetchArtists(ctx)
}

// RemoveStyleFilter drops a style tag and refetches, even if it was not active.
func (l *Local) RemoveStyleFilter(ctx context.Context, style string) {
	l.mu.Lock()
	l.styles = slices.DeleteFunc(slices.Clone(l.styles), func(s string) bool { return s == style })
	l.mu.Unlock()
	l.FetchArtists(ctx)
}

// SetStyleFilters replaces the style tags and refetches.
func (l *Local) SetStyleFilters(ctx context.Context, styles []string) {
	cleaned := make([]string, 0, len(styles))
	for _, s := range styles {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(cleaned, s) {
			cleaned = append(cleaned, s)
		}
	}
	l.mu.Lock()
	l.styles = cleaned
	l.mu.Unlock()
	l.FetchArtists(ctx)
}

// SetSelectedArtistIndex highlights one artist, or clears the selection with -1.
// The map recentres on a selected artist that has coordinates.
func (l *Local) SetSelectedArtistIndex(i int) error {
	l.mu.Lock()
	if i < -1 || i >= len(l.artists.items) {
		n := len(l.artists.items)
		l.mu.Unlock()
		return models.NewValidationError(fmt.Sprintf("Artist index %d is out of range for %d artists", i, n))
	}
	l.selected = i
	if i >= 0 {
		if a := l.artists.items[i]; a.HasCoordinates() {
			l.viewport = Viewport{Latitude: *a.Lat, Longitude: *a.Lng, Zoom: ArtistZoom}
		}
	}
	l.mu.Unlock()
	l.events.emit("local", "selection", 0, nil)
	return nil
}

func (l *Local) SetFullscreenMap(on bool) {
	l.mu.Lock()
	l.fullscreen = on
	l.mu.Unlock()
	l.events.emit("local", "fullscreen", 0, nil)
}

// SetUserLocation stores the user's position and recentres the map on it.
func (l *Local) SetUserLocation(c geo.Coordinates) error {
	if err := validation.ValidateCoordinates(c.Lat, c.Lng); err != nil {
		return models.NewValidationError(err.Error())
	}
	l.mu.Lock()
	l.location = &c
	l.viewport = Viewport{Latitude: c.Lat, Longitude: c.Lng, Zoom: DefaultZoom}
	l.mu.Unlock()
	l.events.emit("local", "location", 0, nil)
	return nil
}

// SetMapViewport records a camera move reported by the map.
func (l *Local) SetMapViewport(v Viewport) error {
	if err := validation.ValidateCoordinates(v.Latitude, v.Longitude); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateZoom(v.Zoom); err != nil {
		return models.NewValidationError(err.Error())
	}
	l.mu.Lock()
	l.viewport = v
	l.mu.Unlock()
	return nil
}

// RequestLocation asks source for the device position, bounded by the
// geolocation timeout. On failure the state is left untouched and the error is
// returned for the caller to ignore or show.
func (l *Local) RequestLocation(ctx context.Context, source geo.Locator) (geo.Coordinates, error) {
	done := observability.TrackOperation("local", "request_location")
	c, err := l.locator.LocateWith(ctx, source)
	if err != nil {
		done("error")
		return geo.Coordinates{}, err
	}
	if err := l.SetUserLocation(c); err != nil {
		done("error")
		return geo.Coordinates{}, err
	}
	done("ok")
	return c, nil
}

// Distances pairs each shown artist with its distance from the user.
func (l *Local) Distances() []ArtistDistance {
	l.mu.RLock()
	artists := l.artists.snapshot()
	var from *geo.Coordinates
	if l.location != nil {
		loc := *l.location
		from = &loc
	}
	l.mu.RUnlock()

	out := make([]ArtistDistance, 0, len(artists))
	for _, a := range artists {
		d := ArtistDistance{Artist: a}
		if from != nil && a.HasCoordinates() {
			miles := geo.DistanceMiles(*from, geo.Coordinates{Lat: *a.Lat, Lng: *a.Lng})
			d.Miles = &miles
			d.Label = geo.FormatMiles(miles)
		}
		out = append(out, d)
	}
	return out
}
