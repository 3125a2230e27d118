package geo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMiles(t *testing.T) {
	t.Parallel()
	sf := Coordinates{Lat: 37.7749, Lng: -122.4194}

	assert.Zero(t, DistanceMiles(sf, sf))

	// One degree of latitude at the equator is R * pi / 180.
	oneDegree := DistanceMiles(Coordinates{0, 0}, Coordinates{1, 0})
	assert.InDelta(t, EarthRadiusMiles*math.Pi/180, oneDegree, 1e-9)
	assert.InDelta(t, 69.1, oneDegree, 0.05)

	oakland := Coordinates{Lat: 37.8044, Lng: -122.2712}
	d := DistanceMiles(sf, oakland)
	assert.InDelta(t, 8.3, d, 0.2)
	assert.InDelta(t, d, DistanceMiles(oakland, sf), 1e-9)
	assert.Equal(t, "8.3 mi", FormatMiles(d))
}

func TestCoordinatesValid(t *testing.T) {
	t.Parallel()
	assert.True(t, Coordinates{Lat: 90, Lng: -180}.Valid())
	assert.False(t, Coordinates{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Coordinates{Lat: 0, Lng: 181}.Valid())
	assert.False(t, Coordinates{Lat: math.NaN(), Lng: 0}.Valid())
}

func TestCachedLocator_ReusesFreshFix(t *testing.T) {
	t.Parallel()
	calls := 0
	inner := LocatorFunc(func(context.Context) (Coordinates, error) {
		calls++
		return Coordinates{Lat: 40.7128, Lng: -74.0060}, nil
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewCachedLocator(inner, 0, 0)
	l.now = func() time.Time { return now }

	c, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40.7128, c.Lat)

	now = now.Add(DefaultMaxAge - time.Second)
	_, err = l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Second)
	_, err = l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedLocator_Failures(t *testing.T) {
	t.Parallel()

	_, err := NewCachedLocator(nil, 0, 0).Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewCachedLocator(Failing(ErrPermissionDenied), 0, 0).Locate(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	slow := LocatorFunc(func(ctx context.Context) (Coordinates, error) {
		<-ctx.Done()
		return Coordinates{}, ctx.Err()
	})
	_, err = NewCachedLocator(slow, 10*time.Millisecond, 0).Locate(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = NewCachedLocator(Static(Coordinates{Lat: 123, Lng: 0}), 0, 0).Locate(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCachedLocator_LocateWithAlwaysAsksSource(t *testing.T) {
	t.Parallel()
	calls := 0
	inner := LocatorFunc(func(context.Context) (Coordinates, error) {
		calls++
		return Coordinates{Lat: 9, Lng: 9}, nil
	})
	l := NewCachedLocator(inner, 0, 0)

	first, err := l.LocateWith(context.Background(), Static(Coordinates{Lat: 1, Lng: 2}))
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Lat: 1, Lng: 2}, first)

	second, err := l.LocateWith(context.Background(), Static(Coordinates{Lat: 3, Lng: 4}))
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Lat: 3, Lng: 4}, second)

	_, err = l.LocateWith(context.Background(), Failing(ErrPermissionDenied))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The last reported fix is what Locate reuses.
	c, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, c)
	assert.Zero(t, calls)

	_, err = l.LocateWith(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}
