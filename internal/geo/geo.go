// Package geo holds coordinate math and the device-location abstraction used by
// the local artist directory.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// EarthRadiusMiles is the mean Earth radius used for distances.
const EarthRadiusMiles = 3959.0

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxAge  = 10 * time.Minute
)

var (
	ErrUnsupported      = errors.New("geolocation is not supported")
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("geolocation timed out")
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c is a real position.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lng)
}

// DistanceMiles is the great-circle distance between a and b (haversine).
func DistanceMiles(a, b Coordinates) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// FormatMiles renders a distance the way artist cards show it.
func FormatMiles(miles float64) string {
	return fmt.Sprintf("%.1f mi", miles)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Locator reports the device's current position.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (Coordinates, error) { return f(ctx) }

// Static returns a Locator that always reports c, such as a position the
// browser already resolved.
func Static(c Coordinates) Locator {
	return LocatorFunc(func(ctx context.Context) (Coordinates, error) {
		if err := ctx.Err(); err != nil {
			return Coordinates{}, err
		}
		return c, nil
	})
}

// Failing returns a Locator that always fails with err.
func Failing(err error) Locator {
	return LocatorFunc(func(context.Context) (Coordinates, error) { return Coordinates{}, err })
}

// CachedLocator bounds each lookup by a timeout. Its own inner locator is only
// asked again once the last fix is older than maxAge.
type CachedLocator struct {
	inner   Locator
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time

	mu    sync.Mutex
	last  Coordinates
	fixAt time.Time
}

// NewCachedLocator wraps inner. Zero durations use the defaults.
func NewCachedLocator(inner Locator, timeout, maxAge time.Duration) *CachedLocator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CachedLocator{inner: inner, timeout: timeout, maxAge: maxAge, now: time.Now}
}

// Locate returns the cached fix when fresh, otherwise asks the inner locator.
func (l *CachedLocator) Locate(ctx context.Context) (Coordinates, error) {
	if l.inner == nil {
		return Coordinates{}, ErrUnsupported
	}
	l.mu.Lock()
	if !l.fixAt.IsZero() && l.now().Sub(l.fixAt) < l.maxAge {
		c := l.last
		l.mu.Unlock()
		return c, nil
	}
	l.mu.Unlock()
	return l.lookup(ctx, l.inner)
}

// LocateWith always asks source, which applies its own max-age (a browser
// report does). A failure is returned as is. A success refreshes the fix
// Locate reuses.
func (l *CachedLocator) LocateWith(ctx context.Context, source Locator) (Coordinates, error) {
	if source == nil {
		return Coordinates{}, ErrUnsupported
	}
	return l.lookup(ctx, source)
}

func (l *CachedLocator) lookup(ctx context.Context, source Locator) (Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	c, err := source.Locate(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Coordinates{}, ErrTimeout
		}
		return Coordinates{}, err
	}
	if !c.Valid() {
		return Coordinates{}, ErrUnavailable
	}

	l.mu.Lock()
	l.last, l.fixAt = c, l.now()
	l.mu.Unlock()
	return c, nil
}
