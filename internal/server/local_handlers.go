package server

import (
	"errors"
	"net/url"

	"inkd/internal/geo"
	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/gofiber/fiber/v2"
)

// LocationReport is what the browser's geolocation call produced: a position,
// or one of permission_denied, unavailable, timeout, unsupported.
type LocationReport struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

var locationErrors = map[string]error{
	"permission_denied": geo.ErrPermissionDenied,
	"unavailable":       geo.ErrUnavailable,
	"timeout":           geo.ErrTimeout,
	"unsupported":       geo.ErrUnsupported,
}

// source turns the report into a locator for the container.
func (r LocationReport) source() (geo.Locator, error) {
	if r.Error != "" {
		err, ok := locationErrors[r.Error]
		if !ok {
			return nil, models.NewValidationError("Unknown geolocation error " + r.Error)
		}
		return geo.Failing(err), nil
	}
	if r.Latitude == nil || r.Longitude == nil {
		return nil, models.NewValidationError("latitude and longitude are required")
	}
	return geo.Static(geo.Coordinates{Lat: *r.Latitude, Lng: *r.Longitude}), nil
}

// GetLocal handles GET /api/local
// @Summary Local directory state
// @Description Current artists, filters, selection and map viewport without refetching.
// @Tags local
// @Produce json
// @Success 200 {object} store.LocalState
// @Router /local [get]
func (s *Server) GetLocal(c *fiber.Ctx) error {
	return c.JSON(currentWorkspace(c).Local.Snapshot())
}

// FetchArtists handles GET /api/local/artists
// @Summary Fetch artists
// @Description Refetches artists and applies the current search text and style filters.
// @Tags local
// @Produce json
// @Success 200 {object} store.LocalState
// @Router /local/artists [get]
func (s *Server) FetchArtists(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	w.Local.FetchArtists(c.UserContext())
	return c.JSON(w.Local.Snapshot())
}

// GetDistances handles GET /api/local/distances
// @Summary Artist distances
// @Description Each shown artist with the distance from the user's location, when known.
// @Tags local
// @Produce json
// @Success 200 {array} store.ArtistDistance
// @Router /local/distances [get]
func (s *Server) GetDistances(c *fiber.Ctx) error {
	return c.JSON(currentWorkspace(c).Local.Distances())
}

// SetSearchQuery handles PUT /api/local/search
// @Summary Set the search text
// @Tags local
// @Accept json
// @Produce json
// @Param request body object{query=string} true "Search"
// @Success 200 {object} store.LocalState
// @Router /local/search [put]
func (s *Server) SetSearchQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	w := currentWorkspace(c)
	w.Local.SetSearchQuery(c.UserContext(), req.Query)
	return c.JSON(w.Local.Snapshot())
}

// SetStyleFilters handles PUT /api/local/styles
// @Summary Replace the style filters
// @Tags local
// @Accept json
// @Produce json
// @Param request body object{styles=[]string} true "Styles"
// @Success 200 {object} store.LocalState
// @Router /local/styles [put]
func (s *Server) SetStyleFilters(c *fiber.Ctx) error {
	var req struct {
		Styles []string `json:"styles"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	w := currentWorkspace(c)
	w.Local.SetStyleFilters(c.UserContext(), req.Styles)
	return c.JSON(w.Local.Snapshot())
}

func styleParam(c *fiber.Ctx) string {
	style := c.Params("style")
	if decoded, err := url.PathUnescape(style); err == nil {
		return decoded
	}
	return style
}

// AddStyleFilter handles POST /api/local/styles/:style
// @Summary Add a style filter
// @Tags local
// @Produce json
// @Param style path string true "Style"
// @Success 200 {object} store.LocalState
// @Router /local/styles/{style} [post]
func (s *Server) AddStyleFilter(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	w.Local.AddStyleFilter(c.UserContext(), styleParam(c))
	return c.JSON(w.Local.Snapshot())
}

// RemoveStyleFilter handles DELETE /api/local/styles/:style
// @Summary Remove a style filter
// @Tags local
// @Produce json
// @Param style path string true "Style"
// @Success 200 {object} store.LocalState
// @Router /local/styles/{style} [delete]
func (s *Server) RemoveStyleFilter(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	w.Local.RemoveStyleFilter(c.UserContext(), styleParam(c))
	return c.JSON(w.Local.Snapshot())
}

// SetSelectedArtist handles PUT /api/local/selected
// @Summary Select an artist
// @Description Highlights the artist at index and recentres the map on it; -1 clears the selection.
// @Tags local
// @Accept json
// @Produce json
// @Param request body object{index=int} true "Selection"
// @Success 200 {object} store.LocalState
// @Failure 400 {object} models.ErrorResponse
// @Router /local/selected [put]
func (s *Server) SetSelectedArtist(c *fiber.Ctx) error {
	var req struct {
		Index *int `json:"index"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Index == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("index is required"))
	}
	w := currentWorkspace(c)
	if err := w.Local.SetSelectedArtistIndex(*req.Index); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Local.Snapshot())
}

// SetMapViewport handles PUT /api/local/viewport
// @Summary Record a map camera move
// @Tags local
// @Accept json
// @Produce json
// @Param request body store.Viewport true "Viewport"
// @Success 200 {object} store.Viewport
// @Failure 400 {object} models.ErrorResponse
// @Router /local/viewport [put]
func (s *Server) SetMapViewport(c *fiber.Ctx) error {
	var req store.Viewport
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	w := currentWorkspace(c)
	if err := w.Local.SetMapViewport(req); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Local.Snapshot().Viewport)
}

// SetFullscreenMap handles PUT /api/local/fullscreen
// @Summary Toggle the fullscreen map
// @Tags local
// @Accept json
// @Produce json
// @Param request body object{fullscreen=bool} true "Fullscreen"
// @Success 200 {object} store.LocalState
// @Router /local/fullscreen [put]
func (s *Server) SetFullscreenMap(c *fiber.Ctx) error {
	var req struct {
		Fullscreen bool `json:"fullscreen"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	w := currentWorkspace(c)
	w.Local.SetFullscreenMap(req.Fullscreen)
	return c.JSON(w.Local.Snapshot())
}

// ReportLocation handles POST /api/local/location
// @Summary Report the device position
// @Description Passes the browser's geolocation result to the directory. A recent fix is reused.
// @Tags local
// @Accept json
// @Produce json
// @Param request body LocationReport true "Geolocation result"
// @Success 200 {object} store.LocalState
// @Failure 400 {object} models.ErrorResponse
// @Router /local/location [post]
func (s *Server) ReportLocation(c *fiber.Ctx) error {
	var req LocationReport
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	source, err := req.source()
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	w := currentWorkspace(c)
	if _, err := w.Local.RequestLocation(c.UserContext(), source); err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = &models.AppError{Kind: models.KindValidation, Code: "GEOLOCATION_FAILED", Message: err.Error()}
		}
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Local.Snapshot())
}

// GetMapConfig handles GET /api/config/map
// @Summary Map widget configuration
// @Tags config
// @Produce json
// @Success 200 {object} object{access_token=string,default_viewport=store.Viewport,artist_zoom=number}
// @Router /config/map [get]
func (s *Server) GetMapConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"access_token":     s.config.MapAccessToken,
		"default_viewport": store.DefaultViewport,
		"artist_zoom":      store.ArtistZoom,
	})
}
