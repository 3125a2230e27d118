package server

import (
	"errors"
	"io"
	"strings"
	"time"
	"unicode"

	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	maxPaginationLimit = 100

	deviceHeader = "X-Device-ID"
	deviceCookie = "inkd_device"
	maxDeviceID  = 64

	workspaceKey = "workspace"
	ephemeralKey = "workspace_ephemeral"
	// Anonymous workspaces are keyed by device so browsing state survives between requests.
	anonymousPrefix = "device:"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseUUID extracts a route parameter by name as a UUID string.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseUUID(c *fiber.Ctx, param string) (string, error) {
	raw := strings.TrimSpace(c.Params(param))
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return "", errResponseWritten
	}
	return id.String(), nil
}

// parseBody decodes the request body into dest.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// readFormFile returns the filename and content of a multipart file field.
func readFormFile(c *fiber.Ctx, field string) (string, []byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", nil, models.NewValidationError("No file uploaded")
	}
	src, err := file.Open()
	if err != nil {
		return "", nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return "", nil, models.NewValidationError("Unable to read uploaded file")
	}
	return file.Filename, content, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "artistId" -> "artist ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

func validDeviceID(id string) bool {
	if id == "" || len(id) > maxDeviceID {
		return false
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// presentedDeviceID returns the device id the client sent, if any.
func presentedDeviceID(c *fiber.Ctx) (string, bool) {
	if id := strings.TrimSpace(c.Get(deviceHeader)); validDeviceID(id) {
		return id, true
	}
	if id := c.Cookies(deviceCookie); validDeviceID(id) {
		return id, true
	}
	return "", false
}

// deviceID identifies the browser for remember-me and anonymous browsing state.
// Clients may send X-Device-ID; otherwise a long-lived cookie is issued.
func deviceID(c *fiber.Ctx) string {
	if id, ok := presentedDeviceID(c); ok {
		return id
	}
	if id, ok := c.Locals(deviceCookie).(string); ok {
		return id
	}

	id := uuid.NewString()
	c.Locals(deviceCookie, id)
	c.Cookie(&fiber.Cookie{
		Name:     deviceCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return id
}

// currentUserID returns the authenticated user's id, or "".
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

func currentSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals("sessionID").(string)
	return id
}

// currentWorkspace returns the workspace resolved by the workspace middleware.
func currentWorkspace(c *fiber.Ctx) *store.Workspace {
	w, _ := c.Locals(workspaceKey).(*store.Workspace)
	return w
}

// workspace resolves the caller's workspace: the session's when signed in, the
// device's otherwise. A session seen for the first time on this replica is
// restored from its token.
func (s *Server) workspace() fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := s.resolveWorkspace(c)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if ephemeral, _ := c.Locals(ephemeralKey).(bool); ephemeral {
			defer w.Close()
		}
		c.Locals(workspaceKey, w)
		return c.Next()
	}
}

func (s *Server) resolveWorkspace(c *fiber.Ctx) (*store.Workspace, error) {
	sid := currentSessionID(c)
	if sid == "" {
		device, ok := presentedDeviceID(c)
		if !ok {
			// First contact: only register once the client sends the id back.
			w := s.workspaces.Create(deviceID(c))
			_ = w.Session.Initialize(c.UserContext(), "")
			c.Locals(ephemeralKey, true)
			return w, nil
		}
		key := anonymousPrefix + device
		if w, ok := s.workspaces.Get(key); ok {
			return w, nil
		}

		s.createMu.Lock()
		defer s.createMu.Unlock()
		if w, ok := s.workspaces.Get(key); ok {
			return w, nil
		}
		w := s.workspaces.Create(device)
		_ = w.Session.Initialize(c.UserContext(), "")
		s.workspaces.Put(key, w)
		return w, nil
	}

	if w, ok := s.workspaces.Get(sid); ok {
		return w, nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()
	if w, ok := s.workspaces.Get(sid); ok {
		return w, nil
	}

	token, _ := c.Locals("accessToken").(string)
	w := s.workspaces.Create(deviceID(c))
	if err := w.Session.Initialize(c.UserContext(), token); err != nil {
		w.Close()
		return nil, err
	}
	if w.ID() != sid {
		w.Close()
		return nil, models.NewUnauthorizedError("Session is no longer valid")
	}
	s.register(w)
	return w, nil
}
