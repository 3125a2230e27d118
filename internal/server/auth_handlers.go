package server

import (
	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/gofiber/fiber/v2"
)

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	IsArtist bool   `json:"is_artist"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// AuthResponse carries the issued session and the resulting session state.
type AuthResponse struct {
	Session           *models.Session    `json:"session,omitempty"`
	State             store.SessionState `json:"state"`
	NeedsVerification bool               `json:"needs_verification"`
}

// Signup handles POST /api/auth/signup
// @Summary Create an account
// @Description Register with email and password plus profile fields. The account is signed in immediately.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	w := s.workspaces.Create(deviceID(c))
	res, err := w.Session.SignUp(c.UserContext(), req.Email, req.Password, models.ProfileFields{
		Name:     req.Name,
		Handle:   req.Handle,
		IsArtist: req.IsArtist,
	})
	if err != nil {
		w.Close()
		return models.RespondWithAppError(c, err)
	}

	resp := AuthResponse{
		Session:           res.Session,
		State:             w.Session.Snapshot(),
		NeedsVerification: res.NeedsVerification,
	}
	if res.Session != nil {
		s.register(w)
	} else {
		w.Close()
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles POST /api/auth/login
// @Summary Sign in
// @Description Exchange email and password for a session token. remember_me stores the email on this device.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	w := s.workspaces.Create(deviceID(c))
	sess, err := w.Session.SignIn(c.UserContext(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		w.Close()
		return models.RespondWithAppError(c, err)
	}
	s.register(w)

	return c.JSON(AuthResponse{Session: sess, State: w.Session.Snapshot()})
}

// Logout handles POST /api/auth/logout
// @Summary Sign out
// @Description Revoke the current session and drop its server-side state.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} store.SessionState
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	sid := currentSessionID(c)
	if err := w.Session.SignOut(c.UserContext()); err != nil {
		return models.RespondWithAppError(c, err)
	}
	state := w.Session.Snapshot()
	s.endSession(sid)
	return c.JSON(state)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh the session token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	sess, err := w.Session.Refresh(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(AuthResponse{Session: sess, State: w.Session.Snapshot()})
}

// GetSession handles GET /api/auth/session
// @Summary Current session state
// @Description Returns authenticated or unauthenticated; never an error for a missing token.
// @Tags auth
// @Produce json
// @Success 200 {object} store.SessionState
// @Router /auth/session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	return c.JSON(currentWorkspace(c).Session.Snapshot())
}

// GetRememberedEmail handles GET /api/auth/remembered
// @Summary Email remembered on this device
// @Tags auth
// @Produce json
// @Success 200 {object} object{email=string,remember_me=bool}
// @Router /auth/remembered [get]
func (s *Server) GetRememberedEmail(c *fiber.Ctx) error {
	email, ok := currentWorkspace(c).Session.RememberedEmail(c.UserContext())
	return c.JSON(fiber.Map{
		"email":       email,
		"remember_me": ok,
	})
}
