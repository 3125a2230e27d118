package server

import (
	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/gofiber/fiber/v2"
)

const defaultEventLimit = 50

// SendMessageRequest is the body of POST /api/assistant/messages.
type SendMessageRequest struct {
	Content  string `json:"content"`
	ArtistID string `json:"artist_id"`
}

// GetAssistantMessages handles GET /api/assistant/messages
// @Summary Assistant thread
// @Description Loads the conversation oldest first. Messages the artist sent have role user.
// @Tags assistant
// @Produce json
// @Security BearerAuth
// @Param artist_id query string false "Artist ID, defaults to the signed-in user"
// @Success 200 {object} store.AssistantState
// @Failure 401 {object} models.ErrorResponse
// @Router /assistant/messages [get]
func (s *Server) GetAssistantMessages(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	if err := w.Assistant.FetchMessages(c.UserContext(), c.Query("artist_id")); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Assistant.Snapshot())
}

// SendAssistantMessage handles POST /api/assistant/messages
// @Summary Message the assistant
// @Description Stores the message and, when the assistant is enabled in settings, schedules a reply pushed over the websocket.
// @Tags assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} models.AssistantMessage
// @Failure 400 {object} models.ErrorResponse
// @Router /assistant/messages [post]
func (s *Server) SendAssistantMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := currentWorkspace(c).Assistant.SendMessage(c.UserContext(), req.Content, req.ArtistID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetAssistantReports handles GET /api/assistant/reports
// @Summary Market research reports
// @Tags assistant
// @Produce json
// @Security BearerAuth
// @Param artist_id query string false "Artist ID"
// @Success 200 {object} store.AssistantState
// @Router /assistant/reports [get]
func (s *Server) GetAssistantReports(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	if err := w.Assistant.FetchReports(c.UserContext(), c.Query("artist_id")); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Assistant.Snapshot())
}

// RequestMarketResearch handles POST /api/assistant/reports
// @Summary Request market research
// @Description Files a pending report. Progress arrives over the websocket and in later report fetches.
// @Tags assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body store.ResearchRequest true "Research request"
// @Success 202 {object} models.AssistantReport
// @Failure 400 {object} models.ErrorResponse
// @Router /assistant/reports [post]
func (s *Server) RequestMarketResearch(c *fiber.Ctx) error {
	var req store.ResearchRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	report, err := currentWorkspace(c).Assistant.RequestMarketResearch(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(report)
}

// GetAssistantSettings handles GET /api/assistant/settings
// @Summary Assistant settings
// @Tags assistant
// @Produce json
// @Security BearerAuth
// @Param artist_id query string false "Artist ID"
// @Success 200 {object} store.AssistantState
// @Router /assistant/settings [get]
func (s *Server) GetAssistantSettings(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	if err := w.Assistant.FetchSettings(c.UserContext(), c.Query("artist_id")); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Assistant.Snapshot())
}

// UpdateAssistantSettings handles PUT /api/assistant/settings
// @Summary Update assistant settings
// @Tags assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body store.SettingsInput true "Settings"
// @Success 200 {object} models.AssistantSettings
// @Failure 400 {object} models.ErrorResponse
// @Router /assistant/settings [put]
func (s *Server) UpdateAssistantSettings(c *fiber.Ctx) error {
	var req store.SettingsInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	settings, err := currentWorkspace(c).Assistant.UpdateSettings(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(settings)
}

// GetAssistantEvents handles GET /api/assistant/events
// @Summary Assistant activity log
// @Tags assistant
// @Produce json
// @Security BearerAuth
// @Param artist_id query string false "Artist ID"
// @Param limit query int false "Max events" default(50)
// @Success 200 {array} models.AssistantEvent
// @Router /assistant/events [get]
func (s *Server) GetAssistantEvents(c *fiber.Ctx) error {
	page := parsePagination(c, defaultEventLimit)
	events, err := currentWorkspace(c).Assistant.Events(c.UserContext(), c.Query("artist_id"), page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(events)
}
