package server

import (
	"net/url"

	"inkd/internal/models"
	"inkd/internal/store"

	"github.com/gofiber/fiber/v2"
)

// profileID resolves the :id param, where "me" is the signed-in user.
func profileID(c *fiber.Ctx) (string, error) {
	if c.Params("id") == "me" {
		if id := currentUserID(c); id != "" {
			return id, nil
		}
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return "", errResponseWritten
	}
	return parseUUID(c, "id")
}

// GetProfile handles GET /api/profiles/:id
// @Summary Profile
// @Description Loads a profile. The signed-in user's missing row is created from sign-up data.
// @Tags profiles
// @Produce json
// @Param id path string true "User ID or me"
// @Success 200 {object} store.ProfileState
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := profileID(c)
	if err != nil {
		return nil
	}
	w := currentWorkspace(c)
	w.Profile.FetchProfile(c.UserContext(), id)
	st := w.Profile.Snapshot()
	if st.NotFound {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Profile", id))
	}
	return c.JSON(st)
}

// GetProfileByHandle handles GET /api/profiles/handle/:handle
// @Summary Get a profile by handle
// @Tags profiles
// @Produce json
// @Param handle path string true "Handle, with or without a leading @"
// @Success 200 {object} store.ProfileState
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/handle/{handle} [get]
func (s *Server) GetProfileByHandle(c *fiber.Ctx) error {
	handle, err := url.PathUnescape(c.Params("handle"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid handle"))
	}
	w := currentWorkspace(c)
	if _, err := w.Profile.FetchProfileByHandle(c.UserContext(), handle); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(w.Profile.Snapshot())
}

// GetProfilePosts handles GET /api/profiles/:id/posts
// @Summary A user's posts
// @Tags profiles
// @Produce json
// @Param id path string true "User ID or me"
// @Success 200 {object} object{user_id=string,posts=[]PostCard,error=store.FetchError}
// @Router /profiles/{id}/posts [get]
func (s *Server) GetProfilePosts(c *fiber.Ctx) error {
	id, err := profileID(c)
	if err != nil {
		return nil
	}
	w := currentWorkspace(c)
	w.Profile.FetchUserPosts(c.UserContext(), id)
	st := w.Profile.Snapshot()
	return c.JSON(fiber.Map{
		"user_id": st.UserID,
		"posts":   toCards(st.Posts),
		"error":   st.PostsError,
	})
}

// GetProfilePortfolio handles GET /api/profiles/:id/portfolio
// @Summary A user's portfolio
// @Description Items newest first, plus the same items grouped by category.
// @Tags profiles
// @Produce json
// @Param id path string true "User ID or me"
// @Success 200 {object} object{user_id=string,portfolio=[]models.PortfolioItem,groups=[]store.PortfolioGroup,error=store.FetchError}
// @Router /profiles/{id}/portfolio [get]
func (s *Server) GetProfilePortfolio(c *fiber.Ctx) error {
	id, err := profileID(c)
	if err != nil {
		return nil
	}
	w := currentWorkspace(c)
	w.Profile.FetchUserPortfolio(c.UserContext(), id)
	st := w.Profile.Snapshot()
	return c.JSON(fiber.Map{
		"user_id":   st.UserID,
		"portfolio": st.Portfolio,
		"groups":    store.GroupPortfolio(st.Portfolio),
		"error":     st.PortfolioError,
	})
}

// AddPortfolioItem handles POST /api/portfolio
// @Summary Add a portfolio item
// @Tags portfolio
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PortfolioInput true "Portfolio item"
// @Success 201 {object} models.PortfolioItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /portfolio [post]
func (s *Server) AddPortfolioItem(c *fiber.Ctx) error {
	var req models.PortfolioInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	item, err := currentWorkspace(c).Profile.AddPortfolioItem(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UploadDesign handles POST /api/portfolio/upload
// @Summary Upload a design into the portfolio
// @Tags portfolio
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image"
// @Param category formData string true "tattoo, flash or design"
// @Success 201 {object} models.PortfolioItem
// @Failure 400 {object} models.ErrorResponse
// @Router /portfolio/upload [post]
func (s *Server) UploadDesign(c *fiber.Ctx) error {
	filename, content, err := readFormFile(c, "file")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	item, err := currentWorkspace(c).Profile.UploadDesign(c.UserContext(), store.DesignUpload{
		Filename: filename,
		Content:  content,
		Category: models.PortfolioCategory(c.FormValue("category")),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}
