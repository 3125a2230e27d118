package server

import (
	"inkd/internal/models"
	"inkd/internal/store"
	"inkd/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// cardTagLimit is how many tags a feed card shows before "+N more".
const cardTagLimit = 3

// PostCard is a post as a feed card renders it.
type PostCard struct {
	models.Post
	VisibleTags    []string `json:"visible_tags"`
	HiddenTagCount int      `json:"hidden_tag_count"`
}

func toCard(p models.Post) PostCard {
	shown, hidden := models.TruncateTags(p.Tags, cardTagLimit)
	return PostCard{Post: p, VisibleTags: shown, HiddenTagCount: hidden}
}

func toCards(posts []models.Post) []PostCard {
	cards := make([]PostCard, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, toCard(p))
	}
	return cards
}

// FeedResponse is the feed container state with card views of its posts.
type FeedResponse struct {
	store.FeedState
	Cards []PostCard `json:"cards"`
}

// CreatePostRequest is the body of POST /api/feed/posts. Tags may be sent as
// a list or as comma-separated text.
type CreatePostRequest struct {
	ImageURL    string   `json:"image_url"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
	TagsText    string   `json:"tags_text"`
}

func feedResponse(st store.FeedState) FeedResponse {
	return FeedResponse{FeedState: st, Cards: toCards(st.Posts)}
}

// GetFeed handles GET /api/feed
// @Summary Latest posts
// @Description Fetches the newest posts with their authors. A failed read keeps the previous posts and sets error.
// @Tags feed
// @Produce json
// @Success 200 {object} FeedResponse
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	w.Feed.FetchPosts(c.UserContext())
	return c.JSON(feedResponse(w.Feed.Snapshot()))
}

// GetHighlights handles GET /api/feed/highlights
// @Summary Today's highlights
// @Description Artwork of the day, artist of the day and suggested posts. Empty when nothing is curated for today.
// @Tags feed
// @Produce json
// @Success 200 {object} object{daily_highlights=models.HighlightBundle,error=store.FetchError}
// @Router /feed/highlights [get]
func (s *Server) GetHighlights(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	w.Feed.FetchDailyHighlights(c.UserContext())
	st := w.Feed.Snapshot()
	return c.JSON(fiber.Map{
		"daily_highlights": st.Highlights,
		"error":            st.HighlightsError,
	})
}

// RefreshFeed handles POST /api/feed/refresh
// @Summary Refresh posts and highlights
// @Tags feed
// @Produce json
// @Success 200 {object} FeedResponse
// @Router /feed/refresh [post]
func (s *Server) RefreshFeed(c *fiber.Ctx) error {
	w := currentWorkspace(c)
	w.Feed.RefreshFeed(c.UserContext())
	return c.JSON(feedResponse(w.Feed.Snapshot()))
}

// CreatePost handles POST /api/feed/posts
// @Summary Create a post
// @Description Creates a post for the signed-in user and puts it at the top of the feed.
// @Tags feed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} PostCard
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /feed/posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	tags := req.Tags
	if len(tags) == 0 && req.TagsText != "" {
		tags = validation.ParseTags(req.TagsText)
	}

	post, err := currentWorkspace(c).Feed.CreatePost(c.UserContext(), models.PostInput{
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Location:    req.Location,
		Tags:        tags,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCard(*post))
}

// GetPost handles GET /api/posts/:id
// @Summary Post detail
// @Tags feed
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} PostCard
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	post, err := currentWorkspace(c).Feed.GetPost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(toCard(*post))
}
