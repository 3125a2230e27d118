package repository

import (
	"context"

	"inkd/internal/models"
	"inkd/internal/observability"

	"gorm.io/gorm"
)

// DefaultFeedLimit is how many posts the feed loads.
const DefaultFeedLimit = 50

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	List(ctx context.Context, limit int) ([]models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withAuthor joins the author's display fields.
func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("User", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name", "handle", "profile_img")
	})
}

// Create inserts post and reloads it with the author attached.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return mapError(err, "Post", post.ID)
	}
	if err := withAuthor(r.db.WithContext(ctx)).Where("id = ?", post.ID).First(post).Error; err != nil {
		return mapError(err, "Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := withAuthor(r.db.WithContext(ctx)).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

// GetByIDs returns the posts that exist, in the order of ids.
func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := withAuthor(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, mapError(err, "Post", ids)
	}

	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// List returns the newest posts first.
func (r *postRepository) List(ctx context.Context, limit int) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	var posts []models.Post
	err := withAuthor(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, mapError(err, "Post", "feed")
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := withAuthor(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, mapError(err, "Post", userID)
	}
	return posts, nil
}
