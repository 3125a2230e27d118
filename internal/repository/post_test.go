package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inkd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateJoinsAuthor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	seedUser(t, db, "u1", nil)

	post := &models.Post{
		UserID:      "u1",
		ImageURL:    "https://cdn.example.com/rose.jpg",
		Description: models.StringPtr("fresh rose"),
	}
	require.NoError(t, repo.Create(context.Background(), post))

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, []string{}, post.Tags)
	require.NotNil(t, post.User)
	assert.Equal(t, "u1", *post.User.Handle)
	assert.Equal(t, "Artist u1", *post.User.Name)
}

func TestPostRepository_ListNewestFirstWithLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1", nil)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Post{
			ID:        fmt.Sprintf("p%d", i),
			UserID:    "u1",
			ImageURL:  "https://cdn.example.com/x.jpg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	posts, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "p4", posts[0].ID)
	assert.Equal(t, "p2", posts[2].ID)
	for _, p := range posts {
		require.NotNil(t, p.User)
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestPostRepository_GetByIDsKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1", nil)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.Post{ID: id, UserID: "u1", ImageURL: "https://cdn.example.com/x.jpg"}))
	}

	posts, err := repo.GetByIDs(ctx, []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "c", posts[0].ID)
	assert.Equal(t, "a", posts[1].ID)

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostRepository_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewPostRepository(db).GetByID(context.Background(), "nope")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestPostRepository_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1", nil)
	seedUser(t, db, "u2", nil)

	require.NoError(t, repo.Create(ctx, &models.Post{UserID: "u1", ImageURL: "https://cdn.example.com/1.jpg", Tags: []string{"dotwork"}}))
	require.NoError(t, repo.Create(ctx, &models.Post{UserID: "u2", ImageURL: "https://cdn.example.com/2.jpg"}))

	posts, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"dotwork"}, posts[0].Tags)
}
