package store

import (
	"context"
	"sync"

	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/remote"
	"inkd/internal/repository"
	"inkd/internal/validation"

	"golang.org/x/sync/errgroup"
)

// FeedState is a snapshot of the Feed container.
type FeedState struct {
	Posts        []models.Post `json:"posts"`
	Loading      bool          `json:"loading"`
	Error        *FetchError   `json:"error,omitempty"`
	PostsVersion uint64        `json:"posts_version"`

	Highlights        *models.HighlightBundle `json:"daily_highlights"`
	HighlightsLoading bool                    `json:"highlights_loading"`
	HighlightsError   *FetchError             `json:"highlights_error,omitempty"`
}

// Feed owns the global chronological post collection and the daily highlights.
type Feed struct {
	deps   Deps
	app    *AppContext
	events *emitter

	mu         sync.RWMutex
	posts      collection[models.Post]
	highlights collection[models.HighlightBundle]
}

func newFeed(deps Deps, app *AppContext, events *emitter) *Feed {
	return &Feed{deps: deps, app: app, events: events}
}

// Snapshot returns a copy of the feed state.
func (f *Feed) Snapshot() FeedState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st := FeedState{
		Posts:             f.posts.snapshot(),
		Loading:           f.posts.loading,
		Error:             f.posts.err,
		PostsVersion:      f.posts.version,
		HighlightsLoading: f.highlights.loading,
		HighlightsError:   f.highlights.err,
	}
	if len(f.highlights.items) > 0 {
		b := f.highlights.items[0]
		b.Suggestions = append([]models.Post(nil), b.Suggestions...)
		st.Highlights = &b
	}
	return st
}

func (f *Feed) limit() int {
	if f.deps.FeedLimit > 0 {
		return f.deps.FeedLimit
	}
	return repository.DefaultFeedLimit
}

// FetchPosts replaces the collection with the newest posts and their authors.
func (f *Feed) FetchPosts(ctx context.Context) {
	done := observability.TrackOperation("feed", "fetch_posts")
	f.mu.Lock()
	seq := f.posts.begin()
	f.mu.Unlock()

	posts, err := f.deps.Remote.Posts.List(ctx, f.limit())
	if err != nil {
		logReadFailure(ctx, "feed", "fetch_posts", err)
	}

	f.mu.Lock()
	applied := f.posts.finish(seq, posts, err)
	version := f.posts.version
	f.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		f.events.emit("feed", "posts", version, nil)
	}
}

// FetchDailyHighlights loads today's bundle. A day without a row yields an
// empty bundle rather than an error.
func (f *Feed) FetchDailyHighlights(ctx context.Context) {
	done := observability.TrackOperation("feed", "fetch_highlights")
	f.mu.Lock()
	seq := f.highlights.begin()
	f.mu.Unlock()

	bundle, err := f.loadHighlights(ctx, models.HighlightDate(f.deps.now()))
	if err != nil {
		logReadFailure(ctx, "feed", "fetch_highlights", err)
	}

	var items []models.HighlightBundle
	if err == nil {
		items = []models.HighlightBundle{*bundle}
	}
	f.mu.Lock()
	applied := f.highlights.finish(seq, items, err)
	f.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		f.events.emit("feed", "highlights", 0, nil)
	}
}

// loadHighlights resolves the row's three references concurrently. Dangling
// references are skipped; any other failure fails the whole read.
func (f *Feed) loadHighlights(ctx context.Context, date string) (*models.HighlightBundle, error) {
	bundle := &models.HighlightBundle{Suggestions: []models.Post{}}

	row, err := f.deps.Remote.Highlights.GetByDate(ctx, date)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return bundle, nil
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if row.ArtworkPostID != nil && *row.ArtworkPostID != "" {
		g.Go(func() error {
			post, err := f.deps.Remote.Posts.GetByID(gctx, *row.ArtworkPostID)
			if err != nil {
				return ignoreNotFound(err)
			}
			bundle.ArtworkOfTheDay = post
			return nil
		})
	}
	if row.ArtistUserID != nil && *row.ArtistUserID != "" {
		g.Go(func() error {
			user, err := f.deps.Remote.Users.GetByID(gctx, *row.ArtistUserID)
			if err != nil {
				return ignoreNotFound(err)
			}
			bundle.ArtistOfTheDay = user
			return nil
		})
	}
	if len(row.Suggestions) > 0 {
		g.Go(func() error {
			posts, err := f.deps.Remote.Posts.GetByIDs(gctx, row.Suggestions)
			if err != nil {
				return err
			}
			bundle.Suggestions = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func ignoreNotFound(err error) error {
	if models.IsKind(err, models.KindNotFound) {
		return nil
	}
	return err
}

// CreatePost inserts a post owned by the signed-in identity and prepends it,
// unless the feed was refetched while the insert was in flight.
func (f *Feed) CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	done := observability.TrackOperation("feed", "create_post")
	userID := f.app.UserID()
	if userID == "" {
		done("error")
		return nil, notAuthenticated()
	}
	if err := validation.ValidatePostInput(in); err != nil {
		done("error")
		return nil, models.NewValidationError(err.Error())
	}

	f.mu.RLock()
	version := f.posts.version
	f.mu.RUnlock()

	post := &models.Post{
		UserID:      userID,
		ImageURL:    in.ImageURL,
		Description: models.StringPtr(in.Description),
		Location:    models.StringPtr(in.Location),
		Tags:        in.Tags,
	}
	if err := f.deps.Remote.Posts.Create(ctx, post); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}

	f.mu.Lock()
	applied := f.posts.prepend(version, *post)
	current := f.posts.version
	f.mu.Unlock()

	done(outcome(applied, nil))
	f.events.emit("feed", "post_created", current, post)
	return post, nil
}

// RefreshFeed re-runs both reads, posts first.
func (f *Feed) RefreshFeed(ctx context.Context) {
	f.FetchPosts(ctx)
	f.FetchDailyHighlights(ctx)
}

// GetPost loads one post with its author for the detail page.
func (f *Feed) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := f.deps.Remote.Posts.GetByID(ctx, id)
	if err != nil {
		return nil, remote.Classify(err)
	}
	return post, nil
}
