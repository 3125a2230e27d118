package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"inkd/internal/featureflags"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/remote"
	"inkd/internal/storage"
	"inkd/internal/validation"
)

// ProfileState is a snapshot of the Profile container.
type ProfileState struct {
	UserID   string       `json:"user_id"`
	Profile  *models.User `json:"profile"`
	Loading  bool         `json:"loading"`
	NotFound bool         `json:"not_found"`
	Error    *FetchError  `json:"error,omitempty"`

	Posts        []models.Post `json:"posts"`
	PostsLoading bool          `json:"posts_loading"`
	PostsError   *FetchError   `json:"posts_error,omitempty"`

	Portfolio        []models.PortfolioItem `json:"portfolio"`
	PortfolioLoading bool                   `json:"portfolio_loading"`
	PortfolioError   *FetchError            `json:"portfolio_error,omitempty"`
}

// PortfolioGroup is one category of a grouped portfolio.
type PortfolioGroup struct {
	Category models.PortfolioCategory `json:"category"`
	Items    []models.PortfolioItem   `json:"items"`
}

// DesignUpload is an image to add to the signed-in artist's portfolio.
type DesignUpload struct {
	Filename string
	Content  []byte
	Category models.PortfolioCategory
}

// Profile owns one viewed profile plus its posts and portfolio. Everything it
// holds belongs to the most recently requested user id.
type Profile struct {
	deps   Deps
	app    *AppContext
	events *emitter

	mu        sync.RWMutex
	userID    string
	notFound  bool
	profile   collection[models.User]
	posts     collection[models.Post]
	portfolio collection[models.PortfolioItem]
}

func newProfile(deps Deps, app *AppContext, events *emitter) *Profile {
	return &Profile{deps: deps, app: app, events: events}
}

// Snapshot returns a copy of the profile state.
func (p *Profile) Snapshot() ProfileState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := ProfileState{
		UserID:           p.userID,
		Loading:          p.profile.loading,
		NotFound:         p.notFound,
		Error:            p.profile.err,
		Posts:            p.posts.snapshot(),
		PostsLoading:     p.posts.loading,
		PostsError:       p.posts.err,
		Portfolio:        p.portfolio.snapshot(),
		PortfolioLoading: p.portfolio.loading,
		PortfolioError:   p.portfolio.err,
	}
	if len(p.profile.items) > 0 {
		u := p.profile.items[0]
		st.Profile = &u
	}
	return st
}

// target switches the container to userID, discarding another user's data.
// Caller holds the lock.
func (p *Profile) target(userID string) {
	if p.userID == userID {
		return
	}
	p.userID = userID
	p.notFound = false
	p.profile.reset()
	p.posts.reset()
	p.portfolio.reset()
}

// FetchProfile loads a profile row. When the signed-in identity has no row yet
// one is created from its sign-up metadata; any other missing row is reported
// as not found.
func (p *Profile) FetchProfile(ctx context.Context, userID string) {
	done := observability.TrackOperation("profile", "fetch_profile")
	p.mu.Lock()
	p.target(userID)
	seq := p.profile.begin()
	p.mu.Unlock()

	user, err := p.deps.Remote.Users.GetByID(ctx, userID)
	notFound := false
	if models.IsKind(err, models.KindNotFound) {
		user, err = p.selfHeal(ctx, userID)
		notFound = user == nil && err == nil
	}
	if err != nil {
		logReadFailure(ctx, "profile", "fetch_profile", err)
	}

	var items []models.User
	if user != nil {
		items = []models.User{*user}
	}

	p.mu.Lock()
	applied := p.userID == userID && p.profile.finish(seq, items, err)
	if applied && err == nil {
		p.notFound = notFound
	}
	p.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		p.events.emit("profile", "profile", 0, nil)
	}
}

// FetchProfileByHandle resolves handle, with or without a leading "@", and
// loads that user's profile. It returns the resolved user id.
func (p *Profile) FetchProfileByHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return "", models.NewValidationError("handle is required")
	}
	if err := validation.ValidateHandle(handle); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	user, err := p.deps.Remote.Users.GetByHandle(ctx, handle)
	if err != nil {
		return "", remote.Classify(err)
	}
	p.FetchProfile(ctx, user.ID)
	return user.ID, nil
}

// selfHeal creates the missing row for the signed-in identity. It returns
// (nil, nil) when userID is somebody else.
func (p *Profile) selfHeal(ctx context.Context, userID string) (*models.User, error) {
	me := p.app.User()
	if me == nil || me.ID != userID {
		return nil, nil
	}

	row := profileFromIdentity(me)
	err := p.deps.Remote.Users.Create(ctx, row)
	if models.IsKind(err, models.KindValidation) {
		// Created concurrently, e.g. by sign-up finishing late.
		return p.deps.Remote.Users.GetByID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	observability.Log().InfoContext(ctx, "created missing profile row", slog.String("user_id", userID))
	return row, nil
}

// FetchUserPosts loads userID's posts, newest first.
func (p *Profile) FetchUserPosts(ctx context.Context, userID string) {
	done := observability.TrackOperation("profile", "fetch_posts")
	p.mu.Lock()
	p.target(userID)
	seq := p.posts.begin()
	p.mu.Unlock()

	posts, err := p.deps.Remote.Posts.ListByUser(ctx, userID)
	if err != nil {
		logReadFailure(ctx, "profile", "fetch_posts", err)
	}

	p.mu.Lock()
	applied := p.userID == userID && p.posts.finish(seq, posts, err)
	p.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		p.events.emit("profile", "posts", 0, nil)
	}
}

// FetchUserPortfolio loads userID's portfolio, newest first.
func (p *Profile) FetchUserPortfolio(ctx context.Context, userID string) {
	done := observability.TrackOperation("profile", "fetch_portfolio")
	p.mu.Lock()
	p.target(userID)
	seq := p.portfolio.begin()
	p.mu.Unlock()

	items, err := p.deps.Remote.Portfolio.ListByUser(ctx, userID)
	if err != nil {
		logReadFailure(ctx, "profile", "fetch_portfolio", err)
	}

	p.mu.Lock()
	applied := p.userID == userID && p.portfolio.finish(seq, items, err)
	p.mu.Unlock()

	done(outcome(applied, err))
	if applied {
		p.events.emit("profile", "portfolio", 0, nil)
	}
}

// AddPortfolioItem inserts an item owned by the signed-in identity and
// prepends it when that identity's profile is the one being shown.
func (p *Profile) AddPortfolioItem(ctx context.Context, in models.PortfolioInput) (*models.PortfolioItem, error) {
	done := observability.TrackOperation("profile", "add_portfolio_item")
	userID := p.app.UserID()
	if userID == "" {
		done("error")
		return nil, notAuthenticated()
	}
	if in.UserID != "" && in.UserID != userID {
		done("error")
		return nil, models.NewUnauthorizedError("Cannot add portfolio items for another user")
	}
	in.UserID = userID
	if err := validation.ValidatePortfolioInput(in); err != nil {
		done("error")
		return nil, models.NewValidationError(err.Error())
	}

	p.mu.RLock()
	version := p.portfolio.version
	p.mu.RUnlock()

	item := &models.PortfolioItem{UserID: userID, ImageURL: in.ImageURL, Category: in.Category}
	if err := p.deps.Remote.Portfolio.Create(ctx, item); err != nil {
		done("error")
		return nil, remote.Classify(err)
	}

	p.mu.Lock()
	applied := p.userID == userID && p.portfolio.prepend(version, *item)
	p.mu.Unlock()

	done(outcome(applied, nil))
	p.events.emit("profile", "portfolio_item_added", 0, item)
	return item, nil
}

// UploadDesign stores an image under the category folder of the portfolio
// bucket and adds it as a portfolio item. The upload is removed again if the
// row cannot be created.
func (p *Profile) UploadDesign(ctx context.Context, in DesignUpload) (*models.PortfolioItem, error) {
	userID := p.app.UserID()
	if userID == "" {
		return nil, notAuthenticated()
	}
	if !p.deps.Flags.Enabled(featureflags.Uploads, userID) {
		return nil, featureDisabled("Uploads are not enabled for this account")
	}
	if !in.Category.Valid() {
		return nil, models.NewValidationError("Category must be tattoo, flash or design")
	}

	obj, err := p.deps.Remote.Storage.Upload(ctx, storage.UploadInput{
		Bucket:   storage.BucketPortfolio,
		UserID:   userID,
		Folder:   string(in.Category),
		Filename: in.Filename,
		Content:  in.Content,
	})
	if err != nil {
		return nil, remote.Classify(err)
	}

	item, err := p.AddPortfolioItem(ctx, models.PortfolioInput{UserID: userID, ImageURL: obj.URL, Category: in.Category})
	if err != nil {
		if rmErr := p.deps.Remote.Storage.Remove(ctx, storage.BucketPortfolio, obj.Path); rmErr != nil {
			observability.Log().WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("path", obj.Path), slog.String("error", rmErr.Error()))
		}
		return nil, err
	}
	return item, nil
}

// GroupPortfolio groups the shown portfolio by category in display order.
// Empty categories are omitted.
func (p *Profile) GroupPortfolio() []PortfolioGroup {
	p.mu.RLock()
	items := p.portfolio.snapshot()
	p.mu.RUnlock()
	return GroupPortfolio(items)
}

// GroupPortfolio groups items by category, keeping their order within a group.
func GroupPortfolio(items []models.PortfolioItem) []PortfolioGroup {
	byCategory := make(map[models.PortfolioCategory][]models.PortfolioItem)
	for _, it := range items {
		byCategory[it.Category] = append(byCategory[it.Category], it)
	}
	groups := make([]PortfolioGroup, 0, len(models.PortfolioCategories))
	for _, c := range models.PortfolioCategories {
		if len(byCategory[c]) > 0 {
			groups = append(groups, PortfolioGroup{Category: c, Items: byCategory[c]})
		}
	}
	return groups
}

func featureDisabled(message string) error {
	return &models.AppError{
		Kind:    models.KindValidation,
		Code:    "FEATURE_DISABLED",
		Message: message,
	}
}
