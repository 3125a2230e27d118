// Package remote is the single boundary between the state containers and the
// backend: identity, relational rows and object storage.
package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"inkd/internal/auth"
	"inkd/internal/cache"
	"inkd/internal/models"
	"inkd/internal/repository"
	"inkd/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Auth is the identity service as seen by the containers.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, metadata models.IdentityMetadata) (*models.SignUpResult, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	RefreshSession(ctx context.Context, token string) (*models.Session, error)
	OnAuthStateChange(ctx context.Context, sessionID string, fn func(models.AuthChange)) func()
}

var _ Auth = (*auth.Service)(nil)

// Client bundles the backend services a workspace talks to.
type Client struct {
	Auth         Auth
	Users        repository.UserRepository
	Posts        repository.PostRepository
	Portfolio    repository.PortfolioRepository
	Messages     repository.MessageRepository
	Appointments repository.AppointmentRepository
	Highlights   repository.HighlightRepository
	Assistant    repository.AssistantRepository
	Storage      storage.Storage
}

// NewClient wires the GORM repositories over db. c may be nil.
func NewClient(db *gorm.DB, c *cache.Cache, authService Auth, store storage.Storage) *Client {
	return &Client{
		Auth:         authService,
		Users:        repository.NewUserRepository(db, c),
		Posts:        repository.NewPostRepository(db),
		Portfolio:    repository.NewPortfolioRepository(db),
		Messages:     repository.NewMessageRepository(db),
		Appointments: repository.NewAppointmentRepository(db),
		Highlights:   repository.NewHighlightRepository(db, c),
		Assistant:    repository.NewAssistantRepository(db),
		Storage:      store,
	}
}

// Classify maps any backend failure onto an *models.AppError with a kind.
// Errors that already carry a kind keep it, except that an internal error
// caused by an unreachable backend becomes a network error.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == models.KindInternal && IsNetworkError(appErr.Err) {
			return models.NewNetworkError(appErr.Err)
		}
		if appErr.Kind == "" {
			return &models.AppError{Kind: models.KindInternal, Code: appErr.Code, Message: appErr.Message, Err: appErr.Err}
		}
		return appErr
	}

	switch {
	case IsNetworkError(err):
		return models.NewNetworkError(err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &models.AppError{Kind: models.KindNotFound, Code: "NOT_FOUND", Message: "Not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return &models.AppError{Kind: models.KindValidation, Code: "VALIDATION_ERROR", Message: "Already exists", Err: err}
	default:
		return models.NewInternalError(err)
	}
}

// IsNetworkError reports whether err means the backend could not be reached in time.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
