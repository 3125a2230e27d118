// Package auth is the identity service: password credentials, signed session
// tokens, revocation and session change notifications.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"inkd/internal/config"
	"inkd/internal/models"
	"inkd/internal/notifications"
	"inkd/internal/observability"
	"inkd/internal/repository"
	"inkd/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	Issuer   = "inkd-api"
	Audience = "inkd-client"

	blacklistPrefix = "blacklist:"
)

// Claims is the payload of an access token.
type Claims struct {
	SessionID string                  `json:"sid"`
	Email     string                  `json:"email"`
	Metadata  models.IdentityMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Service issues and validates sessions. It satisfies middleware.SessionResolver.
type Service struct {
	identities repository.IdentityRepository
	rdb        *redis.Client
	notifier   *notifications.Notifier
	secret     []byte
	ttl        time.Duration
	cost       int
	now        func() time.Time

	// revoked holds jti -> expiry when Redis is unavailable.
	revokedMu sync.Mutex
	revoked   map[string]time.Time

	subsMu  sync.RWMutex
	subs    map[string]map[uint64]func(models.AuthChange)
	nextSub uint64
}

// NewService creates the identity service. rdb and notifier may be nil; revocation
// then stays in process and auth events are only delivered locally.
func NewService(identities repository.IdentityRepository, rdb *redis.Client, notifier *notifications.Notifier, cfg *config.Config) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cost := bcrypt.DefaultCost
	if cfg.PasswordHashCost >= bcrypt.MinCost && cfg.PasswordHashCost <= bcrypt.MaxCost {
		cost = cfg.PasswordHashCost
	}
	return &Service{
		identities: identities,
		rdb:        rdb,
		notifier:   notifier,
		secret:     []byte(cfg.JWTSecret),
		ttl:        ttl,
		cost:       cost,
		now:        time.Now,
		revoked:    make(map[string]time.Time),
		subs:       make(map[string]map[uint64]func(models.AuthChange)),
	}
}

// SignInWithPassword exchanges credentials for a new session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewCredentialError("Invalid email or password")
		}
		return nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); cmpErr != nil {
		return nil, models.NewCredentialError("Invalid email or password")
	}

	if err := s.identities.TouchSignIn(ctx, identity.ID, s.now().UTC()); err != nil {
		observability.Log().WarnContext(ctx, "failed to record sign-in",
			slog.String("user_id", identity.ID), slog.String("error", err.Error()))
	}

	session, err := s.issue(identity.AuthUser(), uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, session.ID, models.AuthChange{Event: models.AuthEventSignedIn, Session: session})
	return session, nil
}

// SignUp creates an account and signs it in. Accounts are confirmed on creation,
// so NeedsVerification is always false.
func (s *Service) SignUp(ctx context.Context, email, password string, metadata models.IdentityMetadata) (*models.SignUpResult, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	metadata.Name = strings.TrimSpace(metadata.Name)
	metadata.Handle = validation.NormalizeHandle(metadata.Handle)
	if err := validation.ValidateName(metadata.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateHandle(metadata.Handle); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now().UTC()
	identity := &models.Identity{
		Email:            email,
		PasswordHash:     string(hash),
		Metadata:         metadata,
		EmailConfirmedAt: &now,
		LastSignInAt:     &now,
		CreatedAt:        now,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}

	session, err := s.issue(identity.AuthUser(), uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, session.ID, models.AuthChange{Event: models.AuthEventSignedIn, Session: session})
	return &models.SignUpResult{NeedsVerification: false, Session: session}, nil
}

// SignOut revokes the token. Unknown or already invalid tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	s.revoke(ctx, claims)
	s.publish(ctx, claims.SessionID, models.AuthChange{Event: models.AuthEventSignedOut})
	return nil
}

// GetSession returns the session a token belongs to, or nil when the token is
// malformed, expired or revoked.
func (s *Service) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, nil
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, nil
	}
	return sessionFromClaims(token, claims), nil
}

// RefreshSession swaps a valid token for a new one on the same session.
func (s *Service) RefreshSession(ctx context.Context, token string) (*models.Session, error) {
	current, err := s.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, models.NewUnauthorizedError("Session expired, sign in again")
	}

	identity, err := s.identities.GetByID(ctx, current.User.ID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewUnauthorizedError("Account no longer exists")
		}
		return nil, err
	}

	next, err := s.issue(identity.AuthUser(), current.ID)
	if err != nil {
		return nil, err
	}
	if claims, parseErr := s.parse(token); parseErr == nil {
		s.revoke(ctx, claims)
	}
	s.publish(ctx, next.ID, models.AuthChange{Event: models.AuthEventTokenRefreshed, Session: next})
	return next, nil
}

func (s *Service) issue(user *models.AuthUser, sessionID string) (*models.Session, error) {
	if len(s.secret) == 0 {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		SessionID: sessionID,
		Email:     user.Email,
		Metadata:  user.Metadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return sessionFromClaims(signed, &claims), nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func sessionFromClaims(token string, claims *Claims) *models.Session {
	session := &models.Session{
		ID:          claims.SessionID,
		AccessToken: token,
		User: &models.AuthUser{
			ID:       claims.Subject,
			Email:    claims.Email,
			Metadata: claims.Metadata,
		},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}

// revoke blacklists the token's jti until it would have expired anyway.
func (s *Service) revoke(ctx context.Context, claims *Claims) {
	if claims.ID == "" {
		return
	}
	expiresAt := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}

	if s.rdb != nil {
		err := s.rdb.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err()
		if err == nil {
			return
		}
		observability.Log().WarnContext(ctx, "token blacklist write failed, revoking in process",
			slog.String("error", err.Error()))
	}

	s.revokedMu.Lock()
	defer s.revokedMu.Unlock()
	now := s.now()
	for jti, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, jti)
		}
	}
	s.revoked[claims.ID] = expiresAt
}

func (s *Service) isRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	s.revokedMu.Lock()
	exp, ok := s.revoked[jti]
	s.revokedMu.Unlock()
	if ok && exp.After(s.now()) {
		return true
	}

	if s.rdb != nil {
		n, err := s.rdb.Exists(ctx, blacklistPrefix+jti).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	return false
}

// OnAuthStateChange calls fn for every auth event of sessionID until ctx ends or
// the returned function is called.
func (s *Service) OnAuthStateChange(ctx context.Context, sessionID string, fn func(models.AuthChange)) func() {
	s.subsMu.Lock()
	s.nextSub++
	id := s.nextSub
	m, ok := s.subs[sessionID]
	if !ok {
		m = make(map[uint64]func(models.AuthChange))
		s.subs[sessionID] = m
	}
	m[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if m, ok := s.subs[sessionID]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(s.subs, sessionID)
				}
			}
		})
	}
	stop := context.AfterFunc(ctx, remove)
	return func() {
		stop()
		remove()
	}
}

// StartWiring delivers auth events published by other replicas to local subscribers.
func (s *Service) StartWiring(ctx context.Context) error {
	return s.notifier.StartAuthSubscriber(ctx, func(channel, payload string) {
		sid, ok := notifications.SessionFromChannel(channel)
		if !ok {
			return
		}
		var change models.AuthChange
		if err := json.Unmarshal([]byte(payload), &change); err != nil {
			observability.Log().Warn("invalid auth event payload", slog.String("channel", channel))
			return
		}
		s.deliver(sid, change)
	})
}

// publish routes through Redis when wired so every replica sees the event once,
// and delivers locally otherwise.
func (s *Service) publish(ctx context.Context, sessionID string, change models.AuthChange) {
	if s.notifier.Enabled() {
		payload, err := json.Marshal(change)
		if err == nil {
			err = s.notifier.PublishAuth(ctx, sessionID, string(payload))
		}
		if err == nil {
			return
		}
		observability.Log().WarnContext(ctx, "auth event publish failed, delivering locally",
			slog.String("session_id", sessionID), slog.String("error", err.Error()))
	}
	s.deliver(sessionID, change)
}

func (s *Service) deliver(sessionID string, change models.AuthChange) {
	s.subsMu.RLock()
	fns := make([]func(models.AuthChange), 0, len(s.subs[sessionID]))
	for _, fn := range s.subs[sessionID] {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
