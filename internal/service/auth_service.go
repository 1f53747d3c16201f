package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"arenapanel/internal/access"
	"arenapanel/internal/auth"
	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/domain"
	"arenapanel/internal/events"
	"arenapanel/internal/metrics"
	"arenapanel/internal/models"
	"arenapanel/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Contact  string `json:"contact"`
	Gender   string `json:"gender"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService owns the session lifecycle: a session starts at Login and ends
// at Logout or when its TTL runs out.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionStore
	tokens   *auth.TokenManager
	eventBus domain.EventPublisher
	cfg      config.APIAuthConfig
	logger   *zerolog.Logger
}

func NewAuthService(
	users domain.UserRepository,
	sessions domain.SessionStore,
	tokens *auth.TokenManager,
	eventBus domain.EventPublisher,
	cfg config.APIAuthConfig,
	logger *zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *AuthService) sessionTTL() time.Duration {
	return time.Duration(s.cfg.SessionTTL) * time.Second
}

// Register creates an unprivileged account. Roles are granted later by an
// administrator.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if !s.cfg.OpenRegistration {
		return nil, &AuthError{Kind: AuthRegistrationClosed}
	}

	user := &models.User{
		Name:    strings.TrimSpace(req.Name),
		Email:   models.NormalizeEmail(req.Email),
		Address: req.Address,
		Contact: req.Contact,
		Gender:  req.Gender,
		Role:    models.RoleNone,
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, passwordError(err)
	}
	user.PasswordHash = hash

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, &AuthError{Kind: AuthEmailTaken, Err: err}
		}
		return nil, &PersistenceError{Op: "create user", Err: err}
	}

	if s.eventBus != nil {
		payload := events.UserEventPayload{UserID: user.ID, Name: user.Name, Email: user.Email}
		if err := s.eventBus.PublishJSON(events.EventUserRegistered, payload); err != nil {
			s.logger.Error().Err(err).Str("event_type", events.EventUserRegistered).Int64("user_id", user.ID).Msg("publish event error")
		}
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)

	window := time.Duration(s.cfg.LoginWindow) * time.Second
	allowed, err := s.sessions.CheckRateLimit(ctx, "login:"+email, s.cfg.LoginAttempts, window)
	if err != nil {
		metrics.IncLogin("error")
		return nil, &AuthError{Kind: AuthUnavailable, Err: err}
	}
	if !allowed {
		metrics.IncLogin("rate_limited")
		s.logger.Warn().Str("email", email).Msg("login rate limited")
		return nil, &AuthError{Kind: AuthRateLimited}
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		metrics.IncLogin("invalid")
		return nil, &AuthError{Kind: AuthInvalidCredentials}
	}
	if err != nil {
		metrics.IncLogin("error")
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		metrics.IncLogin("invalid")
		return nil, &AuthError{Kind: AuthInvalidCredentials}
	}

	session := access.Session{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Role:          user.Role,
		Authenticated: true,
	}
	if err := s.sessions.SetSession(ctx, session, s.sessionTTL()); err != nil {
		metrics.IncLogin("error")
		return nil, &AuthError{Kind: AuthUnavailable, Err: err}
	}

	token, expiresAt, err := s.tokens.Issue(session.ID, user.ID, user.Role, s.sessionTTL())
	if err != nil {
		metrics.IncLogin("error")
		return nil, &AuthError{Kind: AuthUnavailable, Err: err}
	}

	metrics.IncLogin("success")
	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return tokenError(err)
	}
	err = s.sessions.DeleteSession(ctx, claims.SessionID())
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return &AuthError{Kind: AuthUnavailable, Err: err}
	}
	return nil
}

func tokenError(err error) error {
	if errors.Is(err, auth.ErrExpiredToken) {
		return &AuthError{Kind: AuthSessionExpired, Err: err}
	}
	return &AuthError{Kind: AuthInvalidToken, Err: err}
}

// CurrentSession resolves a bearer token into the live session. The role is
// re-read from the user record so demotions apply immediately.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (access.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return access.Guest, tokenError(err)
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID())
	if errors.Is(err, repository.ErrSessionNotFound) {
		return access.Guest, &AuthError{Kind: AuthSessionExpired, Err: err}
	}
	if err != nil {
		return access.Guest, &AuthError{Kind: AuthUnavailable, Err: err}
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if errors.Is(err, database.ErrNotFound) {
		_ = s.sessions.DeleteSession(ctx, claims.SessionID())
		return access.Guest, &AuthError{Kind: AuthSessionExpired, Err: err}
	}
	if err != nil {
		return access.Guest, &PersistenceError{Op: "get user", Err: err}
	}

	session.ID = claims.SessionID()
	session.Role = user.Role
	session.Authenticated = true
	return *session, nil
}

// CurrentUser returns the account behind an authenticated session.
func (s *AuthService) CurrentUser(ctx context.Context, session access.Session) (*models.User, error) {
	if !session.Authenticated {
		return nil, &AuthError{Kind: AuthInvalidToken}
	}
	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	return user, nil
}
