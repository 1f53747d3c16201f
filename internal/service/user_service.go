package service

import (
	"context"
	"errors"
	"strings"

	"arenapanel/internal/access"
	"arenapanel/internal/auth"
	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/domain"
	"arenapanel/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo       domain.UserRepository
	bcryptCost int
	logger     *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, cfg config.APIAuthConfig, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:       repo,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

func validateUser(u *models.User) error {
	fields := fieldErrors{}
	if strings.TrimSpace(u.Name) == "" {
		fields.add("name", "name is required")
	}
	if !strings.Contains(u.Email, "@") {
		fields.add("email", "email is invalid")
	}
	if !u.Role.Valid() {
		fields.add("role", "unknown role")
	}
	return fields.err()
}

func passwordError(err error) error {
	if errors.Is(err, auth.ErrWeakPassword) {
		return &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}
	return err
}

func (s *UserService) List(ctx context.Context, actor access.Session, filter models.UserFilter) ([]*models.User, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, actor access.Session, id int64) (*models.User, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	return user, nil
}

// Create adds an account on behalf of an administrator. Only a superadmin may
// create an account that already carries a role.
func (s *UserService) Create(ctx context.Context, actor access.Session, user *models.User, password string) error {
	user.Email = models.NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	if err := validateUser(user); err != nil {
		return err
	}
	if err := authorize(actor, access.ActionCreate, false); err != nil {
		return err
	}
	if user.Role != models.RoleNone {
		if err := authorize(actor, access.ActionAssignRole, false); err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return passwordError(err)
	}
	user.PasswordHash = hash

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return &PersistenceError{Op: "create user", Err: err}
	}
	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Int64("created_by", actor.UserID).Msg("user created")
	return nil
}

// Update applies a partial update. A non-empty password replaces the stored
// hash. Changing the role needs ActionAssignRole.
func (s *UserService) Update(ctx context.Context, actor access.Session, id int64, update models.UserUpdate, password string) (*models.User, error) {
	if err := authorize(actor, access.ActionEdit, id == actor.UserID); err != nil {
		return nil, err
	}

	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	merged := update.Apply(*current)
	if err := validateUser(&merged); err != nil {
		return nil, err
	}
	if update.Role != nil && *update.Role != current.Role {
		if err := authorize(actor, access.ActionAssignRole, false); err != nil {
			return nil, err
		}
	}

	if password != "" {
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, passwordError(err)
		}
		update.PasswordHash = &hash
	}

	updated, err := s.repo.UpdateUser(ctx, id, update)
	if err != nil {
		return nil, &PersistenceError{Op: "update user", Err: err}
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, actor access.Session, id int64) error {
	if err := authorize(actor, access.ActionDelete, id == actor.UserID); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return &PersistenceError{Op: "delete user", Err: err}
	}
	s.logger.Info().Int64("user_id", id).Int64("deleted_by", actor.UserID).Msg("user deleted")
	return nil
}

// EnsureSuperadmins creates the configured bootstrap accounts and promotes
// existing accounts with the same email. Passwords of existing accounts are
// left alone.
func (s *UserService) EnsureSuperadmins(ctx context.Context, users []config.BootstrapUser) error {
	if err := config.ValidateSuperadmins(users); err != nil {
		return err
	}

	role := models.RoleSuperadmin
	for _, u := range users {
		existing, err := s.repo.GetUserByEmail(ctx, u.Email)
		switch {
		case err == nil:
			if existing.Role == models.RoleSuperadmin {
				continue
			}
			if _, err := s.repo.UpdateUser(ctx, existing.ID, models.UserUpdate{Role: &role}); err != nil {
				return &PersistenceError{Op: "promote superadmin", Err: err}
			}
			s.logger.Info().Str("email", existing.Email).Msg("promoted bootstrap superadmin")
		case errors.Is(err, database.ErrNotFound):
			hash, err := auth.HashPassword(u.Password, s.bcryptCost)
			if err != nil {
				return err
			}
			user := &models.User{
				Name:         u.Name,
				Email:        models.NormalizeEmail(u.Email),
				Role:         models.RoleSuperadmin,
				PasswordHash: hash,
			}
			if err := s.repo.CreateUser(ctx, user); err != nil {
				return &PersistenceError{Op: "create superadmin", Err: err}
			}
			s.logger.Info().Str("email", user.Email).Msg("created bootstrap superadmin")
		default:
			return &PersistenceError{Op: "get user", Err: err}
		}
	}
	return nil
}
