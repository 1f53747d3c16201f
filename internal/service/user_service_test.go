package service

import (
	"context"
	"testing"

	"arenapanel/internal/access"
	"arenapanel/internal/auth"
	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserFixture() (*UserService, *mockUserRepo) {
	repo := new(mockUserRepo)
	logger := zerolog.Nop()
	return NewUserService(repo, config.APIAuthConfig{BcryptCost: bcrypt.MinCost}, &logger), repo
}

func TestUserDeleteSelfForbidden(t *testing.T) {
	svc, repo := newUserFixture()

	err := svc.Delete(context.Background(), superadmin, superadmin.UserID)

	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, access.ReasonSelfDeletionForbidden, aerr.Denied.Reason)
	assert.Empty(t, repo.Calls)
}

func TestUserDelete(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	repo.On("DeleteUser", ctx, int64(10)).Return(nil)
	require.NoError(t, svc.Delete(ctx, superadmin, 10))

	var aerr *AuthorizationError
	assert.ErrorAs(t, svc.Delete(ctx, admin, 10), &aerr)
}

func TestUserCreateHashesPassword(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	repo.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "rui@example.com" && auth.CheckPassword(u.PasswordHash, "password123")
	})).Return(nil)

	user := &models.User{Name: "Rui", Email: " RUI@example.com", Role: models.RoleAdmin}
	require.NoError(t, svc.Create(ctx, superadmin, user, "password123"))
	repo.AssertExpectations(t)

	err := svc.Create(ctx, superadmin, &models.User{Name: "Rui", Email: "rui@example.com"}, "short")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestUserUpdate(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	current := &models.User{ID: 10, Name: "Rui", Email: "rui@example.com"}
	repo.On("GetUser", ctx, int64(10)).Return(current, nil)

	bad := models.Role("owner")
	_, err := svc.Update(ctx, admin, 10, models.UserUpdate{Role: &bad}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "role")

	name := "Rui Costa"
	renamed := *current
	renamed.Name = name
	repo.On("UpdateUser", ctx, int64(10), mock.MatchedBy(func(u models.UserUpdate) bool {
		return u.Name != nil && *u.Name == name && u.Role == nil &&
			u.PasswordHash != nil && auth.CheckPassword(*u.PasswordHash, "new-password")
	})).Return(&renamed, nil)

	got, err := svc.Update(ctx, admin, 10, models.UserUpdate{Name: &name}, "new-password")
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
}

func TestUserRoleChangeRequiresSuperadmin(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	self := &models.User{ID: admin.UserID, Name: "Ana", Email: "ana@example.com", Role: models.RoleAdmin}
	repo.On("GetUser", ctx, admin.UserID).Return(self, nil)
	other := &models.User{ID: 10, Name: "Rui", Email: "rui@example.com"}
	repo.On("GetUser", ctx, int64(10)).Return(other, nil)

	superRole := models.RoleSuperadmin
	adminRole := models.RoleAdmin

	t.Run("admin cannot promote themselves", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, admin.UserID, models.UserUpdate{Role: &superRole}, "")
		var aerr *AuthorizationError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, access.ReasonInsufficientRole, aerr.Denied.Reason)
		repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin cannot grant a role", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, 10, models.UserUpdate{Role: &adminRole}, "")
		var aerr *AuthorizationError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, access.ReasonInsufficientRole, aerr.Denied.Reason)
		repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin may resend the current role", func(t *testing.T) {
		repo.On("UpdateUser", ctx, admin.UserID, models.UserUpdate{Role: &adminRole}).Return(self, nil).Once()
		_, err := svc.Update(ctx, admin, admin.UserID, models.UserUpdate{Role: &adminRole}, "")
		require.NoError(t, err)
	})

	t.Run("superadmin grants a role", func(t *testing.T) {
		promoted := *other
		promoted.Role = adminRole
		repo.On("UpdateUser", ctx, int64(10), models.UserUpdate{Role: &adminRole}).Return(&promoted, nil).Once()
		got, err := svc.Update(ctx, superadmin, 10, models.UserUpdate{Role: &adminRole}, "")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})
}

func TestUserCreateWithRoleRequiresSuperadmin(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	err := svc.Create(ctx, admin, &models.User{Name: "Eve", Email: "eve@example.com", Role: models.RoleSuperadmin}, "password123")
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, access.ReasonInsufficientRole, aerr.Denied.Reason)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)

	repo.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "joao@example.com" && u.Role == models.RoleNone
	})).Return(nil).Once()
	require.NoError(t, svc.Create(ctx, admin, &models.User{Name: "Joao", Email: "joao@example.com"}, "password123"))
	repo.AssertExpectations(t)
}

func TestEnsureSuperadmins(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	repo.On("GetUserByEmail", ctx, "root@example.com").Return(nil, database.ErrNotFound)
	repo.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "root@example.com" && u.Role == models.RoleSuperadmin
	})).Return(nil)

	repo.On("GetUserByEmail", ctx, "ops@example.com").Return(&models.User{ID: 5, Email: "ops@example.com", Role: models.RoleAdmin}, nil)
	superRole := models.RoleSuperadmin
	repo.On("UpdateUser", ctx, int64(5), models.UserUpdate{Role: &superRole}).Return(&models.User{ID: 5, Role: superRole}, nil)

	repo.On("GetUserByEmail", ctx, "boss@example.com").Return(&models.User{ID: 6, Email: "boss@example.com", Role: models.RoleSuperadmin}, nil)

	err := svc.EnsureSuperadmins(ctx, []config.BootstrapUser{
		{Name: "Root", Email: "root@example.com", Password: "changeme123"},
		{Name: "Ops", Email: "ops@example.com", Password: "changeme123"},
		{Name: "Boss", Email: "boss@example.com", Password: "changeme123"},
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "UpdateUser", 1)

	err = svc.EnsureSuperadmins(ctx, []config.BootstrapUser{{Name: "X", Email: "bad", Password: "changeme123"}})
	assert.Error(t, err)
}
