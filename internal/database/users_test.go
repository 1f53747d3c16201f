package database

import (
	"context"
	"testing"
	"time"

	"arenapanel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := &models.User{
		Name:         "Maria",
		Email:        "  Maria@Example.COM ",
		Birthdate:    time.Date(1990, 3, 4, 0, 0, 0, 0, time.UTC),
		Role:         models.RoleAdmin,
		PasswordHash: "hash",
	}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.Equal(t, "maria@example.com", user.Email)

	got, err := db.GetUserByEmail(ctx, "MARIA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "1990-03-04", got.Birthdate.Format(models.DateFormat))

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{Name: "Other", Email: "maria@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("Update", func(t *testing.T) {
		contact := "+351 900 000 000"
		updated, err := db.UpdateUser(ctx, user.ID, models.UserUpdate{Contact: &contact})
		require.NoError(t, err)
		assert.Equal(t, contact, updated.Contact)
		assert.Equal(t, models.RoleAdmin, updated.Role)
	})

	t.Run("UpdateToTakenEmail", func(t *testing.T) {
		other := &models.User{Name: "Joao", Email: "joao@example.com"}
		require.NoError(t, db.CreateUser(ctx, other))

		taken := "Maria@example.com"
		_, err := db.UpdateUser(ctx, other.ID, models.UserUpdate{Email: &taken})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("FilterByRole", func(t *testing.T) {
		admin := models.RoleAdmin
		admins, err := db.ListUsers(ctx, models.UserFilter{Role: &admin})
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, user.ID, admins[0].ID)

		none := models.RoleNone
		plain, err := db.ListUsers(ctx, models.UserFilter{Role: &none})
		require.NoError(t, err)
		assert.Len(t, plain, 1)

		all, err := db.ListUsers(ctx, models.UserFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.DeleteUser(ctx, user.ID))
		_, err := db.GetUser(ctx, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
