package service

import (
	"context"
	"testing"

	"arenapanel/internal/database"
	"arenapanel/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSpaceFixture() (*SpaceService, *mockSpaceRepo) {
	repo := new(mockSpaceRepo)
	logger := zerolog.Nop()
	return NewSpaceService(repo, &logger), repo
}

func TestSpaceCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Space)
		field  string
	}{
		{name: "blank name", mutate: func(s *models.Space) { s.Name = " " }, field: "name"},
		{name: "unknown modality", mutate: func(s *models.Space) { s.Modality = "Padel" }, field: "modality"},
		{name: "closes before opening", mutate: func(s *models.Space) { s.ClosingTime = models.ClockOf(7, 0) }, field: "closing_time"},
		{name: "zero capacity", mutate: func(s *models.Space) { s.MaxCapacity = 0 }, field: "max_capacity"},
		{name: "negative price", mutate: func(s *models.Space) { s.PricePerHour = -1 }, field: "price_per_hour"},
		{name: "latitude out of range", mutate: func(s *models.Space) { s.Location = &models.GeoPoint{Lat: 91, Lng: 0} }, field: "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newSpaceFixture()
			space := testSpace()
			space.ID = 0
			tt.mutate(space)

			err := svc.Create(context.Background(), admin, space)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Empty(t, repo.Calls)
		})
	}
}

func TestSpaceCreate(t *testing.T) {
	svc, repo := newSpaceFixture()
	ctx := context.Background()

	space := testSpace()
	space.ID = 0
	repo.On("CreateSpace", ctx, space).Run(func(args mock.Arguments) { args.Get(1).(*models.Space).ID = 3 }).Return(nil)

	require.NoError(t, svc.Create(ctx, admin, space))
	assert.Equal(t, int64(3), space.ID)

	var aerr *AuthorizationError
	assert.ErrorAs(t, svc.Create(ctx, plainUser, testSpace()), &aerr)
}

func TestSpaceUpdateValidatesMergedResult(t *testing.T) {
	svc, repo := newSpaceFixture()
	ctx := context.Background()

	repo.On("GetSpace", ctx, int64(7)).Return(testSpace(), nil)

	closing := models.ClockOf(6, 0)
	_, err := svc.Update(ctx, admin, 7, models.SpaceUpdate{ClosingTime: &closing})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	repo.AssertNotCalled(t, "UpdateSpace", mock.Anything, mock.Anything, mock.Anything)

	available := false
	closed := testSpace()
	closed.Available = false
	update := models.SpaceUpdate{Available: &available}
	repo.On("UpdateSpace", ctx, int64(7), update).Return(closed, nil)

	got, err := svc.Update(ctx, admin, 7, update)
	require.NoError(t, err)
	assert.False(t, got.Available)
}

func TestSpaceDelete(t *testing.T) {
	svc, repo := newSpaceFixture()
	ctx := context.Background()

	var aerr *AuthorizationError
	assert.ErrorAs(t, svc.Delete(ctx, admin, 7), &aerr)

	repo.On("DeleteSpace", ctx, int64(8)).Return(database.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, superadmin, 8), database.ErrNotFound)
}

func TestSpaceSeed(t *testing.T) {
	t.Run("EmptyCatalogue", func(t *testing.T) {
		svc, repo := newSpaceFixture()
		ctx := context.Background()

		repo.On("ListSpaces", ctx, models.SpaceFilter{}).Return([]*models.Space{}, nil)
		repo.On("CreateSpace", ctx, mock.Anything).Return(nil)

		invalid := *testSpace()
		invalid.MaxCapacity = 0

		n, err := svc.Seed(ctx, []models.Space{*testSpace(), invalid})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		repo.AssertNumberOfCalls(t, "CreateSpace", 1)
	})

	t.Run("AlreadySeeded", func(t *testing.T) {
		svc, repo := newSpaceFixture()
		ctx := context.Background()

		repo.On("ListSpaces", ctx, models.SpaceFilter{}).Return([]*models.Space{testSpace()}, nil)

		n, err := svc.Seed(ctx, []models.Space{*testSpace()})
		require.NoError(t, err)
		assert.Zero(t, n)
		repo.AssertNotCalled(t, "CreateSpace", mock.Anything, mock.Anything)
	})
}
