package database

import (
	"context"
	"testing"
	"time"

	"arenapanel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaceCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	space := createTestSpace(t, db, "Pavilhao")

	got, err := db.GetSpace(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pavilhao", got.Name)
	assert.Equal(t, 25.5, got.PricePerHour)
	assert.Equal(t, "08:00-22:00", got.OperatingHours().String())
	assert.Nil(t, got.Location)
	assert.Equal(t, "Lisboa", got.Address.City)

	closed := false
	loc := models.GeoPoint{Lat: 38.72, Lng: -9.14}
	updated, err := db.UpdateSpace(ctx, space.ID, models.SpaceUpdate{Available: &closed, Location: &loc})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.Equal(t, "Pavilhao", updated.Name)

	got, err = db.GetSpace(ctx, space.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 38.72, got.Location.Lat, 1e-9)

	_, err = db.UpdateSpace(ctx, 999, models.SpaceUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.DeleteSpace(ctx, space.ID))
	_, err = db.GetSpace(ctx, space.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteSpace(ctx, space.ID), ErrNotFound)
}

func TestListSpacesFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestSpace(t, db, "B Futsal")
	tennis := createTestSpace(t, db, "A Tenis")
	modality := models.ModalityTenis
	_, err := db.UpdateSpace(ctx, tennis.ID, models.SpaceUpdate{Modality: &modality})
	require.NoError(t, err)

	closed := createTestSpace(t, db, "C Closed")
	off := false
	_, err = db.UpdateSpace(ctx, closed.ID, models.SpaceUpdate{Available: &off})
	require.NoError(t, err)

	all, err := db.ListSpaces(ctx, models.SpaceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A Tenis", all[0].Name)

	open, err := db.ListSpaces(ctx, models.SpaceFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	tennisOnly, err := db.ListSpaces(ctx, models.SpaceFilter{Modality: models.ModalityTenis})
	require.NoError(t, err)
	require.Len(t, tennisOnly, 1)
	assert.Equal(t, tennis.ID, tennisOnly[0].ID)
}

func TestSpaceRejectsInvertedHours(t *testing.T) {
	db := setupTestDB(t)
	space := &models.Space{
		Name:        "Broken",
		Modality:    models.ModalityOutros,
		OpeningTime: models.ClockOf(22, 0),
		ClosingTime: models.ClockOf(8, 0),
		MaxCapacity: 1,
	}
	assert.Error(t, db.CreateSpace(context.Background(), space))
}

func TestDeleteSpaceWithBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	space := createTestSpace(t, db, "Campo 1")
	date := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)
	booking := newTestBooking(space, date, models.ClockOf(10, 0), models.ClockOf(11, 0))
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	assert.ErrorIs(t, db.DeleteSpace(ctx, space.ID), ErrSpaceInUse)
	_, err := db.GetSpace(ctx, space.ID)
	require.NoError(t, err)

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.BookingCancelled))
	require.NoError(t, db.DeleteSpace(ctx, space.ID))

	_, err = db.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
