package database

import (
	"context"
	"testing"
	"time"

	"arenapanel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{TaskType: "upsert", BookingID: 1, Payload: `{"id":1}`}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.Equal(t, models.SyncPending, task.Status)

	future := time.Now().Add(time.Hour)
	delayed := &models.SyncTask{TaskType: "upsert", BookingID: 2, Status: models.SyncRetry, NextRetryAt: &future}
	require.NoError(t, db.CreateSyncTask(ctx, delayed))

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.ID, pending[0].ID)

	t.Run("Retry", func(t *testing.T) {
		next := time.Now().Add(time.Hour)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncRetry, "sheets down", &next))

		pending, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("Failed", func(t *testing.T) {
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncFailed, "gave up", nil))

		failed, err := db.GetFailedSyncTasks(ctx)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, 1, failed[0].RetryCount)
		require.NotNil(t, failed[0].LastError)
		assert.Equal(t, "gave up", *failed[0].LastError)
		assert.NotNil(t, failed[0].ProcessedAt)
	})

	t.Run("Missing", func(t *testing.T) {
		err := db.UpdateSyncTaskStatus(ctx, 999, models.SyncCompleted, "", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
