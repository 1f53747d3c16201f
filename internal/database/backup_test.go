package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arenapanel/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	createTestSpace(t, db, "Quadra 1")

	storagePath := filepath.Join(t.TempDir(), "backups")
	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(db, cfg, &logger)
	s.now = func() time.Time { return time.Date(2025, 6, 14, 3, 0, 0, 0, time.UTC) }

	var backupPath string
	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		backupPath = path
		assert.Equal(t, "arenapanel_20250614_030000.db", filepath.Base(path))

		copyDB, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer copyDB.Close()

		got, err := copyDB.GetSpace(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "Quadra 1", got.Name)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		s.now = time.Now

		oldFile := filepath.Join(storagePath, "arenapanel_20000101_000000.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		foreign := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(foreign, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, foreign)
		assert.FileExists(t, backupPath)
	})
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
