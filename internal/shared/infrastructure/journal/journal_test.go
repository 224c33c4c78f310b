package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/security"
)

func openSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// repositories returns every implementation that runs without a server.
func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"sqlite": openSQLite(t),
		"memory": NewMemoryRepository(),
	}
}

func entryAt(command string, startedAt time.Time, err error) *Entry {
	e := NewEntry("cmd-"+command, command, startedAt, err, "execution")
	e.Duration = 1500 * time.Microsecond
	return e
}

func TestNewEntry(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		e := NewEntry("c1", "identify", time.Now(), nil, "execution")
		assert.Equal(t, StatusResolved, e.Status)
		assert.Empty(t, e.ErrorKind)
		assert.Empty(t, e.Error)
		assert.Equal(t, time.UTC, e.StartedAt.Location())
	})

	t.Run("rejected", func(t *testing.T) {
		e := NewEntry("c2", "track", time.Now(), errors.New("boom"), "not_configured")
		assert.Equal(t, StatusRejected, e.Status)
		assert.Equal(t, "not_configured", e.ErrorKind)
		assert.Equal(t, "boom", e.Error)
	})
}

func TestRepository_RecordAndList(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Add(-time.Minute)

			require.NoError(t, repo.Record(ctx, entryAt("configure", base, nil)))
			require.NoError(t, repo.Record(ctx, entryAt("identify", base.Add(time.Second), nil)))
			require.NoError(t, repo.Record(ctx, entryAt("track", base.Add(2*time.Second), errors.New("Error on track: boom"))))

			all, err := repo.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "track", all[0].Command)
			assert.Equal(t, "configure", all[2].Command)

			latest := all[0]
			assert.Equal(t, StatusRejected, latest.Status)
			assert.Equal(t, "execution", latest.ErrorKind)
			assert.Equal(t, "Error on track: boom", latest.Error)
			assert.Equal(t, "cmd-track", latest.CommandID)
			assert.Equal(t, 1500*time.Microsecond, latest.Duration)
			assert.WithinDuration(t, base.Add(2*time.Second), latest.StartedAt, time.Microsecond)

			limited, err := repo.List(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)
		})
	}
}

func TestRepository_DeleteOld(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			require.NoError(t, repo.Record(ctx, entryAt("old", now.AddDate(0, 0, -30), nil)))
			require.NoError(t, repo.Record(ctx, entryAt("older", now.AddDate(0, 0, -20), nil)))
			require.NoError(t, repo.Record(ctx, entryAt("fresh", now.Add(-time.Hour), nil)))

			removed, err := repo.DeleteOld(ctx, 14)
			require.NoError(t, err)
			assert.Equal(t, int64(2), removed)

			left, err := repo.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, "fresh", left[0].Command)
		})
	}
}

func TestRepository_Ping(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, repo.Ping(context.Background()))
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := OpenSQLite(context.Background(), "")
		assert.ErrorIs(t, err, security.ErrUnsafePath)
	})

	t.Run("dsn characters rejected", func(t *testing.T) {
		_, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "journal.db?mode=ro"))
		assert.ErrorIs(t, err, security.ErrUnsafePath)
	})

	t.Run("in memory", func(t *testing.T) {
		repo, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		defer repo.Close()
		require.NoError(t, repo.Record(context.Background(), entryAt("reset", time.Now(), nil)))
	})

	t.Run("reopen keeps entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journal.db")
		ctx := context.Background()

		repo, err := OpenSQLite(ctx, path)
		require.NoError(t, err)
		require.NoError(t, repo.Record(ctx, entryAt("identify", time.Now(), nil)))
		require.NoError(t, repo.Close())

		repo, err = OpenSQLite(ctx, path)
		require.NoError(t, err)
		defer repo.Close()
		entries, err := repo.List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestMemoryRepository_Closed(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Close())
	assert.ErrorIs(t, repo.Record(context.Background(), entryAt("track", time.Now(), nil)), ErrClosed)
	assert.ErrorIs(t, repo.Ping(context.Background()), ErrClosed)
}

func TestNoopRepository(t *testing.T) {
	var repo Repository = NoopRepository{}
	ctx := context.Background()
	require.NoError(t, repo.Record(ctx, entryAt("track", time.Now(), nil)))
	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("SNAPYR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SNAPYR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	repo, err := OpenPostgres(ctx, url)
	require.NoError(t, err)
	defer repo.Close()

	e := entryAt("identify", time.Now().UTC(), nil)
	require.NoError(t, repo.Record(ctx, e))

	entries, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
}

func TestOpenPostgres_RequiresURL(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	assert.Error(t, err)
}
