package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oriontv/internal/media"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "playback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.Get(ctx, "sourceA", "show-1")
	require.NoError(t, err)
	assert.Nil(t, got, "missing record reads as nil, not an error")

	rec := media.PlayRecord{
		Title:            "Test Show",
		Poster:           "https://img.example.com/p.jpg",
		EpisodeIndex:     3,
		TotalEpisodes:    24,
		PositionSec:      1520.5,
		TotalSec:         2700,
		IntroEndMillis:   90000,
		OutroStartMillis: 120000,
	}
	require.NoError(t, s.Save(ctx, "sourceA", "show-1", rec))

	got, err = s.Get(ctx, "sourceA", "show-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestSQLiteLastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := media.PlayRecord{Title: "Show", EpisodeIndex: 1, PositionSec: 100}
	second := media.PlayRecord{Title: "Show", EpisodeIndex: 2, PositionSec: 42}

	require.NoError(t, s.Save(ctx, "src", "id", first))
	require.NoError(t, s.Save(ctx, "src", "id", second))

	got, err := s.Get(ctx, "src", "id")
	require.NoError(t, err)
	assert.Equal(t, second, *got, "no merge: the full snapshot replaces the record")
}

func TestSQLiteRemoveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "src", "a", media.PlayRecord{Title: "A"}))
	require.NoError(t, s.Save(ctx, "src", "b", media.PlayRecord{Title: "B"}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Remove(ctx, "src", "a"))
	all, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ContentID)
}

func TestSQLiteSeparateKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "sourceA", "id", media.PlayRecord{PositionSec: 10}))
	require.NoError(t, s.Save(ctx, "sourceB", "id", media.PlayRecord{PositionSec: 20}))

	a, err := s.Get(ctx, "sourceA", "id")
	require.NoError(t, err)
	b, err := s.Get(ctx, "sourceB", "id")
	require.NoError(t, err)

	assert.Equal(t, 10.0, a.PositionSec)
	assert.Equal(t, 20.0, b.PositionSec)
}
