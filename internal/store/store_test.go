package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/database"
	"github.com/stemsi/quizdesk/internal/store"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`)))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(got))

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":2}`)))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":2}`, string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, store.NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	db, err := database.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "progress.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	exerciseStore(t, store.NewSQLite(db))
}

func TestGetJSONReportsCorruption(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Set(ctx, "bad", []byte("{not json")))

	var dst map[string]int
	err := store.GetJSON(ctx, s, "bad", &dst)
	var corrupt *store.CorruptError
	require.ErrorAs(t, err, &corrupt)
	require.Equal(t, "bad", corrupt.Key)

	err = store.GetJSON(ctx, s, "absent", &dst)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, store.SetJSON(ctx, s, "good", map[string]int{"x": 1}))
	require.NoError(t, store.GetJSON(ctx, s, "good", &dst))
	require.Equal(t, 1, dst["x"])
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, _, err := store.Open(context.Background(), &config.Config{StoreDriver: "etcd"}, zerolog.Nop())
	require.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, closeFn, err := store.Open(context.Background(), &config.Config{StoreDriver: config.StoreDriverMemory}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, closeFn())
	exerciseStore(t, s)
}
