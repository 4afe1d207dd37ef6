package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFileCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	coll := NewCollection[record](backend, "history/chat:42", 2, nil)
	assert.Empty(t, coll.Load(ctx))

	require.NoError(t, coll.Save(ctx, []record{{ID: "1"}, {ID: "2"}, {ID: "3"}}))
	got := coll.Load(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
}

func TestFileCollectionDegradesOnCorruptData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "presets.json"), []byte("{not json"), 0o644))
	coll := NewCollection[record](backend, "presets", 0, nil)
	assert.Empty(t, coll.Load(ctx))

	require.NoError(t, coll.Save(ctx, nil))
	data, err := os.ReadFile(filepath.Join(dir, "presets.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRedisCollection(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	backend, err := NewRedisBackend(ctx, RedisOptions{Addr: mr.Addr(), Prefix: "evs:"})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	_, err = backend.Read(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	coll := NewCollection[record](backend, "presets", 10, nil)
	require.NoError(t, coll.Save(ctx, []record{{ID: "custom_1", Name: "Neon"}}))

	raw, err := mr.Get("evs:presets")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"custom_1","name":"Neon"}]`, raw)

	got := coll.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "Neon", got[0].Name)

	mr.Set("evs:presets", "garbage")
	assert.Empty(t, coll.Load(ctx))
}
