package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomessina-code/EVS14/internal/config"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/storage"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StorageBackend:        config.StorageFile,
		DataDir:               t.TempDir(),
		HTTPTimeout:           time.Second,
		MaxHistory:            5,
		MaxCustomPresets:      10,
		AdaptationParallelism: 2,
		ExportEncoding:        "webp",
	}
}

func testPreset() domain.UniversePreset {
	return domain.UniversePreset{
		Label:        "Neon League",
		Description:  "night arena",
		GameType:     "fps",
		GraphicStyle: "manga",
		Ambiance:     "epic",
		Subject:      "duo",
		Palette:      [4]string{"#000000", "#ffffff", "#ff00aa", "#00ffcc"},
		Weight:       0.5,
	}
}

func TestNewWithoutKeyStaysLocked(t *testing.T) {
	stack, err := New(context.Background(), Options{Config: testConfig(t)})
	require.NoError(t, err)
	defer stack.Close()

	assert.False(t, stack.Gemini.Ready())
	assert.False(t, stack.Pipeline.Credentials().Ready())
	assert.Equal(t, imaging.EncodingWebP, stack.Encoding)
	assert.NotNil(t, stack.HTTPClient)
}

func TestCustomPresetsSurviveRestart(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	saved, err := first.Pipeline.Catalog().Add(testPreset())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	defer second.Close()

	got, ok := second.Pipeline.Catalog().Get(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Neon League", got.Label)
}

func TestHistoryIsLoadedAndSavedPerSession(t *testing.T) {
	cfg := testConfig(t)
	backend, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)

	seed := []domain.HistoryEntry{
		{ID: "h2", Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), Image: domain.NewImage([]byte{1}, "image/png")},
		{ID: "h1", Timestamp: time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC), Image: domain.NewImage([]byte{2}, "image/png")},
	}
	history := storage.NewCollection[domain.HistoryEntry](backend, historyPrefix+"tg:7", 0, nil)
	require.NoError(t, history.Save(context.Background(), seed))

	stack, err := New(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	defer stack.Close()

	st := stack.Sessions.GetOrCreate("tg:7")
	require.Len(t, st.History(), 2)
	assert.Equal(t, "h2", st.History()[0].ID)

	require.NoError(t, st.DeleteHistory("h2"))
	left := history.Load(context.Background())
	require.Len(t, left, 1)
	assert.Equal(t, "h1", left[0].ID)

	assert.Empty(t, stack.Sessions.GetOrCreate("tg:8").History())
}

func TestOpenBackendRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.StorageBackend = config.StorageRedis
	cfg.RedisAddr = mr.Addr()
	cfg.RedisPrefix = "evs:"

	stack, err := New(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	defer stack.Close()

	_, err = stack.Pipeline.Catalog().Add(testPreset())
	require.NoError(t, err)
	assert.True(t, mr.Exists("evs:"+presetsKey))
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()
	assert.True(t, NewLogger("debug").Enabled(ctx, -4))
	assert.False(t, NewLogger("info").Enabled(ctx, -4))
	assert.False(t, NewLogger("error").Enabled(ctx, 4))
}
