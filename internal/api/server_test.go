package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/gemini"
	"github.com/jomessina-code/EVS14/internal/pipeline"
	"github.com/jomessina-code/EVS14/internal/session"
)

type stubGenerator struct {
	mu          sync.Mutex
	generateErr error
	generated   int
}

func pngImage(t testing.TB, w, h int) domain.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return domain.NewImage(buf.Bytes(), "image/png")
}

var testPNG domain.Image

func (s *stubGenerator) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateErr = err
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}

func (s *stubGenerator) GenerateImage(context.Context, string, *domain.Image) (domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated++
	if s.generateErr != nil {
		return domain.Image{}, s.generateErr
	}
	return testPNG, nil
}

func (s *stubGenerator) AdaptImage(_ context.Context, img domain.Image, _ string, _ domain.Format) (domain.Image, error) {
	return img, nil
}

func (s *stubGenerator) OverlayText(_ context.Context, img domain.Image, _ string, _ domain.Format) (domain.Image, error) {
	return img, nil
}

func (s *stubGenerator) InferTextStyle(context.Context, domain.Image) (domain.TextStyle, error) {
	return domain.TextStyle{FontFamily: "Teko", Color: "#FFFFFF", Effect: "glow"}, nil
}

func (s *stubGenerator) VerifyNoMargins(context.Context, domain.Image) (bool, error) {
	return true, nil
}

func (s *stubGenerator) VerifyTextFidelity(context.Context, domain.Image, string) (bool, error) {
	return true, nil
}

func (s *stubGenerator) RefineShortText(_ context.Context, text, _ string) (string, error) {
	return strings.ToUpper(text), nil
}

func (s *stubGenerator) SuggestPreset(_ context.Context, theme string, _ gemini.SuggestionVocabulary) (domain.UniversePreset, error) {
	return domain.UniversePreset{
		Label:        theme,
		GameType:     domain.GameFPS,
		GraphicStyle: domain.StyleCyberpunk,
		Palette:      [4]string{"#000000", "#111111", "#222222", "#333333"},
		Weight:       1,
	}, nil
}

type testEnv struct {
	srv      *httptest.Server
	gen      *stubGenerator
	sessions *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testPNG.Empty() {
		testPNG = pngImage(t, 64, 64)
	}

	gen := &stubGenerator{}
	hub := NewHub(nil)
	sessions := session.NewStore(session.Options{OnProgress: hub.Publish})
	pipe := pipeline.New(gen, pipeline.Options{})
	server := New(Options{
		Pipeline: pipe,
		Adapter:  adapt.New(gen, adapt.Options{}),
		Sessions: sessions,
		Hub:      hub,
	})

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, gen: gen, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) newSession(t *testing.T) string {
	resp := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[map[string]string](t, resp)["id"]
}

func TestHealthAndCatalog(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["credentialsReady"])

	resp = env.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cat := decode[catalogResponse](t, resp)
	assert.Len(t, cat.Formats, 6)
	assert.NotEmpty(t, cat.Presets)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/nope/generate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session not found", decode[apiError](t, resp).Error)
}

func TestGenerateFlow(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	resp := env.do(t, http.MethodPut, "/api/sessions/"+sid+"/options", map[string]any{"format": "1:1", "eventName": "Cup"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opts := decode[domain.GenerationOptions](t, resp)
	assert.Equal(t, domain.FormatSquare, opts.Format)
	assert.Equal(t, domain.GameMOBA, opts.GameType)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[domain.PipelineResult](t, resp)
	assert.NotEmpty(t, result.Prompt)
	assert.Equal(t, "Cup", result.Options.EventName)
	assert.Equal(t, testPNG.Data, result.Master.Data)

	resp = env.do(t, http.MethodGet, "/api/sessions/"+sid+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]domain.HistoryEntry](t, resp)
	require.Len(t, history, 1)

	resp = env.do(t, http.MethodGet, "/api/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[session.Snapshot](t, resp)
	require.NotNil(t, snap.Current)
	assert.Equal(t, domain.StageDone, snap.Pipeline.Stage)

	resp = env.do(t, http.MethodDelete, "/api/sessions/"+sid+"/history/"+history[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/history/"+history[0].ID+"/restore", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidOptionsAreRejected(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	resp := env.do(t, http.MethodPut, "/api/sessions/"+sid+"/options", map[string]any{"format": "5:1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/modify", map[string]string{"request": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/modify", map[string]string{"request": "add rain"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGenerationErrorsMapToStatus(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	env.gen.fail(domain.NewError(domain.KindGenerationBlocked, "generate", nil))
	resp := env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, domain.KindGenerationBlocked, decode[apiError](t, resp).Kind)

	env.gen.fail(domain.NewError(domain.KindNoImageReturned, "generate", nil))
	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	env.gen.fail(domain.NewError(domain.KindAuthInvalid, "generate", nil))
	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The gate stays closed without another model call.
	env.gen.fail(nil)
	calls := env.gen.calls()
	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, calls, env.gen.calls())

	resp = env.do(t, http.MethodGet, "/api/sessions/"+sid, nil)
	assert.Nil(t, decode[session.Snapshot](t, resp).Current)
}

func TestAdaptationsAndExport(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/"+sid+"/adaptations", []adaptationRequest{{Format: domain.FormatBanner}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	env.do(t, http.MethodPut, "/api/sessions/"+sid+"/options", map[string]any{"format": "1:1"})
	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/adaptations", []adaptationRequest{
		{Format: domain.FormatBanner},
		{Format: domain.FormatStory},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	derived := decode[[]domain.DerivedImage](t, resp)
	require.Len(t, derived, 2)
	for _, d := range derived {
		assert.NotNil(t, d.Image, d.Format)
		assert.False(t, d.InProgress)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions/"+sid+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("content-type"))
	assert.Contains(t, resp.Header.Get("content-disposition"), "visual-pack_custom-universe_")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestPresetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	resp := env.do(t, http.MethodPost, "/api/presets", domain.UniversePreset{Label: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/presets/suggest", map[string]string{"theme": "Neon Racing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft := decode[domain.UniversePreset](t, resp)
	assert.Equal(t, "Neon Racing", draft.Label)

	resp = env.do(t, http.MethodPost, "/api/presets", draft)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decode[domain.UniversePreset](t, resp)
	require.NotEmpty(t, saved.ID)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/universes/"+saved.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["active"])

	resp = env.do(t, http.MethodDelete, "/api/presets/smashverse", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/presets/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	st, ok := env.sessions.Get(sid)
	require.True(t, ok)
	assert.NotContains(t, st.Options().Universes, saved.ID)

	resp = env.do(t, http.MethodDelete, "/api/presets/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPromptRefineAndCorrect(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/"+sid+"/prompt/refine", map[string]string{"feedback": "darker"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refined := decode[map[string]string](t, resp)["prompt"]
	assert.NotEmpty(t, refined)

	resp = env.do(t, http.MethodGet, "/api/sessions/"+sid+"/prompt", nil)
	got := decode[map[string]any](t, resp)
	assert.Equal(t, refined, got["prompt"])
	assert.Equal(t, true, got["customized"])

	resp = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/correct", map[string]string{"text": "tournoi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TOURNOI", decode[map[string]string](t, resp)["text"])
}

func TestEventsStreamProgress(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/sessions/" + sid + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent := func() domain.Progress {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var p domain.Progress
		require.NoError(t, conn.ReadJSON(&p))
		return p
	}

	assert.Equal(t, domain.ActivityPipeline, readEvent().Activity)
	assert.Equal(t, domain.ActivityAdaptation, readEvent().Activity)

	resp := env.do(t, http.MethodPost, "/api/sessions/"+sid+"/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stages []domain.Stage
	for {
		p := readEvent()
		stages = append(stages, p.Stage)
		if p.Stage == domain.StageDone {
			break
		}
	}
	assert.Contains(t, stages, domain.StageGeneratingMaster)
	assert.Contains(t, stages, domain.StageInferringStyle)
}
