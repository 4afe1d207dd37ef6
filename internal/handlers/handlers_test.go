package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomessina-code/EVS14/internal/domain"
)

func TestCallbackDataKeepsFormatColon(t *testing.T) {
	data := callbackData(42, actionFormat, string(domain.FormatLandscape))
	assert.Equal(t, "ev:42:fmt:16:9", data)

	cb, ok := parseCallback(data)
	require.True(t, ok)
	assert.Equal(t, int64(42), cb.owner)
	assert.Equal(t, actionFormat, cb.action)
	assert.Equal(t, "16:9", cb.arg)

	cb, ok = parseCallback("ev:7:gen:")
	require.True(t, ok)
	assert.Equal(t, actionGenerate, cb.action)
	assert.Empty(t, cb.arg)
}

func TestParseCallbackRejectsForeignData(t *testing.T) {
	for _, data := range []string{"", "pv:1:menu:main", "ev:abc:gen:", "ev:1"} {
		_, ok := parseCallback(data)
		assert.False(t, ok, data)
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	id := sessionID(-100123)
	assert.Equal(t, "tg:-100123", id)

	chatID, ok := chatFromSession(id)
	require.True(t, ok)
	assert.Equal(t, int64(-100123), chatID)

	_, ok = chatFromSession("web-session")
	assert.False(t, ok)
}

func TestParseEventArgs(t *testing.T) {
	values := parseEventArgs("Spring Cup |  | - | 12 May")
	require.Len(t, values, 4)
	require.NotNil(t, values[0])
	assert.Equal(t, "Spring Cup", *values[0])
	assert.Nil(t, values[1])
	require.NotNil(t, values[2])
	assert.Empty(t, *values[2])
	assert.Equal(t, "12 May", *values[3])
}

func TestParseSubjectArgs(t *testing.T) {
	subject, size, ok := parseSubjectArgs("duo 60%")
	require.True(t, ok)
	assert.Equal(t, domain.SubjectDuo, subject)
	require.NotNil(t, size)
	assert.Equal(t, 60, *size)

	subject, size, ok = parseSubjectArgs("background")
	require.True(t, ok)
	assert.Equal(t, domain.SubjectBackground, subject)
	assert.Nil(t, size)

	_, _, ok = parseSubjectArgs("duo 140")
	assert.False(t, ok)
	_, _, ok = parseSubjectArgs("")
	assert.False(t, ok)
}

func TestParseAdaptArgs(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.Format = domain.FormatSquare
	opts.EventName = "Cup"

	reqs, err := parseAdaptArgs("", opts)
	require.NoError(t, err)
	require.Len(t, reqs, 5)
	for _, r := range reqs {
		assert.NotEqual(t, domain.FormatSquare, r.Format)
		assert.True(t, r.Text.EventName)
		assert.False(t, r.Text.EventDate)
	}

	reqs, err = parseAdaptArgs("3:1 3:1 notext", opts)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.FormatBanner, reqs[0].Format)
	assert.False(t, reqs[0].Text.Any())
	require.NotNil(t, reqs[0].Crop)
	assert.InDelta(t, 1.0/3.0, reqs[0].Crop.Y, 1e-9)

	_, err = parseAdaptArgs("7:2", opts)
	assert.Error(t, err)
}

func TestResolveHistoryID(t *testing.T) {
	history := []domain.HistoryEntry{{ID: "aaa-1"}, {ID: "bbb-2"}}

	id, ok := resolveHistoryID(history, "2")
	require.True(t, ok)
	assert.Equal(t, "bbb-2", id)

	id, ok = resolveHistoryID(history, "aaa")
	require.True(t, ok)
	assert.Equal(t, "aaa-1", id)

	for _, arg := range []string{"", "0", "3", "zzz"} {
		_, ok := resolveHistoryID(history, arg)
		assert.False(t, ok, arg)
	}
}

func TestFormatKeyboardMarksCurrent(t *testing.T) {
	rows := formatKeyboard(1, domain.FormatStory)
	require.Len(t, rows, 3)

	var marked []string
	for _, row := range rows {
		for _, b := range row {
			if strings.HasPrefix(b.Text, "✅") {
				marked = append(marked, b.Data)
			}
		}
	}
	assert.Equal(t, []string{"ev:1:fmt:9:16"}, marked)
}

func TestResultKeyboardOffersLocalCropsForSquare(t *testing.T) {
	assert.Len(t, resultKeyboard(1, domain.FormatSquare), 2)
	assert.Len(t, resultKeyboard(1, domain.FormatPoster), 1)
}

func TestOptionsSummary(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.EventName = "Spring Cup"
	opts.ReservePartnerZone = true

	text := optionsSummary(opts, []domain.UniversePreset{{Label: "Arena FPS"}, {Label: "Stadium Cup"}})
	assert.Contains(t, text, "Universes: Arena FPS, Stadium Cup")
	assert.Contains(t, text, "Ambiance: auto")
	assert.Contains(t, text, "Central character, 75% of the height")
	assert.Contains(t, text, "Partner zone: 8% bottom")
	assert.Contains(t, text, "Spring Cup")

	assert.Contains(t, optionsSummary(domain.DefaultOptions(), nil), "Universes: none")
}

func TestHistoryList(t *testing.T) {
	assert.Equal(t, "History is empty.", historyList(nil))

	text := historyList([]domain.HistoryEntry{{
		ID:        "x",
		Timestamp: time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
		Options:   domain.GenerationOptions{Format: domain.FormatSquare},
		Prompt:    "A neon arena",
	}})
	assert.Contains(t, text, "1. 01 May 09:30 1:1 A neon arena")
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "abc", truncateLine(" abc ", 5))
	assert.Equal(t, "ab…", truncateLine("abcdef", 2))
}
