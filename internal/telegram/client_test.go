package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))

	parts := splitByBytes(strings.Repeat("é", 5), 4)
	assert.Equal(t, []string{"éé", "éé", "é"}, parts)
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateByBytes("abc", 5))
	assert.Equal(t, "é", truncateByBytes("éé", 3))
}

func TestInlineKeyboard(t *testing.T) {
	markup := inlineKeyboard([][]Button{
		{{Text: "Poster", Data: "ev:1:fmt:2:3"}, {Text: "Story", Data: "ev:1:fmt:9:16"}},
		{},
		{{Text: "Long", Data: strings.Repeat("x", 100)}},
	})
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	require.NotNil(t, markup.InlineKeyboard[1][0].CallbackData)
	assert.Len(t, *markup.InlineKeyboard[1][0].CallbackData, 64)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "image.png", fileName("image", "image/png"))
	assert.Equal(t, "image.png", fileName("image", "application/x-unknown"))
}
