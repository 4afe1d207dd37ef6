package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, GameMOBA, opts.GameType)
	assert.Equal(t, StyleCyberpunk, opts.GraphicStyle)
	assert.Equal(t, SubjectCharacter, opts.Subject)
	require.NotNil(t, opts.SubjectSize)
	assert.Equal(t, 75, *opts.SubjectSize)
	assert.Equal(t, FormatPoster, opts.Format)
	assert.Equal(t, 50, opts.EffectsIntensity)
	assert.True(t, opts.TextLock)
	assert.True(t, opts.HighResolution)
	assert.Equal(t, 8, opts.PartnerZoneHeight)
	assert.Equal(t, ZoneBottom, opts.PartnerZonePosition)
	assert.False(t, opts.HasText())
}

func TestOptionsCloneIsDeep(t *testing.T) {
	opts := DefaultOptions()
	opts.Universes = []string{"a"}
	opts.ReferenceImage = &Image{Data: []byte{1, 2}, MIMEType: "image/png"}

	clone := opts.Clone()
	clone.Universes[0] = "b"
	*clone.SubjectSize = 10
	clone.ReferenceImage.Data[0] = 9

	assert.Equal(t, "a", opts.Universes[0])
	assert.Equal(t, 75, *opts.SubjectSize)
	assert.Equal(t, byte(1), opts.ReferenceImage.Data[0])
}

func TestShouldRenderText(t *testing.T) {
	tests := []struct {
		name string
		edit func(*GenerationOptions)
		want bool
	}{
		{"no text", func(o *GenerationOptions) {}, false},
		{"blank text", func(o *GenerationOptions) { o.EventName = "   " }, false},
		{"name only", func(o *GenerationOptions) { o.EventName = "Cup" }, true},
		{"date only", func(o *GenerationOptions) { o.EventDate = "01.01" }, true},
		{"hidden", func(o *GenerationOptions) { o.EventName = "Cup"; o.HideText = true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.edit(&opts)
			assert.Equal(t, tt.want, opts.ShouldRenderText())
		})
	}
}

func TestPromptAffectingEqual(t *testing.T) {
	base := DefaultOptions()
	base.Universes = []string{"a", "b"}

	same := base.Clone()
	same.Universes = []string{"b", "a"}
	same.Format = FormatBanner
	same.Language = LanguageEnglish
	same.HighResolution = false
	same.ModificationRequest = "brighter"
	assert.True(t, PromptAffectingEqual(base, same))

	changed := base.Clone()
	changed.EventName = "Finals"
	assert.False(t, PromptAffectingEqual(base, changed))

	resized := base.Clone()
	size := 40
	resized.SubjectSize = &size
	assert.False(t, PromptAffectingEqual(base, resized))

	withRef := base.Clone()
	withRef.ReferenceImage = &Image{Data: []byte("x")}
	assert.False(t, PromptAffectingEqual(base, withRef))
}

func TestFormats(t *testing.T) {
	defs := Formats()
	require.Len(t, defs, 6)
	assert.Equal(t, FormatPoster, defs[0].ID)

	def, ok := LookupFormat(FormatBanner)
	require.True(t, ok)
	assert.Equal(t, "1024x341", def.Dimensions())

	assert.False(t, Format("5:4").Valid())
	assert.Equal(t, FormatSquare, Format("bogus").Definition().ID)
}

func TestCropHintBand(t *testing.T) {
	hint, ok := DefaultCropHint(FormatBanner)
	require.True(t, ok)
	top, bottom := hint.Band(FormatBanner)
	assert.InDelta(t, 1.0/3.0, top, 1e-9)
	assert.InDelta(t, 2.0/3.0, bottom, 1e-9)

	top, bottom = CropHint{Y: 0.9}.Band(FormatLandscape)
	assert.InDelta(t, 1-9.0/16.0, top, 1e-9)
	assert.InDelta(t, 1.0, bottom, 1e-9)

	top, _ = CropHint{Y: -1}.Band(FormatBanner)
	assert.Equal(t, 0.0, top)

	_, ok = DefaultCropHint(FormatStory)
	assert.False(t, ok)
}

func TestParseDataURL(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\n0000")
	encoded := base64.StdEncoding.EncodeToString(payload)

	img, err := ParseDataURL("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, payload, img.Data)

	img, err = ParseDataURL(encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "data:image/png;base64,"+encoded, img.DataURL())

	_, err = ParseDataURL("")
	assert.Error(t, err)
	_, err = ParseDataURL("data:image/png;base64,%%%")
	assert.Error(t, err)
}

func TestTextSelection(t *testing.T) {
	opts := DefaultOptions()
	opts.EventName = "Cup"
	opts.EventDate = "01.01"

	sel := DefaultTextSelection(opts)
	assert.True(t, sel.Has(BlockEventName))
	assert.False(t, sel.Has(BlockBaseline))
	assert.True(t, sel.Has(BlockEventDate))
	assert.True(t, sel.Any())

	sel.Set(BlockEventDate, false)
	applied := ApplyTextSelection(opts, sel)
	assert.Equal(t, "Cup", applied.EventName)
	assert.Empty(t, applied.EventDate)
	assert.Equal(t, "01.01", opts.EventDate)

	assert.False(t, TextSelection{}.Any())
	assert.False(t, TextBlock("title").Valid())
	assert.Equal(t, "Location", BlockEventLocation.Label())
}

func TestGenerationErrorClassification(t *testing.T) {
	err := fmt.Errorf("run: %w", NewError(KindGenerationBlocked, "generate image", errors.New("SAFETY")))

	assert.ErrorIs(t, err, ErrGenerationBlocked)
	assert.NotErrorIs(t, err, ErrAuthInvalid)
	assert.Equal(t, KindGenerationBlocked, KindOf(err))
	assert.Contains(t, err.Error(), "SAFETY")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generate image", genErr.Op)

	assert.Equal(t, KindAuthInvalid, KindOf(fmt.Errorf("wrapped: %w", ErrAuthInvalid)))
	assert.Equal(t, KindNetworkOrUnknown, KindOf(errors.New("boom")))
	assert.NotEmpty(t, UserMessage(errors.New("boom")))
	assert.Empty(t, UserMessage(nil))
}

func TestPresetValidate(t *testing.T) {
	p := UniversePreset{
		Label:   "Neon Arena",
		Weight:  0.6,
		Palette: [4]string{"#000000", "#FFFFFF", "#ff00aa", "#00ffcc"},
	}
	require.NoError(t, p.Validate())

	p.Weight = 0
	p.Palette[2] = "red"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "influence weight")
	assert.Contains(t, err.Error(), "palette[2]")
}

func TestPresetApplyTo(t *testing.T) {
	opts := DefaultOptions()
	opts.Ambiance = AmbianceEpic
	p := UniversePreset{GameType: GameFPS, GraphicStyle: StyleRealistic, Subject: SubjectDuo}

	p.ApplyTo(&opts)

	assert.Equal(t, GameFPS, opts.GameType)
	assert.Equal(t, StyleRealistic, opts.GraphicStyle)
	assert.Equal(t, AmbianceAuto, opts.Ambiance)
	assert.Equal(t, SubjectDuo, opts.Subject)
}
