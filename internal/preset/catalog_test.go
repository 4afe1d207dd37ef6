package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomessina-code/EVS14/internal/domain"
)

func samplePreset(label string) domain.UniversePreset {
	return domain.UniversePreset{
		Label:        label,
		Description:  "test universe",
		GameType:     "fps",
		GraphicStyle: "manga",
		Ambiance:     "epic",
		Subject:      "duo",
		Keywords:     []string{" sparks ", "", "steel"},
		Palette:      [4]string{"000000", "#ffffff", "#FF00AA", "#00ffcc"},
		Weight:       0.55,
	}
}

func TestBuiltInsAreValidAndImmutable(t *testing.T) {
	c := New(nil, Options{})

	for _, p := range BuiltIns() {
		assert.True(t, p.BuiltIn, p.ID)
		assert.NoError(t, p.Validate(), p.ID)
	}

	assert.ErrorIs(t, c.Delete("smashverse"), ErrImmutable)
	_, err := c.Update("smashverse", samplePreset("x"))
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestCatalogCRUD(t *testing.T) {
	var notified [][]domain.UniversePreset
	c := New(nil, Options{OnChange: func(p []domain.UniversePreset) { notified = append(notified, p) }})

	added, err := c.Add(samplePreset("Steel Duel"))
	require.NoError(t, err)
	assert.Contains(t, added.ID, "custom_")
	assert.True(t, added.Custom)
	assert.Equal(t, domain.GameFPS, added.GameType)
	assert.Equal(t, domain.StyleManga, added.GraphicStyle)
	assert.Equal(t, domain.AmbianceEpic, added.Ambiance)
	assert.Equal(t, domain.SubjectDuo, added.Subject)
	assert.Equal(t, []string{"sparks", "steel"}, added.Keywords)
	assert.Equal(t, "#000000", added.Palette[0])

	got, ok := c.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Steel Duel", got.Label)
	assert.Len(t, c.All(), len(BuiltIns())+1)

	upd := samplePreset("Steel Duel II")
	_, err = c.Update(added.ID, upd)
	require.NoError(t, err)
	got, _ = c.Get(added.ID)
	assert.Equal(t, "Steel Duel II", got.Label)

	require.NoError(t, c.Delete(added.ID))
	assert.ErrorIs(t, c.Delete(added.ID), ErrNotFound)
	assert.Empty(t, c.Custom())

	require.Len(t, notified, 3)
	assert.Empty(t, notified[2])
}

func TestCatalogRejectsInvalidAndLimit(t *testing.T) {
	c := New(nil, Options{MaxCustom: 1})

	bad := samplePreset("")
	_, err := c.Add(bad)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.Add(samplePreset("one"))
	require.NoError(t, err)
	_, err = c.Add(samplePreset("two"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewDropsBrokenStoredPresets(t *testing.T) {
	good := Normalize(samplePreset("kept"))
	good.ID = "custom_1"
	dup := good
	noPrefix := good
	noPrefix.ID = "smashverse"
	broken := good
	broken.ID = "custom_2"
	broken.Weight = 3

	c := New([]domain.UniversePreset{good, dup, noPrefix, broken}, Options{})

	custom := c.Custom()
	require.Len(t, custom, 1)
	assert.Equal(t, "custom_1", custom[0].ID)
}

func TestResolveKeepsSelectionOrder(t *testing.T) {
	c := New(nil, Options{})
	got := c.Resolve([]string{"stadiumCup", "missing", "arenaFPS"})
	require.Len(t, got, 2)
	assert.Equal(t, "stadiumCup", got[0].ID)
	assert.Equal(t, "arenaFPS", got[1].ID)
}

func TestToggle(t *testing.T) {
	c := New(nil, Options{})
	opts := domain.DefaultOptions()

	selected, err := c.Toggle(&opts, "arenaFPS")
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, domain.GameFPS, opts.GameType)
	assert.Equal(t, domain.StyleRealistic, opts.GraphicStyle)

	opts.GraphicStyle = domain.StyleMinimal
	_, err = c.Toggle(&opts, "epicLegends")
	require.NoError(t, err)
	assert.Equal(t, []string{"arenaFPS", "epicLegends"}, opts.Universes)
	assert.Equal(t, domain.StyleMinimal, opts.GraphicStyle)

	selected, err = c.Toggle(&opts, "arenaFPS")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"epicLegends"}, opts.Universes)
	assert.Equal(t, domain.StyleFantasy, opts.GraphicStyle)

	_, err = c.Toggle(&opts, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeFallbacks(t *testing.T) {
	p := Normalize(domain.UniversePreset{GameType: "chess", GraphicStyle: "oil", Subject: "crowd", Ambiance: "???", Weight: 1.7})
	assert.Equal(t, domain.GameMultiGenre, p.GameType)
	assert.Equal(t, domain.StyleCyberpunk, p.GraphicStyle)
	assert.Equal(t, domain.SubjectCharacter, p.Subject)
	assert.Equal(t, domain.AmbianceAuto, p.Ambiance)
	assert.Equal(t, 1.0, p.Weight)
}
