package prompt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jomessina-code/EVS14/internal/domain"
)

func presetFixture(id, label string, weight float64) domain.UniversePreset {
	return domain.UniversePreset{
		ID:          id,
		Label:       label,
		Description: label + " description",
		Keywords:    []string{"sparks", "steel"},
		Palette:     [4]string{"#000000", "#111111", "#222222", "#333333"},
		Weight:      weight,
	}
}

func sizedOptions(subject domain.Subject, size int) domain.GenerationOptions {
	opts := domain.DefaultOptions()
	opts.Subject = subject
	opts.SubjectSize = &size
	return opts
}

func TestComposeIsDeterministic(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.EventName = "Finals"
	opts.ReservePartnerZone = true
	active := []domain.UniversePreset{presetFixture("a", "Alpha", 0.5), presetFixture("b", "Beta", 0.3)}

	for _, intent := range []Intent{IntentBase, IntentAdaptation, IntentOverlay} {
		t.Run(intent.String(), func(t *testing.T) {
			first := Compose(opts, active, intent)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, Compose(opts, active, intent))
			}
		})
	}
}

func TestBasePresetClauses(t *testing.T) {
	opts := domain.DefaultOptions()

	none := Base(opts, nil)
	assert.NotContains(t, none, "THEMATIC INSPIRATION")

	single := Base(opts, []domain.UniversePreset{presetFixture("a", "Alpha", 0.5)})
	assert.Contains(t, single, `inspired by the "Alpha" universe`)
	assert.Contains(t, single, "primary instructions")
	assert.NotContains(t, single, "weight")

	multi := Base(opts, []domain.UniversePreset{
		presetFixture("a", "Alpha", 0.555),
		presetFixture("b", "Beta", 0.3),
		presetFixture("c", "Gamma", 1),
	})
	assert.Contains(t, multi, "Universe Alpha (weight 56%)")
	assert.Contains(t, multi, "Universe Beta (weight 30%)")
	assert.Contains(t, multi, "Universe Gamma (weight 100%)")
	assert.Contains(t, multi, "harmonically")
}

func TestSubjectSizing(t *testing.T) {
	for _, subject := range []domain.Subject{domain.SubjectCharacter, domain.SubjectDuo, domain.SubjectTrophy, domain.SubjectBackground} {
		t.Run(string(subject), func(t *testing.T) {
			text := Base(sizedOptions(subject, 0), nil)
			assert.Contains(t, text, "must NOT contain any humans, humanoids, characters, creatures")
		})
	}

	for _, subject := range []domain.Subject{domain.SubjectCharacter, domain.SubjectDuo, domain.SubjectTrophy} {
		t.Run(string(subject)+" full", func(t *testing.T) {
			text := Base(sizedOptions(subject, 100), nil)
			assert.Contains(t, text, "extreme close-up, almost abstract")
			assert.NotContains(t, text, "must NOT contain any humans")
		})
	}

	for _, size := range []int{1, 42, 99} {
		text := Base(sizedOptions(domain.SubjectCharacter, size), nil)
		assert.Contains(t, text, "approximately "+strconv.Itoa(size)+"% of the total image height")
		assert.Contains(t, text, "strong guideline")
	}

	noSize := domain.DefaultOptions()
	noSize.SubjectSize = nil
	assert.Contains(t, Base(noSize, nil), "three quarters")
}

func TestBaseTextDirectives(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.EventName = "Cup"
	opts.CustomPrompt = "golden light"
	text := Base(opts, nil)
	assert.Contains(t, text, "Do NOT add any readable text")
	assert.Contains(t, text, `"Cup"`)
	assert.Contains(t, text, "FULL BLEED")
	assert.Contains(t, text, "golden light")

	opts.HideText = true
	text = Base(opts, nil)
	assert.Contains(t, text, "must NOT contain any text")
	assert.NotContains(t, text, `"Cup"`)

	opts.ReservePartnerZone = true
	opts.PartnerZonePosition = domain.ZoneTop
	opts.PartnerZoneHeight = 12
	assert.Contains(t, Base(opts, nil), "at the top of the image, about 12% of the total image height")
}

func TestModificationOverridesBase(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.EventName = "Cup"
	opts.ModificationRequest = "make the sky red"

	text := Base(opts, []domain.UniversePreset{presetFixture("a", "Alpha", 0.5)})
	assert.Contains(t, text, `CREATIVE MANDATE: "make the sky red"`)
	assert.Contains(t, text, "correct any spelling")
	assert.Contains(t, text, `Event: "Cup"`)
	assert.NotContains(t, text, "Alpha")
}

func TestAdaptation(t *testing.T) {
	opts := domain.DefaultOptions()
	text := Adaptation(opts, domain.FormatLandscape, nil)
	assert.Contains(t, text, "landscape (16:9 aspect ratio)")
	assert.Contains(t, text, "NO stretching")
	assert.Contains(t, text, "NO mirror")
	assert.Contains(t, text, "NO borders")

	banded := Adaptation(opts, domain.FormatBanner, &domain.CropHint{Y: 0.25})
	assert.Contains(t, banded, "between 25% and 58% of its height")
}

func TestOverlay(t *testing.T) {
	opts := domain.DefaultOptions()
	assert.Contains(t, Overlay(opts, domain.FormatSquare, nil), "unchanged")

	opts.EventName = "Finals"
	opts.EventDate = "01.01.2025"
	style := &domain.TextStyle{FontFamily: "Orbitron", Color: "#FFFFFF", Effect: "soft glow"}

	enforced := Overlay(opts, domain.FormatStory, style)
	assert.Contains(t, enforced, "10% from ALL four edges")
	assert.Contains(t, enforced, "7-10% of the image height")
	assert.Contains(t, enforced, `Font family: "Orbitron"`)
	assert.Contains(t, enforced, `Event Name (Main Title): "Finals"`)
	assert.NotContains(t, enforced, "Baseline (Subtitle):")
	assert.Less(t, strings.Index(enforced, "Event Name"), strings.Index(enforced, "Date:"))

	derived := Overlay(opts, domain.FormatStory, &domain.TextStyle{FontFamily: "Orbitron"})
	assert.Contains(t, derived, "derived from the image")
}

func TestExpectedText(t *testing.T) {
	opts := domain.DefaultOptions()
	opts.EventName = "Finals"
	opts.Baseline = " Who will  win? "
	opts.EventLocation = "Paris"
	opts.EventDate = "01.01.2025"
	assert.Equal(t, "Finals Who will win? Paris 01.01.2025", ExpectedText(opts))

	hidden := opts
	hidden.HideText = true
	assert.Equal(t, "", ExpectedText(hidden))

	unlocked := opts
	unlocked.TextLock = false
	assert.Equal(t, "", ExpectedText(unlocked))

	partial := domain.DefaultOptions()
	partial.EventName = "Cup"
	assert.Equal(t, "Cup", ExpectedText(partial))
}
