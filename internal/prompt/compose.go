package prompt

import (
	"fmt"
	"math"
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
)

type Intent int

const (
	IntentBase Intent = iota
	IntentAdaptation
	IntentOverlay
)

func (i Intent) String() string {
	switch i {
	case IntentBase:
		return "base"
	case IntentAdaptation:
		return "adaptation"
	case IntentOverlay:
		return "overlay"
	}
	return fmt.Sprintf("intent(%d)", int(i))
}

// Compose builds the instruction for one generation intent. It is pure: the
// same inputs always produce the same string.
func Compose(opts domain.GenerationOptions, active []domain.UniversePreset, intent Intent) string {
	switch intent {
	case IntentAdaptation:
		return Adaptation(opts, opts.Format, nil)
	case IntentOverlay:
		return Overlay(opts, opts.Format, nil)
	default:
		return Base(opts, active)
	}
}

// Base is the master-image prompt. A modification request replaces the
// whole template with an edit mandate.
func Base(opts domain.GenerationOptions, active []domain.UniversePreset) string {
	if strings.TrimSpace(opts.ModificationRequest) != "" {
		return Modification(opts)
	}

	var b strings.Builder
	b.Grow(4096)

	b.WriteString("TASK: Create a visually stunning, ultra-high-quality esports event poster background. The style must be modern, dynamic and professional.\n\n")

	b.WriteString("CORE THEME & STYLE (primary instructions):\n")
	b.WriteString("- Composition: the main subject MUST be centered so it survives later adaptation to other formats.\n")
	b.WriteString("- Canvas: " + opts.Format.Definition().Orientation + ".\n")
	b.WriteString("- Game genre: " + string(opts.GameType) + ".\n")
	b.WriteString("- Dominant graphic style: " + string(opts.GraphicStyle) + ".\n")
	if opts.Ambiance == domain.AmbianceAuto {
		b.WriteString("- Visual ambiance: decided by you to best fit the theme.\n")
	} else {
		b.WriteString("- Visual ambiance: " + string(opts.Ambiance) + ".\n")
	}
	b.WriteString("- Key visual elements: " + subjectClause(opts) + "\n")
	b.WriteString(fmt.Sprintf("- Special effects intensity: %d%%. Expect particles, glows, light streaks and lens flares balanced according to this intensity.\n", clampPercent(opts.EffectsIntensity)))
	if opts.TransparentBackground {
		b.WriteString("- Backdrop: keep the area behind the subject a flat, uniform, evenly lit color with no texture or gradient so it can be keyed out cleanly.\n")
	}
	if opts.HighResolution {
		b.WriteString("- Resolution: render at the highest available resolution with crisp, print-ready detail.\n")
	}
	b.WriteString("\n")

	if thematic := universeClause(active); thematic != "" {
		b.WriteString("THEMATIC INSPIRATION (secondary instructions):\n")
		b.WriteString(thematic + "\n\n")
	}

	if opts.ReferenceImage != nil && !opts.ReferenceImage.Empty() {
		b.WriteString("REFERENCE IMAGE:\n")
		b.WriteString("- The attached image is inspiration for composition, palette and mood. Do not copy it literally.\n\n")
	}

	b.WriteString("TEXT & LAYOUT:\n")
	if opts.ShouldRenderText() {
		b.WriteString("- IMPORTANT: generate ONLY the background visual. Do NOT add any readable text, letters or numbers.\n")
		b.WriteString("- Leave clear, visually balanced space for text that will be added later:\n")
		for _, block := range domain.TextBlocks() {
			if value := strings.TrimSpace(block.Get(&opts)); value != "" {
				b.WriteString(fmt.Sprintf("  - %s: %q\n", block.Label(), value))
			}
		}
	} else {
		b.WriteString("- The image must NOT contain any text, letters or numbers. It is a pure background visual.\n")
	}
	if opts.ReservePartnerZone {
		position := opts.PartnerZonePosition
		if position == "" {
			position = domain.ZoneBottom
		}
		b.WriteString(fmt.Sprintf("- Reserve a clean, unobtrusive zone for partner logos at the %s of the image, about %d%% of the total image height. Integrate it with a subtle gradient or semi-transparent overlay. Do not place any logo in it.\n", position, clampPercent(opts.PartnerZoneHeight)))
	}
	b.WriteString("\n")

	if custom := strings.TrimSpace(opts.CustomPrompt); custom != "" {
		b.WriteString("ADDITIONAL NOTES:\n")
		b.WriteString("- " + custom + "\n\n")
	}

	b.WriteString("CRITICAL QUALITY INSTRUCTIONS:\n")
	b.WriteString("1. NO MARGINS / FULL BLEED: the artwork MUST extend to the absolute edges of the canvas. Zero margins, borders or padding of any color (white, black or otherwise).\n")
	b.WriteString("2. Professional quality: sharp, detailed, made for a major esports event. No artifacts, strange anatomy or distorted elements.\n")

	return strings.TrimSpace(b.String())
}

func universeClause(active []domain.UniversePreset) string {
	switch len(active) {
	case 0:
		return ""
	case 1:
		p := active[0]
		return fmt.Sprintf("The visual is inspired by the %q universe. Thematic direction from keywords: %s. Suggested color palette: %s. The explicit style choices above remain the primary instructions.",
			p.Label, strings.Join(p.Keywords, ", "), strings.Join(p.Palette[:], ", "))
	}

	var b strings.Builder
	b.WriteString("The visual is a fusion of multiple universes:\n")
	for _, p := range active {
		b.WriteString(fmt.Sprintf("- Universe %s (weight %d%%): %s. Keywords: %s. Colors: %s.\n",
			p.Label, weightPercent(p.Weight), p.Description, strings.Join(p.Keywords, ", "), strings.Join(p.Palette[:], ", ")))
	}
	b.WriteString("Blend these universes harmonically, each in proportion to its weight.")
	return b.String()
}

func weightPercent(w float64) int {
	return int(math.Round(w * 100))
}

const backgroundOnly = "Immersive background without a subject. CRITICAL: the image must be a pure background scene. It must NOT contain any humans, humanoids, characters, creatures or distinct faces. The focus is entirely on the environment, atmosphere and abstract elements."

func subjectClause(opts domain.GenerationOptions) string {
	if opts.SubjectSize != nil && *opts.SubjectSize <= 0 {
		return backgroundOnly
	}

	var lead, noun string
	switch opts.Subject {
	case domain.SubjectBackground:
		return backgroundOnly
	case domain.SubjectTrophy:
		lead = "The central focus is a majestic logo or trophy integrated into the scene. The image must not contain any human or humanoid characters."
		noun = "the logo or trophy"
	case domain.SubjectCharacter, domain.SubjectDuo:
		lead = string(opts.Subject) + ". The character(s) MUST be the main subject, prominently featured."
		noun = "the character(s)"
	default:
		return string(opts.Subject) + "."
	}

	if opts.SubjectSize == nil {
		if opts.Subject == domain.SubjectTrophy {
			return lead
		}
		return lead + " They must occupy at least three quarters of the visual's height."
	}

	size := *opts.SubjectSize
	if size >= 100 {
		return lead + fmt.Sprintf("\n  - Framing: an extreme close-up, almost abstract, on a texture or detail of %s filling the entire frame.", noun)
	}
	return lead + fmt.Sprintf("\n  - Framing (strong guideline): the height of %s should be approximately %d%% of the total image height. Choose the camera distance and angle to honor this proportion.", noun, size) +
		"\n  - For reference: around 10% is a small full-body figure in a wide scene, around 50% is a waist-up shot, around 90% is a tight close-up filling almost the whole height."
}

// Adaptation asks the model to outpaint the square master to format. A crop
// hint narrows the zone of interest to a horizontal band of the master.
func Adaptation(opts domain.GenerationOptions, format domain.Format, crop *domain.CropHint) string {
	def := format.Definition()

	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Intelligent outpainting. Adapt the provided square master image to a new aspect ratio, preserving its core subject while seamlessly extending the background.\n\n")

	b.WriteString("PRIMARY DIRECTIVE (PRESERVE THE MASTER):\n")
	if crop != nil {
		top, bottom := crop.Band(format)
		b.WriteString(fmt.Sprintf("- The zone of interest is the horizontal band of the master between %d%% and %d%% of its height, measured from the top. Recompose around this band rather than the whole square.\n",
			int(math.Round(top*100)), int(math.Round(bottom*100))))
	} else {
		b.WriteString("- The original square image is the zone of interest. It MUST stay at the center of the new composition.\n")
	}
	b.WriteString("- Its existing central content must NOT be altered, rescaled or distorted.\n\n")

	b.WriteString("SCENE EXTENSION:\n")
	b.WriteString("- Generate new visual information ONLY outside the preserved content to fill a " + def.Orientation + " canvas.\n")
	b.WriteString("- Continue textures, lighting direction, color palette and art style so the transition is invisible.\n")
	b.WriteString(fmt.Sprintf("- Context: game genre %s, style %s", opts.GameType, opts.GraphicStyle))
	if opts.Ambiance != domain.AmbianceAuto {
		b.WriteString(", ambiance " + string(opts.Ambiance))
	}
	b.WriteString(".\n\n")

	b.WriteString("STRICT PROHIBITIONS:\n")
	for _, line := range []string{
		"NO stretching or duplicating existing pixels.",
		"NO mirror effects or symmetrical padding.",
		"NO borders, frames or solid color bars. The image must be full bleed.",
		"NO text of any kind.",
	} {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\nReturn a single seamless image at the new aspect ratio.")
	return b.String()
}

// Modification is the edit mandate used for targeted-modification passes.
func Modification(opts domain.GenerationOptions) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: You are an expert image editor. Modify the provided base image according to the creative mandate below. The mandate has priority over every other consideration.\n\n")
	b.WriteString(fmt.Sprintf("CREATIVE MANDATE: %q\n\n", strings.TrimSpace(opts.ModificationRequest)))

	b.WriteString("EXECUTION STEPS:\n")
	b.WriteString("1. Silently correct any spelling or grammar mistakes in the mandate itself. The intent is what matters.\n")
	b.WriteString("2. Apply the corrected mandate precisely. The change must be visible and directly reflect the request.\n")
	b.WriteString("3. Preserve art style, lighting, composition and quality unless the mandate asks otherwise.\n")
	if opts.HasText() {
		b.WriteString(fmt.Sprintf("4. Preserve text: if the base image carries text, re-integrate the SAME text unless the mandate changes it. Event: %q, Baseline: %q, Location: %q, Date: %q.\n",
			opts.EventName, opts.Baseline, opts.EventLocation, opts.EventDate))
	} else {
		b.WriteString("4. Do not add any text, letters or numbers.\n")
	}
	b.WriteString("5. Keep the result full bleed (NO MARGINS) with the original aspect ratio.\n")
	return b.String()
}

// ExpectedText is what the fidelity check compares against. Empty means the
// image must carry no text at all.
func ExpectedText(opts domain.GenerationOptions) string {
	if !opts.ShouldRenderText() || !opts.TextLock {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, block := range domain.TextBlocks() {
		parts = append(parts, block.Get(&opts))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
