package prompt

import (
	"fmt"
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
)

const TextStyleInference = `You are an expert graphic designer. Analyze the provided esports image and determine the optimal typography for text overlays.
1. fontFamily: a bold, modern sans-serif family suited to esports that matches the image theme (for example Orbitron, Teko, Exo 2, Rajdhani).
2. color: a bright, high-contrast text color sampled from the image, readable over the top and bottom thirds, as a hex code like "#FFFFFF".
3. effect: one concise readability effect, for example "A subtle white outer glow." or "A tight dark drop shadow (offset 2px)."
Respond ONLY with a JSON object matching the schema.`

const NoMarginsCheck = `Precision quality control: decide whether the image is full bleed or has margins.
- Full bleed: the artwork continues to the absolute edge on all four sides.
- Margin: any solid or patterned band, distinct from the artwork, along one or more edges. A 1-pixel border counts.
Scrutinize all four edges and compare edge pixels with the adjacent artwork.
Respond ONLY with JSON: {"hasMargins": true} if any border exists on any side, {"hasMargins": false} only if the artwork is perfectly full bleed.`

const TextAbsenceCheck = `Analyze the provided image and decide whether ANY text, letters or numbers are visible anywhere in it.
Respond ONLY with JSON {"hasText": boolean}: true if any readable text is found, false if the image is purely graphical.`

// TextFidelityCheck asks for a character-exact comparison with expected.
func TextFidelityCheck(expected string) string {
	return fmt.Sprintf(`Extract ALL visible text from the image and compare it with the expected text.
Expected text: %q
The match must be character for character: identical punctuation, capitalization and spacing, the same order, nothing added or omitted.
Respond ONLY with JSON matching the schema. isPerfectMatch is true only if the text is identical.`, expected)
}

// RefineInstruction rewrites a prompt to include the user's feedback.
func RefineInstruction(feedback string) string {
	return fmt.Sprintf(`Rewrite the image generation prompt given below to incorporate this change request: %q
Keep the original structure and every critical instruction (such as NO MARGINS). Only change the parts the request is about.
Output ONLY the complete refined prompt and nothing else.`, strings.TrimSpace(feedback))
}

// CorrectionInstruction fixes grammar and spelling of short free text.
func CorrectionInstruction(lang domain.Language) string {
	language := "French"
	if lang == domain.LanguageEnglish {
		language = "English"
	}
	return fmt.Sprintf(`Correct the grammar, spelling and syntax of the following %s text while preserving its meaning.
Return only the corrected text, without any introduction.`, language)
}

// PresetSuggestion asks for a complete universe preset for theme.
func PresetSuggestion(theme string, gameTypes, styles, ambiances, subjects []string) string {
	quote := func(values []string) string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fmt.Sprintf("%q", v))
		}
		return strings.Join(out, ", ")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Based on the theme %q, create a complete universe preset for an esports visual generator.\n", strings.TrimSpace(theme)))
	b.WriteString("Respond ONLY with a JSON object matching the schema:\n")
	b.WriteString("- label: a catchy universe name.\n")
	b.WriteString("- description: a short, evocative description of its feel.\n")
	b.WriteString("- gameType: one of " + quote(gameTypes) + ".\n")
	b.WriteString("- style: one of " + quote(styles) + ".\n")
	b.WriteString("- ambiance: one of " + quote(ambiances) + ".\n")
	b.WriteString("- elements: one of " + quote(subjects) + ".\n")
	b.WriteString("- keywords: 5 to 7 thematic keywords.\n")
	b.WriteString("- colorPalette: exactly 4 hex color codes.\n")
	b.WriteString("- influenceWeight: a number between 0.4 and 0.8.\n")
	return b.String()
}
