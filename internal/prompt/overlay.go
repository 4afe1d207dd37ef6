package prompt

import (
	"fmt"
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
)

// Overlay builds the text compositing rulebook. A nil or incomplete style asks
// the model to derive one style from the image itself.
func Overlay(opts domain.GenerationOptions, format domain.Format, style *domain.TextStyle) string {
	var blocks []string
	for _, block := range domain.TextBlocks() {
		if value := strings.TrimSpace(block.Get(&opts)); value != "" {
			blocks = append(blocks, fmt.Sprintf("- %s: %q", block.Label(), value))
		}
	}
	if len(blocks) == 0 {
		return "No text was provided. Return the original image unchanged."
	}

	var b strings.Builder
	b.Grow(4096)

	b.WriteString("TASK: You are a master graphic designer for high-impact esports visuals. Add the text content below to the provided background image following every rule of the rulebook. Breaking any rule fails the whole task.\n\n")
	b.WriteString("Target format: " + format.Definition().Orientation + "\n\n")
	b.WriteString("TEXT CONTENT:\n")
	b.WriteString(strings.Join(blocks, "\n") + "\n\n")

	b.WriteString("RULE 1: GEOMETRY AND PLACEMENT (ABSOLUTE PRIORITY)\n")
	writeSection(&b, "1.1 The 10% safe area", []string{
		"Define a safe area inset by 10% from ALL four edges. Text may only use the central 80% of the canvas.",
		"EVERY part of every text element, including glows, shadows and outlines, stays ENTIRELY inside the safe area, without exception.",
	})
	writeSection(&b, "1.2 Proportional font sizing", []string{
		"Size fonts proportionally to the image height, never in fixed pixels.",
		"The main title is about 7-10% of the image height. Other blocks scale down from it following the hierarchy.",
	})
	writeSection(&b, "1.3 No cropping", []string{
		"No letter may be cut by an image edge. Every character is 100% visible.",
	})
	writeSection(&b, "1.4 Dynamic composition", []string{
		"Balance the layout for this specific format and adapt when some blocks are missing.",
		"Never place text over the most critical part of the subject, such as a face.",
	})
	b.WriteString("\n")

	b.WriteString("RULE 2: ONE STYLE FOR ALL TEXT\n")
	if style != nil && style.Complete() {
		writeSection(&b, "2.1 Enforced style (do not deviate)", []string{
			fmt.Sprintf("Font family: %q", style.FontFamily),
			fmt.Sprintf("Primary color: %q", style.Color),
			fmt.Sprintf("Readability effect: %q", style.Effect),
			"Apply this exact style identically to ALL text blocks.",
		})
	} else {
		writeSection(&b, "2.1 Style derived from the image", []string{
			"Derive font, color and effect solely from the background image so the text looks fully integrated.",
			"Apply that single style identically to ALL text blocks. The format changes size and position only.",
		})
	}
	writeSection(&b, "2.2 Typography", []string{
		"Modern, bold, highly legible sans-serif typeface suited to esports.",
		"Professional and consistent line and letter spacing.",
	})
	writeSection(&b, "2.3 Visual hierarchy", []string{
		"Event name is the largest and most dominant text.",
		"Baseline is clearly secondary to the title.",
		"Location and date are the smallest and are usually grouped together.",
	})
	b.WriteString("\n")

	b.WriteString("RULE 3: CONTENT FIDELITY\n")
	b.WriteString("- Reproduce the text content character for character. No additions, omissions or paraphrasing.\n\n")

	b.WriteString("Before answering, check every rule again and fix the overlay if any is broken. Return only the final image.")
	return b.String()
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("- " + title + ":\n")
	for _, line := range lines {
		b.WriteString("  - " + line + "\n")
	}
}
