package handlers

import (
	"fmt"
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/preset"
)

const helpText = `🎮 Esports visual generator

Setup
/options show the current options
/format [ratio] choose the output format
/universe [id] toggle a universe
/universes list universes
/event name | baseline | location | date
/subject character|trophy|duo|background [size]
/set key=value ... (game, style, mood, subject, size, fx, lang, format, partner, zone)
Send a photo to use it as a reference image.

Create
/generate [key=value ...]
/variation new take with the same prompt
/modify <change>
/adapt [formats...] [notext]
/export [png|webp]

Prompt
/prompt show the prompt
/refine <feedback>
/correct <text>

Library
/history, /restore <n>, /delete <n>
/suggest <theme> propose a new universe
/new reset options
/key <api key>`

const setUsage = `Usage: /set key=value ...
game=fps style=manga mood=epic subject=duo size=60 fx=80
lang=english format=16:9 partner=10 zone=top
Flags: hidetext showtext lock nolock transparent opaque hd sd
Other words become the custom prompt.`

func optionsSummary(o domain.GenerationOptions, universes []domain.UniversePreset) string {
	var b strings.Builder

	names := make([]string, 0, len(universes))
	for _, u := range universes {
		names = append(names, u.Label)
	}
	uni := "none"
	if len(names) > 0 {
		uni = strings.Join(names, ", ")
	}
	ambiance := string(o.Ambiance)
	if ambiance == "" {
		ambiance = "auto"
	}

	fmt.Fprintf(&b, "🌌 Universes: %s\n", uni)
	fmt.Fprintf(&b, "🎮 Game: %s\n", o.GameType)
	fmt.Fprintf(&b, "🎨 Style: %s\n", o.GraphicStyle)
	fmt.Fprintf(&b, "🌗 Ambiance: %s\n", ambiance)
	fmt.Fprintf(&b, "🧍 Subject: %s\n", subjectLine(o))
	fmt.Fprintf(&b, "📐 Format: %s (%s)\n", o.Format.Definition().Label, o.Format)
	fmt.Fprintf(&b, "✨ Effects: %d%%\n", o.EffectsIntensity)
	fmt.Fprintf(&b, "🗣 Language: %s\n", o.Language)
	if o.ReservePartnerZone {
		fmt.Fprintf(&b, "🤝 Partner zone: %d%% %s\n", o.PartnerZoneHeight, o.PartnerZonePosition)
	}
	if o.TransparentBackground {
		b.WriteString("🫥 Transparent background\n")
	}
	if o.ReferenceImage != nil {
		b.WriteString("🖼 Reference image set\n")
	}
	if o.CustomPrompt != "" {
		fmt.Fprintf(&b, "💬 Custom: %s\n", truncateLine(o.CustomPrompt, 80))
	}
	b.WriteString("\n")
	b.WriteString(eventSummary(o))
	return strings.TrimRight(b.String(), "\n")
}

func subjectLine(o domain.GenerationOptions) string {
	if o.Subject.Sizable() && o.SubjectSize != nil {
		return fmt.Sprintf("%s, %d%% of the height", o.Subject, *o.SubjectSize)
	}
	return string(o.Subject)
}

func eventSummary(o domain.GenerationOptions) string {
	var b strings.Builder
	for _, block := range domain.TextBlocks() {
		v := block.Get(&o)
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "%s: %s\n", block.Label(), v)
	}
	if o.HideText {
		b.WriteString("Text hidden on the visual\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatList() string {
	var b strings.Builder
	for _, opt := range preset.FormatOptions() {
		b.WriteString("\n• ")
		b.WriteString(opt.Name)
	}
	return b.String()
}

func universeList(presets []domain.UniversePreset, selected []string) string {
	if len(presets) == 0 {
		return "No universes yet. Try /suggest."
	}
	active := make(map[string]bool, len(selected))
	for _, id := range selected {
		active[id] = true
	}

	var b strings.Builder
	for _, p := range presets {
		mark := "▫️"
		if active[p.ID] {
			mark = "✅"
		}
		kind := ""
		if p.Custom {
			kind = " (custom)"
		}
		fmt.Fprintf(&b, "%s %s%s: /universe %s\n", mark, p.Label, kind, p.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func presetSummary(p domain.UniversePreset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💡 %s\n", p.Label)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n", p.Description)
	}
	fmt.Fprintf(&b, "\n🎮 %s · 🎨 %s", p.GameType, p.GraphicStyle)
	if p.Ambiance != "" {
		fmt.Fprintf(&b, " · 🌗 %s", p.Ambiance)
	}
	if len(p.Keywords) > 0 {
		fmt.Fprintf(&b, "\nKeywords: %s", strings.Join(p.Keywords, ", "))
	}
	fmt.Fprintf(&b, "\nPalette: %s", strings.Join(p.Palette[:], " "))
	return b.String()
}

func historyList(history []domain.HistoryEntry) string {
	if len(history) == 0 {
		return "History is empty."
	}
	var b strings.Builder
	for i, e := range history {
		title := e.Options.EventName
		if title == "" {
			title = truncateLine(e.Prompt, 40)
		}
		fmt.Fprintf(&b, "%d. %s %s %s\n", i+1, e.Timestamp.Format("02 Jan 15:04"), e.Options.Format, title)
	}
	b.WriteString("\n/restore <n> or /delete <n>")
	return b.String()
}

func qualityLine(q domain.QualityCheckResults) string {
	return fmt.Sprintf("HD %s · Ratio %s · Margins %s · Text %s", check(q.Resolution), check(q.Ratio), check(q.Margins), check(q.Text))
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "⚠️"
}

func truncateLine(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
