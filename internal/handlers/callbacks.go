package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/telegram"
)

const callbackPrefix = "ev"

const (
	actionMenu     = "menu"
	actionFormat   = "fmt"
	actionUniverse = "uni"
	actionGenerate = "gen"
	actionVariate  = "var"
	actionSave     = "save"
	actionAdapt    = "adapt"
)

// callbackData encodes ev:<owner>:<action>:<arg>. The arg is last so format
// ids keep their colon.
func callbackData(owner int64, action, arg string) string {
	return fmt.Sprintf("%s:%d:%s:%s", callbackPrefix, owner, action, arg)
}

type callback struct {
	owner  int64
	action string
	arg    string
}

func parseCallback(data string) (callback, bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 4)
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	cb := callback{owner: owner, action: parts[2]}
	if len(parts) == 4 {
		cb.arg = parts[3]
	}
	return cb, true
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}
	cb, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if cb.owner != q.From.ID {
		h.tg.AnswerCallback(q.ID, "This menu is not for you.")
		return nil
	}

	chatID := q.Message.Chat.ID
	st := h.state(chatID)

	switch cb.action {
	case actionMenu:
		h.tg.AnswerCallback(q.ID, "")
		if cb.arg == actionUniverse {
			return h.tg.SendKeyboard(chatID, "Toggle universes:", universeKeyboard(cb.owner, h.catalog.All(), st.Options().Universes))
		}
		return h.tg.SendKeyboard(chatID, "Choose the output format:", formatKeyboard(cb.owner, st.Options().Format))

	case actionFormat:
		f := domain.Format(cb.arg)
		if !f.Valid() {
			h.tg.AnswerCallback(q.ID, "Unknown format")
			return nil
		}
		st.UpdateOptions(func(o *domain.GenerationOptions) { o.Format = f })
		h.tg.AnswerCallback(q.ID, "Format: "+f.Definition().Label)
		return h.tg.SendKeyboard(chatID, "📐 Format: "+f.Definition().Label+" ("+string(f)+")", [][]telegram.Button{
			{{Text: "🎨 Generate", Data: callbackData(cb.owner, actionGenerate, "")}},
		})

	case actionUniverse:
		h.tg.AnswerCallback(q.ID, "")
		return h.toggleUniverse(ctx, chatID, cb.arg)

	case actionGenerate:
		h.tg.AnswerCallback(q.ID, "Generating…")
		return h.generate(ctx, chatID, cb.owner, st)

	case actionVariate:
		h.tg.AnswerCallback(q.ID, "Generating a variation…")
		return h.variation(ctx, chatID, cb.owner, st)

	case actionAdapt:
		h.tg.AnswerCallback(q.ID, "Adapting…")
		return h.adapt(ctx, chatID, st, cb.arg)

	case actionSave:
		draft, ok := h.takeDraft(chatID)
		if !ok {
			h.tg.AnswerCallback(q.ID, "Nothing to save, run /suggest again.")
			return nil
		}
		saved, err := h.catalog.Add(draft)
		if err != nil {
			h.tg.AnswerCallback(q.ID, "Could not save")
			return h.fail(ctx, chatID, "save preset", err)
		}
		h.tg.AnswerCallback(q.ID, "Saved")
		return h.tg.SendKeyboard(chatID, fmt.Sprintf("💾 %s saved as %s.", saved.Label, saved.ID), [][]telegram.Button{
			{{Text: "Use it", Data: callbackData(cb.owner, actionUniverse, saved.ID)}},
		})
	}

	h.tg.AnswerCallback(q.ID, "")
	return nil
}

func formatKeyboard(owner int64, current domain.Format) [][]telegram.Button {
	var rows [][]telegram.Button
	var row []telegram.Button
	for _, def := range domain.Formats() {
		label := def.Label + " " + string(def.ID)
		if def.ID == current {
			label = "✅ " + label
		}
		row = append(row, telegram.Button{Text: label, Data: callbackData(owner, actionFormat, string(def.ID))})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func universeKeyboard(owner int64, presets []domain.UniversePreset, selected []string) [][]telegram.Button {
	active := make(map[string]bool, len(selected))
	for _, id := range selected {
		active[id] = true
	}

	rows := make([][]telegram.Button, 0, len(presets)+1)
	for _, p := range presets {
		label := p.Label
		if active[p.ID] {
			label = "✅ " + label
		}
		rows = append(rows, []telegram.Button{{Text: label, Data: callbackData(owner, actionUniverse, p.ID)}})
	}
	return append(rows, []telegram.Button{{Text: "🎨 Generate", Data: callbackData(owner, actionGenerate, "")}})
}

// resultKeyboard offers the follow-ups of a finished visual.
func resultKeyboard(owner int64, main domain.Format) [][]telegram.Button {
	row := []telegram.Button{{Text: "🔁 Variation", Data: callbackData(owner, actionVariate, "")}}
	row = append(row, telegram.Button{Text: "🧩 All formats", Data: callbackData(owner, actionAdapt, "")})
	if main == domain.FormatSquare {
		return [][]telegram.Button{row, {
			{Text: "Banner 3:1", Data: callbackData(owner, actionAdapt, string(domain.FormatBanner))},
			{Text: "Landscape 16:9", Data: callbackData(owner, actionAdapt, string(domain.FormatLandscape))},
		}}
	}
	return [][]telegram.Button{row}
}
