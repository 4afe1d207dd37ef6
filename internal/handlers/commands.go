package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/session"
	"github.com/jomessina-code/EVS14/internal/telegram"
)

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	owner := msg.From.ID
	st := h.state(chatID)

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)

	case "new":
		st.SetOptions(domain.DefaultOptions())
		h.dropDraft(chatID)
		return h.tg.SendText(chatID, "✨ Options reset to defaults.\n\n"+optionsSummary(st.Options(), h.catalog.Resolve(st.Options().Universes)))

	case "options":
		opts := st.Options()
		return h.tg.SendKeyboard(chatID, optionsSummary(opts, h.catalog.Resolve(opts.Universes)), [][]telegram.Button{
			{{Text: "📐 Format", Data: callbackData(owner, actionMenu, actionFormat)}, {Text: "🌌 Universes", Data: callbackData(owner, actionMenu, actionUniverse)}},
			{{Text: "🎨 Generate", Data: callbackData(owner, actionGenerate, "")}},
		})

	case "format":
		if args == "" {
			return h.tg.SendKeyboard(chatID, "Choose the output format:", formatKeyboard(owner, st.Options().Format))
		}
		f := domain.Format(args)
		if !f.Valid() {
			return h.tg.SendText(chatID, "❌ Unknown format. Use one of: "+formatList())
		}
		st.UpdateOptions(func(o *domain.GenerationOptions) { o.Format = f })
		return h.tg.SendText(chatID, "📐 Format: "+f.Definition().Label+" ("+string(f)+")")

	case "universe":
		if args == "" {
			return h.tg.SendKeyboard(chatID, "Toggle universes:", universeKeyboard(owner, h.catalog.All(), st.Options().Universes))
		}
		return h.toggleUniverse(ctx, chatID, args)

	case "universes":
		return h.tg.SendText(chatID, universeList(h.catalog.All(), st.Options().Universes))

	case "event":
		if args == "" {
			return h.tg.SendText(chatID, "Usage: /event name | baseline | location | date\nUse - to clear a field.")
		}
		values := parseEventArgs(args)
		opts := st.UpdateOptions(func(o *domain.GenerationOptions) {
			for i, b := range domain.TextBlocks() {
				if i < len(values) && values[i] != nil {
					b.Set(o, *values[i])
				}
			}
		})
		return h.tg.SendText(chatID, "📝 Event text updated.\n\n"+eventSummary(opts))

	case "subject":
		subject, size, ok := parseSubjectArgs(args)
		if !ok {
			return h.tg.SendText(chatID, "Usage: /subject character|trophy|duo|background [size 0-100]")
		}
		opts := st.UpdateOptions(func(o *domain.GenerationOptions) {
			o.Subject = subject
			if size != nil {
				o.SubjectSize = size
			}
		})
		return h.tg.SendText(chatID, "🧍 Subject: "+subjectLine(opts))

	case "set":
		if args == "" {
			return h.tg.SendText(chatID, setUsage)
		}
		opts := st.SetOptions(preset.ParseArgs(args, st.Options()))
		return h.tg.SendText(chatID, "⚙️ Options updated.\n\n"+optionsSummary(opts, h.catalog.Resolve(opts.Universes)))

	case "generate":
		if args != "" {
			st.SetOptions(preset.ParseArgs(args, st.Options()))
		}
		return h.generate(ctx, chatID, owner, st)

	case "variation":
		return h.variation(ctx, chatID, owner, st)

	case "modify":
		if args == "" {
			return h.tg.SendText(chatID, "Usage: /modify <what to change on the current visual>")
		}
		return h.modify(ctx, chatID, owner, st, args)

	case "adapt":
		return h.adapt(ctx, chatID, st, args)

	case "history":
		return h.tg.SendText(chatID, historyList(st.History()))

	case "restore":
		id, ok := resolveHistoryID(st.History(), args)
		if !ok {
			return h.tg.SendText(chatID, "Usage: /restore <number from /history>")
		}
		result, err := st.Restore(id)
		if err != nil {
			return h.fail(ctx, chatID, "restore", err)
		}
		return h.sendResult(chatID, owner, result, "♻️ Restored.")

	case "delete":
		id, ok := resolveHistoryID(st.History(), args)
		if !ok {
			return h.tg.SendText(chatID, "Usage: /delete <number from /history>")
		}
		if err := st.DeleteHistory(id); err != nil {
			return h.fail(ctx, chatID, "delete history", err)
		}
		return h.tg.SendText(chatID, "🗑 History entry deleted.")

	case "suggest":
		if args == "" {
			return h.tg.SendText(chatID, "Usage: /suggest <theme of your universe>")
		}
		return h.suggest(ctx, chatID, owner, args)

	case "refine":
		if args == "" {
			return h.tg.SendText(chatID, "Usage: /refine <how the prompt should change>")
		}
		h.tg.SendTyping(chatID)
		refined, err := h.pipe.RefinePrompt(ctx, st, args)
		if err != nil {
			return h.fail(ctx, chatID, "refine prompt", err)
		}
		return h.tg.SendText(chatID, "✍️ The next /generate will use this prompt:\n\n"+refined)

	case "prompt":
		return h.tg.SendText(chatID, h.pipe.CurrentPrompt(st))

	case "correct":
		if args == "" {
			return h.tg.SendText(chatID, "Usage: /correct <text to fix>")
		}
		fixed, err := h.pipe.CorrectText(ctx, st, args)
		if err != nil {
			return h.fail(ctx, chatID, "correct text", err)
		}
		return h.tg.SendText(chatID, fixed)

	case "export":
		enc := h.encoding
		if args != "" {
			enc = imaging.ParseEncoding(args)
		}
		return h.export(ctx, chatID, st, enc)

	case "key":
		if args == "" {
			return h.tg.SendText(chatID, "Usage: /key <gemini api key>")
		}
		if err := h.pipe.SelectCredentials(ctx, args); err != nil {
			return h.fail(ctx, chatID, "select credentials", err)
		}
		return h.tg.SendText(chatID, "🔑 API key accepted.")

	default:
		return h.tg.SendText(chatID, "Unknown command. /help lists every command.")
	}
}

func (h *Handler) toggleUniverse(ctx context.Context, chatID int64, id string) error {
	var (
		on  bool
		err error
	)
	opts := h.state(chatID).UpdateOptions(func(o *domain.GenerationOptions) {
		on, err = h.catalog.Toggle(o, id)
	})
	if err != nil {
		return h.fail(ctx, chatID, "toggle universe", err)
	}

	p, _ := h.catalog.Get(id)
	verb := "removed"
	if on {
		verb = "added"
	}
	return h.tg.SendText(chatID, fmt.Sprintf("🌌 %s %s.\n\n%s", p.Label, verb, optionsSummary(opts, h.catalog.Resolve(opts.Universes))))
}

func (h *Handler) busy(chatID int64, st *session.State, a domain.Activity) bool {
	if !st.Busy(a) {
		return false
	}
	_ = h.tg.SendText(chatID, "⏳ Still working on the previous request, please wait.")
	return true
}

func (h *Handler) generate(ctx context.Context, chatID, owner int64, st *session.State) error {
	if h.busy(chatID, st, domain.ActivityPipeline) {
		return nil
	}
	h.tg.SendTyping(chatID)
	result, err := h.pipe.Generate(ctx, st)
	if err != nil {
		return h.fail(ctx, chatID, "generate", err)
	}
	return h.sendResult(chatID, owner, result, "✅ Visual ready. /variation, /modify, /adapt or /export.")
}

func (h *Handler) variation(ctx context.Context, chatID, owner int64, st *session.State) error {
	if h.busy(chatID, st, domain.ActivityPipeline) {
		return nil
	}
	h.tg.SendTyping(chatID)
	result, err := h.pipe.Variation(ctx, st)
	if err != nil {
		return h.fail(ctx, chatID, "variation", err)
	}
	return h.sendResult(chatID, owner, result, "🔁 Variation ready.")
}

func (h *Handler) modify(ctx context.Context, chatID, owner int64, st *session.State, request string) error {
	if h.busy(chatID, st, domain.ActivityPipeline) {
		return nil
	}
	h.tg.SendTyping(chatID)
	result, err := h.pipe.Modify(ctx, st, request)
	if err != nil {
		return h.fail(ctx, chatID, "modify", err)
	}
	return h.sendResult(chatID, owner, result, "🛠 Modification applied.")
}

func (h *Handler) adapt(ctx context.Context, chatID int64, st *session.State, args string) error {
	cur, ok := st.Current()
	if !ok {
		return h.tg.SendText(chatID, "Generate a visual first with /generate.")
	}
	if h.busy(chatID, st, domain.ActivityAdaptation) {
		return nil
	}

	reqs, err := parseAdaptArgs(args, cur.Options)
	if err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error()+"\nUsage: /adapt [formats...] [notext]")
	}

	h.tg.SendTyping(chatID)
	results, err := h.adapter.Run(ctx, st, reqs)
	if err != nil {
		return h.fail(ctx, chatID, "adapt", err)
	}

	var failed []string
	for _, d := range results {
		def := d.Format.Definition()
		if d.Image == nil {
			failed = append(failed, fmt.Sprintf("%s: %s", def.Label, d.Error))
			continue
		}
		if err := h.tg.SendPhoto(chatID, *d.Image, fmt.Sprintf("%s (%s)", def.Label, d.Format)); err != nil {
			h.logger.Warn("send adaptation failed", "chat_id", chatID, "format", string(d.Format), "err", err)
		}
	}
	if len(failed) > 0 {
		return h.tg.SendText(chatID, "⚠️ Some formats failed:\n"+strings.Join(failed, "\n"))
	}
	return nil
}

func (h *Handler) suggest(ctx context.Context, chatID, owner int64, theme string) error {
	h.tg.SendTyping(chatID)
	draft, err := h.pipe.SuggestPreset(ctx, theme)
	if err != nil {
		return h.fail(ctx, chatID, "suggest preset", err)
	}

	h.mu.Lock()
	h.drafts[chatID] = draft
	h.mu.Unlock()

	return h.tg.SendKeyboard(chatID, presetSummary(draft), [][]telegram.Button{
		{{Text: "💾 Save universe", Data: callbackData(owner, actionSave, "")}},
	})
}

func (h *Handler) takeDraft(chatID int64) (domain.UniversePreset, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.drafts[chatID]
	delete(h.drafts, chatID)
	return d, ok
}

func (h *Handler) dropDraft(chatID int64) {
	h.mu.Lock()
	delete(h.drafts, chatID)
	h.mu.Unlock()
}

func (h *Handler) export(ctx context.Context, chatID int64, st *session.State, enc imaging.Encoding) error {
	pack, err := h.pipe.ExportPack(st, enc, imaging.DefaultWebPQuality)
	if err != nil {
		return h.fail(ctx, chatID, "export", err)
	}

	var buf bytes.Buffer
	skipped, err := pack.WriteZip(&buf)
	if err != nil {
		return h.fail(ctx, chatID, "export", err)
	}
	if len(skipped) > 0 {
		h.logger.Warn("export skipped formats", "chat_id", chatID, "count", len(skipped))
	}

	caption := fmt.Sprintf("📦 %d image(s)", len(pack.Items)-len(skipped))
	return h.tg.SendDocument(chatID, pack.ArchiveName(), buf.Bytes(), caption)
}

// parseEventArgs splits "name | baseline | location | date". An empty slot
// leaves the field unchanged; "-" clears it.
func parseEventArgs(args string) []*string {
	parts := strings.Split(args, "|")
	out := make([]*string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "":
		case "-":
			empty := ""
			out[i] = &empty
		default:
			v := p
			out[i] = &v
		}
	}
	return out
}

func parseSubjectArgs(args string) (domain.Subject, *int, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", nil, false
	}

	var size *int
	if n, err := strconv.Atoi(strings.TrimSuffix(fields[len(fields)-1], "%")); err == nil {
		if n < 0 || n > 100 {
			return "", nil, false
		}
		size = &n
		fields = fields[:len(fields)-1]
	}

	subject, ok := preset.ParseSubject(strings.Join(fields, " "))
	if !ok {
		return "", nil, false
	}
	return subject, size, true
}

// parseAdaptArgs builds one request per listed format, or for every format
// except the main one. "notext" drops the event text from all of them.
func parseAdaptArgs(args string, opts domain.GenerationOptions) ([]adapt.Request, error) {
	text := domain.DefaultTextSelection(opts)
	if opts.HideText {
		text = domain.TextSelection{}
	}

	var formats []domain.Format
	for _, tok := range strings.Fields(args) {
		if strings.EqualFold(tok, "notext") {
			text = domain.TextSelection{}
			continue
		}
		f := domain.Format(tok)
		if !f.Valid() {
			return nil, fmt.Errorf("unknown format %q", tok)
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		for _, def := range domain.Formats() {
			if def.ID != opts.Format {
				formats = append(formats, def.ID)
			}
		}
	}

	reqs := make([]adapt.Request, 0, len(formats))
	seen := make(map[domain.Format]bool, len(formats))
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		req := adapt.Request{Format: f, Text: text}
		if hint, ok := domain.DefaultCropHint(f); ok {
			req.Crop = &hint
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// resolveHistoryID accepts a 1-based position from /history or an entry id prefix.
func resolveHistoryID(history []domain.HistoryEntry, arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", false
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(history) {
			return "", false
		}
		return history[n-1].ID, true
	}
	for _, e := range history {
		if strings.HasPrefix(e.ID, arg) {
			return e.ID, true
		}
	}
	return "", false
}
