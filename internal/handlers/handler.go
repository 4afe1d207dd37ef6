package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/debounce"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/monitoring"
	"github.com/jomessina-code/EVS14/internal/pipeline"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/session"
	"github.com/jomessina-code/EVS14/internal/telegram"
)

const sessionPrefix = "tg:"

type Options struct {
	Telegram       *telegram.Client
	Pipeline       *pipeline.Orchestrator
	Adapter        *adapt.Manager
	Sessions       *session.Store
	ExportEncoding imaging.Encoding
	Logger         *slog.Logger
}

// AlbumPhoto is one photo of a Telegram album waiting to be aggregated.
type AlbumPhoto struct {
	ChatID int64
	UserID int64
	FileID string
}

type Handler struct {
	tg       *telegram.Client
	pipe     *pipeline.Orchestrator
	adapter  *adapt.Manager
	sessions *session.Store
	catalog  *preset.Catalog
	encoding imaging.Encoding
	logger   *slog.Logger
	albums   *debounce.Aggregator[AlbumPhoto]

	mu     sync.Mutex
	drafts map[int64]domain.UniversePreset
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Telegram,
		pipe:     opts.Pipeline,
		adapter:  opts.Adapter,
		sessions: opts.Sessions,
		catalog:  opts.Pipeline.Catalog(),
		encoding: opts.ExportEncoding,
		logger:   logger,
		drafts:   make(map[int64]domain.UniversePreset),
	}
}

func (h *Handler) SetAlbumAggregator(a *debounce.Aggregator[AlbumPhoto]) {
	h.albums = a
}

func sessionID(chatID int64) string {
	return sessionPrefix + strconv.FormatInt(chatID, 10)
}

func chatFromSession(id string) (int64, bool) {
	if !strings.HasPrefix(id, sessionPrefix) {
		return 0, false
	}
	chatID, err := strconv.ParseInt(strings.TrimPrefix(id, sessionPrefix), 10, 64)
	return chatID, err == nil
}

func (h *Handler) state(chatID int64) *session.State {
	return h.sessions.GetOrCreate(sessionID(chatID))
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, "Use /set to change options, /generate to create a visual or /help for every command.")
	}

	return nil
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.albums != nil {
		h.albums.Add(fmt.Sprintf("%d:%s", chatID, msg.MediaGroupID), AlbumPhoto{
			ChatID: chatID,
			UserID: msg.From.ID,
			FileID: photo.FileID,
		})
		return nil
	}

	return h.setReference(ctx, chatID, photo.FileID, 1)
}

// HandleAlbum keeps the first photo of an album as the reference image.
func (h *Handler) HandleAlbum(ctx context.Context, _ string, photos []AlbumPhoto) {
	if len(photos) == 0 {
		return
	}
	first := photos[0]
	if err := h.setReference(ctx, first.ChatID, first.FileID, len(photos)); err != nil {
		h.logger.Error("album processing failed", "chat_id", first.ChatID, "err", err)
	}
}

func (h *Handler) setReference(ctx context.Context, chatID int64, fileID string, count int) error {
	img, err := h.tg.DownloadImage(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo. Please send it again.")
	}

	h.state(chatID).UpdateOptions(func(o *domain.GenerationOptions) { o.ReferenceImage = &img })

	text := "🖼 Reference image saved. It will guide the next /generate."
	if count > 1 {
		text = fmt.Sprintf("🖼 Reference image saved (first of %d photos). It will guide the next /generate.", count)
	}
	return h.tg.SendText(chatID, text)
}

// RelayProgress forwards in-flight progress of a Telegram session to its chat.
func (h *Handler) RelayProgress(id string, p domain.Progress) {
	chatID, ok := chatFromSession(id)
	if !ok || p.Stage.Terminal() || p.Message == "" {
		return
	}
	text := "⏳ " + p.Message
	if p.Percent > 0 {
		text = fmt.Sprintf("⏳ %d%% %s", p.Percent, p.Message)
	}
	if err := h.tg.SendText(chatID, text); err != nil {
		h.logger.Debug("progress relay failed", "chat_id", chatID, "err", err)
	}
}

// fail tells the user what went wrong and reports unexpected failures.
func (h *Handler) fail(ctx context.Context, chatID int64, op string, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrStaleRun):
		return nil
	case errors.Is(err, pipeline.ErrCredentialsRequired), errors.Is(err, domain.ErrAuthInvalid):
		return h.tg.SendText(chatID, "🔑 A valid Gemini API key is required. Send /key <your-key>.")
	case errors.Is(err, pipeline.ErrNoCurrentResult), errors.Is(err, adapt.ErrNoMaster):
		return h.tg.SendText(chatID, "Generate a visual first with /generate.")
	case errors.Is(err, adapt.ErrNoTextStyle):
		return h.tg.SendText(chatID, "This visual has no text style. Regenerate it before adding text to other formats.")
	case errors.Is(err, preset.ErrNotFound), errors.Is(err, session.ErrHistoryNotFound):
		return h.tg.SendText(chatID, "❌ Not found.")
	case errors.Is(err, preset.ErrImmutable):
		return h.tg.SendText(chatID, "❌ Built-in universes cannot be changed.")
	}

	h.logger.Error(op+" failed", "chat_id", chatID, "kind", string(domain.KindOf(err)), "err", err)
	monitoring.Report(ctx, op, err)
	return h.tg.SendText(chatID, "❌ "+domain.UserMessage(err))
}

func (h *Handler) sendResult(chatID, owner int64, result domain.PipelineResult, title string) error {
	caption := title + "\n" + qualityLine(result.Quality)
	if err := h.tg.SendPhoto(chatID, result.Final, caption); err != nil {
		return err
	}
	return h.tg.SendKeyboard(chatID, "What next?", resultKeyboard(owner, result.Options.Format))
}
