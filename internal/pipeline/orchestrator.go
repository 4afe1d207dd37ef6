package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/gemini"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/prompt"
	"github.com/jomessina-code/EVS14/internal/session"
)

var (
	ErrCredentialsRequired = errors.New("credentials required")
	ErrNoCurrentResult     = errors.New("no current result")
	ErrEmptyRequest        = errors.New("empty request")
	ErrStaleRun            = session.ErrStaleRun
)

// Generator is everything the orchestrator asks of the generation client.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string, ref *domain.Image) (domain.Image, error)
	AdaptImage(ctx context.Context, img domain.Image, prompt string, format domain.Format) (domain.Image, error)
	OverlayText(ctx context.Context, img domain.Image, prompt string, format domain.Format) (domain.Image, error)
	InferTextStyle(ctx context.Context, img domain.Image) (domain.TextStyle, error)
	VerifyNoMargins(ctx context.Context, img domain.Image) (bool, error)
	VerifyTextFidelity(ctx context.Context, img domain.Image, expected string) (bool, error)
	RefineShortText(ctx context.Context, text, instruction string) (string, error)
	SuggestPreset(ctx context.Context, theme string, vocab gemini.SuggestionVocabulary) (domain.UniversePreset, error)
}

// KeySetter swaps the API key of the underlying client.
type KeySetter interface {
	SetAPIKey(ctx context.Context, apiKey string) error
}

// Mode tells which flavour of run is executing.
type Mode string

const (
	ModeFresh        Mode = "fresh"
	ModeVariation    Mode = "variation"
	ModeModification Mode = "modification"
)

type Options struct {
	Catalog     *preset.Catalog
	Credentials *Credentials
	Keys        KeySetter
	Logger      *slog.Logger
	Now         func() time.Time
}

type Orchestrator struct {
	gen     Generator
	catalog *preset.Catalog
	creds   *Credentials
	keys    KeySetter
	logger  *slog.Logger
	now     func() time.Time
}

func New(gen Generator, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Catalog == nil {
		opts.Catalog = preset.New(nil, preset.Options{Logger: logger})
	}
	if opts.Credentials == nil {
		opts.Credentials = NewCredentials(true)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		gen:     gen,
		catalog: opts.Catalog,
		creds:   opts.Credentials,
		keys:    opts.Keys,
		logger:  logger,
		now:     opts.Now,
	}
}

func (o *Orchestrator) Credentials() *Credentials {
	return o.creds
}

func (o *Orchestrator) Catalog() *preset.Catalog {
	return o.catalog
}

// plan is one run's fixed inputs. options are the options the result is
// committed with; the master is always rendered square from prompt.
type plan struct {
	mode      Mode
	options   domain.GenerationOptions
	prompt    string
	reference *domain.Image
}

// Generate runs a fresh generation from the session's options, or from the
// customized prompt when one is set.
func (o *Orchestrator) Generate(ctx context.Context, st *session.State) (domain.PipelineResult, error) {
	opts := st.Options()
	text := st.PromptOverride()
	if text == "" {
		text = o.composeMaster(opts)
	}
	return o.run(ctx, st, plan{mode: ModeFresh, options: opts, prompt: text, reference: opts.ReferenceImage})
}

// Variation repeats the current result's literal prompt and options.
func (o *Orchestrator) Variation(ctx context.Context, st *session.State) (domain.PipelineResult, error) {
	cur, ok := st.Current()
	if !ok {
		return domain.PipelineResult{}, ErrNoCurrentResult
	}
	return o.run(ctx, st, plan{mode: ModeVariation, options: cur.Options, prompt: cur.Prompt, reference: cur.Options.ReferenceImage})
}

// Modify regenerates a new master from the current final image and an edit
// request, then re-runs every stage against the current requested format.
func (o *Orchestrator) Modify(ctx context.Context, st *session.State, request string) (domain.PipelineResult, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return domain.PipelineResult{}, ErrEmptyRequest
	}
	cur, ok := st.Current()
	if !ok {
		return domain.PipelineResult{}, ErrNoCurrentResult
	}

	edit := cur.Options.Clone()
	edit.ModificationRequest = request
	ref := cur.Final.Clone()
	edit.ReferenceImage = &ref

	return o.run(ctx, st, plan{mode: ModeModification, options: cur.Options, prompt: o.composeMaster(edit), reference: &ref})
}

// CurrentPrompt is the prompt the next fresh generation would send.
func (o *Orchestrator) CurrentPrompt(st *session.State) string {
	if text := st.PromptOverride(); text != "" {
		return text
	}
	return o.composeMaster(st.Options())
}

func (o *Orchestrator) composeMaster(opts domain.GenerationOptions) string {
	square := opts.Clone()
	square.Format = domain.FormatSquare
	return prompt.Compose(square, o.catalog.Resolve(opts.Universes), prompt.IntentBase)
}

func (o *Orchestrator) run(ctx context.Context, st *session.State, p plan) (domain.PipelineResult, error) {
	if !o.creds.Ready() {
		return domain.PipelineResult{}, ErrCredentialsRequired
	}

	r := &runner{
		o:      o,
		st:     st,
		token:  st.BeginRun(),
		logger: o.logger.With("session", st.ID(), "mode", string(p.mode)),
	}
	r.logger = r.logger.With("run_id", r.token)
	started := time.Now()
	r.logger.Info("pipeline started", "format", string(p.options.Format))

	result, err := r.execute(ctx, p)
	if err != nil {
		return domain.PipelineResult{}, r.fail(err)
	}

	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: result.CreatedAt,
		Image:     result.Final.Clone(),
		Options:   result.Options.Clone(),
		Prompt:    result.Prompt,
		Quality:   &result.Quality,
		TextStyle: &result.TextStyle,
	}
	master := result.Master.Clone()
	entry.Master = &master

	if err := st.Commit(r.token, result, entry); err != nil {
		r.logger.Info("result discarded", "err", err)
		return domain.PipelineResult{}, err
	}
	r.progress(domain.StageDone, 100, "done")
	r.logger.Info("pipeline done", "duration", time.Since(started).Round(time.Millisecond))
	return result, nil
}

type runner struct {
	o      *Orchestrator
	st     *session.State
	token  uint64
	logger *slog.Logger
}

func (r *runner) progress(stage domain.Stage, percent int, message string) {
	r.st.SetProgress(domain.Progress{
		Activity: domain.ActivityPipeline,
		RunID:    r.token,
		Stage:    stage,
		Percent:  percent,
		Message:  message,
	})
}

// stage runs one step with progress and timing. A run superseded while the
// step was in flight stops there.
func (r *runner) stage(stage domain.Stage, percent int, message string, fn func() error) error {
	if !r.st.IsCurrentRun(r.token) {
		return ErrStaleRun
	}
	r.progress(stage, percent, message)
	start := time.Now()
	r.logger.Debug("stage started", "stage", string(stage))
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	r.logger.Info("stage done", "stage", string(stage), "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *runner) execute(ctx context.Context, p plan) (domain.PipelineResult, error) {
	gen := r.o.gen
	opts := p.options
	r.progress(domain.StageGeneratingMaster, 10, "initializing")

	var master domain.Image
	err := r.stage(domain.StageGeneratingMaster, 20, "generating the master image", func() (err error) {
		master, err = gen.GenerateImage(ctx, p.prompt, p.reference)
		return err
	})
	if err != nil {
		return domain.PipelineResult{}, err
	}

	var style domain.TextStyle
	err = r.stage(domain.StageInferringStyle, 40, "analyzing typography", func() (err error) {
		style, err = gen.InferTextStyle(ctx, master)
		return err
	})
	if err != nil {
		return domain.PipelineResult{}, err
	}

	plain := master
	if opts.Format != domain.FormatSquare {
		err = r.stage(domain.StageAdaptingFormat, 50, "extending to "+string(opts.Format), func() (err error) {
			plain, err = gen.AdaptImage(ctx, master, prompt.Adaptation(opts, opts.Format, nil), opts.Format)
			return err
		})
		if err != nil {
			return domain.PipelineResult{}, err
		}
	}

	final := plain
	if opts.ShouldRenderText() {
		err = r.stage(domain.StageCompositingText, 80, "adding the event text", func() (err error) {
			final, err = gen.OverlayText(ctx, plain, prompt.Overlay(opts, opts.Format, &style), opts.Format)
			return err
		})
		if err != nil {
			return domain.PipelineResult{}, err
		}
	}

	quality := domain.QualityCheckResults{Resolution: opts.HighResolution, Ratio: true}
	expected := prompt.ExpectedText(opts)
	err = r.stage(domain.StageVerifyingQuality, 90, "quality checks", func() error {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() (err error) {
			quality.Margins, err = gen.VerifyNoMargins(egCtx, final)
			return err
		})
		eg.Go(func() (err error) {
			quality.Text, err = gen.VerifyTextFidelity(egCtx, final, expected)
			return err
		})
		return eg.Wait()
	})
	if err != nil {
		return domain.PipelineResult{}, err
	}

	return domain.PipelineResult{
		Master:    master,
		Final:     final,
		Prompt:    p.prompt,
		TextStyle: style,
		Quality:   quality,
		Options:   opts.Clone(),
		CreatedAt: r.o.now(),
	}, nil
}

// fail records a failed run. Stale runs fail silently; AuthInvalid closes
// the credentials gate.
func (r *runner) fail(err error) error {
	if errors.Is(err, ErrStaleRun) {
		r.logger.Info("run superseded")
		return err
	}
	if errors.Is(err, domain.ErrAuthInvalid) {
		r.o.creds.Set(false)
	}
	kind := domain.KindOf(err)
	r.logger.Error("pipeline failed", "kind", string(kind), "err", err)
	r.st.SetProgress(domain.Progress{
		Activity: domain.ActivityPipeline,
		RunID:    r.token,
		Stage:    domain.StageFailed,
		Message:  "generation failed",
		Error:    domain.UserMessage(err),
		Kind:     kind,
	})
	return err
}

// RefinePrompt rewrites the current prompt with feedback and keeps the result
// as the session's customized prompt.
func (o *Orchestrator) RefinePrompt(ctx context.Context, st *session.State, feedback string) (string, error) {
	if strings.TrimSpace(feedback) == "" {
		return "", ErrEmptyRequest
	}
	if err := o.ready(); err != nil {
		return "", err
	}
	refined, err := o.gen.RefineShortText(ctx, o.CurrentPrompt(st), prompt.RefineInstruction(feedback))
	if err != nil {
		return "", o.noteAuth(err)
	}
	st.SetPromptOverride(refined)
	return refined, nil
}

// CorrectText fixes spelling and grammar of free text in the session language.
func (o *Orchestrator) CorrectText(ctx context.Context, st *session.State, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyRequest
	}
	if err := o.ready(); err != nil {
		return "", err
	}
	out, err := o.gen.RefineShortText(ctx, text, prompt.CorrectionInstruction(st.Options().Language))
	return out, o.noteAuth(err)
}

// SuggestPreset drafts a custom preset for theme. The draft is not added to
// the catalog; callers confirm it through Catalog().Add.
func (o *Orchestrator) SuggestPreset(ctx context.Context, theme string) (domain.UniversePreset, error) {
	if strings.TrimSpace(theme) == "" {
		return domain.UniversePreset{}, ErrEmptyRequest
	}
	if err := o.ready(); err != nil {
		return domain.UniversePreset{}, err
	}
	draft, err := o.gen.SuggestPreset(ctx, theme, gemini.SuggestionVocabulary{
		GameTypes: preset.Keys(preset.GameTypes()),
		Styles:    preset.Keys(preset.GraphicStyles()),
		Ambiances: preset.Keys(preset.Ambiances()),
		Subjects:  preset.Keys(preset.Subjects()),
	})
	if err != nil {
		return domain.UniversePreset{}, o.noteAuth(err)
	}
	return preset.Normalize(draft), nil
}

// SelectCredentials installs a new API key and reopens the credentials gate.
func (o *Orchestrator) SelectCredentials(ctx context.Context, apiKey string) error {
	if o.keys == nil {
		return errors.New("credential selection is not supported")
	}
	if err := o.keys.SetAPIKey(ctx, strings.TrimSpace(apiKey)); err != nil {
		o.creds.Set(false)
		return err
	}
	o.creds.Set(true)
	o.logger.Info("credentials selected")
	return nil
}

func (o *Orchestrator) ready() error {
	if !o.creds.Ready() {
		return ErrCredentialsRequired
	}
	return nil
}

func (o *Orchestrator) noteAuth(err error) error {
	if errors.Is(err, domain.ErrAuthInvalid) {
		o.creds.Set(false)
	}
	return err
}
