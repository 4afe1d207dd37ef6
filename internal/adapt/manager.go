package adapt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/prompt"
	"github.com/jomessina-code/EVS14/internal/session"
)

var (
	ErrNoMaster    = errors.New("no master image to adapt")
	ErrNoTextStyle = errors.New("current result has no text style")
	ErrNoRequests  = errors.New("no formats requested")
)

const DefaultParallelism = 3

// Generator is the subset of the generation client adaptations need.
type Generator interface {
	AdaptImage(ctx context.Context, img domain.Image, prompt string, format domain.Format) (domain.Image, error)
	OverlayText(ctx context.Context, img domain.Image, prompt string, format domain.Format) (domain.Image, error)
}

// Request asks for one derived format. Crop selects the band-extraction path
// for wide formats cut from a square master.
type Request struct {
	Format domain.Format        `json:"format"`
	Text   domain.TextSelection `json:"text"`
	Crop   *domain.CropHint     `json:"crop,omitempty"`
}

type Options struct {
	Parallelism int
	Logger      *slog.Logger
}

type Manager struct {
	gen         Generator
	parallelism int
	logger      *slog.Logger
}

func New(gen Generator, opts Options) *Manager {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{gen: gen, parallelism: opts.Parallelism, logger: logger}
}

// Generate renders every request against the shared master and style. A
// failing branch finalizes its own entry with a nil image and never stops the
// others. onDone, when set, sees each entry as soon as its branch settles.
// The returned slice is index-aligned with reqs.
func (m *Manager) Generate(ctx context.Context, master domain.Image, opts domain.GenerationOptions, style domain.TextStyle, reqs []Request, onDone func(domain.DerivedImage)) []domain.DerivedImage {
	results := make([]domain.DerivedImage, len(reqs))

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(m.parallelism)

	for i, req := range reqs {
		eg.Go(func() error {
			entry := m.branch(ctx, master, opts, style, req)
			results[i] = entry
			if onDone != nil {
				mu.Lock()
				onDone(entry.Clone())
				mu.Unlock()
			}
			return nil
		})
	}
	eg.Wait()
	return results
}

func (m *Manager) branch(ctx context.Context, master domain.Image, opts domain.GenerationOptions, style domain.TextStyle, req Request) domain.DerivedImage {
	entry := domain.DerivedImage{Format: req.Format, Text: req.Text, Crop: req.Crop}
	logger := m.logger.With("format", string(req.Format))
	start := time.Now()

	img, err := m.render(ctx, master, opts, style, req)
	if err != nil {
		logger.Warn("adaptation failed", "err", err, "duration", time.Since(start).Round(time.Millisecond))
		entry.Error = domain.UserMessage(err)
		return entry
	}
	logger.Info("adaptation done", "duration", time.Since(start).Round(time.Millisecond))
	entry.Image = &img
	return entry
}

func (m *Manager) render(ctx context.Context, master domain.Image, opts domain.GenerationOptions, style domain.TextStyle, req Request) (domain.Image, error) {
	if !req.Format.Valid() {
		return domain.Image{}, fmt.Errorf("unknown format %q", req.Format)
	}

	var (
		base domain.Image
		err  error
	)
	if useLocalCrop(opts.Format, req) {
		base, err = imaging.CropBand(master, req.Format, *req.Crop)
		if err != nil {
			return domain.Image{}, fmt.Errorf("crop %s: %w", req.Format, err)
		}
	} else if req.Format == domain.FormatSquare {
		base = master
	} else {
		base, err = m.gen.AdaptImage(ctx, master, prompt.Adaptation(opts, req.Format, req.Crop), req.Format)
		if err != nil {
			return domain.Image{}, err
		}
	}

	if !req.Text.Any() {
		return base, nil
	}
	textOpts := domain.ApplyTextSelection(opts, req.Text)
	if !textOpts.HasText() {
		return base, nil
	}
	shared := style
	return m.gen.OverlayText(ctx, base, prompt.Overlay(textOpts, req.Format, &shared), req.Format)
}

// useLocalCrop reports whether req can be cut out of the master without a model call.
func useLocalCrop(mainFormat domain.Format, req Request) bool {
	if req.Crop == nil || mainFormat != domain.FormatSquare {
		return false
	}
	_, ok := domain.DefaultCropHint(req.Format)
	return ok
}

// Run adapts the session's current result. Entries are merged into the
// session one by one; entries for formats not requested are left untouched.
func (m *Manager) Run(ctx context.Context, st *session.State, reqs []Request) ([]domain.DerivedImage, error) {
	if len(reqs) == 0 {
		return nil, ErrNoRequests
	}
	cur, ok := st.Current()
	if !ok || cur.Master.Empty() {
		return nil, ErrNoMaster
	}
	for _, r := range reqs {
		if r.Text.Any() && !cur.TextStyle.Complete() {
			return nil, ErrNoTextStyle
		}
	}

	pending := make([]domain.DerivedImage, 0, len(reqs))
	for _, r := range reqs {
		pending = append(pending, domain.DerivedImage{Format: r.Format, Text: r.Text, Crop: r.Crop})
	}
	epoch := st.BeginAdaptations(pending)

	total := len(reqs)
	done, failed := 0, 0
	st.SetProgress(domain.Progress{
		Activity: domain.ActivityAdaptation,
		Stage:    domain.StageAdaptingBatch,
		Message:  fmt.Sprintf("adapting %d formats", total),
	})

	results := m.Generate(ctx, cur.Master, cur.Options, cur.TextStyle, reqs, func(entry domain.DerivedImage) {
		done++
		if entry.Image == nil {
			failed++
		}
		if !st.FinishAdaptation(epoch, entry) {
			m.logger.Info("adaptation discarded, master changed", "format", string(entry.Format))
			return
		}
		st.SetProgress(domain.Progress{
			Activity: domain.ActivityAdaptation,
			Stage:    domain.StageAdaptingBatch,
			Percent:  done * 100 / total,
			Message:  fmt.Sprintf("%s ready (%d/%d)", entry.Format, done, total),
		})
	})

	final := domain.Progress{Activity: domain.ActivityAdaptation, Stage: domain.StageDone, Percent: 100, Message: "adaptations ready"}
	if failed > 0 {
		final.Message = fmt.Sprintf("%d of %d adaptations failed", failed, total)
	}
	st.SetProgress(final)
	return results, nil
}
