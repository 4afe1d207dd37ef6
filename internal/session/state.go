package session

import (
	"errors"
	"sync"
	"time"

	"github.com/jomessina-code/EVS14/internal/domain"
)

var (
	ErrStaleRun        = errors.New("run was superseded by a newer one")
	ErrHistoryNotFound = errors.New("history entry not found")
)

const DefaultMaxHistory = 20

// State is everything one user works on. Every accessor returns copies; the
// only writers of results are Commit and the adaptation merge methods.
type State struct {
	mu sync.Mutex

	id      string
	options domain.GenerationOptions
	current *domain.PipelineResult
	history []domain.HistoryEntry
	derived map[domain.Format]domain.DerivedImage
	slots   map[domain.Activity]domain.Progress

	runToken     uint64
	derivedEpoch uint64

	promptOverride string
	maxHistory     int
	lastActivity   time.Time

	onHistoryChange func([]domain.HistoryEntry)
	onProgress      func(domain.Progress)
}

type StateOptions struct {
	MaxHistory int
	Defaults   domain.GenerationOptions
	History    []domain.HistoryEntry
	// OnHistoryChange receives the full history after every change.
	OnHistoryChange func([]domain.HistoryEntry)
	OnProgress      func(domain.Progress)
}

func NewState(id string, opts StateOptions) *State {
	maxHistory := opts.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	defaults := opts.Defaults
	if defaults.Format == "" {
		defaults = domain.DefaultOptions()
	}

	history := make([]domain.HistoryEntry, 0, len(opts.History))
	history = append(history, opts.History...)
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}

	return &State{
		id:              id,
		options:         defaults.Clone(),
		history:         history,
		derived:         make(map[domain.Format]domain.DerivedImage),
		slots:           make(map[domain.Activity]domain.Progress),
		maxHistory:      maxHistory,
		lastActivity:    time.Now(),
		onHistoryChange: opts.OnHistoryChange,
		onProgress:      opts.OnProgress,
	}
}

func (s *State) ID() string {
	return s.id
}

func (s *State) touchLocked() {
	s.lastActivity = time.Now()
}

func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *State) Options() domain.GenerationOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options.Clone()
}

// UpdateOptions mutates the options in place. A change to any prompt-affecting
// field discards the customized prompt.
func (s *State) UpdateOptions(mutate func(*domain.GenerationOptions)) domain.GenerationOptions {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.options.Clone()
	next := s.options.Clone()
	mutate(&next)
	next.ModificationRequest = ""
	s.options = next
	if !domain.PromptAffectingEqual(before, next) {
		s.promptOverride = ""
	}
	s.touchLocked()
	return next.Clone()
}

func (s *State) SetOptions(opts domain.GenerationOptions) domain.GenerationOptions {
	return s.UpdateOptions(func(o *domain.GenerationOptions) { *o = opts.Clone() })
}

// RemoveUniverse drops a deleted preset from the selection.
func (s *State) RemoveUniverse(id string) {
	s.UpdateOptions(func(o *domain.GenerationOptions) {
		kept := o.Universes[:0]
		for _, u := range o.Universes {
			if u != id {
				kept = append(kept, u)
			}
		}
		o.Universes = kept
	})
}

func (s *State) PromptOverride() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptOverride
}

func (s *State) SetPromptOverride(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptOverride = prompt
	s.touchLocked()
}

func (s *State) Current() (domain.PipelineResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.PipelineResult{}, false
	}
	return s.current.Clone(), true
}

func (s *State) History() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryEntry(nil), s.history...)
}

// BeginRun starts a new pipeline run and returns its token. Any earlier run
// becomes stale.
func (s *State) BeginRun() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runToken++
	s.touchLocked()
	return s.runToken
}

func (s *State) IsCurrentRun(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.runToken
}

// Commit installs result as the current result, resets the derived images
// and prepends entry to the history. Stale tokens are rejected.
func (s *State) Commit(token uint64, result domain.PipelineResult, entry domain.HistoryEntry) error {
	s.mu.Lock()
	if token != s.runToken {
		s.mu.Unlock()
		return ErrStaleRun
	}

	committed := result.Clone()
	s.current = &committed
	s.resetDerivedLocked()

	s.history = append([]domain.HistoryEntry{entry}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
	history := append([]domain.HistoryEntry(nil), s.history...)
	s.touchLocked()
	s.mu.Unlock()

	s.notifyHistory(history)
	return nil
}

func (s *State) DeleteHistory(id string) error {
	s.mu.Lock()
	idx := s.historyIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrHistoryNotFound
	}
	s.history = append(s.history[:idx:idx], s.history[idx+1:]...)
	history := append([]domain.HistoryEntry(nil), s.history...)
	s.mu.Unlock()

	s.notifyHistory(history)
	return nil
}

// Restore makes a history entry the current result. Entries saved without
// quality data restore as if every check passed.
func (s *State) Restore(id string) (domain.PipelineResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.historyIndexLocked(id)
	if idx < 0 {
		return domain.PipelineResult{}, ErrHistoryNotFound
	}
	entry := s.history[idx]

	result := domain.PipelineResult{
		Final:     entry.Image.Clone(),
		Prompt:    entry.Prompt,
		Options:   entry.Options.Clone(),
		CreatedAt: entry.Timestamp,
		Quality:   domain.QualityCheckResults{Resolution: true, Ratio: true, Margins: true, Text: true},
	}
	if entry.Master != nil {
		result.Master = entry.Master.Clone()
	} else {
		result.Master = entry.Image.Clone()
	}
	if entry.Quality != nil {
		result.Quality = *entry.Quality
	}
	if entry.TextStyle != nil {
		result.TextStyle = *entry.TextStyle
	}

	s.current = &result
	s.options = result.Options.Clone()
	s.promptOverride = ""
	s.resetDerivedLocked()
	s.touchLocked()
	return result.Clone(), nil
}

func (s *State) historyIndexLocked(id string) int {
	for i, e := range s.history {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) notifyHistory(history []domain.HistoryEntry) {
	if s.onHistoryChange != nil {
		s.onHistoryChange(history)
	}
}

func (s *State) resetDerivedLocked() {
	s.derived = make(map[domain.Format]domain.DerivedImage)
	s.derivedEpoch++
}

// Derived returns a copy of the per-format adaptation map.
func (s *State) Derived() map[domain.Format]domain.DerivedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Format]domain.DerivedImage, len(s.derived))
	for f, d := range s.derived {
		out[f] = d.Clone()
	}
	return out
}

// BeginAdaptations marks entries as in progress, leaving other formats
// untouched. The returned epoch must accompany every FinishAdaptation.
func (s *State) BeginAdaptations(entries []domain.DerivedImage) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		e = e.Clone()
		e.Image = nil
		e.InProgress = true
		e.Error = ""
		s.derived[e.Format] = e
	}
	s.touchLocked()
	return s.derivedEpoch
}

// FinishAdaptation merges one finalized entry. It is dropped when the master
// changed since the batch began.
func (s *State) FinishAdaptation(epoch uint64, entry domain.DerivedImage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.derivedEpoch {
		return false
	}
	entry = entry.Clone()
	entry.InProgress = false
	s.derived[entry.Format] = entry
	return true
}

// SetProgress records p in its activity slot. Pipeline updates from a stale
// run are ignored.
func (s *State) SetProgress(p domain.Progress) bool {
	s.mu.Lock()
	if p.Activity == domain.ActivityPipeline && p.RunID != s.runToken {
		s.mu.Unlock()
		return false
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.slots[p.Activity] = p
	s.mu.Unlock()

	if s.onProgress != nil {
		s.onProgress(p)
	}
	return true
}

func (s *State) Progress(a domain.Activity) domain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.slots[a]; ok {
		return p
	}
	return domain.Progress{Activity: a, Stage: domain.StageIdle}
}

func (s *State) Busy(a domain.Activity) bool {
	return !s.Progress(a).Stage.Terminal()
}

// Snapshot is a consistent read of the whole state.
type Snapshot struct {
	ID       string                                `json:"id"`
	Options  domain.GenerationOptions              `json:"options"`
	Current  *domain.PipelineResult                `json:"current,omitempty"`
	Derived  map[domain.Format]domain.DerivedImage `json:"derived"`
	Pipeline domain.Progress                       `json:"pipeline"`
	Adapting domain.Progress                       `json:"adaptation"`
	Prompt   string                                `json:"promptOverride,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:      s.id,
		Options: s.options.Clone(),
		Derived: make(map[domain.Format]domain.DerivedImage, len(s.derived)),
		Prompt:  s.promptOverride,
	}
	if s.current != nil {
		cur := s.current.Clone()
		snap.Current = &cur
	}
	for f, d := range s.derived {
		snap.Derived[f] = d.Clone()
	}
	snap.Pipeline = s.slotLocked(domain.ActivityPipeline)
	snap.Adapting = s.slotLocked(domain.ActivityAdaptation)
	return snap
}

func (s *State) slotLocked(a domain.Activity) domain.Progress {
	if p, ok := s.slots[a]; ok {
		return p
	}
	return domain.Progress{Activity: a, Stage: domain.StageIdle}
}
