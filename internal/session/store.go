package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jomessina-code/EVS14/internal/domain"
)

type Options struct {
	MaxHistory int
	Defaults   func() domain.GenerationOptions
	// LoadHistory returns the persisted history of a session, newest first.
	LoadHistory func(id string) []domain.HistoryEntry
	SaveHistory func(id string, history []domain.HistoryEntry)
	OnProgress  func(id string, p domain.Progress)
}

// Store keeps one State per session id, created on first use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	opts     Options
}

func NewStore(opts Options) *Store {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.Defaults == nil {
		opts.Defaults = domain.DefaultOptions
	}
	return &Store{
		sessions: make(map[string]*State),
		opts:     opts,
	}
}

func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	return st, ok
}

func (s *Store) GetOrCreate(id string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id)
}

// Create opens a session under a fresh random id.
func (s *Store) Create() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(uuid.NewString())
}

func (s *Store) getOrCreateLocked(id string) *State {
	if st, ok := s.sessions[id]; ok {
		return st
	}

	var history []domain.HistoryEntry
	if s.opts.LoadHistory != nil {
		history = s.opts.LoadHistory(id)
	}
	stateOpts := StateOptions{
		MaxHistory: s.opts.MaxHistory,
		Defaults:   s.opts.Defaults(),
		History:    history,
	}
	if save := s.opts.SaveHistory; save != nil {
		stateOpts.OnHistoryChange = func(h []domain.HistoryEntry) { save(id, h) }
	}
	if notify := s.opts.OnProgress; notify != nil {
		stateOpts.OnProgress = func(p domain.Progress) { notify(id, p) }
	}

	st := NewState(id, stateOpts)
	s.sessions[id] = st
	return st
}

// Each calls fn for every open session.
func (s *Store) Each(fn func(*State)) {
	s.mu.Lock()
	states := make([]*State, 0, len(s.sessions))
	for _, st := range s.sessions {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		fn(st)
	}
}

// RemoveUniverse drops a deleted preset from every session's selection.
func (s *Store) RemoveUniverse(presetID string) {
	s.Each(func(st *State) { st.RemoveUniverse(presetID) })
}

// Prune drops idle sessions with no activity in flight since before cutoff
// and returns how many were removed. Their history stays persisted.
func (s *Store) Prune(cutoff time.Time) int {
	var idle []string
	s.Each(func(st *State) {
		if st.Busy(domain.ActivityPipeline) || st.Busy(domain.ActivityAdaptation) {
			return
		}
		if st.LastActivity().Before(cutoff) {
			idle = append(idle, st.ID())
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range idle {
		delete(s.sessions, id)
	}
	return len(idle)
}
