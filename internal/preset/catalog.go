package preset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jomessina-code/EVS14/internal/domain"
)

var (
	ErrNotFound  = errors.New("preset not found")
	ErrImmutable = errors.New("built-in presets cannot be changed")
	ErrInvalid   = errors.New("invalid preset")
)

const customPrefix = "custom_"

type Options struct {
	MaxCustom int
	// OnChange receives the custom presets after every mutation.
	OnChange func([]domain.UniversePreset)
	Logger   *slog.Logger
}

// Catalog holds the built-in presets and the user-created ones.
type Catalog struct {
	mu       sync.RWMutex
	custom   []domain.UniversePreset
	limit    int
	onChange func([]domain.UniversePreset)
	logger   *slog.Logger
}

// New builds a catalog seeded with previously persisted custom presets.
// Invalid or duplicate entries are dropped.
func New(custom []domain.UniversePreset, opts Options) *Catalog {
	limit := opts.MaxCustom
	if limit <= 0 {
		limit = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Catalog{limit: limit, onChange: opts.OnChange, logger: logger}
	seen := make(map[string]struct{}, len(custom))
	for _, p := range custom {
		if _, dup := seen[p.ID]; dup || !strings.HasPrefix(p.ID, customPrefix) || p.Validate() != nil {
			logger.Warn("dropping stored preset", "preset_id", p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
		p.BuiltIn, p.Custom = false, true
		c.custom = append(c.custom, p.Clone())
		if len(c.custom) == limit {
			break
		}
	}
	return c
}

func BuiltIns() []domain.UniversePreset {
	out := make([]domain.UniversePreset, 0, len(builtIns))
	for _, p := range builtIns {
		out = append(out, p.Clone())
	}
	return out
}

// All returns built-ins followed by custom presets.
func (c *Catalog) All() []domain.UniversePreset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := BuiltIns()
	for _, p := range c.custom {
		out = append(out, p.Clone())
	}
	return out
}

func (c *Catalog) Custom() []domain.UniversePreset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.customLocked()
}

func (c *Catalog) customLocked() []domain.UniversePreset {
	out := make([]domain.UniversePreset, 0, len(c.custom))
	for _, p := range c.custom {
		out = append(out, p.Clone())
	}
	return out
}

func (c *Catalog) Get(id string) (domain.UniversePreset, bool) {
	for _, p := range builtIns {
		if p.ID == id {
			return p.Clone(), true
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.custom {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.UniversePreset{}, false
}

// Resolve maps ids to presets in selection order, skipping unknown ids.
func (c *Catalog) Resolve(ids []string) []domain.UniversePreset {
	out := make([]domain.UniversePreset, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Add(p domain.UniversePreset) (domain.UniversePreset, error) {
	p = Normalize(p)
	if err := p.Validate(); err != nil {
		return domain.UniversePreset{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	p.ID = customPrefix + uuid.NewString()
	p.BuiltIn, p.Custom = false, true

	c.mu.Lock()
	if len(c.custom) >= c.limit {
		c.mu.Unlock()
		return domain.UniversePreset{}, fmt.Errorf("%w: limit of %d custom presets reached", ErrInvalid, c.limit)
	}
	c.custom = append(c.custom, p.Clone())
	snapshot := c.customLocked()
	c.mu.Unlock()

	c.logger.Info("preset added", "preset_id", p.ID, "label", p.Label)
	c.notify(snapshot)
	return p, nil
}

func (c *Catalog) Update(id string, p domain.UniversePreset) (domain.UniversePreset, error) {
	if isBuiltIn(id) {
		return domain.UniversePreset{}, ErrImmutable
	}
	p = Normalize(p)
	if err := p.Validate(); err != nil {
		return domain.UniversePreset{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	p.ID = id
	p.BuiltIn, p.Custom = false, true

	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return domain.UniversePreset{}, ErrNotFound
	}
	c.custom[idx] = p.Clone()
	snapshot := c.customLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return p, nil
}

func (c *Catalog) Delete(id string) error {
	if isBuiltIn(id) {
		return ErrImmutable
	}

	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	c.custom = append(c.custom[:idx], c.custom[idx+1:]...)
	snapshot := c.customLocked()
	c.mu.Unlock()

	c.logger.Info("preset deleted", "preset_id", id)
	c.notify(snapshot)
	return nil
}

func (c *Catalog) indexLocked(id string) int {
	for i, p := range c.custom {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) notify(snapshot []domain.UniversePreset) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}

func isBuiltIn(id string) bool {
	for _, p := range builtIns {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Toggle adds or removes id from the selection in opts. When exactly one
// universe remains selected its style fields are copied into opts.
func (c *Catalog) Toggle(opts *domain.GenerationOptions, id string) (bool, error) {
	p, ok := c.Get(id)
	if !ok {
		return false, ErrNotFound
	}

	selected := true
	next := make([]string, 0, len(opts.Universes)+1)
	for _, existing := range opts.Universes {
		if existing == id {
			selected = false
			continue
		}
		next = append(next, existing)
	}
	if selected {
		next = append(next, id)
	}
	opts.Universes = next

	if len(next) == 1 {
		if !selected {
			p, ok = c.Get(next[0])
		}
		if ok {
			p.ApplyTo(opts)
		}
	}
	return selected, nil
}

// Normalize coerces free-form enum values onto known ones and clamps the weight.
// Suggestions from the model pass through here before they reach the catalog.
func Normalize(p domain.UniversePreset) domain.UniversePreset {
	p.Label = strings.TrimSpace(p.Label)
	p.Description = strings.TrimSpace(p.Description)
	if v, ok := matchLoose(GameTypes(), string(p.GameType)); ok {
		p.GameType = domain.GameType(v)
	} else {
		p.GameType = domain.GameMultiGenre
	}
	if v, ok := matchLoose(GraphicStyles(), string(p.GraphicStyle)); ok {
		p.GraphicStyle = domain.GraphicStyle(v)
	} else {
		p.GraphicStyle = domain.StyleCyberpunk
	}
	if v, ok := matchLoose(Ambiances(), string(p.Ambiance)); ok {
		p.Ambiance = domain.Ambiance(v)
	} else {
		p.Ambiance = domain.AmbianceAuto
	}
	if v, ok := matchLoose(Subjects(), string(p.Subject)); ok {
		p.Subject = domain.Subject(v)
	} else {
		p.Subject = domain.SubjectCharacter
	}

	keywords := make([]string, 0, len(p.Keywords))
	for _, k := range p.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	p.Keywords = keywords

	for i, color := range p.Palette {
		color = strings.TrimSpace(color)
		if color != "" && !strings.HasPrefix(color, "#") {
			color = "#" + color
		}
		p.Palette[i] = strings.ToUpper(color)
	}

	if p.Weight > 1 {
		p.Weight = 1
	}
	p.Weight = math.Round(p.Weight*100) / 100
	return p
}
