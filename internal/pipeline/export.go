package pipeline

import (
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/session"
)

// ExportPack collects the current main image and every finished derived image
// of st into a pack named after the selected universes.
func (o *Orchestrator) ExportPack(st *session.State, enc imaging.Encoding, quality float32) (imaging.Pack, error) {
	cur, ok := st.Current()
	if !ok {
		return imaging.Pack{}, ErrNoCurrentResult
	}

	labels := make([]string, 0, len(cur.Options.Universes))
	for _, p := range o.catalog.Resolve(cur.Options.Universes) {
		labels = append(labels, p.Label)
	}

	pack := imaging.Pack{
		Universe: strings.Join(labels, " "),
		Encoding: enc,
		Quality:  quality,
		Time:     o.now(),
		Items:    []imaging.ExportItem{{Format: cur.Options.Format, Image: cur.Final}},
	}

	derived := st.Derived()
	for _, def := range domain.Formats() {
		d, ok := derived[def.ID]
		if !ok || d.InProgress || d.Image == nil || def.ID == cur.Options.Format {
			continue
		}
		pack.Items = append(pack.Items, imaging.ExportItem{Format: def.ID, Image: *d.Image})
	}
	return pack, nil
}
