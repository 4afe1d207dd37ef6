package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/session"
)

func TestExportPackCollectsFinishedImages(t *testing.T) {
	gen := &stubGenerator{textVerdict: true}
	o := newOrchestrator(gen)
	st := session.NewState("s", session.StateOptions{})

	_, err := o.ExportPack(st, imaging.EncodingPNG, 0)
	assert.ErrorIs(t, err, ErrNoCurrentResult)

	st.UpdateOptions(func(opts *domain.GenerationOptions) {
		opts.Format = domain.FormatSquare
		opts.Universes = []string{"arenaFPS", "stadiumCup"}
	})
	result, err := o.Generate(context.Background(), st)
	require.NoError(t, err)

	banner := domain.NewImage([]byte("banner"), "image/png")
	epoch := st.BeginAdaptations([]domain.DerivedImage{
		{Format: domain.FormatBanner, InProgress: true},
		{Format: domain.FormatStory, InProgress: true},
		{Format: domain.FormatLandscape, InProgress: true},
	})
	st.FinishAdaptation(epoch, domain.DerivedImage{Format: domain.FormatBanner, Image: &banner})
	st.FinishAdaptation(epoch, domain.DerivedImage{Format: domain.FormatLandscape, Error: "failed"})

	pack, err := o.ExportPack(st, imaging.EncodingPNG, 0)
	require.NoError(t, err)

	require.Len(t, pack.Items, 2)
	assert.Equal(t, domain.FormatSquare, pack.Items[0].Format)
	assert.Equal(t, result.Final, pack.Items[0].Image)
	assert.Equal(t, domain.FormatBanner, pack.Items[1].Format)
	assert.Equal(t, "visual-pack_arena-fps-stadium-cup_2025-05-01_1200.zip", pack.ArchiveName())
}
