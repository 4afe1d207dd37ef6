package imaging

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomessina-code/EVS14/internal/domain"
)

// twoTone returns a square PNG, red on the top half and blue below.
func twoTone(t *testing.T, size int) domain.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		c := color.RGBA{R: 255, A: 255}
		if y >= size/2 {
			c = color.RGBA{B: 255, A: 255}
		}
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return domain.NewImage(buf.Bytes(), "image/png")
}

func TestCropBand(t *testing.T) {
	master := twoTone(t, 120)

	tests := []struct {
		name    string
		format  domain.Format
		hint    domain.CropHint
		height  int
		topBlue bool
	}{
		{name: "banner top", format: domain.FormatBanner, hint: domain.CropHint{Y: 0}, height: 40},
		{name: "banner bottom", format: domain.FormatBanner, hint: domain.CropHint{Y: 2.0 / 3.0}, height: 40, topBlue: true},
		{name: "clamped past bottom", format: domain.FormatBanner, hint: domain.CropHint{Y: 0.95}, height: 40, topBlue: true},
		{name: "landscape", format: domain.FormatLandscape, hint: domain.CropHint{Y: 0}, height: 68},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CropBand(master, tt.format, tt.hint)
			require.NoError(t, err)
			assert.Equal(t, "image/png", out.MIMEType)

			img, err := Decode(out)
			require.NoError(t, err)
			assert.Equal(t, 120, img.Bounds().Dx())
			assert.Equal(t, tt.height, img.Bounds().Dy())

			_, _, b, _ := img.At(0, 0).RGBA()
			assert.Equal(t, tt.topBlue, b > 0)
		})
	}
}

func TestCropBandRejectsEmptyImage(t *testing.T) {
	_, err := CropBand(domain.Image{}, domain.FormatBanner, domain.CropHint{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestResizeCover(t *testing.T) {
	src, err := Decode(twoTone(t, 100))
	require.NoError(t, err)

	for _, f := range domain.Formats() {
		out := ResizeCover(src, f.Width, f.Height)
		assert.Equal(t, f.Width, out.Bounds().Dx(), f.ID)
		assert.Equal(t, f.Height, out.Bounds().Dy(), f.ID)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "arena-fps-neon", Slugify("  Arena   FPS Neon "))
	assert.Equal(t, "a-b", Slugify("a/b"))
	assert.Len(t, Slugify(string(bytes.Repeat([]byte("x"), 80))), 50)
	assert.Empty(t, Slugify("   "))
}

func TestPackNamesAndZip(t *testing.T) {
	pack := Pack{
		Universe: "Arena FPS",
		Encoding: EncodingPNG,
		Time:     time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC),
		Items: []ExportItem{
			{Format: domain.FormatSquare, Image: twoTone(t, 64)},
			{Format: domain.FormatBanner, Image: twoTone(t, 64)},
			{Format: domain.FormatStory},
		},
	}
	assert.Equal(t, "arena-fps_wide-banner_1024x341_2025-01-02_1504.png", pack.FileName(domain.FormatBanner))
	assert.Equal(t, "visual-pack_arena-fps_2025-01-02_1504.zip", pack.ArchiveName())
	assert.Equal(t, "custom-universe_square_1024x1024_2025-01-02_1504.png", Pack{Time: pack.Time}.FileName(domain.FormatSquare))

	var buf bytes.Buffer
	skipped, err := pack.WriteZip(&buf)
	require.NoError(t, err)
	assert.Equal(t, []domain.Format{domain.FormatStory}, skipped)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "arena-fps_square_1024x1024_2025-01-02_1504.png", zr.File[0].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	cfg, err := png.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 341, cfg.Height)
}

func TestWriteZipWithNothingToExport(t *testing.T) {
	_, err := Pack{Items: []ExportItem{{Format: domain.FormatSquare}}}.WriteZip(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestParseEncoding(t *testing.T) {
	assert.Equal(t, EncodingWebP, ParseEncoding(" WEBP "))
	assert.Equal(t, EncodingPNG, ParseEncoding("gif"))
	assert.Equal(t, "webp", EncodingWebP.Ext())
}
