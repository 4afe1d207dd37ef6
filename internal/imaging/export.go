package imaging

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jomessina-code/EVS14/internal/domain"
)

const (
	defaultUniverseSlug = "custom-universe"
	timestampLayout     = "2006-01-02_1504"
)

// ExportItem is one image of a pack, rendered at its format's export size.
type ExportItem struct {
	Format domain.Format
	Image  domain.Image
}

type Pack struct {
	// Universe is the space-joined label list of the selected presets.
	Universe string
	Items    []ExportItem
	Encoding Encoding
	Quality  float32
	Time     time.Time
}

var whitespace = regexp.MustCompile(`\s+`)

// Slugify lowercases, dashes whitespace and caps the result at 50 bytes.
func Slugify(s string) string {
	s = whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '-'
		}
		return r
	}, s)
	if len(s) > 50 {
		s = s[:50]
		for len(s) > 0 && !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return s
}

func (p Pack) universeSlug() string {
	if slug := Slugify(p.Universe); slug != "" {
		return slug
	}
	return defaultUniverseSlug
}

// FileName names one export entry as {universe}_{format}_{WxH}_{timestamp}.{ext}.
func (p Pack) FileName(format domain.Format) string {
	def := format.Definition()
	return fmt.Sprintf("%s_%s_%s_%s.%s", p.universeSlug(), Slugify(def.Label), def.Dimensions(), p.Time.Format(timestampLayout), p.Encoding.Ext())
}

func (p Pack) ArchiveName() string {
	return fmt.Sprintf("visual-pack_%s_%s.zip", p.universeSlug(), p.Time.Format(timestampLayout))
}

// Render resizes one item to its export dimensions and encodes it.
func (p Pack) Render(item ExportItem) (domain.Image, error) {
	src, err := Decode(item.Image)
	if err != nil {
		return domain.Image{}, fmt.Errorf("%s: %w", item.Format, err)
	}
	def := item.Format.Definition()
	return Encode(ResizeCover(src, def.Width, def.Height), p.Encoding, p.Quality)
}

// WriteZip streams the pack as a ZIP archive. Items that fail to decode are
// skipped and returned as skipped formats.
func (p Pack) WriteZip(w io.Writer) (skipped []domain.Format, err error) {
	zw := zip.NewWriter(w)
	written := 0
	for _, item := range p.Items {
		if !item.Format.Valid() {
			skipped = append(skipped, item.Format)
			continue
		}
		out, err := p.Render(item)
		if err != nil {
			skipped = append(skipped, item.Format)
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.FileName(item.Format),
			Method:   zip.Store,
			Modified: p.Time,
		})
		if err != nil {
			return skipped, fmt.Errorf("zip entry: %w", err)
		}
		if _, err := fw.Write(out.Data); err != nil {
			return skipped, fmt.Errorf("zip write: %w", err)
		}
		written++
	}
	if written == 0 {
		zw.Close()
		return skipped, ErrEmptyImage
	}
	return skipped, zw.Close()
}
