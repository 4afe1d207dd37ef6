package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/draw"

	"github.com/jomessina-code/EVS14/internal/domain"
)

type Encoding string

const (
	EncodingPNG  Encoding = "png"
	EncodingWebP Encoding = "webp"
)

const DefaultWebPQuality = 90

var ErrEmptyImage = errors.New("empty image")

// ParseEncoding falls back to PNG for anything unknown.
func ParseEncoding(s string) Encoding {
	if strings.EqualFold(strings.TrimSpace(s), string(EncodingWebP)) {
		return EncodingWebP
	}
	return EncodingPNG
}

func (e Encoding) MIMEType() string {
	if e == EncodingWebP {
		return "image/webp"
	}
	return "image/png"
}

func (e Encoding) Ext() string {
	if e == EncodingWebP {
		return "webp"
	}
	return "png"
}

// Decode reads PNG, JPEG and WebP payloads.
func Decode(img domain.Image) (image.Image, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	if img.MIMEType == "image/webp" || isWebP(img.Data) {
		out, err := webp.Decode(bytes.NewReader(img.Data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return out, nil
	}
	out, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return out, nil
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// Encode serializes img with the requested encoding. quality only applies to WebP.
func Encode(img image.Image, enc Encoding, quality float32) (domain.Image, error) {
	var buf bytes.Buffer
	switch enc {
	case EncodingWebP:
		if quality <= 0 || quality > 100 {
			quality = DefaultWebPQuality
		}
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
		if err != nil {
			return domain.Image{}, fmt.Errorf("webp encoder options: %w", err)
		}
		if err := webp.Encode(&buf, img, options); err != nil {
			return domain.Image{}, fmt.Errorf("encode webp: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return domain.Image{}, fmt.Errorf("encode png: %w", err)
		}
	}
	return domain.NewImage(buf.Bytes(), enc.MIMEType()), nil
}

// CropBand cuts the horizontal band a crop hint selects out of a square
// master, keeping the full width. The result is PNG.
func CropBand(master domain.Image, format domain.Format, hint domain.CropHint) (domain.Image, error) {
	src, err := Decode(master)
	if err != nil {
		return domain.Image{}, err
	}
	b := src.Bounds()
	top, bottom := hint.Band(format)
	y0 := b.Min.Y + int(top*float64(b.Dy())+0.5)
	y1 := b.Min.Y + int(bottom*float64(b.Dy())+0.5)
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if y1 <= y0 {
		return domain.Image{}, fmt.Errorf("crop band %s: empty region", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), y1-y0))
	draw.Draw(dst, dst.Bounds(), src, image.Pt(b.Min.X, y0), draw.Src)
	return Encode(dst, EncodingPNG, 0)
}

// ResizeCover scales src so it covers width x height and center-crops the overflow.
func ResizeCover(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src
	}
	scale := max(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	cropW := int(float64(width)/scale + 0.5)
	cropH := int(float64(height)/scale + 0.5)
	cropW = min(max(cropW, 1), b.Dx())
	cropH = min(max(cropH, 1), b.Dy())

	x0 := b.Min.X + (b.Dx()-cropW)/2
	y0 := b.Min.Y + (b.Dy()-cropH)/2
	region := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, region, draw.Over, nil)
	return dst
}
