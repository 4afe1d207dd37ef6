package domain

import "fmt"

type Format string

const (
	FormatPoster    Format = "2:3"
	FormatPortrait  Format = "4:5"
	FormatSquare    Format = "1:1"
	FormatLandscape Format = "16:9"
	FormatStory     Format = "9:16"
	FormatBanner    Format = "3:1"
)

// FormatDefinition describes an output format and its export dimensions.
type FormatDefinition struct {
	ID          Format  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Ratio       float64 `json:"ratio"`
	Orientation string  `json:"orientation"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

func (d FormatDefinition) Dimensions() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

var formats = []FormatDefinition{
	{ID: FormatPoster, Label: "Poster", Description: "Printed poster (2:3)", Ratio: 2.0 / 3.0, Orientation: "portrait (2:3 aspect ratio)", Width: 682, Height: 1024},
	{ID: FormatPortrait, Label: "Portrait", Description: "Vertical post (4:5)", Ratio: 4.0 / 5.0, Orientation: "portrait (4:5 aspect ratio)", Width: 819, Height: 1024},
	{ID: FormatSquare, Label: "Square", Description: "Square post (1:1)", Ratio: 1, Orientation: "square (1:1 aspect ratio)", Width: 1024, Height: 1024},
	{ID: FormatLandscape, Label: "Landscape", Description: "Web banner (16:9)", Ratio: 16.0 / 9.0, Orientation: "landscape (16:9 aspect ratio)", Width: 1024, Height: 576},
	{ID: FormatStory, Label: "Story", Description: "Story / Reel (9:16)", Ratio: 9.0 / 16.0, Orientation: "tall portrait (9:16 aspect ratio)", Width: 576, Height: 1024},
	{ID: FormatBanner, Label: "Wide banner", Description: "Header (3:1)", Ratio: 3, Orientation: "wide landscape banner (3:1 aspect ratio)", Width: 1024, Height: 341},
}

// Formats returns every supported format in display order.
func Formats() []FormatDefinition {
	return append([]FormatDefinition(nil), formats...)
}

func LookupFormat(id Format) (FormatDefinition, bool) {
	for _, f := range formats {
		if f.ID == id {
			return f, true
		}
	}
	return FormatDefinition{}, false
}

func (f Format) Valid() bool {
	_, ok := LookupFormat(f)
	return ok
}

// Definition returns the format definition, falling back to the square format.
func (f Format) Definition() FormatDefinition {
	if def, ok := LookupFormat(f); ok {
		return def
	}
	def, _ := LookupFormat(FormatSquare)
	return def
}

// CropHint is the normalized vertical offset of the top of the band to keep
// when a wide format is cut out of a square master.
type CropHint struct {
	Y float64 `json:"y"`
}

// DefaultCropHint returns the initial band offset for the formats that support local cropping.
func DefaultCropHint(f Format) (CropHint, bool) {
	switch f {
	case FormatBanner:
		return CropHint{Y: 1.0 / 3.0}, true
	case FormatLandscape:
		return CropHint{Y: (1 - 9.0/16.0) / 2}, true
	}
	return CropHint{}, false
}

// Band returns the top and bottom of the band, as fractions of the square source height,
// for a target format. The band is clamped inside the source.
func (c CropHint) Band(f Format) (top, bottom float64) {
	height := 1 / f.Definition().Ratio
	if height > 1 {
		height = 1
	}
	top = c.Y
	if top < 0 {
		top = 0
	}
	if top+height > 1 {
		top = 1 - height
	}
	return top, top + height
}
