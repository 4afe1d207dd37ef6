package domain

import "strings"

// TextBlock identifies one of the four event text fields.
type TextBlock string

const (
	BlockEventName     TextBlock = "eventName"
	BlockBaseline      TextBlock = "baseline"
	BlockEventLocation TextBlock = "eventLocation"
	BlockEventDate     TextBlock = "eventDate"
)

type textField struct {
	label    string
	field    func(*GenerationOptions) *string
	selected func(*TextSelection) *bool
}

// textFields is the single mapping from block identifier to the option field
// and selection flag it controls. Ordered by visual hierarchy.
var textFields = []struct {
	block TextBlock
	textField
}{
	{BlockEventName, textField{
		label:    "Event Name (Main Title)",
		field:    func(o *GenerationOptions) *string { return &o.EventName },
		selected: func(s *TextSelection) *bool { return &s.EventName },
	}},
	{BlockBaseline, textField{
		label:    "Baseline (Subtitle)",
		field:    func(o *GenerationOptions) *string { return &o.Baseline },
		selected: func(s *TextSelection) *bool { return &s.Baseline },
	}},
	{BlockEventLocation, textField{
		label:    "Location",
		field:    func(o *GenerationOptions) *string { return &o.EventLocation },
		selected: func(s *TextSelection) *bool { return &s.EventLocation },
	}},
	{BlockEventDate, textField{
		label:    "Date",
		field:    func(o *GenerationOptions) *string { return &o.EventDate },
		selected: func(s *TextSelection) *bool { return &s.EventDate },
	}},
}

// TextBlocks returns the blocks from most to least prominent.
func TextBlocks() []TextBlock {
	out := make([]TextBlock, 0, len(textFields))
	for _, f := range textFields {
		out = append(out, f.block)
	}
	return out
}

func lookupTextField(b TextBlock) (textField, bool) {
	for _, f := range textFields {
		if f.block == b {
			return f.textField, true
		}
	}
	return textField{}, false
}

func (b TextBlock) Valid() bool {
	_, ok := lookupTextField(b)
	return ok
}

func (b TextBlock) Label() string {
	f, _ := lookupTextField(b)
	return f.label
}

func (b TextBlock) Get(o *GenerationOptions) string {
	f, ok := lookupTextField(b)
	if !ok {
		return ""
	}
	return *f.field(o)
}

func (b TextBlock) Set(o *GenerationOptions, value string) {
	if f, ok := lookupTextField(b); ok {
		*f.field(o) = value
	}
}

// TextSelection picks which event text blocks appear on a derived format.
type TextSelection struct {
	EventName     bool `json:"eventName"`
	Baseline      bool `json:"baseline"`
	EventLocation bool `json:"eventLocation"`
	EventDate     bool `json:"eventDate"`
}

func (s TextSelection) Has(b TextBlock) bool {
	f, ok := lookupTextField(b)
	if !ok {
		return false
	}
	return *f.selected(&s)
}

func (s *TextSelection) Set(b TextBlock, on bool) {
	if f, ok := lookupTextField(b); ok {
		*f.selected(s) = on
	}
}

func (s TextSelection) Any() bool {
	for _, b := range TextBlocks() {
		if s.Has(b) {
			return true
		}
	}
	return false
}

// DefaultTextSelection selects every block that has text in o.
func DefaultTextSelection(o GenerationOptions) TextSelection {
	var sel TextSelection
	for _, b := range TextBlocks() {
		sel.Set(b, strings.TrimSpace(b.Get(&o)) != "")
	}
	return sel
}

// ApplyTextSelection blanks every text block not selected in sel.
func ApplyTextSelection(o GenerationOptions, sel TextSelection) GenerationOptions {
	out := o.Clone()
	for _, b := range TextBlocks() {
		if !sel.Has(b) {
			b.Set(&out, "")
		}
	}
	return out
}

// TextStyle is the single typography applied to every text block of a result.
type TextStyle struct {
	FontFamily string `json:"fontFamily"`
	Color      string `json:"color"`
	Effect     string `json:"effect"`
}

func (s TextStyle) Complete() bool {
	return strings.TrimSpace(s.FontFamily) != "" && strings.TrimSpace(s.Color) != "" && strings.TrimSpace(s.Effect) != ""
}
