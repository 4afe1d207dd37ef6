package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// UniversePreset is a named bundle of style defaults. Built-ins are immutable.
type UniversePreset struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Description  string       `json:"description"`
	GameType     GameType     `json:"gameType"`
	GraphicStyle GraphicStyle `json:"graphicStyle"`
	Ambiance     Ambiance     `json:"ambiance"`
	Subject      Subject      `json:"subject"`
	Keywords     []string     `json:"keywords"`
	Palette      [4]string    `json:"palette"`
	Weight       float64      `json:"influenceWeight"`
	BuiltIn      bool         `json:"isPredefined"`
	Custom       bool         `json:"isCustom"`
}

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (p UniversePreset) Clone() UniversePreset {
	out := p
	out.Keywords = append([]string{}, p.Keywords...)
	return out
}

// Validate checks the fields a user-created preset must carry.
func (p UniversePreset) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Label) == "" {
		errs = append(errs, errors.New("label is required"))
	}
	if !(p.Weight > 0 && p.Weight <= 1) {
		errs = append(errs, fmt.Errorf("influence weight %v outside (0,1]", p.Weight))
	}
	for i, color := range p.Palette {
		if !hexColorRegex.MatchString(color) {
			errs = append(errs, fmt.Errorf("palette[%d] %q is not a #rrggbb color", i, color))
		}
	}
	return errors.Join(errs...)
}

// ApplyTo copies the preset's authoritative style fields into o.
func (p UniversePreset) ApplyTo(o *GenerationOptions) {
	if p.GameType != "" {
		o.GameType = p.GameType
	}
	if p.GraphicStyle != "" {
		o.GraphicStyle = p.GraphicStyle
	}
	o.Ambiance = p.Ambiance
	if p.Subject != "" {
		o.Subject = p.Subject
	}
}
