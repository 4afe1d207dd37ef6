package preset

import (
	"strconv"
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
)

// ParseArgs applies free-form "key=value" and bare tokens from a chat command
// to defaults. Tokens that match nothing become the custom prompt.
func ParseArgs(raw string, defaults domain.GenerationOptions) domain.GenerationOptions {
	opts := defaults.Clone()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return opts
	}

	var custom []string
	for _, tok := range strings.Fields(raw) {
		orig := tok
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}

		switch tok {
		case "hidetext", "notext":
			opts.HideText = true
			continue
		case "showtext", "text":
			opts.HideText = false
			continue
		case "lock", "textlock":
			opts.TextLock = true
			continue
		case "nolock":
			opts.TextLock = false
			continue
		case "partner", "partners":
			opts.ReservePartnerZone = true
			continue
		case "nopartner", "nopartners":
			opts.ReservePartnerZone = false
			continue
		case "transparent":
			opts.TransparentBackground = true
			continue
		case "opaque":
			opts.TransparentBackground = false
			continue
		case "hd", "highres":
			opts.HighResolution = true
			continue
		case "sd", "lowres":
			opts.HighResolution = false
			continue
		}

		if key, value, ok := strings.Cut(tok, "="); ok {
			if applyKeyValue(&opts, key, strings.ReplaceAll(value, "_", " ")) {
				continue
			}
		}
		if f := domain.Format(tok); f.Valid() {
			opts.Format = f
			continue
		}
		if v, ok := matchLoose(GameTypes(), tok); ok {
			opts.GameType = domain.GameType(v)
			continue
		}
		if v, ok := matchLoose(GraphicStyles(), tok); ok {
			opts.GraphicStyle = domain.GraphicStyle(v)
			continue
		}

		custom = append(custom, orig)
	}

	if len(custom) > 0 {
		opts.CustomPrompt = strings.TrimSpace(strings.Join(custom, " "))
	}
	return opts
}

func applyKeyValue(opts *domain.GenerationOptions, key, value string) bool {
	switch key {
	case "ar", "aspect", "format":
		if f := domain.Format(value); f.Valid() {
			opts.Format = f
			return true
		}
	case "game", "genre":
		if v, ok := ParseGameType(value); ok {
			opts.GameType = v
			return true
		}
	case "style":
		if v, ok := ParseGraphicStyle(value); ok {
			opts.GraphicStyle = v
			return true
		}
	case "ambiance", "mood":
		if v, ok := ParseAmbiance(value); ok {
			opts.Ambiance = v
			return true
		}
	case "subject":
		if v, ok := ParseSubject(value); ok {
			opts.Subject = v
			return true
		}
	case "lang", "language":
		if v, ok := ParseLanguage(value); ok {
			opts.Language = v
			return true
		}
	case "size":
		if n, ok := percent(value); ok {
			opts.SubjectSize = &n
			return true
		}
	case "effects", "fx":
		if n, ok := percent(value); ok {
			opts.EffectsIntensity = n
			return true
		}
	case "partner":
		if n, ok := percent(value); ok {
			opts.ReservePartnerZone = true
			opts.PartnerZoneHeight = n
			return true
		}
	case "zone":
		switch domain.ZonePosition(value) {
		case domain.ZoneTop, domain.ZoneBottom:
			opts.PartnerZonePosition = domain.ZonePosition(value)
			return true
		}
	}
	return false
}

func percent(value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// matchLoose compares letters and digits only: exact first, then containment.
func matchLoose(options []NamedOption, value string) (string, bool) {
	needle := squash(value)
	if needle == "" {
		if key, ok := lookup(options, value); ok {
			return key, true
		}
		return "", false
	}
	for _, opt := range options {
		if squash(opt.Key) == needle || squash(opt.Name) == needle {
			return opt.Key, true
		}
	}
	if len(needle) < 3 {
		return "", false
	}
	for _, opt := range options {
		if strings.Contains(squash(opt.Key), needle) || strings.Contains(squash(opt.Name), needle) {
			return opt.Key, true
		}
	}
	return "", false
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
