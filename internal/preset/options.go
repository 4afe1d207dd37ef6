package preset

import (
	"strings"

	"github.com/jomessina-code/EVS14/internal/domain"
)

type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func GameTypes() []NamedOption {
	return []NamedOption{
		{Key: string(domain.GameMOBA), Name: "MOBA"},
		{Key: string(domain.GameFPS), Name: "FPS"},
		{Key: string(domain.GameCombat), Name: "Fighting"},
		{Key: string(domain.GameBattleRoyale), Name: "Battle Royale"},
		{Key: string(domain.GameSport), Name: "Sport / Racing"},
		{Key: string(domain.GameMultiGenre), Name: "Multi-genre"},
	}
}

func GraphicStyles() []NamedOption {
	return []NamedOption{
		{Key: string(domain.StyleCyberpunk), Name: "Cyberpunk / Neon"},
		{Key: string(domain.StyleFantasy), Name: "Magical fantasy"},
		{Key: string(domain.StyleRealistic), Name: "Realistic 3D"},
		{Key: string(domain.StyleManga), Name: "Explosive manga"},
		{Key: string(domain.StyleMinimal), Name: "Minimal sport"},
	}
}

func Ambiances() []NamedOption {
	return []NamedOption{
		{Key: string(domain.AmbianceAuto), Name: "Auto"},
		{Key: string(domain.AmbianceDramatic), Name: "Dramatic / Dark"},
		{Key: string(domain.AmbianceEnergetic), Name: "Energetic / Colorful"},
		{Key: string(domain.AmbianceTech), Name: "Tech / Futuristic"},
		{Key: string(domain.AmbianceStreet), Name: "Street / Urban"},
		{Key: string(domain.AmbianceEpic), Name: "Epic / Legendary"},
		{Key: string(domain.AmbianceCompetitive), Name: "Bright / Competitive"},
	}
}

func Subjects() []NamedOption {
	return []NamedOption{
		{Key: string(domain.SubjectCharacter), Name: "Central character"},
		{Key: string(domain.SubjectTrophy), Name: "Logo or trophy"},
		{Key: string(domain.SubjectDuo), Name: "Player duo"},
		{Key: string(domain.SubjectBackground), Name: "Immersive background"},
	}
}

func Languages() []NamedOption {
	return []NamedOption{
		{Key: string(domain.LanguageFrench), Name: "Français"},
		{Key: string(domain.LanguageEnglish), Name: "English"},
	}
}

func FormatOptions() []NamedOption {
	defs := domain.Formats()
	out := make([]NamedOption, 0, len(defs))
	for _, def := range defs {
		out = append(out, NamedOption{Key: string(def.ID), Name: def.Label + " (" + string(def.ID) + ")"})
	}
	return out
}

// Keys returns the non-empty keys of options, in order.
func Keys(options []NamedOption) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		if o.Key != "" {
			out = append(out, o.Key)
		}
	}
	return out
}

// lookup matches value against keys and names, ignoring case.
func lookup(options []NamedOption, value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, opt := range options {
		if strings.ToLower(opt.Key) == value || strings.ToLower(opt.Name) == value {
			return opt.Key, true
		}
	}
	return "", false
}

func ParseGameType(v string) (domain.GameType, bool) {
	key, ok := matchLoose(GameTypes(), v)
	return domain.GameType(key), ok
}

func ParseGraphicStyle(v string) (domain.GraphicStyle, bool) {
	key, ok := matchLoose(GraphicStyles(), v)
	return domain.GraphicStyle(key), ok
}

func ParseAmbiance(v string) (domain.Ambiance, bool) {
	key, ok := matchLoose(Ambiances(), v)
	return domain.Ambiance(key), ok
}

func ParseSubject(v string) (domain.Subject, bool) {
	key, ok := matchLoose(Subjects(), v)
	return domain.Subject(key), ok
}

func ParseLanguage(v string) (domain.Language, bool) {
	key, ok := matchLoose(Languages(), v)
	return domain.Language(key), ok
}
