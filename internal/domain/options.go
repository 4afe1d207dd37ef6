package domain

import "strings"

type GameType string

const (
	GameMOBA         GameType = "MOBA"
	GameFPS          GameType = "FPS"
	GameCombat       GameType = "Combat"
	GameBattleRoyale GameType = "Battle Royale"
	GameSport        GameType = "Sport"
	GameMultiGenre   GameType = "Multi-genre"
)

type GraphicStyle string

const (
	StyleCyberpunk GraphicStyle = "Cyberpunk / Neon"
	StyleFantasy   GraphicStyle = "Magical Fantasy"
	StyleRealistic GraphicStyle = "Realistic 3D"
	StyleManga     GraphicStyle = "Explosive Manga"
	StyleMinimal   GraphicStyle = "Minimal Sport"
)

// Ambiance is optional; the zero value lets the model decide.
type Ambiance string

const (
	AmbianceAuto        Ambiance = ""
	AmbianceDramatic    Ambiance = "Dramatic / Dark"
	AmbianceEnergetic   Ambiance = "Energetic / Colorful"
	AmbianceTech        Ambiance = "Tech / Futuristic"
	AmbianceStreet      Ambiance = "Street / Urban"
	AmbianceEpic        Ambiance = "Epic / Legendary"
	AmbianceCompetitive Ambiance = "Bright / Competitive"
)

type Subject string

const (
	SubjectCharacter  Subject = "Central character"
	SubjectTrophy     Subject = "Logo or trophy"
	SubjectDuo        Subject = "Player duo"
	SubjectBackground Subject = "Immersive background"
)

// Sizable reports whether a subject size percentage applies to the subject kind.
func (s Subject) Sizable() bool {
	switch s {
	case SubjectCharacter, SubjectDuo, SubjectTrophy:
		return true
	}
	return false
}

type Language string

const (
	LanguageFrench  Language = "french"
	LanguageEnglish Language = "english"
)

type ZonePosition string

const (
	ZoneBottom ZonePosition = "bottom"
	ZoneTop    ZonePosition = "top"
)

// GenerationOptions is the full configuration of one generation request.
// ModificationRequest is only set for targeted-edit passes.
type GenerationOptions struct {
	Universes        []string     `json:"universes"`
	GameType         GameType     `json:"gameType"`
	GraphicStyle     GraphicStyle `json:"graphicStyle"`
	Ambiance         Ambiance     `json:"ambiance"`
	Subject          Subject      `json:"subject"`
	SubjectSize      *int         `json:"subjectSize,omitempty"`
	Format           Format       `json:"format"`
	EffectsIntensity int          `json:"effectsIntensity"`
	Language         Language     `json:"language"`
	CustomPrompt     string       `json:"customPrompt"`
	ReferenceImage   *Image       `json:"referenceImage,omitempty"`

	EventName     string `json:"eventName"`
	Baseline      string `json:"baseline"`
	EventLocation string `json:"eventLocation"`
	EventDate     string `json:"eventDate"`

	HideText              bool         `json:"hideText"`
	TextLock              bool         `json:"textLock"`
	ReservePartnerZone    bool         `json:"reservePartnerZone"`
	PartnerZoneHeight     int          `json:"partnerZoneHeight"`
	PartnerZonePosition   ZonePosition `json:"partnerZonePosition"`
	TransparentBackground bool         `json:"transparentBackground"`
	HighResolution        bool         `json:"highResolution"`

	ModificationRequest string `json:"modificationRequest,omitempty"`
}

const DefaultSubjectSize = 75

func DefaultOptions() GenerationOptions {
	size := DefaultSubjectSize
	return GenerationOptions{
		Universes:           []string{},
		GameType:            GameMOBA,
		GraphicStyle:        StyleCyberpunk,
		Ambiance:            AmbianceAuto,
		Subject:             SubjectCharacter,
		SubjectSize:         &size,
		Format:              FormatPoster,
		EffectsIntensity:    50,
		Language:            LanguageFrench,
		TextLock:            true,
		PartnerZoneHeight:   8,
		PartnerZonePosition: ZoneBottom,
		HighResolution:      true,
	}
}

// Clone returns a copy that shares no slices or pointers with o.
func (o GenerationOptions) Clone() GenerationOptions {
	out := o
	out.Universes = append([]string{}, o.Universes...)
	if o.SubjectSize != nil {
		size := *o.SubjectSize
		out.SubjectSize = &size
	}
	if o.ReferenceImage != nil {
		img := o.ReferenceImage.Clone()
		out.ReferenceImage = &img
	}
	return out
}

// HasText reports whether any of the four event fields carries non-blank text.
func (o GenerationOptions) HasText() bool {
	for _, block := range TextBlocks() {
		if strings.TrimSpace(block.Get(&o)) != "" {
			return true
		}
	}
	return false
}

// ShouldRenderText reports whether a text-overlay stage runs for these options.
func (o GenerationOptions) ShouldRenderText() bool {
	return !o.HideText && o.HasText()
}

// PromptAffectingEqual reports whether a and b compose the same base prompt inputs.
// Output format, language, high-resolution and modification fields are ignored.
func PromptAffectingEqual(a, b GenerationOptions) bool {
	if !sameSet(a.Universes, b.Universes) {
		return false
	}
	if a.GameType != b.GameType || a.GraphicStyle != b.GraphicStyle || a.Ambiance != b.Ambiance || a.Subject != b.Subject {
		return false
	}
	if sizeOf(a.SubjectSize) != sizeOf(b.SubjectSize) {
		return false
	}
	if a.EventName != b.EventName || a.Baseline != b.Baseline || a.EventLocation != b.EventLocation || a.EventDate != b.EventDate {
		return false
	}
	if a.TextLock != b.TextLock || a.HideText != b.HideText {
		return false
	}
	if a.ReservePartnerZone != b.ReservePartnerZone || a.PartnerZoneHeight != b.PartnerZoneHeight || a.PartnerZonePosition != b.PartnerZonePosition {
		return false
	}
	if a.EffectsIntensity != b.EffectsIntensity || a.CustomPrompt != b.CustomPrompt || a.TransparentBackground != b.TransparentBackground {
		return false
	}
	return referenceDigest(a.ReferenceImage) == referenceDigest(b.ReferenceImage)
}

func sizeOf(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func referenceDigest(img *Image) string {
	if img == nil {
		return ""
	}
	return img.Digest()
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
