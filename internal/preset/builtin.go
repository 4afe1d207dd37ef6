package preset

import "github.com/jomessina-code/EVS14/internal/domain"

var builtIns = []domain.UniversePreset{
	{
		ID:           "smashverse",
		Label:        "Smashverse",
		Description:  "Colorful platform brawl where cartoon heroes collide in floating arenas",
		GameType:     domain.GameCombat,
		GraphicStyle: domain.StyleManga,
		Ambiance:     domain.AmbianceEnergetic,
		Subject:      domain.SubjectDuo,
		Keywords:     []string{"floating platforms", "impact stars", "cartoon heroes", "speed lines", "confetti bursts"},
		Palette:      [4]string{"#FF3B3B", "#FFD23F", "#3BCEAC", "#540D6E"},
		Weight:       0.6,
	},
	{
		ID:           "arenaFPS",
		Label:        "Arena FPS",
		Description:  "Tactical shooter showdown in a tense industrial arena",
		GameType:     domain.GameFPS,
		GraphicStyle: domain.StyleRealistic,
		Ambiance:     domain.AmbianceDramatic,
		Subject:      domain.SubjectCharacter,
		Keywords:     []string{"tactical gear", "muzzle flash", "smoke grenades", "concrete walls", "laser sights"},
		Palette:      [4]string{"#1B1F24", "#F2A541", "#5C6B73", "#E63946"},
		Weight:       0.7,
	},
	{
		ID:           "epicLegends",
		Label:        "Epic Legends",
		Description:  "Mythic champions clash over an ancient battlefield charged with magic",
		GameType:     domain.GameMOBA,
		GraphicStyle: domain.StyleFantasy,
		Ambiance:     domain.AmbianceEpic,
		Subject:      domain.SubjectCharacter,
		Keywords:     []string{"ancient runes", "arcane energy", "towering champions", "glowing crystals", "storm clouds"},
		Palette:      [4]string{"#0B132B", "#5BC0BE", "#C9A227", "#7B2CBF"},
		Weight:       0.7,
	},
	{
		ID:           "stadiumCup",
		Label:        "Stadium Cup",
		Description:  "Championship night in a packed stadium under bright floodlights",
		GameType:     domain.GameSport,
		GraphicStyle: domain.StyleMinimal,
		Ambiance:     domain.AmbianceCompetitive,
		Subject:      domain.SubjectTrophy,
		Keywords:     []string{"floodlights", "silver trophy", "crowd silhouettes", "pitch lines", "confetti"},
		Palette:      [4]string{"#FFFFFF", "#0353A4", "#B9D6F2", "#FFB703"},
		Weight:       0.5,
	},
	{
		ID:           "digitalHeroes",
		Label:        "Digital Heroes",
		Description:  "Neon-soaked megacity where augmented players jack into the grid",
		GameType:     domain.GameBattleRoyale,
		GraphicStyle: domain.StyleCyberpunk,
		Ambiance:     domain.AmbianceTech,
		Subject:      domain.SubjectCharacter,
		Keywords:     []string{"holograms", "neon signs", "rainy streets", "circuit patterns", "glitch effects"},
		Palette:      [4]string{"#0D0221", "#FF2A6D", "#05D9E8", "#D1F7FF"},
		Weight:       0.6,
	},
}

func init() {
	for i := range builtIns {
		builtIns[i].BuiltIn = true
	}
}
