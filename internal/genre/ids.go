// Package genre classifies free-text provider tags into a closed set of
// genre categories and subgenres.
package genre

import "fmt"

// Category is a top-level genre identifier.
type Category string

// Categories.
const (
	Ambient      Category = "ambient"
	Techno       Category = "techno"
	House        Category = "house"
	Electronic   Category = "electronic"
	DrumAndBass  Category = "drum-and-bass"
	Dubstep      Category = "dubstep"
	Experimental Category = "experimental"
	HipHop       Category = "hip-hop"
	RnB          Category = "rnb"
	SoulFunk     Category = "soul-funk"
	Pop          Category = "pop"
	Rock         Category = "rock"
	Punk         Category = "punk"
	Metal        Category = "metal"
	Indie        Category = "indie"
	Folk         Category = "folk"
	Jazz         Category = "jazz"
	Classical    Category = "classical"
	Reggae       Category = "reggae"
	Country      Category = "country"
	Latin        Category = "latin"
	World        Category = "world"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		Ambient, Techno, House, Electronic, DrumAndBass, Dubstep, Experimental,
		HipHop, RnB, SoulFunk, Pop, Rock, Punk, Metal, Indie, Folk, Jazz,
		Classical, Reggae, Country, Latin, World,
	}
}

var categorySet = func() map[Category]bool {
	m := make(map[Category]bool)
	for _, c := range AllCategories() {
		m[c] = true
	}
	return m
}()

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return categorySet[c] }

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(Normalize(s))
	if !c.Valid() {
		return "", fmt.Errorf("unknown genre category %q", s)
	}
	return c, nil
}

// Subgenre is a finer-grained genre identifier.
type Subgenre string

// Subgenres.
const (
	DubTechno          Subgenre = "dub-techno"
	MinimalTechno      Subgenre = "minimal-techno"
	DetroitTechno      Subgenre = "detroit-techno"
	AcidTechno         Subgenre = "acid-techno"
	IndustrialTechno   Subgenre = "industrial-techno"
	HardTechno         Subgenre = "hard-techno"
	DeepHouse          Subgenre = "deep-house"
	AcidHouse          Subgenre = "acid-house"
	TechHouse          Subgenre = "tech-house"
	ProgressiveHouse   Subgenre = "progressive-house"
	ChicagoHouse       Subgenre = "chicago-house"
	Microhouse         Subgenre = "microhouse"
	FrenchHouse        Subgenre = "french-house"
	Drone              Subgenre = "drone"
	DarkAmbient        Subgenre = "dark-ambient"
	NewAge             Subgenre = "new-age"
	IDM                Subgenre = "idm"
	Glitch             Subgenre = "glitch"
	TripHop            Subgenre = "trip-hop"
	Downtempo          Subgenre = "downtempo"
	Breakbeat          Subgenre = "breakbeat"
	Electro            Subgenre = "electro"
	SynthPop           Subgenre = "synth-pop"
	Darkwave           Subgenre = "darkwave"
	EBM                Subgenre = "ebm"
	Industrial         Subgenre = "industrial"
	Noise              Subgenre = "noise"
	PostRock           Subgenre = "post-rock"
	Shoegaze           Subgenre = "shoegaze"
	DreamPop           Subgenre = "dream-pop"
	PostPunk           Subgenre = "post-punk"
	Krautrock          Subgenre = "krautrock"
	Psychedelic        Subgenre = "psychedelic"
	LoFi               Subgenre = "lo-fi"
	Jungle             Subgenre = "jungle"
	LiquidFunk         Subgenre = "liquid-funk"
	UKGarage           Subgenre = "uk-garage"
	Grime              Subgenre = "grime"
	Trap               Subgenre = "trap"
	BoomBap            Subgenre = "boom-bap"
	NeoSoul            Subgenre = "neo-soul"
	Disco              Subgenre = "disco"
	NuDisco            Subgenre = "nu-disco"
	ModernClassical    Subgenre = "modern-classical"
	Minimalism         Subgenre = "minimalism"
	SingerSongwriter   Subgenre = "singer-songwriter"
	Hardcore           Subgenre = "hardcore"
	BlackMetal         Subgenre = "black-metal"
	DoomMetal          Subgenre = "doom-metal"
	FreeJazz           Subgenre = "free-jazz"
	Afrobeat           Subgenre = "afrobeat"
	Dub                Subgenre = "dub"
	Dancehall          Subgenre = "dancehall"
	BossaNova          Subgenre = "bossa-nova"
	Footwork           Subgenre = "footwork"
	Vaporwave          Subgenre = "vaporwave"
	Chillwave          Subgenre = "chillwave"
	Hyperpop           Subgenre = "hyperpop"
	Electroclash       Subgenre = "electroclash"
	MinimalWave        Subgenre = "minimal-wave"
	ExperimentalHipHop Subgenre = "experimental-hip-hop"
)

// AllSubgenres returns every subgenre in display order.
func AllSubgenres() []Subgenre {
	return []Subgenre{
		DubTechno, MinimalTechno, DetroitTechno, AcidTechno, IndustrialTechno,
		HardTechno, DeepHouse, AcidHouse, TechHouse, ProgressiveHouse,
		ChicagoHouse, Microhouse, FrenchHouse, Drone, DarkAmbient, NewAge, IDM,
		Glitch, TripHop, Downtempo, Breakbeat, Electro, SynthPop, Darkwave, EBM,
		Industrial, Noise, PostRock, Shoegaze, DreamPop, PostPunk, Krautrock,
		Psychedelic, LoFi, Jungle, LiquidFunk, UKGarage, Grime, Trap, BoomBap,
		NeoSoul, Disco, NuDisco, ModernClassical, Minimalism, SingerSongwriter,
		Hardcore, BlackMetal, DoomMetal, FreeJazz, Afrobeat, Dub, Dancehall,
		BossaNova, Footwork, Vaporwave, Chillwave, Hyperpop, Electroclash,
		MinimalWave, ExperimentalHipHop,
	}
}

var subgenreSet = func() map[Subgenre]bool {
	m := make(map[Subgenre]bool)
	for _, s := range AllSubgenres() {
		m[s] = true
	}
	return m
}()

// Valid reports whether s is a known subgenre.
func (s Subgenre) Valid() bool { return subgenreSet[s] }

// ParseSubgenre converts a string into a Subgenre.
func ParseSubgenre(s string) (Subgenre, error) {
	g := Subgenre(Normalize(s))
	if !g.Valid() {
		return "", fmt.Errorf("unknown subgenre %q", s)
	}
	return g, nil
}
