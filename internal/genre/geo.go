package genre

import "strings"

// geoWords are nationality, language, country and city words. A provider
// tag built from these with no genre content usually means the provider
// matched a different, same-named artist.
var geoWords = toSet(
	// nationalities and languages
	"lithuanian", "latvian", "estonian", "polish", "russian", "ukrainian",
	"belarusian", "german", "french", "italian", "spanish", "portuguese",
	"brazilian", "dutch", "belgian", "swedish", "norwegian", "danish",
	"finnish", "icelandic", "czech", "slovak", "hungarian", "romanian",
	"bulgarian", "serbian", "croatian", "slovenian", "bosnian", "greek",
	"turkish", "israeli", "hebrew", "arabic", "persian", "iranian", "indian",
	"pakistani", "bengali", "hindi", "punjabi", "chinese", "mandarin",
	"cantonese", "taiwanese", "japanese", "korean", "thai", "vietnamese",
	"indonesian", "malaysian", "filipino", "australian", "canadian",
	"american", "mexican", "argentine", "argentinian", "chilean",
	"colombian", "peruvian", "venezuelan", "cuban", "nigerian", "ghanaian",
	"kenyan", "ethiopian", "african", "egyptian", "moroccan", "algerian",
	"tunisian", "irish", "scottish", "welsh", "english", "british",
	"austrian", "swiss", "georgian", "armenian", "azerbaijani", "kazakh",
	"uzbek", "norse", "nordic", "scandinavian", "balkan", "baltic",
	// countries
	"lithuania", "latvia", "estonia", "poland", "russia", "ukraine",
	"germany", "france", "italy", "spain", "portugal", "brazil", "japan",
	"korea", "china", "india", "mexico", "canada", "australia", "usa", "uk",
	// cities
	"vilnius", "kaunas", "riga", "tallinn", "warsaw", "krakow", "moscow",
	"kyiv", "kiev", "minsk", "berlin", "hamburg", "cologne", "munich",
	"paris", "lyon", "rome", "milan", "madrid", "barcelona", "lisbon",
	"amsterdam", "brussels", "stockholm", "oslo", "copenhagen", "helsinki",
	"reykjavik", "prague", "budapest", "bucharest", "sofia", "belgrade",
	"zagreb", "athens", "istanbul", "tokyo", "osaka", "seoul", "beijing",
	"shanghai", "sydney", "melbourne", "toronto", "montreal", "vancouver",
	"london", "manchester", "bristol", "glasgow", "dublin",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsGeoTag reports whether a tag carries a geography or language word and
// is not itself a taxonomy key ("detroit techno" and "french house" are
// genres, "lithuanian electronic" is not).
func (c *Classifier) IsGeoTag(tag string) bool {
	tag = Normalize(tag)
	if tag == "" {
		return false
	}
	if _, ok := c.table[tag]; ok {
		return false
	}
	for _, w := range strings.FieldsFunc(tag, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == ','
	}) {
		if geoWords[w] {
			return true
		}
	}
	return false
}

// GeoSignal returns the geo tags found in tags and whether the list is
// dominated by them: at least one geo tag, geo tags make up at least half
// of the list, and no remaining tag classifies to any category.
func (c *Classifier) GeoSignal(tags []string) (geo []string, dominated bool) {
	var rest []string
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if c.IsGeoTag(t) {
			geo = append(geo, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(geo) == 0 {
		return nil, false
	}
	if len(geo)*2 < len(geo)+len(rest) {
		return geo, false
	}
	return geo, c.Classify(rest).Empty()
}

// GeoReason formats the wrong-match reason for a set of geo tags.
func GeoReason(geo []string) string {
	return "wrong match (geo tags: " + strings.Join(geo, ", ") + ")"
}
