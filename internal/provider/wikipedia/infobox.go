package wikipedia

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sydlexius/cytherea/internal/artist"
)

var (
	infoboxName = regexp.MustCompile(`(?i)\{\{\s*infobox[\s_]+([^|\n}]+)`)

	// {{Birth date and age|1971|8|18}}, {{birth date|df=y|1971|8|18}}
	birthDateTemplate = regexp.MustCompile(`(?i)\{\{\s*birth[ _]date(?:[ _]and[ _]age)?\s*\|([^}]*)\}\}`)
	// {{Birth year and age|1971}}, {{birth year|1971}}
	birthYearTemplate = regexp.MustCompile(`(?i)\{\{\s*birth[ _]year(?:[ _]and[ _]age)?\s*\|\s*(\d{4})`)
	// {{birth-date|August 18, 1971}}
	birthDateText = regexp.MustCompile(`(?i)\{\{\s*birth-date(?:[ _]and[ _]age)?\s*\|([^|}]*)`)
	// | birth_date = August 18, 1971
	birthDateField = regexp.MustCompile(`(?im)^\s*\|\s*birth_date\s*=\s*([^\n]*)$`)
	// | years_active = 1991–present (groups have no birth date)
	yearsActiveField = regexp.MustCompile(`(?im)^\s*\|\s*years_active\s*=\s*\D*?(\d{4})`)

	disambiguation = regexp.MustCompile(`(?i)\{\{\s*(disambiguation|disambig|dab|hndis)\b`)
)

// Infobox templates that describe a musician or group.
var musicalInfoboxes = map[string]bool{
	"musical artist": true,
	"person":         true,
	"musician":       true,
	"singer":         true,
	"band":           true,
	"dj":             true,
	"composer":       true,
}

// infoboxKind returns the lowercased name of the first infobox, or "".
func infoboxKind(wikitext string) string {
	m := infoboxName.FindStringSubmatch(wikitext)
	if m == nil {
		return ""
	}
	kind := strings.ToLower(strings.TrimSpace(m[1]))
	return strings.Join(strings.Fields(strings.ReplaceAll(kind, "_", " ")), " ")
}

func isDisambiguation(wikitext string) bool {
	return disambiguation.MatchString(wikitext)
}

// extractBirthDate tries the known template and field patterns in priority
// order and returns the first date found.
func extractBirthDate(wikitext string) (artist.PartialDate, bool) {
	if m := birthDateTemplate.FindStringSubmatch(wikitext); m != nil {
		if p, ok := templateDate(m[1]); ok {
			return p, true
		}
	}
	if m := birthYearTemplate.FindStringSubmatch(wikitext); m != nil {
		y, _ := strconv.Atoi(m[1])
		return artist.PartialDate{Year: y}, true
	}
	if m := birthDateText.FindStringSubmatch(wikitext); m != nil {
		if p, err := artist.ParseDateText(m[1]); err == nil {
			return p, true
		}
	}
	if m := birthDateField.FindStringSubmatch(wikitext); m != nil {
		if p, err := artist.ParseDateText(stripMarkup(m[1])); err == nil {
			return p, true
		}
	}
	if m := yearsActiveField.FindStringSubmatch(wikitext); m != nil {
		y, _ := strconv.Atoi(m[1])
		return artist.PartialDate{Year: y}, true
	}
	return artist.PartialDate{}, false
}

// templateDate reads positional year|month|day parameters, skipping named
// ones such as df=yes or mf=y.
func templateDate(params string) (artist.PartialDate, bool) {
	var nums []int
	for _, p := range strings.Split(params, "|") {
		p = strings.TrimSpace(p)
		if p == "" || strings.Contains(p, "=") {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return artist.PartialDate{}, false
		}
		nums = append(nums, n)
		if len(nums) == 3 {
			break
		}
	}
	if len(nums) == 0 || nums[0] < 1000 {
		return artist.PartialDate{}, false
	}
	p := artist.PartialDate{Year: nums[0]}
	if len(nums) > 1 {
		p.Month = nums[1]
	}
	if len(nums) > 2 {
		p.Day = nums[2]
	}
	return p, true
}

var (
	refTags  = regexp.MustCompile(`(?s)<ref[^>]*/>|<ref[^>]*>.*?</ref>`)
	comments = regexp.MustCompile(`(?s)<!--.*?-->`)
	links    = regexp.MustCompile(`\[\[(?:[^|\]]*\|)?([^\]]*)\]\]`)
)

// stripMarkup removes references, comments and link syntax from a field value.
func stripMarkup(s string) string {
	s = refTags.ReplaceAllString(s, "")
	s = comments.ReplaceAllString(s, "")
	s = links.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
