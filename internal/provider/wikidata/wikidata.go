package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultEndpoint = "https://query.wikidata.org/sparql"

// Occupations (P106) that make an entity plausibly a musician.
var musicianOccupations = map[string]bool{
	"Q639669":   true, // musician
	"Q177220":   true, // singer
	"Q36834":    true, // composer
	"Q130857":   true, // disc jockey
	"Q183945":   true, // record producer
	"Q488205":   true, // singer-songwriter
	"Q753110":   true, // songwriter
	"Q855091":   true, // guitarist
	"Q486748":   true, // pianist
	"Q386854":   true, // drummer
	"Q584301":   true, // bassist
	"Q1643514":  true, // electronic musician
	"Q2252262":  true, // rapper
	"Q1198887":  true, // music director
	"Q158852":   true, // conductor
	"Q806349":   true, // bandleader
	"Q1259917":  true, // sound artist
	"Q55960555": true, // recording artist
}

// Instance-of (P31) values for musical groups, whose inception date is used.
var groupTypes = map[string]bool{
	"Q215380":  true, // musical group
	"Q5741069": true, // rock band
	"Q2088357": true, // musical ensemble
	"Q9212979": true, // musical duo
	"Q281643":  true, // trio
}

// Adapter resolves birth dates from Wikidata by English label, keeping only
// entities that look like musicians or musical groups.
type Adapter struct {
	fetch    *provider.Fetcher
	logger   *slog.Logger
	endpoint string
}

// New creates a Wikidata adapter with the default endpoint.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithEndpoint(limiter, logger, defaultEndpoint)
}

// NewWithEndpoint creates a Wikidata adapter with a custom endpoint (for testing).
func NewWithEndpoint(limiter *provider.RateLimiterMap, logger *slog.Logger, endpoint string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameWikidata)))
	return &Adapter{
		fetch:    provider.NewFetcher(provider.NameWikidata, limiter, logger),
		logger:   logger,
		endpoint: endpoint,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameWikidata }

// entity collects all bindings for one item.
type entity struct {
	qid        string
	musician   bool
	group      bool
	mbid       string
	birth      string
	birthPrec  int
	incept     string
	inceptPrec int
}

// LookupBirthDate finds entities labelled with the artist name and returns
// the birth date (P569) of a musician or the inception (P571) of a musical
// group. Labels that only match non-musicians yield a WrongMatch.
func (a *Adapter) LookupBirthDate(ctx context.Context, q provider.Query) (provider.Result[artist.PartialDate], error) {
	bindings, err := a.executeSPARQL(ctx, buildLabelQuery(q.Name))
	if err != nil {
		return provider.NoResult[artist.PartialDate](provider.NameWikidata, ""), err
	}
	entities := groupBindings(bindings)
	if len(entities) == 0 {
		return provider.NoResult[artist.PartialDate](provider.NameWikidata, "no entity with that label"), nil
	}

	// An MBID hint pins the entity when Wikidata carries the same one.
	if q.StableID != "" {
		sort.SliceStable(entities, func(i, j int) bool {
			return entities[i].mbid == q.StableID && entities[j].mbid != q.StableID
		})
	}

	var rejected int
	for _, e := range entities {
		if !e.musician && !e.group && (q.StableID == "" || e.mbid != q.StableID) {
			if e.birth != "" || e.incept != "" {
				rejected++
			}
			continue
		}
		raw, prec := e.birth, e.birthPrec
		if raw == "" && e.group {
			raw, prec = e.incept, e.inceptPrec
		}
		if raw == "" {
			continue
		}
		date, err := parseTime(raw, prec)
		if err != nil {
			a.logger.Debug("skipping unparseable date", slog.String("qid", e.qid), slog.String("value", raw))
			continue
		}
		res := provider.Found(provider.NameWikidata, date)
		res.StableID = e.mbid
		return res, nil
	}

	if rejected > 0 {
		return provider.WrongMatch[artist.PartialDate](provider.NameWikidata,
			fmt.Sprintf("%d dated entities, none a musician", rejected)), nil
	}
	return provider.NoResult[artist.PartialDate](provider.NameWikidata, "no dated musician entity"), nil
}

func (a *Adapter) executeSPARQL(ctx context.Context, query string) ([]SPARQLBinding, error) {
	params := url.Values{
		"query":  {query},
		"format": {"json"},
	}
	body, err := a.fetch.Get(ctx, a.endpoint+"?"+params.Encode(),
		http.Header{"Accept": {"application/sparql-results+json"}})
	if err != nil {
		return nil, err
	}

	var sparqlResp SPARQLResponse
	if err := json.Unmarshal(body, &sparqlResp); err != nil {
		return nil, fmt.Errorf("parsing SPARQL response: %w", err)
	}
	return sparqlResp.Results.Bindings, nil
}

func buildLabelQuery(name string) string {
	return fmt.Sprintf(`
SELECT ?item ?type ?occupation ?dob ?dobPrecision ?inception ?inceptionPrecision ?mbid WHERE {
  ?item rdfs:label %s@en .
  OPTIONAL { ?item wdt:P31 ?type . }
  OPTIONAL { ?item wdt:P106 ?occupation . }
  OPTIONAL { ?item p:P569/psv:P569 [ wikibase:timeValue ?dob ; wikibase:timePrecision ?dobPrecision ] . }
  OPTIONAL { ?item p:P571/psv:P571 [ wikibase:timeValue ?inception ; wikibase:timePrecision ?inceptionPrecision ] . }
  OPTIONAL { ?item wdt:P434 ?mbid . }
} LIMIT 300`, sparqlString(name))
}

// sparqlString quotes s as a SPARQL string literal.
func sparqlString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return `"` + r.Replace(strings.TrimSpace(s)) + `"`
}

// groupBindings folds result rows into entities, preserving first-seen order.
func groupBindings(bindings []SPARQLBinding) []*entity {
	var order []*entity
	byQID := make(map[string]*entity)
	for _, b := range bindings {
		qid := extractQID(b.Item.Value)
		if qid == "" {
			continue
		}
		e, ok := byQID[qid]
		if !ok {
			e = &entity{qid: qid}
			byQID[qid] = e
			order = append(order, e)
		}
		if musicianOccupations[extractQID(b.Occupation.Value)] {
			e.musician = true
		}
		if groupTypes[extractQID(b.Type.Value)] {
			e.group = true
		}
		if e.mbid == "" {
			e.mbid = b.MBID.Value
		}
		if v := b.Birth.Value; v != "" && (e.birth == "" || precision(b.BirthPrecision) > e.birthPrec) {
			e.birth, e.birthPrec = v, precision(b.BirthPrecision)
		}
		if v := b.Inception.Value; v != "" && (e.incept == "" || precision(b.InceptionPrecision) > e.inceptPrec) {
			e.incept, e.inceptPrec = v, precision(b.InceptionPrecision)
		}
	}
	return order
}

func precision(v SPARQLValue) int {
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 11
	}
	return n
}

// parseTime converts a Wikidata time value at the given precision
// (9 year, 10 month, 11 day) into a partial date.
func parseTime(value string, prec int) (artist.PartialDate, error) {
	if strings.HasPrefix(value, "-") {
		return artist.PartialDate{}, fmt.Errorf("BCE date %q", value)
	}
	p, err := artist.ParsePartialDate(value)
	if err != nil {
		return artist.PartialDate{}, err
	}
	switch {
	case prec < 9:
		return artist.PartialDate{}, fmt.Errorf("precision %d coarser than a year", prec)
	case prec == 9:
		p.Month, p.Day = 0, 0
	case prec == 10:
		p.Day = 0
	}
	return p, nil
}

// extractQID extracts the Q-item ID from a full Wikidata URI.
// e.g. "http://www.wikidata.org/entity/Q44190" -> "Q44190"
func extractQID(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
