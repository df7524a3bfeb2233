package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// minScore is the lowest search score accepted as a name match.
const minScore = 90

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Adapter resolves birth dates, stable identifiers and tags from MusicBrainz.
type Adapter struct {
	fetch   *provider.Fetcher
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameMusicBrainz)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameMusicBrainz, limiter, logger),
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameMusicBrainz }

// LookupBirthDate returns the life-span begin date of the matching Person
// (birth) or Group (formation). Partial dates are returned as-is for the
// caller to normalize. The MBID is returned as the stable identifier.
func (a *Adapter) LookupBirthDate(ctx context.Context, q provider.Query) (provider.Result[artist.PartialDate], error) {
	mb, res, err := a.find(ctx, q)
	if err != nil || mb == nil {
		return convert[artist.PartialDate](res), err
	}
	if mb.LifeSpan.Begin == "" {
		out := provider.NoResult[artist.PartialDate](provider.NameMusicBrainz, "no life-span")
		out.StableID = mb.ID
		return out, nil
	}
	date, err := artist.ParsePartialDate(mb.LifeSpan.Begin)
	if err != nil {
		return provider.NoResult[artist.PartialDate](provider.NameMusicBrainz, ""), fmt.Errorf("parsing life-span %q: %w", mb.LifeSpan.Begin, err)
	}
	out := provider.Found(provider.NameMusicBrainz, date)
	out.StableID = mb.ID
	return out, nil
}

// LookupTags returns curated genres for the matched artist, falling back to
// community tags with a positive vote count.
func (a *Adapter) LookupTags(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	mb, res, err := a.find(ctx, q)
	if err != nil || mb == nil {
		return convert[[]string](res), err
	}
	var tags []string
	for _, g := range mb.Genres {
		if g.Name != "" {
			tags = append(tags, g.Name)
		}
	}
	if len(tags) == 0 {
		for _, t := range mb.Tags {
			if t.Name != "" && t.Count > 0 {
				tags = append(tags, t.Name)
			}
		}
	}
	if len(tags) == 0 {
		return provider.NoResult[[]string](provider.NameMusicBrainz, "no tags"), nil
	}
	out := provider.Found(provider.NameMusicBrainz, tags)
	out.StableID = mb.ID
	return out, nil
}

// find resolves the query to one artist. A nil artist comes with a
// NoResult or WrongMatch result explaining why.
func (a *Adapter) find(ctx context.Context, q provider.Query) (*MBArtist, provider.Result[struct{}], error) {
	if uuidPattern.MatchString(q.StableID) {
		mb, err := a.getArtist(ctx, q.StableID)
		if err == nil {
			return mb, provider.Result[struct{}]{}, nil
		}
		a.logger.Debug("lookup by MBID failed, searching by name",
			slog.String("mbid", q.StableID), slog.String("error", err.Error()))
	}

	results, err := a.search(ctx, q.Name)
	if err != nil {
		return nil, provider.NoResult[struct{}](provider.NameMusicBrainz, ""), err
	}
	return pick(q.Name, results)
}

// pick chooses the best name-matched Person or Group, preferring one with a
// populated life-span.
func pick(name string, results []MBArtist) (*MBArtist, provider.Result[struct{}], error) {
	key := artist.NameKey(name)
	var matched []*MBArtist
	for i := range results {
		r := &results[i]
		if r.Score < minScore {
			continue
		}
		if artist.NameKey(r.Name) == key || hasAlias(r, key) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, provider.NoResult[struct{}](provider.NameMusicBrainz, "no name match"), nil
	}

	var fallback *MBArtist
	for _, r := range matched {
		if !isPersonOrGroup(r.Type) {
			continue
		}
		if r.LifeSpan.Begin != "" {
			return r, provider.Result[struct{}]{}, nil
		}
		if fallback == nil {
			fallback = r
		}
	}
	if fallback != nil {
		return fallback, provider.Result[struct{}]{}, nil
	}
	return nil, provider.WrongMatch[struct{}](provider.NameMusicBrainz,
		fmt.Sprintf("entity type %q is not a person or group", matched[0].Type)), nil
}

func isPersonOrGroup(t string) bool {
	return t == "Person" || t == "Group"
}

func hasAlias(r *MBArtist, key string) bool {
	for _, al := range r.Aliases {
		if artist.NameKey(al.Name) == key {
			return true
		}
	}
	return false
}

func (a *Adapter) search(ctx context.Context, name string) ([]MBArtist, error) {
	params := url.Values{
		"query": {`artist:"` + strings.ReplaceAll(name, `"`, `\"`) + `"`},
		"fmt":   {"json"},
		"limit": {"10"},
	}
	body, err := a.fetch.Get(ctx, a.baseURL+"/artist?"+params.Encode(), jsonHeader)
	if err != nil {
		return nil, err
	}
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Artists, nil
}

func (a *Adapter) getArtist(ctx context.Context, mbid string) (*MBArtist, error) {
	params := url.Values{
		"inc": {"aliases+genres+tags"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/artist/" + url.PathEscape(mbid) + "?" + params.Encode()
	body, err := a.fetch.Get(ctx, reqURL, jsonHeader)
	if err != nil {
		return nil, err
	}
	var mb MBArtist
	if err := json.Unmarshal(body, &mb); err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}
	return &mb, nil
}

var jsonHeader = http.Header{"Accept": {"application/json"}}

func convert[T any](r provider.Result[struct{}]) provider.Result[T] {
	return provider.Result[T]{Outcome: r.Outcome, Reason: r.Reason, Source: provider.NameMusicBrainz}
}
