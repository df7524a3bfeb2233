// Package wikipedia reads birth dates from English Wikipedia infoboxes.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://en.wikipedia.org/w/api.php"

// Title suffixes tried after the bare name.
var disambiguators = []string{" (musician)", " (singer)"}

// Adapter scrapes infobox wikitext through the MediaWiki API.
type Adapter struct {
	fetch   *provider.Fetcher
	logger  *slog.Logger
	baseURL string
}

// New creates a Wikipedia adapter with the default API URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Wikipedia adapter with a custom API URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameWikipedia)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameWikipedia, limiter, logger),
		logger:  logger,
		baseURL: baseURL,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameWikipedia }

// LookupBirthDate tries the bare name and then the disambiguated titles,
// returning the first infobox birth date found. Pages whose infobox is not
// about a musician are skipped and reported as a WrongMatch if nothing else
// matches.
func (a *Adapter) LookupBirthDate(ctx context.Context, q provider.Query) (provider.Result[artist.PartialDate], error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return provider.NoResult[artist.PartialDate](provider.NameWikipedia, "empty name"), nil
	}

	titles := []string{name}
	for _, d := range disambiguators {
		titles = append(titles, name+d)
	}

	var wrong []string
	var lastErr error
	for _, title := range titles {
		text, err := a.wikitext(ctx, title)
		if err != nil {
			lastErr = err
			continue
		}
		if text == "" || isDisambiguation(text) {
			continue
		}
		kind := infoboxKind(text)
		if kind == "" {
			continue
		}
		if !musicalInfoboxes[kind] {
			wrong = append(wrong, fmt.Sprintf("%s (infobox %s)", title, kind))
			continue
		}
		if date, ok := extractBirthDate(text); ok {
			a.logger.Debug("infobox date", slog.String("title", title), slog.String("date", date.String()))
			return provider.Found(provider.NameWikipedia, date), nil
		}
	}

	if len(wrong) > 0 {
		return provider.WrongMatch[artist.PartialDate](provider.NameWikipedia,
			"non-musician page: "+strings.Join(wrong, ", ")), nil
	}
	if lastErr != nil {
		return provider.NoResult[artist.PartialDate](provider.NameWikipedia, ""), lastErr
	}
	return provider.NoResult[artist.PartialDate](provider.NameWikipedia, "no infobox date"), nil
}

// wikitext returns the current wikitext of a page, following redirects,
// or "" when the page does not exist.
func (a *Adapter) wikitext(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"revisions"},
		"rvprop":        {"content"},
		"rvslots":       {"main"},
		"format":        {"json"},
		"formatversion": {"2"},
		"redirects":     {"1"},
		"titles":        {title},
	}
	body, err := a.fetch.Get(ctx, a.baseURL+"?"+params.Encode(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return "", err
	}
	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing query response: %w", err)
	}
	for _, p := range resp.Query.Pages {
		if p.Missing || p.Invalid || len(p.Revisions) == 0 {
			continue
		}
		return p.Revisions[0].Slots.Main.Content, nil
	}
	return "", nil
}
