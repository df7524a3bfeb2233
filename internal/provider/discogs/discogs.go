package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://api.discogs.com"

// Adapter derives genre tags from the styles and genres of an artist's
// Discogs master releases.
type Adapter struct {
	fetch   *provider.Fetcher
	logger  *slog.Logger
	token   string
	baseURL string
}

// New creates a Discogs adapter with the default base URL.
func New(token string, limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(token, limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs adapter with a custom base URL (for testing).
func NewWithBaseURL(token string, limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameDiscogs)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameDiscogs, limiter, logger),
		logger:  logger,
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameDiscogs }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// Configured reports whether a personal access token is set.
func (a *Adapter) Configured() bool { return a.token != "" }

// LookupTags returns styles then genres of the artist's masters, each
// ordered by how many masters carry it.
func (a *Adapter) LookupTags(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	if a.token == "" {
		return provider.NoResult[[]string](provider.NameDiscogs, ""), &provider.ErrAuthRequired{Provider: provider.NameDiscogs}
	}
	params := url.Values{
		"artist":   {q.Name},
		"type":     {"master"},
		"per_page": {"25"},
	}
	body, err := a.fetch.Get(ctx, a.baseURL+"/database/search?"+params.Encode(), http.Header{
		"Authorization": {"Discogs token=" + a.token},
		"Accept":        {"application/json"},
	})
	var nf *provider.ErrNotFound
	if errors.As(err, &nf) {
		return provider.NoResult[[]string](provider.NameDiscogs, "artist not found"), nil
	}
	if err != nil {
		return provider.NoResult[[]string](provider.NameDiscogs, ""), err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.NoResult[[]string](provider.NameDiscogs, ""), fmt.Errorf("parsing search response: %w", err)
	}

	tags := aggregate(q.Name, resp.Results)
	if len(tags) == 0 {
		return provider.NoResult[[]string](provider.NameDiscogs, "no masters for artist"), nil
	}
	return provider.Found(provider.NameDiscogs, tags), nil
}

// aggregate counts styles and genres across masters credited to name.
func aggregate(name string, results []SearchResult) []string {
	key := artist.NameKey(name)
	styles := map[string]int{}
	genres := map[string]int{}
	for _, r := range results {
		credit, _, ok := strings.Cut(r.Title, " - ")
		// "Name (2)" is a different, same-named Discogs artist.
		if !ok || artist.NameKey(credit) != key {
			continue
		}
		for _, s := range r.Style {
			styles[s]++
		}
		for _, g := range r.Genre {
			genres[g]++
		}
	}
	return append(byCount(styles), byCount(genres)...)
}

func byCount(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
