package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Tags weighted below this are community noise ("seen live", "favorites").
const minTagCount = 10

// Adapter provides tags and similar artists from Last.fm.
type Adapter struct {
	fetch        *provider.Fetcher
	logger       *slog.Logger
	apiKey       string
	baseURL      string
	similarLimit int
}

// New creates a Last.fm adapter with the default base URL.
func New(apiKey string, limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(apiKey, limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(apiKey string, limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameLastFM)))
	return &Adapter{
		fetch:        provider.NewFetcher(provider.NameLastFM, limiter, logger),
		logger:       logger,
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		similarLimit: 30,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameLastFM }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// Configured reports whether an API key is set.
func (a *Adapter) Configured() bool { return a.apiKey != "" }

// LookupTags returns the artist's top tags above the noise threshold.
func (a *Adapter) LookupTags(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	var resp TopTagsResponse
	found, err := a.call(ctx, "artist.getTopTags", q, url.Values{"autocorrect": {"1"}}, &resp)
	if err != nil || !found {
		return provider.NoResult[[]string](provider.NameLastFM, "artist not found"), err
	}
	var tags []string
	for _, t := range resp.TopTags.Tag {
		if t.Name != "" && t.Count >= minTagCount {
			tags = append(tags, t.Name)
		}
	}
	if len(tags) == 0 {
		return provider.NoResult[[]string](provider.NameLastFM, "no tags"), nil
	}
	return provider.Found(provider.NameLastFM, tags), nil
}

// LookupSimilar returns similar artist names, most similar first.
func (a *Adapter) LookupSimilar(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	var resp SimilarResponse
	params := url.Values{"limit": {strconv.Itoa(a.similarLimit)}, "autocorrect": {"1"}}
	found, err := a.call(ctx, "artist.getSimilar", q, params, &resp)
	if err != nil || !found {
		return provider.NoResult[[]string](provider.NameLastFM, "artist not found"), err
	}
	var names []string
	for _, s := range resp.SimilarArtists.Artist {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	if len(names) == 0 {
		return provider.NoResult[[]string](provider.NameLastFM, "no similar artists"), nil
	}
	return provider.Found(provider.NameLastFM, names), nil
}

// call performs one API method. It returns found=false for the
// "artist not found" error, which Last.fm reports in the body.
func (a *Adapter) call(ctx context.Context, method string, q provider.Query, extra url.Values, out any) (bool, error) {
	if a.apiKey == "" {
		return false, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}
	params := url.Values{
		"method":  {method},
		"api_key": {a.apiKey},
		"format":  {"json"},
	}
	if q.StableID != "" {
		params.Set("mbid", q.StableID)
	} else {
		params.Set("artist", q.Name)
	}
	for k, v := range extra {
		params[k] = v
	}

	body, err := a.fetch.Get(ctx, a.baseURL+"/?"+params.Encode(), nil)
	var nf *provider.ErrNotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errInvalidParameters:
			// An unknown MBID falls back to the name.
			if q.StableID != "" {
				return a.call(ctx, method, provider.Query{Name: q.Name}, extra, out)
			}
			return false, nil
		case errInvalidAPIKey:
			return false, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
		case errRateLimited:
			return false, &provider.ErrProviderUnavailable{
				Provider: provider.NameLastFM,
				Cause:    errors.New(apiErr.Message),
			}
		default:
			return false, fmt.Errorf("last.fm error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("parsing %s response: %w", method, err)
	}
	return true, nil
}
