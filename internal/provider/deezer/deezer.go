package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://api.deezer.com"

// Adapter provides related artists and top-track media references from
// Deezer's public API. No authentication is required.
type Adapter struct {
	fetch        *provider.Fetcher
	logger       *slog.Logger
	baseURL      string
	relatedLimit int
	mediaLimit   int
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameDeezer)))
	return &Adapter{
		fetch:        provider.NewFetcher(provider.NameDeezer, limiter, logger),
		logger:       logger,
		baseURL:      strings.TrimRight(baseURL, "/"),
		relatedLimit: 20,
		mediaLimit:   5,
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameDeezer }

// LookupSimilar returns Deezer's related artists.
func (a *Adapter) LookupSimilar(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	id, err := a.resolveID(ctx, q.Name)
	if err != nil || id == "" {
		return provider.NoResult[[]string](provider.NameDeezer, "artist not found"), err
	}

	var resp searchResponse
	reqURL := fmt.Sprintf("%s/artist/%s/related?limit=%d", a.baseURL, url.PathEscape(id), a.relatedLimit)
	if found, err := a.getJSON(ctx, reqURL, &resp); err != nil || !found {
		return provider.NoResult[[]string](provider.NameDeezer, "no related artists"), err
	}

	var names []string
	for _, r := range resp.Data {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	if len(names) == 0 {
		return provider.NoResult[[]string](provider.NameDeezer, "no related artists"), nil
	}
	return provider.Found(provider.NameDeezer, names), nil
}

// LookupMedia returns the artist's top track as the media id and the next
// tracks as backups.
func (a *Adapter) LookupMedia(ctx context.Context, q provider.Query) (provider.Result[provider.MediaRef], error) {
	id, err := a.resolveID(ctx, q.Name)
	if err != nil || id == "" {
		return provider.NoResult[provider.MediaRef](provider.NameDeezer, "artist not found"), err
	}

	var resp trackListResponse
	reqURL := fmt.Sprintf("%s/artist/%s/top?limit=%d", a.baseURL, url.PathEscape(id), a.mediaLimit)
	if found, err := a.getJSON(ctx, reqURL, &resp); err != nil || !found {
		return provider.NoResult[provider.MediaRef](provider.NameDeezer, "no tracks"), err
	}

	var ref provider.MediaRef
	for _, t := range resp.Data {
		if t.ID == 0 || !t.Readable {
			continue
		}
		tid := strconv.Itoa(t.ID)
		if ref.ID == "" {
			ref.ID = tid
		} else {
			ref.Backups = append(ref.Backups, tid)
		}
	}
	if ref.ID == "" {
		return provider.NoResult[provider.MediaRef](provider.NameDeezer, "no playable tracks"), nil
	}
	return provider.Found(provider.NameDeezer, ref), nil
}

// resolveID searches by name and returns the Deezer ID of the exact
// (case-insensitive) match with the most fans, or "" when none matches.
func (a *Adapter) resolveID(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	params := url.Values{
		"q":     {name},
		"limit": {"10"},
	}
	var resp searchResponse
	if found, err := a.getJSON(ctx, a.baseURL+"/search/artist?"+params.Encode(), &resp); err != nil || !found {
		return "", err
	}

	key := artist.NameKey(name)
	best := -1
	for i, r := range resp.Data {
		if artist.NameKey(r.Name) != key {
			continue
		}
		if best < 0 || r.NbFan > resp.Data[best].NbFan {
			best = i
		}
	}
	if best < 0 {
		a.logger.Debug("no exact name match", slog.String("name", name), slog.Int("results", len(resp.Data)))
		return "", nil
	}
	id := strconv.Itoa(resp.Data[best].ID)
	if !isDeezerID(id) {
		return "", nil
	}
	return id, nil
}

// getJSON fetches reqURL into out. Deezer reports failures inside a 200
// body; "no data" maps to found=false.
func (a *Adapter) getJSON(ctx context.Context, reqURL string, out any) (bool, error) {
	body, err := a.fetch.Get(ctx, reqURL, http.Header{"Accept": {"application/json"}})
	var nf *provider.ErrNotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		switch env.Error.Code {
		case codeNoData:
			return false, nil
		case codeQuota:
			return false, &provider.ErrProviderUnavailable{
				Provider: provider.NameDeezer,
				Cause:    errors.New(env.Error.Message),
			}
		default:
			return false, fmt.Errorf("deezer error %d: %s", env.Error.Code, env.Error.Message)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("parsing response: %w", err)
	}
	return true, nil
}

// isDeezerID reports whether id is a valid Deezer ID (all digits, non-zero).
func isDeezerID(id string) bool {
	if id == "" || id == "0" {
		return false
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
