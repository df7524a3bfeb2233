// Package everynoise reads an artist's genres from the Every Noise at Once
// artist lookup. Its genre names are the taxonomy's native vocabulary, so it
// is the authoritative tag source.
package everynoise

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://everynoise.com"

// Adapter scrapes lookup.cgi.
type Adapter struct {
	fetch   *provider.Fetcher
	logger  *slog.Logger
	baseURL string
}

// New creates an Every Noise adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates an Every Noise adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameEveryNoise)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameEveryNoise, limiter, logger),
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameEveryNoise }

// LookupTags returns the genre names linked from the artist's lookup page,
// in page order.
func (a *Adapter) LookupTags(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return provider.NoResult[[]string](provider.NameEveryNoise, "empty name"), nil
	}
	body, err := a.fetch.Get(ctx, a.baseURL+"/lookup.cgi?who="+url.QueryEscape(name)+"&mode=map", http.Header{"Accept": {"text/html"}})
	if err != nil {
		return provider.NoResult[[]string](provider.NameEveryNoise, ""), err
	}
	genres := genreLinks(body)
	if len(genres) == 0 {
		return provider.NoResult[[]string](provider.NameEveryNoise, "artist not found"), nil
	}
	return provider.Found(provider.NameEveryNoise, genres), nil
}

// genreLinks collects the text of anchors pointing at genre map pages,
// deduplicated.
func genreLinks(body []byte) []string {
	z := html.NewTokenizer(bytes.NewReader(body))
	var out []string
	seen := make(map[string]bool)
	var inGenre bool
	var text strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed document; keep what was read.
			return out
		case html.StartTagToken:
			tn, hasAttr := z.TagName()
			if string(tn) != "a" || !hasAttr {
				continue
			}
			for {
				k, v, more := z.TagAttr()
				if string(k) == "href" && strings.Contains(string(v), "engenremap-") {
					inGenre = true
					text.Reset()
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if inGenre {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			if string(tn) != "a" || !inGenre {
				continue
			}
			inGenre = false
			g := strings.Join(strings.Fields(text.String()), " ")
			key := strings.ToLower(g)
			if g != "" && !seen[key] {
				seen[key] = true
				out = append(out, g)
			}
		}
	}
}
