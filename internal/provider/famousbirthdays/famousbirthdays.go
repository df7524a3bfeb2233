// Package famousbirthdays scrapes birth dates from famousbirthdays.com
// person pages. It is the last birth-date tier and the least trusted.
package famousbirthdays

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

const defaultBaseURL = "https://www.famousbirthdays.com"

// Markers of a bot-challenge interstitial served in place of the page.
var challengeMarkers = []string{"Just a moment...", "cf-chl", "Attention Required!"}

// Adapter scrapes person pages.
type Adapter struct {
	fetch   *provider.Fetcher
	logger  *slog.Logger
	baseURL string
}

// New creates a Famous Birthdays adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Famous Birthdays adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	logger = logger.With(slog.String("provider", string(provider.NameFamousBirthdays)))
	return &Adapter{
		fetch:   provider.NewFetcher(provider.NameFamousBirthdays, limiter, logger),
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameFamousBirthdays }

// LookupBirthDate fetches /people/{slug}.html and reads the birth date from
// its microdata or JSON-LD.
func (a *Adapter) LookupBirthDate(ctx context.Context, q provider.Query) (provider.Result[artist.PartialDate], error) {
	s := slug(q.Name)
	if s == "" {
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, "empty name"), nil
	}
	resp, err := a.fetch.GetRaw(ctx, a.baseURL+"/people/"+s+".html", http.Header{"Accept": {"text/html"}})
	if err != nil {
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, ""), err
	}
	if isChallenge(resp.Body) {
		a.logger.Debug("bot challenge", slog.String("slug", s), slog.Int("status", resp.Status))
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, "bot challenge"), nil
	}
	switch {
	case resp.Status == http.StatusNotFound:
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, "no page"), nil
	case resp.Status != http.StatusOK:
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, ""),
			&provider.ErrProviderUnavailable{Provider: provider.NameFamousBirthdays, Cause: fmt.Errorf("HTTP %d", resp.Status)}
	}

	date, ok, err := extractBirthDate(resp.Body)
	if err != nil {
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, ""), fmt.Errorf("parsing page: %w", err)
	}
	if !ok {
		return provider.NoResult[artist.PartialDate](provider.NameFamousBirthdays, "no birth date on page"), nil
	}
	return provider.Found(provider.NameFamousBirthdays, date), nil
}

func isChallenge(body []byte) bool {
	for _, m := range challengeMarkers {
		if bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	return false
}

// slug builds the page slug: accents folded, lowercased, runs of
// non-alphanumerics collapsed to a single hyphen.
func slug(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(unicode.ToLower(r))
		default:
			hyphen = true
		}
	}
	return b.String()
}

// extractBirthDate walks the document for an itemprop="birthDate" element,
// then falls back to a JSON-LD birthDate.
func extractBirthDate(body []byte) (artist.PartialDate, bool, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return artist.PartialDate{}, false, err
	}
	var microdata, jsonLD []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr(n, "itemprop") == "birthDate" {
				for _, v := range []string{attr(n, "content"), attr(n, "datetime"), text(n)} {
					if v != "" {
						microdata = append(microdata, v)
					}
				}
			}
			if n.Data == "script" && attr(n, "type") == "application/ld+json" {
				jsonLD = append(jsonLD, text(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, v := range microdata {
		if p, ok := parse(v); ok {
			return p, true, nil
		}
	}
	for _, raw := range jsonLD {
		if p, ok := ldBirthDate(raw); ok {
			return p, true, nil
		}
	}
	return artist.PartialDate{}, false, nil
}

// ldBirthDate reads birthDate from a JSON-LD object or @graph array.
func ldBirthDate(raw string) (artist.PartialDate, bool) {
	var doc struct {
		BirthDate string `json:"birthDate"`
		Graph     []struct {
			BirthDate string `json:"birthDate"`
		} `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return artist.PartialDate{}, false
	}
	if p, ok := parse(doc.BirthDate); ok {
		return p, true
	}
	for _, g := range doc.Graph {
		if p, ok := parse(g.BirthDate); ok {
			return p, true
		}
	}
	return artist.PartialDate{}, false
}

func parse(s string) (artist.PartialDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return artist.PartialDate{}, false
	}
	if p, err := artist.ParsePartialDate(s); err == nil {
		return p, true
	}
	if p, err := artist.ParseDateText(s); err == nil {
		return p, true
	}
	return artist.PartialDate{}, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
