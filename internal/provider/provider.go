package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
)

// AccessTier classifies a provider's access model.
type AccessTier string

// Access tier constants for classifying a provider's access model.
const (
	TierFree    AccessTier = "free"     // No key, no limit known
	TierFreeKey AccessTier = "free_key" // Free account/sign-up required
	TierScrape  AccessTier = "scrape"   // HTML page, no API
)

// ProviderCapability describes a provider's access model and documented rate limits.
type ProviderCapability struct {
	Tier              AccessTier `json:"tier"`
	HelpURL           string     `json:"help_url,omitempty"`
	RequestsPerSecond float64    `json:"requests_per_second,omitempty"`
}

// ProviderCapabilities returns the known capability metadata for each provider.
func ProviderCapabilities() map[ProviderName]ProviderCapability {
	return map[ProviderName]ProviderCapability{
		NameOverride:        {Tier: TierFree},
		NameWikidata:        {Tier: TierFree, RequestsPerSecond: 5},
		NameMusicBrainz:     {Tier: TierFree, RequestsPerSecond: 1},
		NameWikipedia:       {Tier: TierFree, RequestsPerSecond: 5},
		NameFamousBirthdays: {Tier: TierScrape, RequestsPerSecond: 0.5},
		NameEveryNoise:      {Tier: TierScrape, RequestsPerSecond: 0.5},
		NameLastFM: {
			Tier:              TierFreeKey,
			HelpURL:           "https://www.last.fm/api/account/create",
			RequestsPerSecond: 5,
		},
		NameDiscogs: {
			Tier:              TierFreeKey,
			HelpURL:           "https://www.discogs.com/settings/developers",
			RequestsPerSecond: 1,
		},
		NameDeezer: {Tier: TierFree, RequestsPerSecond: 5},
	}
}

// ProviderName uniquely identifies a data source.
type ProviderName string

// Known provider names.
const (
	NameOverride        ProviderName = "override"
	NameWikidata        ProviderName = "wikidata"
	NameMusicBrainz     ProviderName = "musicbrainz"
	NameWikipedia       ProviderName = "wikipedia"
	NameFamousBirthdays ProviderName = "famousbirthdays"
	NameEveryNoise      ProviderName = "everynoise"
	NameLastFM          ProviderName = "lastfm"
	NameDiscogs         ProviderName = "discogs"
	NameDeezer          ProviderName = "deezer"
)

// AllProviderNames returns all known provider names in precedence order:
// birth-date tiers first, then tag, similarity and media sources.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameOverride,
		NameWikidata,
		NameMusicBrainz,
		NameWikipedia,
		NameFamousBirthdays,
		NameEveryNoise,
		NameLastFM,
		NameDiscogs,
		NameDeezer,
	}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameOverride:
		return "Manual override"
	case NameWikidata:
		return "Wikidata"
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameWikipedia:
		return "Wikipedia"
	case NameFamousBirthdays:
		return "Famous Birthdays"
	case NameEveryNoise:
		return "Every Noise at Once"
	case NameLastFM:
		return "Last.fm"
	case NameDiscogs:
		return "Discogs"
	case NameDeezer:
		return "Deezer"
	default:
		return string(n)
	}
}

// Outcome is what a lookup concluded.
type Outcome int

// Lookup outcomes.
const (
	// OutcomeNoResult means the provider had nothing usable. Transport and
	// parse failures are folded into this outcome by Settle.
	OutcomeNoResult Outcome = iota
	// OutcomeFound means Value holds a usable answer.
	OutcomeFound
	// OutcomeWrongMatch means the provider answered for what looks like a
	// different real-world entity. Reason explains why.
	OutcomeWrongMatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeWrongMatch:
		return "wrong_match"
	default:
		return "no_result"
	}
}

// Result is the closed answer type every capability returns.
type Result[T any] struct {
	Outcome  Outcome
	Value    T
	StableID string
	Reason   string
	Source   ProviderName
}

// Found builds a successful result.
func Found[T any](src ProviderName, v T) Result[T] {
	return Result[T]{Outcome: OutcomeFound, Value: v, Source: src}
}

// NoResult builds an empty result with an optional reason.
func NoResult[T any](src ProviderName, reason string) Result[T] {
	return Result[T]{Outcome: OutcomeNoResult, Source: src, Reason: reason}
}

// WrongMatch builds a result flagged as a different entity.
func WrongMatch[T any](src ProviderName, reason string) Result[T] {
	return Result[T]{Outcome: OutcomeWrongMatch, Source: src, Reason: reason}
}

// OK reports whether the result carries a usable value.
func (r Result[T]) OK() bool { return r.Outcome == OutcomeFound }

// Query identifies the artist being looked up. StableID is a hint and may
// be empty.
type Query struct {
	Name     string
	StableID string
}

// MediaRef points at playable media. The pipeline stores these without
// interpreting them.
type MediaRef struct {
	ID      string
	Backups []string
}

// Source is implemented by every adapter.
type Source interface {
	Name() ProviderName
}

// BirthDateSource resolves a birth (or group formation) date.
type BirthDateSource interface {
	Source
	LookupBirthDate(ctx context.Context, q Query) (Result[artist.PartialDate], error)
}

// TagSource returns the provider's free-text genre tags for an artist.
type TagSource interface {
	Source
	LookupTags(ctx context.Context, q Query) (Result[[]string], error)
}

// SimilarSource returns names of artists similar to the query.
type SimilarSource interface {
	Source
	LookupSimilar(ctx context.Context, q Query) (Result[[]string], error)
}

// MediaSource returns playable media references.
type MediaSource interface {
	Source
	LookupMedia(ctx context.Context, q Query) (Result[MediaRef], error)
}

// AuthRequirer is implemented by adapters that need credentials.
type AuthRequirer interface {
	RequiresAuth() bool
	Configured() bool
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the requested ID.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

// ErrAuthRequired indicates the provider needs an API key but none is configured.
type ErrAuthRequired struct {
	Provider ProviderName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: API key not configured", e.Provider)
}
