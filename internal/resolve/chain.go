// Package resolve runs the ordered provider chains: birth date through five
// tiers, and genre tags through the curated, authority and secondary
// sources.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/provider"
)

// BirthDateOrder is the fixed tier order of the birth-date chain.
var BirthDateOrder = []provider.ProviderName{
	provider.NameOverride,
	provider.NameWikidata,
	provider.NameMusicBrainz,
	provider.NameWikipedia,
	provider.NameFamousBirthdays,
}

// ErrUnresolved is returned when every tier came back empty.
var ErrUnresolved = errors.New("no tier produced a usable birth date")

// Resolution is the outcome of a successful chain run.
type Resolution struct {
	Date     artist.Date
	Approx   bool
	Source   provider.ProviderName
	StableID string
}

// adoptID keeps the first stable ID from a tier whose answer was accepted.
// Rejected answers (wrong match, implausible year) name someone else.
func (r *Resolution) adoptID(id string) {
	if r.StableID == "" && id != "" {
		r.StableID = id
	}
}

// Options tune a Chain. The zero value uses DefaultMinYear, no metrics and
// no events.
type Options struct {
	MinYear  int
	Observer provider.Observer
	Events   event.Publisher
	Now      func() time.Time
}

// Chain tries birth-date sources in order and stops at the first usable
// date.
type Chain struct {
	sources []provider.BirthDateSource
	opts    Options
	logger  *slog.Logger
}

// NewChain creates a chain over sources, which must already be in tier
// order.
func NewChain(sources []provider.BirthDateSource, logger *slog.Logger, opts Options) *Chain {
	if opts.MinYear == 0 {
		opts.MinYear = artist.DefaultMinYear
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Chain{
		sources: sources,
		opts:    opts,
		logger:  logger.With(slog.String("component", "birth-date-chain")),
	}
}

// WithMinYear returns a copy of the chain with a different sanity floor.
func (c *Chain) WithMinYear(minYear int) *Chain {
	out := *c
	out.opts.MinYear = minYear
	return &out
}

// Resolve runs the chain for q. Failed, empty and wrong-match tiers fall
// through to the next tier; implausible years count as wrong matches. The
// stable ID from the first tier that reports one is kept even when a later
// tier supplies the date. The only error other than ErrUnresolved is a
// canceled context.
func (c *Chain) Resolve(ctx context.Context, q provider.Query) (Resolution, error) {
	var out Resolution
	out.StableID = q.StableID
	for _, src := range c.sources {
		name := src.Name()
		res, err := provider.Settle(ctx, c.logger, c.opts.Observer, name, provider.CapBirthDate,
			func(ctx context.Context) (provider.Result[artist.PartialDate], error) {
				return src.LookupBirthDate(ctx, q)
			})
		if err != nil {
			return Resolution{}, err
		}
		switch res.Outcome {
		case provider.OutcomeNoResult:
			// The entity matched but carried no date; its identity still holds.
			out.adoptID(res.StableID)
			c.logger.Debug("tier empty", slog.String("artist", q.Name), slog.String("provider", string(name)), slog.String("reason", res.Reason))
			continue
		case provider.OutcomeWrongMatch:
			c.wrongMatch(event.WrongMatch, q.Name, name, res.Reason)
			continue
		}

		date, approx, err := artist.Normalize(res.Value, c.opts.Now(), c.opts.MinYear)
		if errors.Is(err, artist.ErrImplausibleYear) {
			c.wrongMatch(event.ImplausibleYear, q.Name, name, err.Error())
			continue
		}
		if err != nil {
			c.logger.Warn("unusable date", slog.String("artist", q.Name), slog.String("provider", string(name)), slog.Any("error", err))
			continue
		}
		if name == provider.NameOverride && res.Value.Complete() {
			// Curated full dates are returned as written.
			approx = false
		}
		out.adoptID(res.StableID)
		out.Date, out.Approx, out.Source = date, approx, name
		return out, nil
	}
	return out, ErrUnresolved
}

func (c *Chain) wrongMatch(t event.Type, artistName string, src provider.ProviderName, reason string) {
	c.logger.Info("rejected tier result",
		slog.String("artist", artistName),
		slog.String("provider", string(src)),
		slog.String("reason", reason))
	if c.opts.Events != nil {
		c.opts.Events.Publish(event.Event{
			Type:   t,
			Artist: artistName,
			Data:   map[string]any{"provider": string(src), "reason": reason},
		})
	}
}
