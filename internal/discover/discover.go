// Package discover walks the artist-similarity graph breadth first and
// turns unseen names into candidate records.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/judge"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/resolve"
)

// Rejection reasons.
const (
	ReasonExcluded    = "excluded"
	ReasonNoBirthDate = "no plausible birth date"
	ReasonNoGenres    = "no genres"
	ReasonDuplicateID = "stable id already known"
)

// Options tune a discovery run.
type Options struct {
	MaxDepth        int
	MaxCandidates   int
	MinBirthYear    int
	Delay           time.Duration
	CheckpointEvery int
	JudgeBatchSize  int
	Observer        provider.Observer
	Events          event.Publisher
}

// Deps are the collaborators a Discoverer consults.
type Deps struct {
	Similar    []provider.SimilarSource
	Chain      *resolve.Chain
	Tags       *resolve.TagResolver
	Classifier *genre.Classifier
	// Excluded reports names on the never-include list. Optional.
	Excluded func(name string) bool
	// Judge post-filters accepted candidates. Optional.
	Judge judge.Scorer
	// Checkpoint receives the accepted candidates so far. Optional.
	Checkpoint func(ctx context.Context, accepted []artist.Record) error
}

// Rejection is a candidate that was not accepted.
type Rejection struct {
	Name   string `json:"name"`
	Depth  int    `json:"depth"`
	Reason string `json:"reason"`
}

// Result is the outcome of a discovery run.
type Result struct {
	Accepted []artist.Record
	Rejected []Rejection
	// Visited counts distinct new names evaluated.
	Visited int
}

// Discoverer runs similarity-graph discovery.
type Discoverer struct {
	deps   Deps
	chain  *resolve.Chain
	opts   Options
	logger *slog.Logger
}

// New creates a Discoverer. The chain is copied with the discovery birth
// year floor.
func New(deps Deps, logger *slog.Logger, opts Options) *Discoverer {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 2
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 200
	}
	if opts.MinBirthYear == 0 {
		opts.MinBirthYear = 1940
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 10
	}
	return &Discoverer{
		deps:   deps,
		chain:  deps.Chain.WithMinYear(opts.MinBirthYear),
		opts:   opts,
		logger: logger.With(slog.String("component", "discover")),
	}
}

type run struct {
	*Discoverer
	seen       map[string]bool
	knownIDs   map[string]bool
	res        Result
	requests   int
	sinceCheck int
}

// Run expands from seeds up to MaxDepth hops. Names already in known (by
// name key or stable ID) are never re-evaluated. Each similarity and
// resolution request is made one at a time.
func (d *Discoverer) Run(ctx context.Context, seeds []string, known []artist.Record) (*Result, error) {
	r := &run{Discoverer: d, seen: make(map[string]bool), knownIDs: make(map[string]bool)}
	for _, k := range known {
		r.seen[k.Key()] = true
		if k.StableID != "" {
			r.knownIDs[k.StableID] = true
		}
	}
	var frontier []string
	for _, s := range seeds {
		if key := artist.NameKey(s); key != "" {
			r.seen[key] = true
			frontier = append(frontier, s)
		}
	}

	err := r.walk(ctx, frontier)
	if err != nil && !errors.Is(err, errCapReached) {
		r.checkpoint(ctx)
		return &r.res, err
	}
	if err := r.filter(ctx); err != nil {
		return &r.res, err
	}
	r.checkpoint(ctx)
	d.logger.Info("discovery complete",
		slog.Int("visited", r.res.Visited),
		slog.Int("accepted", len(r.res.Accepted)),
		slog.Int("rejected", len(r.res.Rejected)))
	return &r.res, nil
}

var errCapReached = errors.New("candidate cap reached")

func (r *run) walk(ctx context.Context, frontier []string) error {
	for depth := 1; depth <= r.opts.MaxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, from := range frontier {
			names, err := r.similar(ctx, from)
			if err != nil {
				return err
			}
			for _, name := range names {
				key := artist.NameKey(name)
				if key == "" || r.seen[key] {
					continue
				}
				r.seen[key] = true
				r.res.Visited++

				rec, reason, err := r.evaluate(ctx, name)
				if err != nil {
					return err
				}
				if reason != "" {
					r.reject(name, depth, reason)
					continue
				}
				r.accept(ctx, rec, depth, from)
				next = append(next, rec.Name)
				if len(r.res.Accepted) >= r.opts.MaxCandidates {
					r.logger.Info("candidate cap reached", slog.Int("max_candidates", r.opts.MaxCandidates))
					return errCapReached
				}
			}
		}
		r.logger.Info("depth complete", slog.Int("depth", depth), slog.Int("next_frontier", len(next)))
		frontier = next
	}
	return nil
}

// similar unions every similarity source's answer for name, keeping the
// first spelling of each case-insensitive name.
func (r *run) similar(ctx context.Context, name string) ([]string, error) {
	var out []string
	dedup := make(map[string]bool)
	for _, src := range r.deps.Similar {
		if err := r.pause(ctx); err != nil {
			return nil, err
		}
		res, err := provider.Settle(ctx, r.logger, r.opts.Observer, src.Name(), provider.CapSimilar,
			func(ctx context.Context) (provider.Result[[]string], error) {
				return src.LookupSimilar(ctx, provider.Query{Name: name})
			})
		if err != nil {
			return nil, err
		}
		for _, n := range res.Value {
			n = strings.TrimSpace(n)
			key := artist.NameKey(n)
			if key == "" || dedup[key] {
				continue
			}
			dedup[key] = true
			out = append(out, n)
		}
	}
	return out, nil
}

// evaluate resolves and classifies one new name. A non-empty reason means
// the candidate is rejected.
func (r *run) evaluate(ctx context.Context, name string) (artist.Record, string, error) {
	if r.deps.Excluded != nil && r.deps.Excluded(name) {
		return artist.Record{}, ReasonExcluded, nil
	}
	if err := r.pause(ctx); err != nil {
		return artist.Record{}, "", err
	}
	res, err := r.chain.Resolve(ctx, provider.Query{Name: name})
	if errors.Is(err, resolve.ErrUnresolved) {
		return artist.Record{}, ReasonNoBirthDate, nil
	}
	if err != nil {
		return artist.Record{}, "", err
	}
	if res.StableID != "" && r.knownIDs[res.StableID] {
		r.publish(event.StableIDCollision, name, map[string]any{"stable_id": res.StableID, "tier": "discovery"})
		return artist.Record{}, ReasonDuplicateID, nil
	}

	tags, err := r.deps.Tags.Resolve(ctx, provider.Query{Name: name, StableID: res.StableID})
	if err != nil {
		return artist.Record{}, "", err
	}
	cl := r.deps.Classifier.Classify(tags.Tags)
	if cl.Empty() {
		return artist.Record{}, ReasonNoGenres, nil
	}

	rec := artist.Record{
		Name:            name,
		BirthDate:       res.Date,
		DateApprox:      res.Approx,
		BirthDateSource: string(res.Source),
		RawProviderTags: tags.Tags,
		TagSource:       string(tags.Source),
		StableID:        res.StableID,
	}
	if rec.StableID == "" && tags.StableID != "" && !r.knownIDs[tags.StableID] {
		rec.StableID = tags.StableID
	}
	rec.SetClassification(cl)
	if err := rec.Refresh(); err != nil {
		return artist.Record{}, "", fmt.Errorf("computing venus for %q: %w", name, err)
	}
	return rec, "", nil
}

func (r *run) accept(ctx context.Context, rec artist.Record, depth int, from string) {
	r.res.Accepted = append(r.res.Accepted, rec)
	if rec.StableID != "" {
		r.knownIDs[rec.StableID] = true
	}
	r.logger.Info("candidate accepted",
		slog.String("artist", rec.Name),
		slog.Int("depth", depth),
		slog.String("via", from),
		slog.String("birth_date", rec.BirthDate.String()))
	r.publish(event.CandidateAccepted, rec.Name, map[string]any{"depth": depth, "via": from})
	if r.sinceCheck++; r.sinceCheck >= r.opts.CheckpointEvery {
		r.sinceCheck = 0
		r.checkpoint(ctx)
	}
}

func (r *run) reject(name string, depth int, reason string) {
	r.res.Rejected = append(r.res.Rejected, Rejection{Name: name, Depth: depth, Reason: reason})
	r.logger.Debug("candidate rejected", slog.String("artist", name), slog.String("reason", reason))
	r.publish(event.CandidateRejected, name, map[string]any{"depth": depth, "reason": reason})
}

// filter applies the judge to the accepted candidates.
func (r *run) filter(ctx context.Context) error {
	if r.deps.Judge == nil || len(r.res.Accepted) == 0 {
		return nil
	}
	cands := make([]judge.Candidate, len(r.res.Accepted))
	for i, rec := range r.res.Accepted {
		cands[i] = judge.Candidate{Name: rec.Name, Genres: rec.Genres, Tags: rec.RawProviderTags}
	}
	kept, rejected, err := judge.Filter(ctx, r.deps.Judge, cands, r.opts.JudgeBatchSize, r.logger)
	if err != nil {
		return err
	}
	if len(rejected) == 0 {
		return nil
	}
	keep := make(map[string]bool, len(kept))
	for _, c := range kept {
		keep[artist.NameKey(c.Name)] = true
	}
	accepted := r.res.Accepted[:0]
	for _, rec := range r.res.Accepted {
		if keep[rec.Key()] {
			accepted = append(accepted, rec)
		}
	}
	r.res.Accepted = accepted
	for _, rj := range rejected {
		reason := "judge"
		if rj.Reason != "" {
			reason += ": " + rj.Reason
		}
		r.reject(rj.Candidate.Name, 0, reason)
	}
	return nil
}

func (r *run) checkpoint(ctx context.Context) {
	if r.deps.Checkpoint == nil {
		return
	}
	if err := r.deps.Checkpoint(context.WithoutCancel(ctx), r.res.Accepted); err != nil {
		r.logger.Warn("discovery checkpoint failed", slog.Any("error", err))
	}
}

// pause enforces the politeness delay before every request but the first.
func (r *run) pause(ctx context.Context) error {
	r.requests++
	if r.requests == 1 || r.opts.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *run) publish(t event.Type, name string, data map[string]any) {
	if r.opts.Events != nil {
		r.opts.Events.Publish(event.Event{Type: t, Artist: name, Data: data})
	}
}
