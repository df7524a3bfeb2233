// Package enrich fills missing birth dates and media references for
// records already in the canonical set.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/resolve"
)

// DefaultBatchSize is the number of records resolved concurrently.
const DefaultBatchSize = 5

// Stats summarizes an enrichment run.
type Stats struct {
	Considered int
	Dates      int
	Media      int
	Unresolved int
}

// Enricher resolves gaps batch by batch.
type Enricher struct {
	chain     *resolve.Chain
	media     []provider.MediaSource
	obs       provider.Observer
	batchSize int
	logger    *slog.Logger
}

// New creates an Enricher. A nil chain skips birth dates; an empty media
// list skips media lookups.
func New(chain *resolve.Chain, media []provider.MediaSource, obs provider.Observer, batchSize int, logger *slog.Logger) *Enricher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Enricher{
		chain:     chain,
		media:     media,
		obs:       obs,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "enrich")),
	}
}

// outcome is what one record's lookups produced. Zero fields mean nothing
// was found.
type outcome struct {
	date  *resolve.Resolution
	media *provider.MediaRef
}

func (e *Enricher) needsDate(r *artist.Record) bool  { return e.chain != nil && r.BirthDate.IsZero() }
func (e *Enricher) needsMedia(r *artist.Record) bool { return len(e.media) > 0 && r.MediaID == "" }

// Run enriches records in place. Each batch fans out, waits for every
// lookup, and only then writes its results into records, so no record is
// written while lookups are in flight. On cancellation the batches already
// applied are kept and the context error is returned.
func (e *Enricher) Run(ctx context.Context, records []artist.Record) (Stats, error) {
	var pending []int
	ids := make(map[string]bool)
	for i := range records {
		if id := records[i].StableID; id != "" {
			ids[id] = true
		}
		if e.needsDate(&records[i]) || e.needsMedia(&records[i]) {
			pending = append(pending, i)
		}
	}
	stats := Stats{Considered: len(pending)}
	e.logger.Info("enrichment starting", slog.Int("records", len(pending)), slog.Int("batch_size", e.batchSize))

	for start := 0; start < len(pending); start += e.batchSize {
		batch := pending[start:min(start+e.batchSize, len(pending))]
		results := make([]outcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for slot, idx := range batch {
			q := provider.Query{Name: records[idx].Name, StableID: records[idx].StableID}
			wantDate, wantMedia := e.needsDate(&records[idx]), e.needsMedia(&records[idx])
			g.Go(func() error {
				out, err := e.lookup(gctx, q, wantDate, wantMedia)
				results[slot] = out
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		for slot, idx := range batch {
			e.apply(&records[idx], results[slot], ids, &stats)
		}
		e.logger.Debug("batch applied", slog.Int("done", start+len(batch)), slog.Int("total", len(pending)))
	}
	e.logger.Info("enrichment complete",
		slog.Int("dates", stats.Dates),
		slog.Int("media", stats.Media),
		slog.Int("unresolved", stats.Unresolved))
	return stats, nil
}

// lookup runs one record's date and media lookups. Only a canceled context
// is returned as an error.
func (e *Enricher) lookup(ctx context.Context, q provider.Query, wantDate, wantMedia bool) (outcome, error) {
	var out outcome
	if wantDate {
		res, err := e.chain.Resolve(ctx, q)
		switch {
		case err == nil:
			out.date = &res
			if q.StableID == "" {
				q.StableID = res.StableID
			}
		case errors.Is(err, resolve.ErrUnresolved):
		default:
			return out, err
		}
	}
	if wantMedia {
		for _, src := range e.media {
			res, err := provider.Settle(ctx, e.logger, e.obs, src.Name(), provider.CapMedia,
				func(ctx context.Context) (provider.Result[provider.MediaRef], error) {
					return src.LookupMedia(ctx, q)
				})
			if err != nil {
				return out, err
			}
			if res.OK() && res.Value.ID != "" {
				out.media = &res.Value
				break
			}
		}
	}
	return out, nil
}

// apply writes one record's results. A stable ID already held by another
// record is not adopted.
func (e *Enricher) apply(r *artist.Record, out outcome, ids map[string]bool, stats *Stats) {
	if out.date == nil && e.needsDate(r) {
		stats.Unresolved++
		e.logger.Info("birth date unresolved", slog.String("artist", r.Name))
	}
	if d := out.date; d != nil {
		r.BirthDate, r.DateApprox, r.BirthDateSource = d.Date, d.Approx, string(d.Source)
		if r.StableID == "" && d.StableID != "" && !ids[d.StableID] {
			r.StableID = d.StableID
			ids[d.StableID] = true
		}
		if err := r.Refresh(); err != nil {
			e.logger.Warn("computing venus position", slog.String("artist", r.Name), slog.Any("error", err))
		}
		stats.Dates++
	}
	if m := out.media; m != nil {
		r.MediaID = m.ID
		if len(r.BackupMediaIDs) == 0 {
			r.BackupMediaIDs = slices.Clone(m.Backups)
		}
		stats.Media++
	}
}
