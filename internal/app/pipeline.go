package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/discover"
	"github.com/sydlexius/cytherea/internal/enrich"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/filesystem"
	"github.com/sydlexius/cytherea/internal/merge"
	"github.com/sydlexius/cytherea/internal/verify"
)

// discoveryCheckpoint is the on-disk form of candidates accepted by a
// discovery run that has not been merged yet.
type discoveryCheckpoint struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Accepted  []artist.Record `json:"accepted"`
}

// PendingCandidates returns discovered candidates awaiting a merge.
func (a *App) PendingCandidates() ([]artist.Record, error) {
	if a.Config.Data.Checkpoint == "" {
		return nil, nil
	}
	var cp discoveryCheckpoint
	if _, err := filesystem.ReadJSON(a.Config.Data.Checkpoint, &cp); err != nil {
		return nil, fmt.Errorf("reading discovery checkpoint: %w", err)
	}
	return cp.Accepted, nil
}

func (a *App) writeCandidates(records []artist.Record) error {
	if a.Config.Data.Checkpoint == "" {
		return nil
	}
	return filesystem.WriteJSONAtomic(a.Config.Data.Checkpoint, discoveryCheckpoint{
		UpdatedAt: time.Now().UTC(),
		Accepted:  records,
	})
}

func (a *App) clearCandidates() error {
	if a.Config.Data.Checkpoint == "" {
		return nil
	}
	if err := os.Remove(a.Config.Data.Checkpoint); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing discovery checkpoint: %w", err)
	}
	return nil
}

// MergeOptions tune Merge.
type MergeOptions struct {
	// Reclassify recomputes genres from retained raw tags before saving.
	Reclassify bool
	// DryRun computes the result without writing anything.
	DryRun bool
}

// Merge folds the seed file, the current snapshot and any pending
// discovery candidates into a new canonical set and saves it.
func (a *App) Merge(ctx context.Context, opts MergeOptions) (merge.Result, error) {
	seed, err := a.LoadSeed()
	if err != nil {
		return merge.Result{}, err
	}
	cached, err := a.Snapshot.Load()
	if err != nil {
		return merge.Result{}, err
	}
	fresh, err := a.PendingCandidates()
	if err != nil {
		return merge.Result{}, err
	}

	set := a.Curation.Current()
	res := merge.New(set, a.Classifier, a.Bus, a.Logger).Merge(merge.Input{Seed: seed, Cache: cached, Fresh: fresh})
	if opts.Reclassify {
		n := merge.Reclassify(res.Records, a.Classifier, set.IsPreserved)
		a.Logger.Info("reclassified records", slog.Int("changed", n))
	}
	a.Logger.Info("merge complete",
		slog.Int("seed", len(seed)),
		slog.Int("cached", len(cached)),
		slog.Int("fresh", len(fresh)),
		slog.Int("canonical", len(res.Records)),
		slog.Int("collisions", len(res.Collisions)),
		slog.Int("excluded", len(res.Excluded)),
		slog.Int("dropped", len(res.Dropped)))
	if opts.DryRun {
		return res, nil
	}
	if err := a.Save(ctx, res.Records); err != nil {
		return res, err
	}
	return res, a.clearCandidates()
}

// Save writes the snapshot and rebuilds the secondary index from it. The
// index is derived data, so an index failure is logged and not returned.
func (a *App) Save(ctx context.Context, records []artist.Record) error {
	if err := a.Snapshot.Save(records); err != nil {
		return err
	}
	if a.Config.Data.IndexDB == "" {
		return nil
	}
	if err := a.Reindex(ctx, records); err != nil {
		a.Logger.Warn("index rebuild failed, run reindex to retry", slog.Any("error", err))
	}
	return nil
}

// Reindex rebuilds the secondary index from records, or from the snapshot
// when records is nil.
func (a *App) Reindex(ctx context.Context, records []artist.Record) error {
	if records == nil {
		var err error
		if records, err = a.Snapshot.Load(); err != nil {
			return err
		}
	}
	idx, err := a.Index(ctx)
	if err != nil {
		return err
	}
	return idx.Rebuild(ctx, records)
}

// Discover runs similarity discovery from seeds, or from every canonical
// artist when seeds is empty. Accepted candidates are checkpointed to disk
// as they are found and stay pending until the next merge.
func (a *App) Discover(ctx context.Context, seeds []string) (*discover.Result, error) {
	canonical, err := a.Snapshot.Load()
	if err != nil {
		return nil, err
	}
	seed, err := a.LoadSeed()
	if err != nil {
		return nil, err
	}
	pending, err := a.PendingCandidates()
	if err != nil {
		return nil, err
	}
	known := append(append(append([]artist.Record(nil), canonical...), seed...), pending...)

	if len(seeds) == 0 {
		seeds = a.Config.Discovery.Seeds
	}
	if len(seeds) == 0 {
		for _, r := range canonical {
			seeds = append(seeds, r.Name)
		}
	}
	if len(seeds) == 0 {
		return nil, errors.New("discovery needs seeds: configure discovery.seeds or merge a seed file first")
	}

	dc := a.Config.Discovery
	set := a.Curation.Current()
	d := discover.New(discover.Deps{
		Similar:    a.SimilarSources(),
		Chain:      a.Chain(),
		Tags:       a.TagResolver(),
		Classifier: a.Classifier,
		Excluded:   set.IsExcluded,
		Judge:      a.Judge(),
		Checkpoint: func(_ context.Context, accepted []artist.Record) error {
			return a.writeCandidates(append(append([]artist.Record(nil), pending...), accepted...))
		},
	}, a.Logger, discover.Options{
		MaxDepth:        dc.MaxDepth,
		MaxCandidates:   dc.MaxCandidates,
		MinBirthYear:    dc.MinBirthYear,
		Delay:           dc.Delay,
		CheckpointEvery: dc.CheckpointEvery,
		JudgeBatchSize:  dc.JudgeBatchSize,
		Observer:        a.Metrics,
		Events:          a.Bus,
	})
	return d.Run(ctx, seeds, known)
}

// Enrich fills missing birth dates and media references in the snapshot.
// Batches applied before a cancellation are saved.
func (a *App) Enrich(ctx context.Context) (enrich.Stats, error) {
	records, err := a.Snapshot.Load()
	if err != nil {
		return enrich.Stats{}, err
	}
	e := enrich.New(a.Chain(), a.MediaSources(), a.Metrics, a.Config.Enrich.BatchSize, a.Logger)
	stats, runErr := e.Run(ctx, records)
	if stats.Dates+stats.Media > 0 {
		if err := a.Save(context.WithoutCancel(ctx), records); err != nil {
			return stats, errors.Join(runErr, err)
		}
	}
	return stats, runErr
}

// Verify audits the snapshot against the authority.
func (a *App) Verify(ctx context.Context, resume bool) (*verify.Report, error) {
	authority := a.Authority()
	if authority == nil {
		return nil, errors.New("verification authority is disabled")
	}
	records, err := a.Snapshot.Load()
	if err != nil {
		return nil, err
	}
	v := verify.New(authority, a.Classifier, a.Logger, verify.Options{
		CheckpointPath:  a.Config.Data.VerifyReport,
		CheckpointEvery: a.Config.Verify.CheckpointEvery,
		Resume:          resume,
		Delay:           a.Config.Verify.Delay,
		Observer:        a.Metrics,
		Buckets:         a.Metrics,
		Events:          a.Bus,
	})
	return v.Run(ctx, records)
}

// RunSummary reports what a full run did.
type RunSummary struct {
	Merge     merge.Result
	Discovery *discover.Result
	Enrich    enrich.Stats
}

// Run executes the whole pipeline: merge what is on disk, discover new
// candidates, merge them in, then enrich the canonical set.
func (a *App) Run(ctx context.Context, seeds []string) (RunSummary, error) {
	var sum RunSummary
	if _, err := a.Merge(ctx, MergeOptions{}); err != nil {
		return sum, fmt.Errorf("initial merge: %w", err)
	}
	d, err := a.Discover(ctx, seeds)
	if err != nil {
		return sum, fmt.Errorf("discovery: %w", err)
	}
	sum.Discovery = d
	if sum.Merge, err = a.Merge(ctx, MergeOptions{}); err != nil {
		return sum, fmt.Errorf("merging candidates: %w", err)
	}
	if sum.Enrich, err = a.Enrich(ctx); err != nil {
		return sum, fmt.Errorf("enrichment: %w", err)
	}
	a.Publish(event.Event{Type: event.RunCompleted, Data: map[string]any{
		"canonical": len(sum.Merge.Records),
		"accepted":  len(d.Accepted),
		"dates":     sum.Enrich.Dates,
		"media":     sum.Enrich.Media,
	}})
	return sum, nil
}
