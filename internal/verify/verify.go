// Package verify audits stored genre classifications against an authority
// provider and sorts records into review buckets. It never modifies the
// records it checks.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/filesystem"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/provider"
)

// BucketObserver counts verification outcomes.
type BucketObserver interface {
	ObserveBucket(b Bucket)
}

// Options tune a verification run.
type Options struct {
	// CheckpointPath receives the in-progress report. Empty disables
	// checkpoints and resume.
	CheckpointPath  string
	CheckpointEvery int
	// Resume continues an unfinished report found at CheckpointPath.
	Resume   bool
	Delay    time.Duration
	Observer provider.Observer
	Buckets  BucketObserver
	Events   event.Publisher
	Now      func() time.Time
}

// Verifier checks records one at a time against the authority.
type Verifier struct {
	authority  provider.TagSource
	classifier *genre.Classifier
	opts       Options
	logger     *slog.Logger
}

// New creates a verifier.
func New(authority provider.TagSource, classifier *genre.Classifier, logger *slog.Logger, opts Options) *Verifier {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 25
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{
		authority:  authority,
		classifier: classifier,
		opts:       opts,
		logger:     logger.With(slog.String("component", "verify")),
	}
}

// Check classifies a single record against the authority's tags.
func (v *Verifier) Check(ctx context.Context, r artist.Record) (Entry, error) {
	res, err := provider.Settle(ctx, v.logger, v.opts.Observer, v.authority.Name(), provider.CapTags,
		func(ctx context.Context) (provider.Result[[]string], error) {
			return v.authority.LookupTags(ctx, provider.Query{Name: r.Name, StableID: r.StableID})
		})
	if err != nil {
		return Entry{}, err
	}
	return v.judge(r, res), nil
}

func (v *Verifier) judge(r artist.Record, res provider.Result[[]string]) Entry {
	e := Entry{Name: r.Name, Stored: r.Genres}
	for _, t := range res.Value {
		if t = strings.TrimSpace(t); t != "" {
			e.RawTags = append(e.RawTags, t)
		}
	}
	switch {
	case res.Outcome == provider.OutcomeWrongMatch:
		e.Reason = fmt.Sprintf(wrongMatchReasonFmt, res.Reason)
		return e
	case !res.OK() || len(e.RawTags) == 0:
		e.Reason = ReasonNotFound
		return e
	}
	if geo, dominated := v.classifier.GeoSignal(e.RawTags); dominated {
		e.Reason = genre.GeoReason(geo)
		return e
	}
	e.Authority = v.classifier.Classify(e.RawTags).Categories
	if len(e.Authority) == 0 {
		e.Reason = ReasonNoOverlap
		return e
	}
	e.Missing = genre.Diff(e.Authority, r.Genres)
	e.Extra = genre.Diff(r.Genres, e.Authority)
	return e
}

// Run verifies records sequentially with a politeness delay between
// authority requests. Records without stored genres are skipped. The
// report is checkpointed every CheckpointEvery records and when the run
// ends, including on cancellation, in which case the context error is
// returned with the partial report.
func (v *Verifier) Run(ctx context.Context, records []artist.Record) (*Report, error) {
	rep := v.start()
	done := make(map[string]bool, len(rep.Processed))
	for _, k := range rep.Processed {
		done[k] = true
	}
	if len(done) > 0 {
		v.logger.Info("resuming verification", slog.String("run_id", rep.RunID), slog.Int("already_processed", len(done)))
	}

	first, sinceCheckpoint := true, 0
	for _, r := range records {
		key := r.Key()
		if done[key] {
			continue
		}
		if len(r.Genres) == 0 {
			rep.skip(key)
			done[key] = true
			continue
		}
		if !first {
			if err := sleep(ctx, v.opts.Delay); err != nil {
				return rep, v.interrupted(rep, err)
			}
		}
		first = false

		e, err := v.Check(ctx, r)
		if err != nil {
			return rep, v.interrupted(rep, err)
		}
		done[key] = true
		for _, b := range rep.add(key, e) {
			if v.opts.Buckets != nil {
				v.opts.Buckets.ObserveBucket(b)
			}
		}
		if e.Reason != "" && e.Reason != ReasonNotFound {
			v.publish(event.WrongMatch, r.Name, map[string]any{
				"provider": string(v.authority.Name()), "reason": e.Reason, "raw_tags": e.RawTags,
			})
		}

		if sinceCheckpoint++; sinceCheckpoint >= v.opts.CheckpointEvery {
			sinceCheckpoint = 0
			if err := v.checkpoint(rep); err != nil {
				return rep, err
			}
		}
	}

	rep.Complete = true
	if err := v.checkpoint(rep); err != nil {
		return rep, err
	}
	counts := rep.Counts()
	v.logger.Info("verification complete",
		slog.String("run_id", rep.RunID),
		slog.Int("ok", counts[BucketOK]),
		slog.Int("missing", counts[BucketMissing]),
		slog.Int("extra", counts[BucketExtra]),
		slog.Int("not_found", counts[BucketNotFound]),
		slog.Int("skipped", rep.Skipped))
	v.publish(event.VerifyCompleted, "", map[string]any{
		"run_id": rep.RunID, "ok": counts[BucketOK], "missing": counts[BucketMissing],
		"extra": counts[BucketExtra], "not_found": counts[BucketNotFound],
	})
	return rep, nil
}

// start returns the report to continue: the unfinished checkpoint when
// resuming, otherwise a fresh one.
func (v *Verifier) start() *Report {
	now := v.opts.Now()
	if v.opts.Resume && v.opts.CheckpointPath != "" {
		var prev Report
		found, err := filesystem.ReadJSON(v.opts.CheckpointPath, &prev)
		switch {
		case err != nil:
			v.logger.Warn("ignoring unreadable checkpoint", slog.String("path", v.opts.CheckpointPath), slog.Any("error", err))
		case found && !prev.Complete:
			return &prev
		}
	}
	return &Report{RunID: uuid.NewString(), StartedAt: now, UpdatedAt: now}
}

func (v *Verifier) checkpoint(rep *Report) error {
	rep.UpdatedAt = v.opts.Now()
	if v.opts.CheckpointPath == "" {
		return nil
	}
	if err := filesystem.WriteJSONAtomic(v.opts.CheckpointPath, rep); err != nil {
		return fmt.Errorf("writing verification checkpoint: %w", err)
	}
	return nil
}

func (v *Verifier) interrupted(rep *Report, cause error) error {
	if err := v.checkpoint(rep); err != nil {
		v.logger.Error("saving checkpoint after interruption", slog.Any("error", err))
	}
	return cause
}

func (v *Verifier) publish(t event.Type, name string, data map[string]any) {
	if v.opts.Events != nil {
		v.opts.Events.Publish(event.Event{Type: t, Artist: name, Data: data})
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
