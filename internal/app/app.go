// Package app owns every long-lived resource of a pipeline run: provider
// registry, event bus, stores, caches and metrics. Commands create one App,
// use it, and Close it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/backup"
	"github.com/sydlexius/cytherea/internal/config"
	"github.com/sydlexius/cytherea/internal/curation"
	"github.com/sydlexius/cytherea/internal/database"
	"github.com/sydlexius/cytherea/internal/event"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/judge"
	"github.com/sydlexius/cytherea/internal/metrics"
	"github.com/sydlexius/cytherea/internal/provider"
	"github.com/sydlexius/cytherea/internal/provider/deezer"
	"github.com/sydlexius/cytherea/internal/provider/discogs"
	"github.com/sydlexius/cytherea/internal/provider/everynoise"
	"github.com/sydlexius/cytherea/internal/provider/famousbirthdays"
	"github.com/sydlexius/cytherea/internal/provider/lastfm"
	"github.com/sydlexius/cytherea/internal/provider/musicbrainz"
	"github.com/sydlexius/cytherea/internal/provider/wikidata"
	"github.com/sydlexius/cytherea/internal/provider/wikipedia"
	"github.com/sydlexius/cytherea/internal/resolve"
	"github.com/sydlexius/cytherea/internal/respcache"
	"github.com/sydlexius/cytherea/internal/store"
)

// App is the runtime context passed to every pipeline operation.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *provider.Registry
	Limiter    *provider.RateLimiterMap
	Bus        *event.Bus
	Metrics    *metrics.Metrics
	Curation   *curation.Store
	Classifier *genre.Classifier
	Snapshot   *store.SnapshotStore

	cache     *respcache.Cache
	reviewLog *event.ReviewLog

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error

	closers []func() error
}

// New opens every resource named by cfg. On error, whatever was already
// opened is closed again.
func New(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Limiter:    provider.NewRateLimiterMap(),
		Registry:   provider.NewRegistry(),
		Metrics:    metrics.New(),
		Classifier: genre.NewClassifier(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := os.MkdirAll(cfg.Data.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	a.Bus = event.NewBus(logger, 1024)
	go a.Bus.Start()
	a.closers = append(a.closers, func() error { a.Bus.Stop(); return nil })
	a.Metrics.Attach(a.Bus)

	if cfg.Data.ReviewLog != "" {
		a.reviewLog, err = event.OpenReviewLog(cfg.Data.ReviewLog, logger)
		if err != nil {
			return nil, err
		}
		a.reviewLog.Attach(a.Bus)
	}

	a.Curation, err = curation.Open(cfg.Data.Overrides, logger)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}

	if cfg.Data.CacheDir != "" {
		a.cache, err = respcache.Open(cfg.Data.CacheDir, cfg.Data.CacheTTL, logger)
		if err != nil {
			return nil, err
		}
	}

	var backups *backup.Service
	if cfg.Data.BackupDir != "" {
		backups = backup.NewService(cfg.Data.Snapshot, cfg.Data.BackupDir, cfg.Data.BackupRetention, logger)
	}
	a.Snapshot = store.NewSnapshotStore(cfg.Data.Snapshot, backups, logger)

	a.registerProviders()
	return a, nil
}

func (a *App) registerProviders() {
	for name, rps := range a.Config.Providers.RateLimits {
		a.Limiter.SetLimit(provider.ProviderName(name), rps)
	}
	lim, log := a.Limiter, a.Logger
	for _, p := range []provider.Source{
		a.Curation,
		wikidata.New(lim, log),
		musicbrainz.New(lim, log),
		wikipedia.New(lim, log),
		famousbirthdays.New(lim, log),
		everynoise.New(lim, log),
		lastfm.New(a.Config.Providers.LastFMKey, lim, log),
		discogs.New(a.Config.Providers.DiscogsToken, lim, log),
		deezer.New(lim, log),
	} {
		name := p.Name()
		if a.Config.ProviderDisabled(string(name)) {
			log.Info("provider disabled by config", slog.String("provider", string(name)))
			continue
		}
		if !a.Registry.Register(p) {
			log.Warn("provider skipped, credentials missing", slog.String("provider", string(name)))
		}
	}
}

// Chain returns the birth-date chain over the registered tiers.
func (a *App) Chain() *resolve.Chain {
	return resolve.NewChain(a.Registry.BirthDateSources(resolve.BirthDateOrder...), a.Logger, resolve.Options{
		Observer: a.Metrics,
		Events:   a.Bus,
	})
}

// TagSources returns the tag chain's sources. The curated override is
// never cached; every remote source is.
func (a *App) TagSources() []provider.TagSource {
	srcs := a.Registry.TagSources(resolve.TagOrder...)
	if a.cache == nil {
		return srcs
	}
	for i, s := range srcs {
		if s.Name() != provider.NameOverride {
			srcs[i] = a.cache.WrapTags(s)
		}
	}
	return srcs
}

// TagResolver returns the tag chain.
func (a *App) TagResolver() *resolve.TagResolver {
	return resolve.NewTagResolver(a.TagSources(), a.Logger, a.Metrics)
}

// Authority returns the verification authority, or nil when it is
// disabled. It is never cached: every verification pass asks it afresh.
func (a *App) Authority() provider.TagSource {
	if s := a.Registry.TagSources(provider.NameEveryNoise); len(s) > 0 {
		return s[0]
	}
	return nil
}

// SimilarSources returns the registered similarity sources.
func (a *App) SimilarSources() []provider.SimilarSource {
	srcs := a.Registry.SimilarSources(provider.NameLastFM, provider.NameDeezer)
	if a.cache != nil {
		for i, s := range srcs {
			srcs[i] = a.cache.WrapSimilar(s)
		}
	}
	return srcs
}

// MediaSources returns the registered media sources.
func (a *App) MediaSources() []provider.MediaSource {
	return a.Registry.MediaSources(provider.NameDeezer)
}

// Judge returns the aesthetic filter, or nil when it is not configured.
func (a *App) Judge() judge.Scorer {
	jc := a.Config.Judge
	c, err := judge.New(judge.Config{
		BaseURL:   jc.BaseURL,
		Model:     jc.Model,
		APIKey:    jc.APIKey,
		Aesthetic: jc.Aesthetic,
		Timeout:   jc.Timeout,
	}, a.Logger)
	if errors.Is(err, judge.ErrNotConfigured) {
		a.Logger.Info("aesthetic filter disabled, judge not configured")
		return nil
	}
	if err != nil {
		a.Logger.Warn("aesthetic filter disabled", slog.Any("error", err))
		return nil
	}
	return c
}

// Index returns the secondary index, opening and migrating the database on
// first use.
func (a *App) Index(ctx context.Context) (*store.Index, error) {
	if a.Config.Data.IndexDB == "" {
		return nil, errors.New("no index database configured")
	}
	a.dbOnce.Do(func() {
		a.db, a.dbErr = database.OpenMigrated(ctx, a.Config.Data.IndexDB)
		if a.dbErr == nil {
			a.closers = append(a.closers, a.db.Close)
		}
	})
	if a.dbErr != nil {
		return nil, a.dbErr
	}
	return store.NewIndex(a.db), nil
}

// LoadSeed reads the curated seed file. A missing file yields no records.
func (a *App) LoadSeed() ([]artist.Record, error) {
	if a.Config.Data.Seed == "" {
		return nil, nil
	}
	data, err := os.ReadFile(a.Config.Data.Seed)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	records, err := artist.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("decoding seed %s: %w", a.Config.Data.Seed, err)
	}
	return records, nil
}

// WatchCuration reloads the overrides file on change until ctx ends.
func (a *App) WatchCuration(ctx context.Context) {
	if a.Config.Data.Overrides != "" {
		go a.Curation.Watch(ctx)
	}
}

// Publish sends an event on the bus.
func (a *App) Publish(e event.Event) { a.Bus.Publish(e) }

// Close releases every resource in reverse order of acquisition, then
// writes the metrics textfile.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.reviewLog != nil {
		errs = append(errs, a.reviewLog.Close())
		a.reviewLog = nil
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
		a.cache = nil
	}
	if a.Metrics != nil {
		errs = append(errs, a.Metrics.WriteTextfile(a.Config.Metrics.TextfilePath))
	}
	return errors.Join(errs...)
}
