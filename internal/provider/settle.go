package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Capability names a lookup kind for logging and metrics.
type Capability string

// Capabilities.
const (
	CapBirthDate Capability = "birth_date"
	CapTags      Capability = "tags"
	CapSimilar   Capability = "similar"
	CapMedia     Capability = "media"
)

// Observer records lookup outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveLookup(name ProviderName, capability Capability, outcome Outcome, failed bool, elapsed time.Duration)
}

// Settle runs one lookup and folds any error into a NoResult carrying the
// error text as its reason. Callers never see provider errors; they only
// branch on the outcome. A canceled context is the exception: it is
// returned so that runs stop promptly.
func Settle[T any](ctx context.Context, logger *slog.Logger, obs Observer, name ProviderName, capability Capability, lookup func(context.Context) (Result[T], error)) (Result[T], error) {
	start := time.Now()
	res, err := lookup(ctx)
	if res.Source == "" {
		res.Source = name
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return NoResult[T](name, "canceled"), ctxErr
		}
		level := slog.LevelWarn
		var notFound *ErrNotFound
		if errors.As(err, &notFound) {
			level = slog.LevelDebug
		}
		logger.Log(ctx, level, "provider lookup failed",
			slog.String("provider", string(name)),
			slog.String("capability", string(capability)),
			slog.String("error", err.Error()))
		res = NoResult[T](name, err.Error())
	}
	if obs != nil {
		obs.ObserveLookup(name, capability, res.Outcome, err != nil, time.Since(start))
	}
	return res, nil
}
