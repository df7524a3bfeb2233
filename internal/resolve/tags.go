package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sydlexius/cytherea/internal/provider"
)

// TagOrder is the order of the tag chain used to classify new artists.
var TagOrder = []provider.ProviderName{
	provider.NameOverride,
	provider.NameEveryNoise,
	provider.NameLastFM,
	provider.NameMusicBrainz,
	provider.NameDiscogs,
}

// Tags is the winning tag list and where it came from.
type Tags struct {
	Tags     []string
	Source   provider.ProviderName
	StableID string
}

// TagResolver returns the first non-empty tag list from its sources.
type TagResolver struct {
	sources []provider.TagSource
	obs     provider.Observer
	logger  *slog.Logger
}

// NewTagResolver creates a resolver over sources in priority order.
func NewTagResolver(sources []provider.TagSource, logger *slog.Logger, obs provider.Observer) *TagResolver {
	return &TagResolver{
		sources: sources,
		obs:     obs,
		logger:  logger.With(slog.String("component", "tag-chain")),
	}
}

// Resolve returns the first source's tags that contain at least one
// non-blank entry. An empty Tags with a nil error means nothing was found.
func (t *TagResolver) Resolve(ctx context.Context, q provider.Query) (Tags, error) {
	var out Tags
	for _, src := range t.sources {
		res, err := provider.Settle(ctx, t.logger, t.obs, src.Name(), provider.CapTags,
			func(ctx context.Context) (provider.Result[[]string], error) {
				return src.LookupTags(ctx, q)
			})
		if err != nil {
			return Tags{}, err
		}
		if out.StableID == "" {
			out.StableID = res.StableID
		}
		if !res.OK() {
			continue
		}
		clean := make([]string, 0, len(res.Value))
		for _, tag := range res.Value {
			if tag = strings.TrimSpace(tag); tag != "" {
				clean = append(clean, tag)
			}
		}
		if len(clean) == 0 {
			continue
		}
		out.Tags, out.Source = clean, src.Name()
		return out, nil
	}
	return out, nil
}
