// Package respcache caches provider answers in Badger so repeated runs do
// not hit fragile sources again within the TTL.
package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/provider"
)

// Cache is a TTL key-value cache of provider results.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open opens (or creates) the cache at dir. An empty dir opens an
// in-memory cache. A zero ttl keeps entries until Purge.
func Open(dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening response cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl, logger: logger.With(slog.String("component", "respcache"))}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Purge removes every cached entry.
func (c *Cache) Purge() error { return c.db.DropAll() }

// entry is the stored form of a Result.
type entry struct {
	Outcome  provider.Outcome `json:"outcome"`
	Value    json.RawMessage  `json:"value,omitempty"`
	StableID string           `json:"stable_id,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

func cacheKey(name provider.ProviderName, capability provider.Capability, q provider.Query) []byte {
	return []byte(string(name) + ":" + string(capability) + ":" + artist.NameKey(q.Name))
}

func get[T any](c *Cache, key []byte, src provider.ProviderName) (provider.Result[T], bool) {
	var e entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return provider.Result[T]{}, false
	}
	if err != nil {
		c.logger.Warn("reading cache entry", slog.String("key", string(key)), slog.Any("error", err))
		return provider.Result[T]{}, false
	}

	res := provider.Result[T]{Outcome: e.Outcome, StableID: e.StableID, Reason: e.Reason, Source: src}
	if len(e.Value) > 0 {
		if err := json.Unmarshal(e.Value, &res.Value); err != nil {
			c.logger.Warn("decoding cache entry", slog.String("key", string(key)), slog.Any("error", err))
			return provider.Result[T]{}, false
		}
	}
	return res, true
}

func put[T any](c *Cache, key []byte, res provider.Result[T]) {
	e := entry{Outcome: res.Outcome, StableID: res.StableID, Reason: res.Reason}
	if res.OK() {
		v, err := json.Marshal(res.Value)
		if err != nil {
			c.logger.Warn("encoding cache entry", slog.String("key", string(key)), slog.Any("error", err))
			return
		}
		e.Value = v
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		ent := badger.NewEntry(key, data)
		if c.ttl > 0 {
			ent = ent.WithTTL(c.ttl)
		}
		return txn.SetEntry(ent)
	})
	if err != nil {
		c.logger.Warn("writing cache entry", slog.String("key", string(key)), slog.Any("error", err))
	}
}

// lookup serves key from the cache or calls fetch and stores its answer.
// Errors are never cached, so a failed lookup is retried next time.
func lookup[T any](c *Cache, key []byte, src provider.ProviderName, fetch func() (provider.Result[T], error)) (provider.Result[T], error) {
	if res, ok := get[T](c, key, src); ok {
		return res, nil
	}
	res, err := fetch()
	if err != nil {
		return res, err
	}
	put(c, key, res)
	return res, nil
}

type tagSource struct {
	c    *Cache
	next provider.TagSource
}

// WrapTags returns a TagSource that answers from the cache when it can.
func (c *Cache) WrapTags(next provider.TagSource) provider.TagSource {
	return &tagSource{c: c, next: next}
}

func (t *tagSource) Name() provider.ProviderName { return t.next.Name() }

func (t *tagSource) LookupTags(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	return lookup(t.c, cacheKey(t.next.Name(), provider.CapTags, q), t.next.Name(), func() (provider.Result[[]string], error) {
		return t.next.LookupTags(ctx, q)
	})
}

type similarSource struct {
	c    *Cache
	next provider.SimilarSource
}

// WrapSimilar returns a SimilarSource that answers from the cache when it
// can.
func (c *Cache) WrapSimilar(next provider.SimilarSource) provider.SimilarSource {
	return &similarSource{c: c, next: next}
}

func (s *similarSource) Name() provider.ProviderName { return s.next.Name() }

func (s *similarSource) LookupSimilar(ctx context.Context, q provider.Query) (provider.Result[[]string], error) {
	return lookup(s.c, cacheKey(s.next.Name(), provider.CapSimilar, q), s.next.Name(), func() (provider.Result[[]string], error) {
		return s.next.LookupSimilar(ctx, q)
	})
}
