// Package cache implements the external-data cache gateway. Every call to a
// slow or unreliable upstream (weather, mandi prices, LLM) goes through
// Gateway.Fetch, which serves fresh cached payloads within a per-source TTL
// window and falls back to the last-known-good payload when a live fetch
// fails.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	krishi "github.com/krishihq/krishi/internal"
)

// Key identifies one cached value: a data-source name plus the normalized
// request parameter (lower-cased city, "state|commodity" pair, prompt hash).
type Key struct {
	Source string
	Param  string
}

func (k Key) String() string { return k.Source + ":" + k.Param }

// Fetcher performs the real upstream call for a key and returns the payload.
type Fetcher func(ctx context.Context) ([]byte, error)

// Result is the outcome of a Fetch.
type Result struct {
	Payload   []byte
	FetchedAt time.Time
	Cached    bool // served from the cache rather than a live fetch
	Stale     bool // served past its TTL because the live fetch failed
}

// entry holds the last successfully fetched payload for a key.
type entry struct {
	payload   []byte
	fetchedAt time.Time
}

// Observer receives fetch outcomes for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveCacheResult(source string, cached, stale bool)
	ObserveUpstream(source string, d time.Duration, err error)
}

// Options configures a Gateway.
type Options struct {
	// MaxSize bounds the entry count. The key domain (cities, state+crop
	// pairs) is small, so this is a guard rather than an eviction policy.
	MaxSize int
	// TTLs maps source name to freshness window. Sources without an entry
	// use DefaultTTL.
	TTLs map[string]time.Duration
	// DefaultTTL applies to sources missing from TTLs.
	DefaultTTL time.Duration
	// MaxStale bounds how old a stale entry may be and still serve as
	// fallback. Zero means no bound.
	MaxStale time.Duration
	// Observer, when non-nil, is notified of every fetch outcome.
	Observer Observer
}

// Gateway is a read-through cache over upstream fetchers. It prefers fresh
// over stale over failure: a fresh entry short-circuits the fetch, a failed
// fetch falls back to the previous payload when one exists within MaxStale,
// and only a fetch failure with no usable fallback surfaces an error.
//
// A failed fetch never mutates the cache, and concurrent fetches for the
// same key resolve last-writer-wins; the underlying otter cache is sharded,
// so keys never contend on a global lock.
type Gateway struct {
	entries    *otter.Cache[Key, entry]
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	maxStale   time.Duration
	observer   Observer
	now        func() time.Time
}

// New creates a Gateway with the given options.
func New(opts Options) (*Gateway, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 10_000
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	// No otter-level expiry: stale entries must outlive their TTL to serve
	// as fallback, so freshness is computed at read time.
	c, err := otter.New[Key, entry](&otter.Options[Key, entry]{
		MaximumSize: opts.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Gateway{
		entries:    c,
		ttls:       opts.TTLs,
		defaultTTL: opts.DefaultTTL,
		maxStale:   opts.MaxStale,
		observer:   opts.Observer,
		now:        time.Now,
	}, nil
}

// TTL returns the freshness window for a source.
func (g *Gateway) TTL(source string) time.Duration {
	if ttl, ok := g.ttls[source]; ok {
		return ttl
	}
	return g.defaultTTL
}

// Fetch returns the payload for key, calling fetcher only when no fresh
// entry exists. On fetcher failure a stale entry within MaxStale is returned
// with Stale set; with no usable fallback the failure is classified as
// ErrUpstreamUnavailable.
func (g *Gateway) Fetch(ctx context.Context, key Key, fetcher Fetcher) (Result, error) {
	now := g.now()

	if e, ok := g.entries.GetIfPresent(key); ok {
		if now.Sub(e.fetchedAt) < g.TTL(key.Source) {
			g.observeCache(key.Source, true, false)
			return Result{Payload: e.payload, FetchedAt: e.fetchedAt, Cached: true}, nil
		}
	}

	start := time.Now()
	payload, err := fetcher(ctx)
	if g.observer != nil {
		g.observer.ObserveUpstream(key.Source, time.Since(start), err)
	}
	if err != nil {
		if e, ok := g.entries.GetIfPresent(key); ok && g.usableStale(e, now) {
			g.observeCache(key.Source, true, true)
			return Result{Payload: e.payload, FetchedAt: e.fetchedAt, Cached: true, Stale: true}, nil
		}
		return Result{}, fmt.Errorf("fetch %s %q: %w: %w", key.Source, key.Param, krishi.ErrUpstreamUnavailable, err)
	}

	g.entries.Set(key, entry{payload: payload, fetchedAt: now})
	g.observeCache(key.Source, false, false)
	return Result{Payload: payload, FetchedAt: now}, nil
}

func (g *Gateway) observeCache(source string, cached, stale bool) {
	if g.observer != nil {
		g.observer.ObserveCacheResult(source, cached, stale)
	}
}

// usableStale reports whether an expired entry may still serve as fallback.
func (g *Gateway) usableStale(e entry, now time.Time) bool {
	return g.maxStale <= 0 || now.Sub(e.fetchedAt) <= g.maxStale
}

// Invalidate removes the entry for a key.
func (g *Gateway) Invalidate(key Key) {
	g.entries.Invalidate(key)
}

// Purge removes all cached entries.
func (g *Gateway) Purge() {
	g.entries.InvalidateAll()
}
