package locations

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/metrics"
	pkgredis "github.com/angelmondragon/footfall-dashboard/pkg/redis"
	"github.com/angelmondragon/footfall-dashboard/pkg/trafficapi"
	"golang.org/x/sync/errgroup"
)

// Lister fetches the raw locations of a kind from the aggregation API.
type Lister interface {
	ListLocations(ctx context.Context, kind enums.LocationKind) ([]trafficapi.Location, error)
}

// Options maps every location kind to its selectable options.
type Options map[enums.LocationKind][]filters.Option

// Catalog loads location options, optionally through a Redis cache.
type Catalog struct {
	lister  Lister
	cache   *pkgredis.Client
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.RefreshMetrics
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCache enables the read-through cache. A nil client disables caching.
func WithCache(client *pkgredis.Client, ttl time.Duration) CatalogOption {
	return func(c *Catalog) {
		c.cache = client
		c.ttl = ttl
	}
}

// WithLogger sets the logger used for listing warnings.
func WithLogger(logg *logger.Logger) CatalogOption {
	return func(c *Catalog) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithMetrics records option counts per kind.
func WithMetrics(m *metrics.RefreshMetrics) CatalogOption {
	return func(c *Catalog) {
		c.metrics = m
	}
}

// NewCatalog builds a catalog over lister.
func NewCatalog(lister Lister, opts ...CatalogOption) (*Catalog, error) {
	if lister == nil {
		return nil, errors.New("location lister required")
	}
	c := &Catalog{lister: lister, logg: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Load fetches the options of every kind concurrently.
// A kind whose listing fails is left out of the result; the failure is logged and not retried.
// Callers treat a missing kind as not loaded yet and show it as an empty list.
func (c *Catalog) Load(ctx context.Context) Options {
	kinds := enums.LocationKinds()
	out := make(Options, len(kinds))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		kind := kind
		g.Go(func() error {
			opts, err := c.Kind(gctx, kind)
			if err != nil {
				wctx := c.logg.WithFields(gctx, map[string]any{
					"location_kind": kind.String(),
					"error":         err.Error(),
				})
				c.logg.Warn(wctx, "location listing failed; kind left unloaded")
				return nil
			}
			mu.Lock()
			out[kind] = opts
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Kind returns the options of one kind, consulting the cache first.
func (c *Catalog) Kind(ctx context.Context, kind enums.LocationKind) ([]filters.Option, error) {
	if cached, ok := c.readCache(ctx, kind); ok {
		c.metrics.SetLocationOptions(kind.String(), len(cached))
		return cached, nil
	}

	raw, err := c.lister.ListLocations(ctx, kind)
	if err != nil {
		return nil, err
	}
	opts := make([]filters.Option, 0, len(raw))
	for _, loc := range raw {
		opts = append(opts, filters.Option{ID: loc.ID, Name: loc.Name})
	}
	c.writeCache(ctx, kind, opts)
	c.metrics.SetLocationOptions(kind.String(), len(opts))
	return opts, nil
}

// Invalidate removes cached listings for every kind.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	keys := make([]string, 0, len(enums.LocationKinds()))
	for _, kind := range enums.LocationKinds() {
		keys = append(keys, c.cache.CatalogKey(kind.String()))
	}
	return c.cache.Del(ctx, keys...)
}

func (c *Catalog) readCache(ctx context.Context, kind enums.LocationKind) ([]filters.Option, bool) {
	if c.cache == nil {
		return nil, false
	}
	payload, err := c.cache.GetBytes(ctx, c.cache.CatalogKey(kind.String()))
	if err != nil {
		if !errors.Is(err, pkgredis.ErrNotFound) {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "location cache read failed")
		}
		return nil, false
	}
	var opts []filters.Option
	if err := json.Unmarshal(payload, &opts); err != nil {
		return nil, false
	}
	return opts, true
}

func (c *Catalog) writeCache(ctx context.Context, kind enums.LocationKind, opts []filters.Option) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.CatalogKey(kind.String()), raw, c.ttl); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "location cache write failed")
	}
}
