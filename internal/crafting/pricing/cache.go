// Package pricing serves ranked market prices to cost calculations.
//
// Prices are cached per item. A lookup that misses the cache never blocks:
// the item is queued for a background load and reported as queued, so a cost
// calculation can finish with whatever is known and list the rest as pending.
package pricing

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rsned/craftlist-server/internal/crafting/metrics"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

// ListingSource loads the stored listings of an item.
type ListingSource interface {
	Listings(ctx context.Context, itemID crafting.ItemID) ([]crafting.MarketListing, error)
}

// Options configures a Cache.
type Options struct {
	TTL       time.Duration
	Workers   int
	QueueSize int
	Logger    *slog.Logger
	Recorder  metrics.Recorder
}

// Cache is a price provider backed by a listing source.
type Cache struct {
	source   ListingSource
	entries  *gocache.Cache
	queue    chan crafting.ItemID
	workers  int
	logger   *slog.Logger
	recorder metrics.Recorder

	mu      sync.Mutex
	pending map[crafting.ItemID]bool

	wg sync.WaitGroup
}

// New creates a cache. Background loading starts with Start.
func New(source ListingSource, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = (*metrics.Collector)(nil)
	}

	return &Cache{
		source:   source,
		entries:  gocache.New(opts.TTL, 2*opts.TTL),
		queue:    make(chan crafting.ItemID, opts.QueueSize),
		workers:  opts.Workers,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		pending:  make(map[crafting.ItemID]bool),
	}
}

// Start launches the background loaders. They stop when ctx is cancelled;
// Wait blocks until they have.
func (c *Cache) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.work(ctx)
		}()
	}
}

// Wait blocks until every loader started by Start has returned.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case itemID := <-c.queue:
			if err := c.load(ctx, itemID); err != nil {
				c.logger.Warn("background price load failed", "item_id", itemID, "error", err)
			}
			c.mu.Lock()
			delete(c.pending, itemID)
			c.mu.Unlock()
			c.recorder.SetPriceQueueDepth(len(c.queue))
		}
	}
}

// Warm loads every listed item that is not cached yet, synchronously.
func (c *Cache) Warm(ctx context.Context, items []crafting.ItemID) error {
	for _, itemID := range items {
		if _, ok := c.entries.Get(key(itemID)); ok {
			continue
		}
		if err := c.load(ctx, itemID); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the cached prices of an item.
func (c *Cache) Invalidate(itemID crafting.ItemID) {
	c.entries.Delete(key(itemID))
}

// Flush drops every cached price.
func (c *Cache) Flush() {
	c.entries.Flush()
}

func (c *Cache) load(ctx context.Context, itemID crafting.ItemID) error {
	listings, err := c.source.Listings(ctx, itemID)
	if err != nil {
		return fmt.Errorf("loading listings for %d: %w", itemID, err)
	}
	pools := make([]crafting.PricePool, 0, len(listings))
	for _, l := range listings {
		if l.Quantity == 0 {
			continue
		}
		pools = append(pools, crafting.PricePool{
			SourceID:  l.SourceID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			HQ:        l.HQ,
		})
	}
	c.entries.SetDefault(key(itemID), pools)
	return nil
}

// RankedPricing returns the cached pools of an item, ranked by preference.
// A miss queues the item and reports PriceQueued; an item with no listings
// reports PriceUnavailable.
func (c *Cache) RankedPricing(itemID crafting.ItemID, preference []crafting.SourceID) ([]crafting.PricePool, crafting.PriceStatus) {
	v, ok := c.entries.Get(key(itemID))
	if !ok {
		c.enqueue(itemID)
		c.recorder.RecordPriceLookup(crafting.PriceQueued.String())
		return nil, crafting.PriceQueued
	}
	pools := v.([]crafting.PricePool)
	if len(pools) == 0 {
		c.recorder.RecordPriceLookup(crafting.PriceUnavailable.String())
		return nil, crafting.PriceUnavailable
	}
	c.recorder.RecordPriceLookup(crafting.PriceReady.String())
	return Rank(pools, preference), crafting.PriceReady
}

// enqueue schedules a background load unless one is pending. A full queue
// drops the request; the next lookup tries again.
func (c *Cache) enqueue(itemID crafting.ItemID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[itemID] {
		return
	}
	select {
	case c.queue <- itemID:
		c.pending[itemID] = true
		c.recorder.SetPriceQueueDepth(len(c.queue))
	default:
		c.logger.Debug("price queue full", "item_id", itemID)
	}
}

// Pending reports whether a background load is scheduled for the item.
func (c *Cache) Pending(itemID crafting.ItemID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[itemID]
}

// Rank orders pools from preferred sources first, in preference order, then
// the remaining sources. Within each group pools are sorted by unit price.
// The input is not modified.
func Rank(pools []crafting.PricePool, preference []crafting.SourceID) []crafting.PricePool {
	rank := make(map[crafting.SourceID]int, len(preference))
	for i, s := range preference {
		if _, ok := rank[s]; !ok {
			rank[s] = i
		}
	}
	group := func(s crafting.SourceID) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(preference)
	}

	out := slices.Clone(pools)
	slices.SortStableFunc(out, func(a, b crafting.PricePool) int {
		return cmp.Or(
			cmp.Compare(group(a.SourceID), group(b.SourceID)),
			cmp.Compare(a.UnitPrice, b.UnitPrice),
		)
	})
	return out
}

func key(itemID crafting.ItemID) string {
	return strconv.FormatUint(uint64(itemID), 10)
}
