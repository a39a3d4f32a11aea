// Package engine contains the craft list query business logic.
//
// Each query loads the production data it needs from the database into an
// in-memory provider and runs the craftlist resolver against it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/internal/crafting/db"
	"github.com/rsned/craftlist-server/internal/crafting/metrics"
	"github.com/rsned/craftlist-server/internal/crafting/pricing"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

// Options configures an Engine.
type Options struct {
	// Cascade is used when a request does not say.
	Cascade bool
	// SourcePreference is used when a cost request does not say.
	SourcePreference []crafting.SourceID
	// RecipeCacheSize bounds the production method cache, in items.
	RecipeCacheSize int

	// Prices serves market prices. When nil a cache over the database is
	// created and loaded on demand.
	Prices   *pricing.Cache
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Engine is the main query engine for craft list operations.
type Engine struct {
	items   *db.ItemStore
	recipes *db.RecipeStore
	market  *db.MarketStore

	prices   *pricing.Cache
	methods  *lru.Cache[crafting.ItemID, []crafting.ProductionMethod]
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a new Engine with the given database.
func New(database *db.DB, opts Options) (*Engine, error) {
	if opts.RecipeCacheSize <= 0 {
		opts.RecipeCacheSize = 4096
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = (*metrics.Collector)(nil)
	}

	methods, err := lru.New[crafting.ItemID, []crafting.ProductionMethod](opts.RecipeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating recipe cache: %w", err)
	}

	market := db.NewMarketStore(database)
	prices := opts.Prices
	if prices == nil {
		prices = pricing.New(market, pricing.Options{Logger: opts.Logger, Recorder: opts.Recorder})
	}

	return &Engine{
		items:    db.NewItemStore(database),
		recipes:  db.NewRecipeStore(database),
		market:   market,
		prices:   prices,
		methods:  methods,
		opts:     opts,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}, nil
}

// InvalidateCaches drops cached production methods and prices. Call it after
// the underlying data changes.
func (e *Engine) InvalidateCaches() {
	e.methods.Purge()
	e.prices.Flush()
}

// productionMethods returns an item's methods, through the cache.
func (e *Engine) productionMethods(ctx context.Context, itemID crafting.ItemID) ([]crafting.ProductionMethod, error) {
	if methods, ok := e.methods.Get(itemID); ok {
		return methods, nil
	}
	methods, err := e.recipes.ProductionMethods(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading production methods for %d: %w", itemID, err)
	}
	e.methods.Add(itemID, methods)
	return methods, nil
}

// loadProvider builds an in-memory provider holding every item reachable
// from the given items through any of their production methods, so a recipe
// switch never needs a database round trip mid-resolution.
func (e *Engine) loadProvider(ctx context.Context, itemIDs []crafting.ItemID, overrides []crafting.RecipeOverride) (*craftlist.StaticProvider, error) {
	provider := craftlist.NewStaticProvider()

	seen := make(map[crafting.ItemID]bool)
	queue := slices.Clone(itemIDs)
	for len(queue) > 0 {
		itemID := queue[0]
		queue = queue[1:]
		if seen[itemID] {
			continue
		}
		seen[itemID] = true

		methods, err := e.productionMethods(ctx, itemID)
		if err != nil {
			return nil, err
		}
		provider.SetMethods(itemID, methods)

		for _, m := range methods {
			queue = append(queue, inputsOf(m)...)
		}
	}

	// An override may name a recipe of a different item; index it so the
	// list can report the mismatch.
	for _, o := range overrides {
		if _, ok := provider.Recipe(o.RecipeID); ok {
			continue
		}
		r, err := e.recipes.GetRecipe(ctx, o.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("loading override recipe %d: %w", o.RecipeID, err)
		}
		if r != nil {
			provider.AddRecipe(*r)
		}
	}

	ids := make([]crafting.ItemID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	names, err := e.items.Names(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading item names: %w", err)
	}
	for id, name := range names {
		provider.AddItem(id, name)
	}

	e.logger.Debug("provider loaded", "requested", len(itemIDs), "items", len(seen))
	return provider, nil
}

// inputsOf lists the items a production method consumes.
func inputsOf(m crafting.ProductionMethod) []crafting.ItemID {
	var ids []crafting.ItemID
	switch m.Kind {
	case crafting.MethodRecipe:
		for _, ing := range m.Recipe.Ingredients {
			ids = append(ids, ing.ItemID)
		}
	case crafting.MethodSequence:
		for _, phase := range m.Sequence.Phases {
			for _, p := range phase {
				ids = append(ids, p.ItemID)
			}
		}
	case crafting.MethodConversion:
		ids = append(ids, m.Conversion.InputItemID)
	}
	return ids
}

// nodeView converts a node to its reporting form.
func nodeView(n *craftlist.CraftNode, depth int, provider craftlist.DataProvider) crafting.CraftNodeView {
	return crafting.CraftNodeView{
		ItemID:              n.ItemID,
		Name:                provider.ItemName(n.ItemID),
		HQ:                  n.Flags.HQ(),
		Phase:               n.Phase.Ptr(),
		Depth:               depth,
		Method:              n.Method.Kind.String(),
		RecipeID:            n.Method.RecipeID(),
		IsOutputItem:        n.IsOutputItem,
		QuantityRequired:    n.QuantityRequired,
		QuantityNeeded:      n.QuantityNeeded,
		QuantityReady:       n.QuantityReady,
		QuantityAvailable:   n.QuantityAvailable,
		QuantityCanCraft:    n.QuantityCanCraft,
		QuantityMissing:     n.QuantityMissing(),
		QuantityUnavailable: n.QuantityUnavailable(),
		QuantityToRetrieve:  n.QuantityToRetrieve(),
		CycleBroken:         n.CycleBroken,
	}
}
