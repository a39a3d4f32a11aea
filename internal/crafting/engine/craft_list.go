package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

// ErrNoItems is returned when a request lists nothing to craft.
var ErrNoItems = errors.New("no items requested")

// CraftList executes the craft_list tool logic.
// It resolves the full requirement tree of every requested item against the
// caller's inventories.
func (e *Engine) CraftList(ctx context.Context, req crafting.CraftListRequest) (*crafting.CraftListResponse, error) {
	list, provider, err := e.buildList(ctx, req.Items, req.RecipeOverrides)
	if err != nil {
		return nil, err
	}

	cascade := e.opts.Cascade
	if req.Cascade != nil {
		cascade = *req.Cascade
	}
	list.Update(craftlist.NewPools(req.CharacterInventory), craftlist.NewPools(req.ExternalInventory), cascade)

	resp := &crafting.CraftListResponse{
		Cascade: cascade,
		Totals: crafting.CraftListTotals{
			Required:   list.Required(),
			Needed:     list.Needed(),
			Ready:      list.Ready(),
			Available:  list.Available(),
			Missing:    list.Missing(),
			CanCraft:   list.CanCraft(),
			ToRetrieve: list.ToRetrieve(),
		},
	}

	for _, root := range list.Items() {
		resp.Outputs = append(resp.Outputs, nodeView(root, 0, provider))
	}

	if req.Merged {
		for _, n := range list.FlattenMerged() {
			resp.Nodes = append(resp.Nodes, nodeView(n, 0, provider))
		}
	} else {
		list.Walk(func(n *craftlist.CraftNode, depth int) {
			resp.Nodes = append(resp.Nodes, nodeView(n, depth, provider))
		})
	}

	e.recorder.RecordCraftList(list.Len(), len(list.Flatten()))
	return resp, nil
}

// MaxCraftable executes the max_craftable tool logic.
// It reports how much of one item the inventories allow, with and without
// crafting intermediates first.
func (e *Engine) MaxCraftable(ctx context.Context, req crafting.MaxCraftableRequest) (*crafting.MaxCraftableResponse, error) {
	// Apply defaults
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	list, provider, err := e.buildList(ctx, []crafting.CraftListItem{{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		HQ:       req.HQ,
	}}, nil)
	if err != nil {
		return nil, err
	}
	root := list.Items()[0]

	resp := &crafting.MaxCraftableResponse{
		ItemID:   req.ItemID,
		Name:     provider.ItemName(req.ItemID),
		Quantity: req.Quantity,
	}

	// Pools are consumed by a pass, so each pass gets fresh ones.
	list.Update(craftlist.NewPools(req.CharacterInventory), craftlist.NewPools(req.ExternalInventory), false)
	resp.Ready = root.QuantityReady
	resp.Strict = root.QuantityCanCraft

	list.Update(craftlist.NewPools(req.CharacterInventory), craftlist.NewPools(req.ExternalInventory), true)
	resp.Cascade = root.QuantityCanCraft
	resp.Bottleneck = root.Bottleneck(true)

	return resp, nil
}

// buildList loads the data for the requested items and builds their list.
func (e *Engine) buildList(
	ctx context.Context,
	items []crafting.CraftListItem,
	overrides []crafting.RecipeOverride,
) (*craftlist.CraftList, *craftlist.StaticProvider, error) {
	ids := make([]crafting.ItemID, 0, len(items)+len(overrides))
	for _, it := range items {
		if it.Quantity > 0 {
			ids = append(ids, it.ItemID)
		}
	}
	if len(ids) == 0 {
		return nil, nil, ErrNoItems
	}
	for _, o := range overrides {
		ids = append(ids, o.ItemID)
	}

	provider, err := e.loadProvider(ctx, ids, overrides)
	if err != nil {
		return nil, nil, err
	}

	list := craftlist.New(provider, craftlist.WithLogger(e.logger))
	for _, o := range overrides {
		if err := list.SwitchRecipe(o.ItemID, o.RecipeID); err != nil {
			return nil, nil, fmt.Errorf("recipe override for item %d: %w", o.ItemID, err)
		}
	}
	for _, it := range items {
		list.AddCraftItem(it.ItemID, it.Quantity, crafting.FlagsFor(it.HQ), crafting.PhaseFrom(it.Phase))
	}

	return list, provider, nil
}
