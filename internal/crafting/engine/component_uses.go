package engine

import (
	"cmp"
	"context"
	"slices"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// ComponentUses executes the component_uses tool logic.
// Uses are ordered by how little of the component one craft consumes, so the
// cheapest ways to turn a stack into something else come first.
func (e *Engine) ComponentUses(ctx context.Context, req crafting.ComponentUsesRequest) (*crafting.ComponentUsesResponse, error) {
	resp := &crafting.ComponentUsesResponse{
		ItemID: req.ItemID,
	}

	item, err := e.items.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item != nil {
		resp.Name = item.Name
	}

	uses, err := e.recipes.FindItemsUsing(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(uses, func(a, b crafting.ComponentUseInfo) int {
		return cmp.Compare(a.QuantityPerCraft, b.QuantityPerCraft)
	})

	resp.UsedIn = uses
	resp.TotalUses = len(uses)

	return resp, nil
}
