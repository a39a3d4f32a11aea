package engine

import (
	"context"
	"fmt"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

// CraftCost executes the craft_cost tool logic.
// It prices every intermediate and raw material of the resolved list at the
// cheapest NQ and HQ listing. Items whose prices are still loading are listed
// as pending and contribute nothing.
func (e *Engine) CraftCost(ctx context.Context, req crafting.CraftCostRequest) (*crafting.CraftCostResponse, error) {
	list, provider, err := e.buildList(ctx, req.Items, req.RecipeOverrides)
	if err != nil {
		return nil, err
	}

	cascade := e.opts.Cascade
	if req.Cascade != nil {
		cascade = *req.Cascade
	}
	list.Update(craftlist.NewPools(req.CharacterInventory), craftlist.NewPools(req.ExternalInventory), cascade)

	var priced []crafting.ItemID
	for _, n := range list.FlattenMerged() {
		if !n.IsOutputItem {
			priced = append(priced, n.ItemID)
		}
	}
	if err := e.prices.Warm(ctx, priced); err != nil {
		return nil, fmt.Errorf("warming prices: %w", err)
	}

	preference := req.SourcePreference
	if len(preference) == 0 {
		preference = e.opts.SourcePreference
	}

	totals, err := craftlist.CostAggregator{Prices: e.prices, Preference: preference}.Calculate(list)
	if err != nil {
		return nil, err
	}

	resp := &crafting.CraftCostResponse{
		NQTotal: totals.NQ,
		HQTotal: totals.HQ,
		Pending: totals.Pending,
	}
	for _, c := range totals.Items {
		resp.Items = append(resp.Items, crafting.ItemCostView{
			ItemID:      c.ItemID,
			Name:        provider.ItemName(c.ItemID),
			Quantity:    c.Quantity,
			NQUnitPrice: c.NQUnitPrice,
			HQUnitPrice: c.HQUnitPrice,
			NQCost:      c.NQCost,
			HQCost:      c.HQCost,
			Status:      c.Status.String(),
		})
	}

	return resp, nil
}
