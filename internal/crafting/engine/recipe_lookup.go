package engine

import (
	"context"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// RecipeLookup executes the recipe_lookup tool logic.
func (e *Engine) RecipeLookup(ctx context.Context, req crafting.RecipeLookupRequest) (*crafting.RecipeLookupResponse, error) {
	resp := &crafting.RecipeLookupResponse{}

	// If search term provided, search first
	if req.Search != "" {
		hits, err := e.items.SearchItems(ctx, req.Search, 10)
		if err != nil {
			return nil, err
		}
		resp.SearchResults = hits

		// If exactly one result and no item_id provided, use it
		if len(hits) == 1 && req.ItemID == 0 {
			req.ItemID = hits[0].ItemID
		}
	}

	// If no item ID, return just search results
	if req.ItemID == 0 {
		return resp, nil
	}

	item, err := e.items.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	resp.Item = item

	methods, err := e.productionMethods(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	resp.Methods = methods

	// Find items whose production consumes this one
	uses, err := e.recipes.FindItemsUsing(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	seen := make(map[crafting.ItemID]bool, len(uses))
	for _, u := range uses {
		if !seen[u.ItemID] {
			seen[u.ItemID] = true
			resp.UsedIn = append(resp.UsedIn, u.ItemID)
		}
	}

	return resp, nil
}
