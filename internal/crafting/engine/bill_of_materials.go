package engine

import (
	"cmp"
	"context"
	"slices"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

// BillOfMaterials executes the bill_of_materials tool logic.
// It resolves the item's requirement tree with no inventory and returns the
// raw materials, the intermediates, and the craft steps in build order.
// Quantities include whole-batch rounding and the surplus reuse it allows.
func (e *Engine) BillOfMaterials(ctx context.Context, req crafting.BillOfMaterialsRequest) (*crafting.BillOfMaterialsResponse, error) {
	// Apply defaults
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	list, provider, err := e.buildList(ctx, []crafting.CraftListItem{{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		HQ:       req.HQ,
		Phase:    req.Phase,
	}}, nil)
	if err != nil {
		return nil, err
	}

	type demand struct {
		method   crafting.ProductionMethod
		needed   uint32
		maxDepth int
	}
	raw := make(map[crafting.ItemID]uint32)
	crafted := make(map[crafting.ItemID]*demand)

	// Accumulate demand per item. The deepest occurrence of an item decides
	// its step position, which orders every item after all of its inputs.
	list.Walk(func(n *craftlist.CraftNode, depth int) {
		if n.QuantityNeeded == 0 {
			return
		}
		if n.Method.Kind == crafting.MethodNone {
			raw[n.ItemID] += n.QuantityNeeded
			return
		}
		d, ok := crafted[n.ItemID]
		if !ok {
			d = &demand{method: n.Method, maxDepth: depth}
			crafted[n.ItemID] = d
		}
		d.needed += n.QuantityNeeded
		d.maxDepth = max(d.maxDepth, depth)
	})

	resp := &crafting.BillOfMaterialsResponse{
		ItemID:   req.ItemID,
		Name:     provider.ItemName(req.ItemID),
		Quantity: req.Quantity,
	}

	for itemID, qty := range raw {
		resp.RawMaterials = append(resp.RawMaterials, crafting.BOMItem{
			ItemID:   itemID,
			Name:     provider.ItemName(itemID),
			Quantity: qty,
		})
	}
	slices.SortFunc(resp.RawMaterials, func(a, b crafting.BOMItem) int {
		return cmp.Compare(a.ItemID, b.ItemID)
	})

	type step struct {
		itemID crafting.ItemID
		*demand
	}
	steps := make([]step, 0, len(crafted))
	for itemID, d := range crafted {
		steps = append(steps, step{itemID: itemID, demand: d})

		// Exclude the target item from intermediates
		if itemID == req.ItemID {
			continue
		}
		runs := craftRuns(d.method, d.needed)
		resp.Intermediates = append(resp.Intermediates, crafting.BOMIntermediate{
			ItemID:        itemID,
			Name:          provider.ItemName(itemID),
			RecipeID:      d.method.RecipeID(),
			Method:        d.method.Kind.String(),
			CraftRuns:     runs,
			TotalProduced: runs * d.method.Unit(),
			TotalNeeded:   d.needed,
		})
	}
	slices.SortFunc(resp.Intermediates, func(a, b crafting.BOMIntermediate) int {
		return cmp.Compare(a.ItemID, b.ItemID)
	})

	// Build craft steps (deepest dependencies first)
	slices.SortFunc(steps, func(a, b step) int {
		return cmp.Or(
			cmp.Compare(b.maxDepth, a.maxDepth),
			cmp.Compare(a.itemID, b.itemID),
		)
	})
	for i, s := range steps {
		resp.CraftSteps = append(resp.CraftSteps, crafting.BOMCraftStep{
			StepNumber:   i + 1,
			ItemID:       s.itemID,
			Name:         provider.ItemName(s.itemID),
			RecipeID:     s.method.RecipeID(),
			CraftRuns:    craftRuns(s.method, s.needed),
			OutputPerRun: s.method.Unit(),
		})
	}

	return resp, nil
}

// craftRuns is how many executions of m produce at least needed units.
// A sequence run assembles one unit.
func craftRuns(m crafting.ProductionMethod, needed uint32) uint32 {
	per := uint64(m.Unit())
	return uint32((uint64(needed) + per - 1) / per)
}
