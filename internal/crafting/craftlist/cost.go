package craftlist

import "github.com/rsned/craftlist-server/pkg/crafting"

// CostAggregator prices the non-output nodes of a craft list.
type CostAggregator struct {
	Prices     PriceProvider
	Preference []crafting.SourceID
}

// ItemCost is the cost of one merged node.
type ItemCost struct {
	ItemID      crafting.ItemID
	Quantity    uint32
	NQUnitPrice uint32
	HQUnitPrice uint32
	NQCost      uint64
	HQCost      uint64
	Status      crafting.PriceStatus
}

// CostTotals is the result of a cost calculation.
type CostTotals struct {
	NQ      uint64
	HQ      uint64
	Items   []ItemCost
	Pending []crafting.ItemID
}

// Calculate sums the cheapest NQ and HQ price of every intermediate and raw
// material, multiplied by QuantityNeeded. Items whose prices are queued or
// unavailable contribute nothing; queued items are listed in Pending.
func (a CostAggregator) Calculate(l *CraftList) (CostTotals, error) {
	if a.Prices == nil {
		return CostTotals{}, ErrNoPriceProvider
	}

	var totals CostTotals
	for _, n := range l.FlattenMerged() {
		if n.IsOutputItem {
			continue
		}
		pools, status := a.Prices.RankedPricing(n.ItemID, a.Preference)
		cost := ItemCost{
			ItemID:   n.ItemID,
			Quantity: n.QuantityNeeded,
			Status:   status,
		}
		if status == crafting.PriceQueued {
			totals.Pending = append(totals.Pending, n.ItemID)
		}
		if status == crafting.PriceReady {
			nq, hq := cheapest(pools)
			if hq == 0 {
				hq = nq
			}
			if nq == 0 {
				nq = hq
			}
			cost.NQUnitPrice = nq
			cost.HQUnitPrice = hq
			cost.NQCost = uint64(nq) * uint64(n.QuantityNeeded)
			cost.HQCost = uint64(hq) * uint64(n.QuantityNeeded)
		}
		totals.NQ += cost.NQCost
		totals.HQ += cost.HQCost
		totals.Items = append(totals.Items, cost)
	}
	return totals, nil
}

// cheapest returns the lowest NQ and HQ unit prices among pools with stock.
// Zero means no listing of that quality.
func cheapest(pools []crafting.PricePool) (nq, hq uint32) {
	for _, p := range pools {
		if p.Quantity == 0 || p.UnitPrice == 0 {
			continue
		}
		if p.HQ {
			if hq == 0 || p.UnitPrice < hq {
				hq = p.UnitPrice
			}
			continue
		}
		if nq == 0 || p.UnitPrice < nq {
			nq = p.UnitPrice
		}
	}
	return nq, hq
}
