package craftlist

import "github.com/rsned/craftlist-server/pkg/crafting"

// SupplyPool is an allocatable quantity of one item from one source.
// Used only grows; a pool is reset by building a new one.
type SupplyPool struct {
	ItemID   crafting.ItemID
	Quantity uint32
	Used     uint32
	HQ       bool
	Source   crafting.SourceID
}

// NewSupplyPool creates an unused pool.
func NewSupplyPool(itemID crafting.ItemID, quantity uint32, hq bool, source crafting.SourceID) *SupplyPool {
	return &SupplyPool{
		ItemID:   itemID,
		Quantity: quantity,
		HQ:       hq,
		Source:   source,
	}
}

// Remaining returns the unconsumed quantity.
func (p *SupplyPool) Remaining() uint32 {
	if p.Used >= p.Quantity {
		return 0
	}
	return p.Quantity - p.Used
}

// UseQuantity consumes up to request from the pool and returns the part of
// the request the pool could not satisfy.
func (p *SupplyPool) UseQuantity(request uint32) uint32 {
	remaining := p.Remaining()
	if remaining == 0 {
		return request
	}
	if remaining >= request {
		p.Used += request
		return 0
	}
	p.Used += remaining
	return request - remaining
}

// Pools maps an item to its supply pools in drain order.
type Pools map[crafting.ItemID][]*SupplyPool

// NewPools builds pools from inventory entries, keeping entry order per item.
// Entries with a zero quantity are skipped.
func NewPools(entries []crafting.InventoryEntry) Pools {
	pools := make(Pools, len(entries))
	for _, e := range entries {
		if e.Quantity == 0 {
			continue
		}
		pools[e.ItemID] = append(pools[e.ItemID], NewSupplyPool(e.ItemID, e.Quantity, e.HQ, e.Source))
	}
	return pools
}

// drain satisfies up to want units of an item from its pools in order and
// returns how many were satisfied. HQ requests only draw from HQ pools.
func (p Pools) drain(itemID crafting.ItemID, flags crafting.ItemFlags, want uint32) uint32 {
	remaining := want
	for _, pool := range p[itemID] {
		if remaining == 0 {
			break
		}
		if flags.HQ() && !pool.HQ {
			continue
		}
		remaining = pool.UseQuantity(remaining)
	}
	return want - remaining
}
