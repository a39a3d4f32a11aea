package craftlist

import "github.com/rsned/craftlist-server/pkg/crafting"

// Walk visits every node in pre-order with its depth below the root.
func (l *CraftList) Walk(fn func(n *CraftNode, depth int)) {
	var visit func(n *CraftNode, depth int)
	visit = func(n *CraftNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, root := range l.roots {
		visit(root, 0)
	}
}

// Flatten returns every node of every tree in pre-order.
func (l *CraftList) Flatten() []*CraftNode {
	var out []*CraftNode
	l.Walk(func(n *CraftNode, _ int) {
		out = append(out, n)
	})
	return out
}

type mergeKey struct {
	itemID   crafting.ItemID
	flags    crafting.ItemFlags
	phase    crafting.Phase
	isOutput bool
}

// FlattenMerged flattens the list and folds nodes sharing item, flags, phase
// and output status into one childless node whose quantities are the sums of
// the group. Recipe nodes have Required and Needed rounded up to whole batches.
// Groups keep the order of their first member.
func (l *CraftList) FlattenMerged() []*CraftNode {
	var out []*CraftNode
	index := make(map[mergeKey]int)
	for _, n := range l.Flatten() {
		key := mergeKey{itemID: n.ItemID, flags: n.Flags, phase: n.Phase, isOutput: n.IsOutputItem}
		at, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, &CraftNode{
				ItemID:            n.ItemID,
				Flags:             n.Flags,
				Phase:             n.Phase,
				Method:            n.Method,
				IsOutputItem:      n.IsOutputItem,
				CycleBroken:       n.CycleBroken,
				QuantityRequired:  n.QuantityRequired,
				QuantityNeeded:    n.QuantityNeeded,
				QuantityReady:     n.QuantityReady,
				QuantityAvailable: n.QuantityAvailable,
				QuantityCanCraft:  n.QuantityCanCraft,
			})
			continue
		}
		m := out[at]
		m.CycleBroken = m.CycleBroken || n.CycleBroken
		m.QuantityRequired = addSat(m.QuantityRequired, n.QuantityRequired)
		m.QuantityNeeded = addSat(m.QuantityNeeded, n.QuantityNeeded)
		m.QuantityReady = addSat(m.QuantityReady, n.QuantityReady)
		m.QuantityAvailable = addSat(m.QuantityAvailable, n.QuantityAvailable)
		m.QuantityCanCraft = addSat(m.QuantityCanCraft, n.QuantityCanCraft)
	}
	for _, m := range out {
		if m.Method.Kind == crafting.MethodRecipe {
			unit := m.Method.Unit()
			m.QuantityRequired = roundUp(m.QuantityRequired, unit)
			m.QuantityNeeded = roundUp(m.QuantityNeeded, unit)
		}
	}
	return out
}

func (l *CraftList) sumBy(field func(n *CraftNode) uint32) map[crafting.ItemID]uint32 {
	sums := make(map[crafting.ItemID]uint32)
	for _, n := range l.Flatten() {
		sums[n.ItemID] = addSat(sums[n.ItemID], field(n))
	}
	return sums
}

// Required sums QuantityRequired per item across the list, ignoring flags and phase.
func (l *CraftList) Required() map[crafting.ItemID]uint32 {
	return l.sumBy(func(n *CraftNode) uint32 { return n.QuantityRequired })
}

// Needed sums QuantityNeeded per item.
func (l *CraftList) Needed() map[crafting.ItemID]uint32 {
	return l.sumBy(func(n *CraftNode) uint32 { return n.QuantityNeeded })
}

// Ready sums QuantityReady per item.
func (l *CraftList) Ready() map[crafting.ItemID]uint32 {
	return l.sumBy(func(n *CraftNode) uint32 { return n.QuantityReady })
}

// Available sums QuantityAvailable per item.
func (l *CraftList) Available() map[crafting.ItemID]uint32 {
	return l.sumBy(func(n *CraftNode) uint32 { return n.QuantityAvailable })
}

// Missing sums QuantityMissing per item.
func (l *CraftList) Missing() map[crafting.ItemID]uint32 {
	return l.sumBy((*CraftNode).QuantityMissing)
}

// CanCraft sums QuantityCanCraft per item.
func (l *CraftList) CanCraft() map[crafting.ItemID]uint32 {
	return l.sumBy(func(n *CraftNode) uint32 { return n.QuantityCanCraft })
}

// ToRetrieve sums QuantityToRetrieve per item.
func (l *CraftList) ToRetrieve() map[crafting.ItemID]uint32 {
	return l.sumBy((*CraftNode).QuantityToRetrieve)
}
