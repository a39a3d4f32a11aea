package craftlist

import (
	"log/slog"
	"math"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// CraftNode is one item's requirement in a craft tree.
//
// QuantityRequired is the declared target. For a child it is the parent's
// declared target scaled by the production ratio, before any supply is applied.
// QuantityNeeded is what still has to be produced or found after supply used
// elsewhere in the tree, and is recomputed on every pass.
type CraftNode struct {
	ItemID crafting.ItemID
	Flags  crafting.ItemFlags
	Phase  crafting.Phase
	Method crafting.ProductionMethod

	IsOutputItem bool
	CycleBroken  bool

	QuantityRequired  uint32
	QuantityNeeded    uint32
	QuantityReady     uint32
	QuantityAvailable uint32
	QuantityCanCraft  uint32

	Children []*CraftNode
}

// QuantityMissing is the need left after character supply.
func (n *CraftNode) QuantityMissing() uint32 {
	return subClamp(n.QuantityNeeded, n.QuantityReady)
}

// QuantityUnavailable is the need left after character and external supply.
func (n *CraftNode) QuantityUnavailable() uint32 {
	return subClamp(n.QuantityMissing(), n.QuantityAvailable)
}

// QuantityToRetrieve is how much should be fetched from external sources.
func (n *CraftNode) QuantityToRetrieve() uint32 {
	if n.IsOutputItem {
		return 0
	}
	return min(n.QuantityNeeded, n.QuantityAvailable)
}

// Child returns the first child for an item, or nil.
func (n *CraftNode) Child(itemID crafting.ItemID) *CraftNode {
	for _, c := range n.Children {
		if c.ItemID == itemID {
			return c
		}
	}
	return nil
}

// expansion carries the state shared by one expansion or update pass.
type expansion struct {
	provider DataProvider
	recipes  map[crafting.ItemID]crafting.RecipeID
	spare    *SpareAccumulator
	logger   *slog.Logger
}

// method resolves an item's production method, honouring recipe overrides.
func (x *expansion) method(itemID crafting.ItemID) crafting.ProductionMethod {
	if id, ok := x.recipes[itemID]; ok {
		if r, ok := x.provider.Recipe(id); ok && r.ItemID == itemID {
			return crafting.RecipeMethod(r)
		}
	}
	return x.provider.ProductionMethod(itemID)
}

// newNode builds an unexpanded child. An item already on the expansion path
// becomes a leaf so a cyclic definition cannot recurse forever.
func (x *expansion) newNode(itemID crafting.ItemID, required, needed uint32, path []crafting.ItemID) *CraftNode {
	n := &CraftNode{
		ItemID:           itemID,
		Phase:            crafting.NoPhase,
		QuantityRequired: required,
		QuantityNeeded:   needed,
	}
	if onPath(path, itemID) {
		n.Method = crafting.NoMethod()
		n.CycleBroken = true
		x.logger.Debug("production cycle broken", "item_id", itemID, "depth", len(path))
		return n
	}
	n.Method = x.method(itemID)
	return n
}

// expand replaces the node's children with freshly built ones for needBase
// units still to produce. In deep mode every child is expanded recursively
// before its next sibling is built, so later siblings see the surplus banked
// by earlier branches. path holds the node's ancestors.
func (n *CraftNode) expand(x *expansion, needBase uint32, path []crafting.ItemID, deep bool) {
	n.Children = nil
	if n.QuantityRequired == 0 {
		return
	}
	childPath := append(path, n.ItemID)

	switch n.Method.Kind {
	case crafting.MethodNone:
		return

	case crafting.MethodRecipe:
		yield := n.Method.Unit()
		batchesNeeded := ceilDiv(needBase, yield)
		batchesRequired := ceilDiv(n.QuantityRequired, yield)
		for _, ing := range distinctIngredients(n.Method.Recipe.Ingredients) {
			amountNeeded := mulSat(batchesNeeded, ing.Amount)
			amountRequired := mulSat(batchesRequired, ing.Amount)
			if amountNeeded == 0 && amountRequired == 0 {
				continue
			}
			if used := x.spare.Take(ing.ItemID, amountNeeded); used > 0 {
				amountNeeded -= used
				amountRequired = subClamp(amountRequired, used)
			}
			child := x.newNode(ing.ItemID, amountRequired, amountNeeded, childPath)
			unit := child.Method.Unit()
			if rounded := roundUp(child.QuantityNeeded, unit); rounded > child.QuantityNeeded {
				x.spare.Bank(ing.ItemID, rounded-child.QuantityNeeded)
				child.QuantityNeeded = rounded
			}
			child.QuantityRequired = roundUp(child.QuantityRequired, unit)
			n.Children = append(n.Children, child)
			if deep {
				child.expand(x, child.QuantityNeeded, childPath, true)
			}
		}

	case crafting.MethodSequence:
		for _, part := range n.sequenceParts() {
			perUnit := mulSat(part.AmountPerSet, part.SetsRequired)
			required := mulSat(perUnit, n.QuantityRequired)
			needed := mulSat(perUnit, needBase)
			if required == 0 && needed == 0 {
				continue
			}
			n.Children = append(n.Children, x.newNode(part.ItemID, required, needed, childPath))
		}
		if deep {
			for _, child := range n.Children {
				child.expand(x, child.QuantityNeeded, childPath, true)
			}
		}

	case crafting.MethodConversion:
		c := n.Method.Conversion
		per := n.Method.Unit()
		child := x.newNode(c.InputItemID, ceilDiv(n.QuantityRequired, per), ceilDiv(needBase, per), childPath)
		n.Children = []*CraftNode{child}
		if deep {
			child.expand(x, child.QuantityNeeded, childPath, true)
		}
	}
}

// sequenceParts lists the parts of the node's phase, or of every phase when
// no phase is selected, merging repeated parts in first-seen order.
func (n *CraftNode) sequenceParts() []crafting.SequencePart {
	var parts []crafting.SequencePart
	index := make(map[crafting.ItemID]int)
	for i, phase := range n.Method.Sequence.Phases {
		if n.Phase != crafting.NoPhase && crafting.Phase(i) != n.Phase {
			continue
		}
		for _, p := range phase {
			perUnit := mulSat(p.AmountPerSet, p.SetsRequired)
			if at, ok := index[p.ItemID]; ok {
				parts[at].AmountPerSet = addSat(parts[at].AmountPerSet, perUnit)
				continue
			}
			index[p.ItemID] = len(parts)
			parts = append(parts, crafting.SequencePart{ItemID: p.ItemID, AmountPerSet: perUnit, SetsRequired: 1})
		}
	}
	return parts
}

// update allocates supply to the node, rebuilds its children against what is
// still unmet, recurses, then computes how much of the node can be crafted.
func (n *CraftNode) update(x *expansion, character, external Pools, cascade bool, path []crafting.ItemID) {
	n.QuantityReady = character.drain(n.ItemID, n.Flags, n.QuantityNeeded)
	n.QuantityAvailable = external.drain(n.ItemID, n.Flags, n.QuantityMissing())

	base := n.QuantityUnavailable()
	if n.IsOutputItem {
		base = n.QuantityRequired
	}
	n.expand(x, base, path, false)

	childPath := append(path, n.ItemID)
	for _, child := range n.Children {
		child.update(x, character, external, cascade, childPath)
	}
	n.QuantityCanCraft = n.craftCapacity(cascade)
}

// craftCapacity is the most the node can produce from its children's supply,
// bounded by the scarcest ingredient.
func (n *CraftNode) craftCapacity(cascade bool) uint32 {
	switch n.Method.Kind {
	case crafting.MethodRecipe:
		batches := uint32(math.MaxUint32)
		for _, ing := range distinctIngredients(n.Method.Recipe.Ingredients) {
			if ing.Amount == 0 {
				continue
			}
			batches = min(batches, n.childSupply(ing.ItemID, cascade)/ing.Amount)
		}
		if batches == math.MaxUint32 {
			return n.QuantityNeeded
		}
		return min(mulSat(batches, n.Method.Unit()), n.QuantityNeeded)

	case crafting.MethodConversion:
		return min(mulSat(n.childSupply(n.Method.Conversion.InputItemID, cascade), n.Method.Unit()), n.QuantityNeeded)

	default:
		return 0
	}
}

// childSupply is how much of an ingredient the node's child holds ready. With
// cascade, what the child could craft itself counts as on hand.
func (n *CraftNode) childSupply(itemID crafting.ItemID, cascade bool) uint32 {
	child := n.Child(itemID)
	if child == nil {
		return 0
	}
	if cascade {
		return addSat(child.QuantityReady, child.QuantityCanCraft)
	}
	return child.QuantityReady
}

// Bottleneck returns the ingredient that permits the fewest batches, or 0 when
// the node has no recipe ingredients.
func (n *CraftNode) Bottleneck(cascade bool) crafting.ItemID {
	if n.Method.Kind != crafting.MethodRecipe {
		if n.Method.Kind == crafting.MethodConversion {
			return n.Method.Conversion.InputItemID
		}
		return 0
	}
	var worst crafting.ItemID
	best := uint32(math.MaxUint32)
	for _, ing := range distinctIngredients(n.Method.Recipe.Ingredients) {
		if ing.Amount == 0 {
			continue
		}
		if batches := n.childSupply(ing.ItemID, cascade) / ing.Amount; batches < best {
			best = batches
			worst = ing.ItemID
		}
	}
	return worst
}

// distinctIngredients merges repeated ingredients, keeping first-seen order.
func distinctIngredients(ingredients []crafting.Ingredient) []crafting.Ingredient {
	out := make([]crafting.Ingredient, 0, len(ingredients))
	index := make(map[crafting.ItemID]int, len(ingredients))
	for _, ing := range ingredients {
		if at, ok := index[ing.ItemID]; ok {
			out[at].Amount = addSat(out[at].Amount, ing.Amount)
			continue
		}
		index[ing.ItemID] = len(out)
		out = append(out, ing)
	}
	return out
}

func onPath(path []crafting.ItemID, itemID crafting.ItemID) bool {
	for _, id := range path {
		if id == itemID {
			return true
		}
	}
	return false
}

func ceilDiv(a, b uint32) uint32 {
	b = max(1, b)
	return uint32((uint64(a) + uint64(b) - 1) / uint64(b))
}

func roundUp(a, unit uint32) uint32 {
	return mulSat(ceilDiv(a, unit), max(1, unit))
}

func subClamp(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

func addSat(a, b uint32) uint32 {
	if s := uint64(a) + uint64(b); s <= math.MaxUint32 {
		return uint32(s)
	}
	return math.MaxUint32
}

func mulSat(a, b uint32) uint32 {
	if p := uint64(a) * uint64(b); p <= math.MaxUint32 {
		return uint32(p)
	}
	return math.MaxUint32
}
