// Package craftlist resolves crafting requirements for a list of desired items.
//
// A CraftList holds one root CraftNode per wanted item. Every mutation rebuilds
// the full tree under each root from the data provider; Update then allocates
// character and external supply top-down, re-expanding each node against the
// quantity still unmet, and computes craftable quantities bottom-up. Surplus
// from whole-batch rounding is banked in a SpareAccumulator and reused by later
// branches in ingredient order.
//
// The package performs no I/O and is not safe for concurrent use.
package craftlist

import (
	"log/slog"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// CraftList is an ordered forest of independent craft trees.
type CraftList struct {
	provider DataProvider
	logger   *slog.Logger
	roots    []*CraftNode
	recipes  map[crafting.ItemID]crafting.RecipeID
}

// Option configures a CraftList.
type Option func(*CraftList)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *CraftList) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty list backed by provider.
func New(provider DataProvider, opts ...Option) *CraftList {
	l := &CraftList{
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
		recipes:  make(map[crafting.ItemID]crafting.RecipeID),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Items returns the root nodes in insertion order.
func (l *CraftList) Items() []*CraftNode {
	return l.roots
}

// Len returns the number of roots.
func (l *CraftList) Len() int {
	return len(l.roots)
}

// Find returns the root for an item variant, or nil.
func (l *CraftList) Find(itemID crafting.ItemID, flags crafting.ItemFlags, phase crafting.Phase) *CraftNode {
	if i := l.indexOf(itemID, flags, phase); i >= 0 {
		return l.roots[i]
	}
	return nil
}

func (l *CraftList) indexOf(itemID crafting.ItemID, flags crafting.ItemFlags, phase crafting.Phase) int {
	for i, r := range l.roots {
		if r.ItemID == itemID && r.Flags == flags && r.Phase == phase {
			return i
		}
	}
	return -1
}

// AddCraftItem adds quantity to the matching root, or appends a new root.
func (l *CraftList) AddCraftItem(itemID crafting.ItemID, quantity uint32, flags crafting.ItemFlags, phase crafting.Phase) {
	if quantity == 0 {
		return
	}
	if r := l.Find(itemID, flags, phase); r != nil {
		r.QuantityRequired = addSat(r.QuantityRequired, quantity)
	} else {
		l.roots = append(l.roots, &CraftNode{
			ItemID:           itemID,
			Flags:            flags,
			Phase:            phase,
			IsOutputItem:     true,
			QuantityRequired: quantity,
		})
	}
	l.Regenerate()
}

// SetCraftItemQuantity sets a root's target. A zero quantity removes the root.
func (l *CraftList) SetCraftItemQuantity(itemID crafting.ItemID, quantity uint32, flags crafting.ItemFlags, phase crafting.Phase) error {
	i := l.indexOf(itemID, flags, phase)
	if i < 0 {
		return ErrItemNotInList
	}
	if quantity == 0 {
		l.roots = append(l.roots[:i], l.roots[i+1:]...)
	} else {
		l.roots[i].QuantityRequired = quantity
	}
	l.Regenerate()
	return nil
}

// RemoveCraftItem lowers a root's target by quantity and drops the root once
// nothing remains.
func (l *CraftList) RemoveCraftItem(itemID crafting.ItemID, quantity uint32, flags crafting.ItemFlags, phase crafting.Phase) error {
	i := l.indexOf(itemID, flags, phase)
	if i < 0 {
		return ErrItemNotInList
	}
	return l.SetCraftItemQuantity(itemID, subClamp(l.roots[i].QuantityRequired, quantity), flags, phase)
}

// SwitchRecipe makes every node for itemID use recipeID.
func (l *CraftList) SwitchRecipe(itemID crafting.ItemID, recipeID crafting.RecipeID) error {
	r, ok := l.provider.Recipe(recipeID)
	if !ok {
		return ErrRecipeNotFound
	}
	if r.ItemID != itemID {
		return &RecipeMismatchError{ItemID: itemID, RecipeID: recipeID, Produces: r.ItemID}
	}
	l.recipes[itemID] = recipeID
	l.Regenerate()
	return nil
}

// ClearRecipe drops a recipe override so the item uses its first recipe again.
func (l *CraftList) ClearRecipe(itemID crafting.ItemID) {
	if _, ok := l.recipes[itemID]; !ok {
		return
	}
	delete(l.recipes, itemID)
	l.Regenerate()
}

// SwitchPhase moves a root to another phase, merging into an existing root
// for that phase if there is one.
func (l *CraftList) SwitchPhase(itemID crafting.ItemID, flags crafting.ItemFlags, from, to crafting.Phase) error {
	i := l.indexOf(itemID, flags, from)
	if i < 0 {
		return ErrItemNotInList
	}
	if from == to {
		return nil
	}
	if j := l.indexOf(itemID, flags, to); j >= 0 {
		l.roots[j].QuantityRequired = addSat(l.roots[j].QuantityRequired, l.roots[i].QuantityRequired)
		l.roots = append(l.roots[:i], l.roots[i+1:]...)
	} else {
		l.roots[i].Phase = to
	}
	l.Regenerate()
	return nil
}

// Regenerate rebuilds every root's tree from scratch. Each root gets its own
// accumulator; surplus never crosses roots here.
func (l *CraftList) Regenerate() {
	nodes := 0
	for _, root := range l.roots {
		x := l.expansion()
		l.reset(x, root)
		root.expand(x, root.QuantityNeeded, nil, true)
		nodes += countNodes(root)
	}
	l.logger.Debug("craft list regenerated", "roots", len(l.roots), "nodes", nodes)
}

// Update allocates supply across the whole list. Pools are consumed in root
// order, so earlier roots get first claim. One accumulator is shared by the pass.
func (l *CraftList) Update(character, external Pools, cascade bool) {
	x := l.expansion()
	for _, root := range l.roots {
		l.reset(x, root)
		root.update(x, character, external, cascade, nil)
	}
}

func (l *CraftList) expansion() *expansion {
	return &expansion{
		provider: l.provider,
		recipes:  l.recipes,
		spare:    NewSpareAccumulator(),
		logger:   l.logger,
	}
}

// reset clears a root's computed state before a pass.
func (l *CraftList) reset(x *expansion, root *CraftNode) {
	root.Method = x.method(root.ItemID)
	root.IsOutputItem = true
	root.CycleBroken = false
	root.QuantityNeeded = root.QuantityRequired
	root.QuantityReady = 0
	root.QuantityAvailable = 0
	root.QuantityCanCraft = 0
	root.Children = nil
}

func countNodes(n *CraftNode) int {
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}
