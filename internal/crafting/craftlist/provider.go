package craftlist

import "github.com/rsned/craftlist-server/pkg/crafting"

// DataProvider supplies item definitions. Lookups are synchronous and already
// resolved; a missing definition is reported as crafting.NoMethod().
type DataProvider interface {
	// ProductionMethod returns the first production method for the item in data order.
	ProductionMethod(itemID crafting.ItemID) crafting.ProductionMethod
	// Recipe returns a recipe by id.
	Recipe(recipeID crafting.RecipeID) (crafting.Recipe, bool)
	// ItemName returns the display name of an item, used for reporting only.
	ItemName(itemID crafting.ItemID) string
}

// PriceProvider supplies market listings ranked by the caller's source preference.
type PriceProvider interface {
	RankedPricing(itemID crafting.ItemID, preference []crafting.SourceID) ([]crafting.PricePool, crafting.PriceStatus)
}

// StaticProvider is an in-memory DataProvider.
type StaticProvider struct {
	methods map[crafting.ItemID][]crafting.ProductionMethod
	recipes map[crafting.RecipeID]crafting.Recipe
	names   map[crafting.ItemID]string
}

// NewStaticProvider returns an empty provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		methods: make(map[crafting.ItemID][]crafting.ProductionMethod),
		recipes: make(map[crafting.RecipeID]crafting.Recipe),
		names:   make(map[crafting.ItemID]string),
	}
}

// AddItem records a display name.
func (p *StaticProvider) AddItem(itemID crafting.ItemID, name string) {
	p.names[itemID] = name
}

// AddMethod appends a production method for an item. Methods keep insertion order.
func (p *StaticProvider) AddMethod(itemID crafting.ItemID, m crafting.ProductionMethod) {
	p.methods[itemID] = append(p.methods[itemID], m)
	if m.Kind == crafting.MethodRecipe {
		p.recipes[m.Recipe.ID] = *m.Recipe
	}
}

// AddRecipe indexes a recipe for Recipe lookups without making it a method of
// its item. Recipe overrides naming another item's recipe resolve through it.
func (p *StaticProvider) AddRecipe(r crafting.Recipe) {
	p.recipes[r.ID] = r
}

// SetMethods replaces all methods of an item.
func (p *StaticProvider) SetMethods(itemID crafting.ItemID, methods []crafting.ProductionMethod) {
	delete(p.methods, itemID)
	for _, m := range methods {
		p.AddMethod(itemID, m)
	}
}

func (p *StaticProvider) ProductionMethod(itemID crafting.ItemID) crafting.ProductionMethod {
	methods := p.methods[itemID]
	if len(methods) == 0 {
		return crafting.NoMethod()
	}
	return methods[0]
}

func (p *StaticProvider) Recipe(recipeID crafting.RecipeID) (crafting.Recipe, bool) {
	r, ok := p.recipes[recipeID]
	return r, ok
}

func (p *StaticProvider) ItemName(itemID crafting.ItemID) string {
	return p.names[itemID]
}
