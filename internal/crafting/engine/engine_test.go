package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/internal/crafting/db"
	"github.com/rsned/craftlist-server/internal/crafting/engine"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

const (
	ore     crafting.ItemID = 1
	ingot   crafting.ItemID = 2
	rivet   crafting.ItemID = 3
	plate   crafting.ItemID = 4
	frame   crafting.ItemID = 5
	crystal crafting.ItemID = 6
	shard   crafting.ItemID = 7
)

// seed loads a small production graph:
//
//	frame   <- plate x1, rivet x2, crystal x1
//	plate   <- ingot x3 (yields 2), or ore x5 (second recipe)
//	rivet   <- ingot x1 (yields 3)
//	ingot   <- ore x2
//	crystal <- shard, 10 per shard
func seed(t *testing.T) (*db.DB, *engine.Engine) {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenAndInit(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.NewItemStore(database).BulkInsertItems(ctx, []crafting.Item{
		{ID: ore, Name: "Iron Ore"},
		{ID: ingot, Name: "Iron Ingot", CanBeHQ: true},
		{ID: rivet, Name: "Rivet"},
		{ID: plate, Name: "Iron Plate", CanBeHQ: true},
		{ID: frame, Name: "Frame", CanBeHQ: true},
		{ID: crystal, Name: "Crystal"},
		{ID: shard, Name: "Crystal Shard"},
	}))

	recipes := db.NewRecipeStore(database)
	require.NoError(t, recipes.BulkInsertRecipes(ctx, []crafting.Recipe{
		{ID: 100, ItemID: ingot, Yield: 1, Ingredients: []crafting.Ingredient{{ItemID: ore, Amount: 2}}},
		{ID: 101, ItemID: plate, Yield: 2, Ingredients: []crafting.Ingredient{{ItemID: ingot, Amount: 3}}},
		{ID: 102, ItemID: rivet, Yield: 3, Ingredients: []crafting.Ingredient{{ItemID: ingot, Amount: 1}}},
		{ID: 103, ItemID: frame, Yield: 1, Ingredients: []crafting.Ingredient{
			{ItemID: plate, Amount: 1}, {ItemID: rivet, Amount: 2}, {ItemID: crystal, Amount: 1},
		}},
		{ID: 104, ItemID: plate, Yield: 1, Ingredients: []crafting.Ingredient{{ItemID: ore, Amount: 5}}},
	}))
	require.NoError(t, recipes.BulkInsertConversions(ctx, []crafting.Conversion{
		{ItemID: crystal, InputItemID: shard, OutputPerInput: 10},
	}))

	eng, err := engine.New(database, engine.Options{})
	require.NoError(t, err)
	return database, eng
}

func findNode(nodes []crafting.CraftNodeView, itemID crafting.ItemID) *crafting.CraftNodeView {
	for i := range nodes {
		if nodes[i].ItemID == itemID {
			return &nodes[i]
		}
	}
	return nil
}

func TestCraftList(t *testing.T) {
	_, eng := seed(t)

	// Act
	resp, err := eng.CraftList(context.Background(), crafting.CraftListRequest{
		Items:              []crafting.CraftListItem{{ItemID: frame, Quantity: 1}},
		CharacterInventory: []crafting.InventoryEntry{{ItemID: plate, Quantity: 1}, {ItemID: ingot, Quantity: 1}},
		ExternalInventory:  []crafting.InventoryEntry{{ItemID: ore, Quantity: 10, Source: "retainer"}},
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, resp.Outputs, 1)
	assert.Equal(t, "Frame", resp.Outputs[0].Name)
	assert.True(t, resp.Outputs[0].IsOutputItem)
	assert.False(t, resp.Cascade)

	p := findNode(resp.Nodes, plate)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Depth)
	assert.Equal(t, "recipe", p.Method)
	assert.Equal(t, crafting.RecipeID(101), p.RecipeID)
	assert.Equal(t, uint32(2), p.QuantityNeeded, "plates come in pairs")
	assert.Equal(t, uint32(1), p.QuantityReady)

	assert.Equal(t, uint32(6), resp.Totals.Needed[ore])
	assert.Equal(t, uint32(6), resp.Totals.Available[ore])
	assert.Equal(t, uint32(6), resp.Totals.ToRetrieve[ore])
	assert.Equal(t, uint32(1), resp.Totals.Ready[ingot])
	assert.Equal(t, uint32(10), resp.Totals.Needed[crystal])
	assert.Equal(t, uint32(1), resp.Totals.Needed[shard])
}

func TestCraftList_Merged(t *testing.T) {
	_, eng := seed(t)

	resp, err := eng.CraftList(context.Background(), crafting.CraftListRequest{
		Items:  []crafting.CraftListItem{{ItemID: frame, Quantity: 1}},
		Merged: true,
	})

	require.NoError(t, err)
	var ingots int
	for _, n := range resp.Nodes {
		assert.Zero(t, n.Depth)
		if n.ItemID == ingot {
			ingots++
			assert.Equal(t, uint32(4), n.QuantityNeeded, "three for the plates, one for the rivets")
		}
	}
	assert.Equal(t, 1, ingots)
}

func TestCraftList_RecipeOverride(t *testing.T) {
	_, eng := seed(t)
	cascade := true

	resp, err := eng.CraftList(context.Background(), crafting.CraftListRequest{
		Items:           []crafting.CraftListItem{{ItemID: plate, Quantity: 2}},
		RecipeOverrides: []crafting.RecipeOverride{{ItemID: plate, RecipeID: 104}},
		Cascade:         &cascade,
	})

	require.NoError(t, err)
	assert.True(t, resp.Cascade)
	assert.Equal(t, crafting.RecipeID(104), resp.Outputs[0].RecipeID)
	assert.Equal(t, uint32(10), resp.Totals.Needed[ore])
	assert.Nil(t, findNode(resp.Nodes, ingot))
}

func TestCraftList_Errors(t *testing.T) {
	_, eng := seed(t)
	ctx := context.Background()

	_, err := eng.CraftList(ctx, crafting.CraftListRequest{})
	assert.ErrorIs(t, err, engine.ErrNoItems)

	_, err = eng.CraftList(ctx, crafting.CraftListRequest{
		Items:           []crafting.CraftListItem{{ItemID: plate, Quantity: 1}},
		RecipeOverrides: []crafting.RecipeOverride{{ItemID: plate, RecipeID: 100}},
	})
	assert.ErrorIs(t, err, craftlist.ErrRecipeMismatch)

	_, err = eng.CraftList(ctx, crafting.CraftListRequest{
		Items:           []crafting.CraftListItem{{ItemID: plate, Quantity: 1}},
		RecipeOverrides: []crafting.RecipeOverride{{ItemID: plate, RecipeID: 999}},
	})
	assert.ErrorIs(t, err, craftlist.ErrRecipeNotFound)
}

func TestCraftList_UnknownItemIsRaw(t *testing.T) {
	_, eng := seed(t)

	resp, err := eng.CraftList(context.Background(), crafting.CraftListRequest{
		Items: []crafting.CraftListItem{{ItemID: 4242, Quantity: 3}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, "none", resp.Nodes[0].Method)
	assert.Equal(t, uint32(3), resp.Nodes[0].QuantityNeeded)
}

func TestMaxCraftable(t *testing.T) {
	_, eng := seed(t)
	ctx := context.Background()

	// Ore converts straight into ingots.
	resp, err := eng.MaxCraftable(ctx, crafting.MaxCraftableRequest{
		ItemID:             ingot,
		Quantity:           10,
		CharacterInventory: []crafting.InventoryEntry{{ItemID: ore, Quantity: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), resp.Strict)
	assert.Equal(t, uint32(3), resp.Cascade)
	assert.Equal(t, ore, resp.Bottleneck)

	// Plates need ingots smelted first, which only cascade counts.
	resp, err = eng.MaxCraftable(ctx, crafting.MaxCraftableRequest{
		ItemID:             plate,
		Quantity:           4,
		CharacterInventory: []crafting.InventoryEntry{{ItemID: ore, Quantity: 20}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Iron Plate", resp.Name)
	assert.Zero(t, resp.Ready)
	assert.Zero(t, resp.Strict)
	assert.Equal(t, uint32(4), resp.Cascade)
	assert.Equal(t, ingot, resp.Bottleneck)
}

func TestCraftCost(t *testing.T) {
	database, eng := seed(t)
	ctx := context.Background()
	require.NoError(t, db.NewMarketStore(database).ImportListings(ctx, []crafting.MarketListing{
		{ItemID: ore, SourceID: "north", UnitPrice: 5, Quantity: 100},
		{ItemID: ingot, SourceID: "south", UnitPrice: 12, Quantity: 10},
		{ItemID: ingot, SourceID: "south", UnitPrice: 30, Quantity: 1, HQ: true},
	}))

	resp, err := eng.CraftCost(ctx, crafting.CraftCostRequest{
		CraftListRequest: crafting.CraftListRequest{
			Items: []crafting.CraftListItem{{ItemID: frame, Quantity: 1}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(4*12+8*5), resp.NQTotal)
	assert.Equal(t, uint64(4*30+8*5), resp.HQTotal)
	assert.Empty(t, resp.Pending)
	assert.Len(t, resp.Items, 6, "every intermediate and raw material is listed")

	var shardCost *crafting.ItemCostView
	for i := range resp.Items {
		if resp.Items[i].ItemID == shard {
			shardCost = &resp.Items[i]
		}
	}
	require.NotNil(t, shardCost)
	assert.Equal(t, "unavailable", shardCost.Status)
	assert.Equal(t, "Crystal Shard", shardCost.Name)
}

func TestBillOfMaterials(t *testing.T) {
	_, eng := seed(t)

	resp, err := eng.BillOfMaterials(context.Background(), crafting.BillOfMaterialsRequest{ItemID: frame, Quantity: 3})

	require.NoError(t, err)
	assert.Equal(t, "Frame", resp.Name)
	assert.Equal(t, []crafting.BOMItem{
		{ItemID: ore, Name: "Iron Ore", Quantity: 16},
		{ItemID: shard, Name: "Crystal Shard", Quantity: 1},
	}, resp.RawMaterials)

	assert.Equal(t, []crafting.BOMIntermediate{
		{ItemID: ingot, Name: "Iron Ingot", RecipeID: 100, Method: "recipe", CraftRuns: 8, TotalProduced: 8, TotalNeeded: 8},
		{ItemID: rivet, Name: "Rivet", RecipeID: 102, Method: "recipe", CraftRuns: 2, TotalProduced: 6, TotalNeeded: 6},
		{ItemID: plate, Name: "Iron Plate", RecipeID: 101, Method: "recipe", CraftRuns: 2, TotalProduced: 4, TotalNeeded: 4},
		{ItemID: crystal, Name: "Crystal", Method: "conversion", CraftRuns: 1, TotalProduced: 10, TotalNeeded: 10},
	}, resp.Intermediates)

	var order []crafting.ItemID
	for i, s := range resp.CraftSteps {
		assert.Equal(t, i+1, s.StepNumber)
		order = append(order, s.ItemID)
	}
	assert.Equal(t, []crafting.ItemID{ingot, rivet, plate, crystal, frame}, order, "inputs are crafted before their consumers")
	assert.Equal(t, uint32(3), resp.CraftSteps[4].CraftRuns)
}

func TestRecipeLookup(t *testing.T) {
	_, eng := seed(t)
	ctx := context.Background()

	resp, err := eng.RecipeLookup(ctx, crafting.RecipeLookupRequest{Search: "plate"})
	require.NoError(t, err)
	require.Len(t, resp.SearchResults, 1)
	require.NotNil(t, resp.Item)
	assert.Equal(t, plate, resp.Item.ID)
	require.Len(t, resp.Methods, 2)
	assert.Equal(t, crafting.RecipeID(101), resp.Methods[0].RecipeID(), "data order is kept")
	assert.Equal(t, []crafting.ItemID{frame}, resp.UsedIn)

	resp, err = eng.RecipeLookup(ctx, crafting.RecipeLookupRequest{Search: "crystal"})
	require.NoError(t, err)
	assert.Len(t, resp.SearchResults, 2)
	assert.Nil(t, resp.Item, "ambiguous search does not pick an item")
}

func TestRecipeLookup_CacheInvalidation(t *testing.T) {
	database, eng := seed(t)
	ctx := context.Background()

	resp, err := eng.RecipeLookup(ctx, crafting.RecipeLookupRequest{ItemID: shard})
	require.NoError(t, err)
	assert.Empty(t, resp.Methods)

	require.NoError(t, db.NewRecipeStore(database).BulkInsertRecipes(ctx, []crafting.Recipe{
		{ID: 200, ItemID: shard, Yield: 1, Ingredients: []crafting.Ingredient{{ItemID: crystal, Amount: 1}}},
	}))

	resp, err = eng.RecipeLookup(ctx, crafting.RecipeLookupRequest{ItemID: shard})
	require.NoError(t, err)
	assert.Empty(t, resp.Methods, "served from cache")

	eng.InvalidateCaches()

	resp, err = eng.RecipeLookup(ctx, crafting.RecipeLookupRequest{ItemID: shard})
	require.NoError(t, err)
	assert.Len(t, resp.Methods, 1)
}

func TestComponentUses(t *testing.T) {
	_, eng := seed(t)

	resp, err := eng.ComponentUses(context.Background(), crafting.ComponentUsesRequest{ItemID: ingot})

	require.NoError(t, err)
	assert.Equal(t, "Iron Ingot", resp.Name)
	assert.Equal(t, 2, resp.TotalUses)
	assert.Equal(t, []crafting.ComponentUseInfo{
		{ItemID: rivet, Name: "Rivet", Method: "recipe", RecipeID: 102, QuantityPerCraft: 1},
		{ItemID: plate, Name: "Iron Plate", Method: "recipe", RecipeID: 101, QuantityPerCraft: 3},
	}, resp.UsedIn)
}
