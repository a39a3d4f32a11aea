package craftlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

type priceEntry struct {
	pools  []crafting.PricePool
	status crafting.PriceStatus
}

type fakePrices map[crafting.ItemID]priceEntry

func (f fakePrices) RankedPricing(itemID crafting.ItemID, _ []crafting.SourceID) ([]crafting.PricePool, crafting.PriceStatus) {
	e, ok := f[itemID]
	if !ok {
		return nil, crafting.PriceUnavailable
	}
	return e.pools, e.status
}

const (
	rawOne crafting.ItemID = 200 + iota
	rawTwo
	rawThree
	product
)

func TestCostAggregator_Calculate(t *testing.T) {
	// Arrange: product takes 2 of each raw material.
	provider := newProvider(map[crafting.ItemID][]crafting.ProductionMethod{
		product: {recipe(1, product, 1, ing(rawOne, 2), ing(rawTwo, 1), ing(rawThree, 4))},
	})
	list := craftlist.New(provider)
	list.AddCraftItem(product, 1, 0, crafting.NoPhase)

	prices := fakePrices{
		rawOne: {status: crafting.PriceReady, pools: []crafting.PricePool{
			{SourceID: "north", UnitPrice: 10, Quantity: 50},
			{SourceID: "south", UnitPrice: 8, Quantity: 3},
			{SourceID: "south", UnitPrice: 20, Quantity: 1, HQ: true},
			{SourceID: "east", UnitPrice: 1, Quantity: 0},
		}},
		rawTwo: {status: crafting.PriceReady, pools: []crafting.PricePool{
			{SourceID: "north", UnitPrice: 5, Quantity: 9},
		}},
		rawThree: {status: crafting.PriceQueued},
	}

	// Act
	totals, err := craftlist.CostAggregator{Prices: prices}.Calculate(list)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint64(2*8+5), totals.NQ)
	assert.Equal(t, uint64(2*20+5), totals.HQ, "HQ falls back to NQ when no HQ listing exists")
	assert.Equal(t, []crafting.ItemID{rawThree}, totals.Pending)
	require.Len(t, totals.Items, 3, "output items are not priced")

	byItem := make(map[crafting.ItemID]craftlist.ItemCost)
	for _, c := range totals.Items {
		byItem[c.ItemID] = c
	}
	assert.Equal(t, uint32(8), byItem[rawOne].NQUnitPrice)
	assert.Equal(t, uint32(20), byItem[rawOne].HQUnitPrice)
	assert.Equal(t, uint32(5), byItem[rawTwo].HQUnitPrice)
	assert.Equal(t, crafting.PriceQueued, byItem[rawThree].Status)
	assert.Zero(t, byItem[rawThree].NQCost)
}

func TestCostAggregator_UsesNeededNotRequired(t *testing.T) {
	provider := newProvider(map[crafting.ItemID][]crafting.ProductionMethod{
		product: {recipe(1, product, 1, ing(rawOne, 5))},
	})
	list := craftlist.New(provider)
	list.AddCraftItem(product, 1, 0, crafting.NoPhase)
	list.Update(craftlist.NewPools([]crafting.InventoryEntry{{ItemID: rawOne, Quantity: 2}}), nil, false)

	prices := fakePrices{rawOne: {status: crafting.PriceReady, pools: []crafting.PricePool{{UnitPrice: 3, Quantity: 10}}}}
	totals, err := craftlist.CostAggregator{Prices: prices}.Calculate(list)

	require.NoError(t, err)
	assert.Equal(t, uint64(15), totals.NQ, "supply does not lower needed")
}

func TestCostAggregator_UnavailableContributesNothing(t *testing.T) {
	provider := newProvider(map[crafting.ItemID][]crafting.ProductionMethod{
		product: {recipe(1, product, 1, ing(rawOne, 5))},
	})
	list := craftlist.New(provider)
	list.AddCraftItem(product, 1, 0, crafting.NoPhase)

	totals, err := craftlist.CostAggregator{Prices: fakePrices{}}.Calculate(list)

	require.NoError(t, err)
	assert.Zero(t, totals.NQ)
	assert.Zero(t, totals.HQ)
	assert.Empty(t, totals.Pending)
}

func TestCostAggregator_NoProvider(t *testing.T) {
	list := craftlist.New(craftlist.NewStaticProvider())

	_, err := craftlist.CostAggregator{}.Calculate(list)

	assert.ErrorIs(t, err, craftlist.ErrNoPriceProvider)
}
