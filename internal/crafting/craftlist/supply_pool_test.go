package craftlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsned/craftlist-server/internal/crafting/craftlist"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

func TestSupplyPool_UseQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity uint32
		used     uint32
		request  uint32
		wantLeft uint32
		wantUsed uint32
	}{
		{name: "enough stock", quantity: 10, request: 4, wantLeft: 0, wantUsed: 4},
		{name: "exact stock", quantity: 4, request: 4, wantLeft: 0, wantUsed: 4},
		{name: "partial stock", quantity: 10, used: 4, request: 10, wantLeft: 4, wantUsed: 10},
		{name: "empty pool", quantity: 5, used: 5, request: 3, wantLeft: 3, wantUsed: 5},
		{name: "zero request", quantity: 5, request: 0, wantLeft: 0, wantUsed: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := craftlist.NewSupplyPool(1, tt.quantity, false, "bag")
			pool.Used = tt.used

			left := pool.UseQuantity(tt.request)

			assert.Equal(t, tt.wantLeft, left)
			assert.Equal(t, tt.wantUsed, pool.Used)
			assert.LessOrEqual(t, pool.Used, pool.Quantity)
			assert.Equal(t, tt.request, (pool.Used-tt.used)+left, "request must equal satisfied + remainder")
		})
	}
}

func TestSupplyPool_RepeatedDrainNeverOverdraws(t *testing.T) {
	pool := craftlist.NewSupplyPool(1, 7, false, "bag")

	var satisfied uint32
	for range 5 {
		left := pool.UseQuantity(3)
		satisfied += 3 - left
	}

	assert.Equal(t, uint32(7), satisfied)
	assert.Equal(t, uint32(7), pool.Used)
	assert.Zero(t, pool.Remaining())
}

func TestNewPools_KeepsEntryOrder(t *testing.T) {
	pools := craftlist.NewPools([]crafting.InventoryEntry{
		{ItemID: 1, Quantity: 2, Source: "bag"},
		{ItemID: 2, Quantity: 0, Source: "bag"},
		{ItemID: 1, Quantity: 5, HQ: true, Source: "saddlebag"},
	})

	if assert.Len(t, pools[1], 2) {
		assert.Equal(t, crafting.SourceID("bag"), pools[1][0].Source)
		assert.Equal(t, crafting.SourceID("saddlebag"), pools[1][1].Source)
		assert.True(t, pools[1][1].HQ)
	}
	assert.Empty(t, pools[2])
}

func TestSpareAccumulator_TakeAndBank(t *testing.T) {
	spare := craftlist.NewSpareAccumulator()

	assert.Zero(t, spare.Take(5, 3))

	spare.Bank(5, 2)
	assert.Equal(t, uint32(1), spare.Take(5, 1))
	assert.Equal(t, 1.0, spare.Spare(5))
	assert.Equal(t, uint32(1), spare.Take(5, 4))
	assert.Zero(t, spare.Spare(5))
}
