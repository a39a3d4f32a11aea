package craftlist

import (
	"math"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// SpareAccumulator banks production surplus caused by whole-batch rounding so
// that later branches needing the same item use it instead of producing more.
// One accumulator is threaded through a single expansion pass.
type SpareAccumulator struct {
	spare map[crafting.ItemID]float64
}

// NewSpareAccumulator returns an empty accumulator.
func NewSpareAccumulator() *SpareAccumulator {
	return &SpareAccumulator{spare: make(map[crafting.ItemID]float64)}
}

// Bank adds surplus for an item.
func (s *SpareAccumulator) Bank(itemID crafting.ItemID, amount uint32) {
	if amount == 0 {
		return
	}
	s.spare[itemID] += float64(amount)
}

// Take consumes up to want whole units of banked surplus and returns the amount taken.
func (s *SpareAccumulator) Take(itemID crafting.ItemID, want uint32) uint32 {
	have := math.Floor(s.spare[itemID])
	if have <= 0 || want == 0 {
		return 0
	}
	taken := want
	if have < float64(want) {
		taken = uint32(have)
	}
	s.spare[itemID] -= float64(taken)
	if s.spare[itemID] <= 0 {
		delete(s.spare, itemID)
	}
	return taken
}

// Spare returns the banked surplus for an item.
func (s *SpareAccumulator) Spare(itemID crafting.ItemID) float64 {
	return s.spare[itemID]
}
