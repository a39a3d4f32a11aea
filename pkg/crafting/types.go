// Package crafting contains the core types for the craft list server.
package crafting

import (
	"fmt"
	"time"
)

// ============================================
// IDENTIFIERS
// ============================================

// ItemID identifies an item in the game data.
type ItemID uint32

// RecipeID identifies a single recipe.
type RecipeID uint32

// SourceID names where supply or a price listing comes from (a world, a retainer, a market board).
type SourceID string

// ItemFlags is a bit set of item variants.
type ItemFlags uint8

const (
	// FlagHQ marks the high-quality variant of an item.
	FlagHQ ItemFlags = 1 << iota
)

// HQ reports whether the high-quality flag is set.
func (f ItemFlags) HQ() bool {
	return f&FlagHQ != 0
}

// FlagsFor builds a flag set from the JSON-facing hq boolean.
func FlagsFor(hq bool) ItemFlags {
	if hq {
		return FlagHQ
	}
	return 0
}

// Phase selects one phase of a multi-phase production sequence.
type Phase int

// NoPhase means every phase of a sequence contributes.
const NoPhase Phase = -1

// PhaseFrom converts an optional JSON phase into a Phase.
func PhaseFrom(p *int) Phase {
	if p == nil || *p < 0 {
		return NoPhase
	}
	return Phase(*p)
}

// Ptr returns the JSON form of the phase, nil when unset.
func (p Phase) Ptr() *int {
	if p == NoPhase {
		return nil
	}
	v := int(p)
	return &v
}

// ============================================
// PRODUCTION METHODS
// ============================================

// MethodKind tags which variant a ProductionMethod holds.
type MethodKind int

const (
	MethodNone MethodKind = iota
	MethodRecipe
	MethodSequence
	MethodConversion
)

// String returns the wire name of the method kind.
func (k MethodKind) String() string {
	switch k {
	case MethodNone:
		return "none"
	case MethodRecipe:
		return "recipe"
	case MethodSequence:
		return "sequence"
	case MethodConversion:
		return "conversion"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Ingredient is one input of a recipe, counted per craft.
type Ingredient struct {
	ItemID ItemID `json:"item_id"`
	Amount uint32 `json:"amount"`
}

// Recipe produces Yield units of ItemID per craft.
type Recipe struct {
	ID          RecipeID     `json:"id"`
	ItemID      ItemID       `json:"item_id"`
	Yield       uint32       `json:"yield"`
	Ingredients []Ingredient `json:"ingredients"`
}

// SequencePart is one part of a sequence phase.
type SequencePart struct {
	ItemID       ItemID `json:"item_id"`
	AmountPerSet uint32 `json:"amount_per_set"`
	SetsRequired uint32 `json:"sets_required"`
}

// Sequence is a multi-phase, multi-part production (airships, houses, submarines).
type Sequence struct {
	ItemID ItemID           `json:"item_id"`
	Phases [][]SequencePart `json:"phases"`
}

// Conversion exchanges one input item for OutputPerInput units of ItemID.
type Conversion struct {
	ItemID         ItemID `json:"item_id"`
	InputItemID    ItemID `json:"input_item_id"`
	OutputPerInput uint32 `json:"output_per_input"`
}

// ProductionMethod describes how an item is produced. Exactly one of the
// variant pointers is set, matching Kind; MethodNone sets none.
type ProductionMethod struct {
	Kind       MethodKind  `json:"kind"`
	Recipe     *Recipe     `json:"recipe,omitempty"`
	Sequence   *Sequence   `json:"sequence,omitempty"`
	Conversion *Conversion `json:"conversion,omitempty"`
}

// NoMethod is the method of raw or gatherable items.
func NoMethod() ProductionMethod {
	return ProductionMethod{Kind: MethodNone}
}

// RecipeMethod wraps a recipe.
func RecipeMethod(r Recipe) ProductionMethod {
	return ProductionMethod{Kind: MethodRecipe, Recipe: &r}
}

// SequenceMethod wraps a sequence.
func SequenceMethod(s Sequence) ProductionMethod {
	return ProductionMethod{Kind: MethodSequence, Sequence: &s}
}

// ConversionMethod wraps a conversion.
func ConversionMethod(c Conversion) ProductionMethod {
	return ProductionMethod{Kind: MethodConversion, Conversion: &c}
}

// Unit returns how many units one execution of the method produces.
// Zero yields are clamped to 1.
func (m ProductionMethod) Unit() uint32 {
	switch m.Kind {
	case MethodRecipe:
		return max(1, m.Recipe.Yield)
	case MethodConversion:
		return max(1, m.Conversion.OutputPerInput)
	default:
		return 1
	}
}

// RecipeID returns the recipe id for recipe methods and 0 otherwise.
func (m ProductionMethod) RecipeID() RecipeID {
	if m.Kind == MethodRecipe {
		return m.Recipe.ID
	}
	return 0
}

// ============================================
// ITEM & MARKET TYPES
// ============================================

// Item is the display data for an item.
type Item struct {
	ID      ItemID `json:"id"`
	Name    string `json:"name"`
	CanBeHQ bool   `json:"can_be_hq"`
}

// MarketListing is one stored market board listing.
type MarketListing struct {
	ItemID     ItemID    `json:"item_id"`
	SourceID   SourceID  `json:"source_id"`
	UnitPrice  uint32    `json:"unit_price"`
	Quantity   uint32    `json:"quantity"`
	HQ         bool      `json:"hq"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PricePool is a priced, finite quantity of an item from one source.
type PricePool struct {
	SourceID  SourceID `json:"source_id"`
	UnitPrice uint32   `json:"unit_price"`
	Quantity  uint32   `json:"quantity"`
	HQ        bool     `json:"hq"`
}

// PriceStatus reports the state of a price lookup.
type PriceStatus int

const (
	PriceReady PriceStatus = iota
	PriceQueued
	PriceUnavailable
)

// String returns the wire name of the status.
func (s PriceStatus) String() string {
	switch s {
	case PriceReady:
		return "ready"
	case PriceQueued:
		return "queued"
	case PriceUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ============================================
// QUERY INPUT TYPES
// ============================================

// CraftListItem is an item the caller wants to produce.
type CraftListItem struct {
	ItemID   ItemID `json:"item_id"`
	Quantity uint32 `json:"quantity"`
	HQ       bool   `json:"hq,omitempty"`
	Phase    *int   `json:"phase,omitempty"`
}

// InventoryEntry is a stack of items held somewhere.
type InventoryEntry struct {
	ItemID   ItemID   `json:"item_id"`
	Quantity uint32   `json:"quantity"`
	HQ       bool     `json:"hq,omitempty"`
	Source   SourceID `json:"source,omitempty"`
}

// RecipeOverride selects a specific recipe for an item.
type RecipeOverride struct {
	ItemID   ItemID   `json:"item_id"`
	RecipeID RecipeID `json:"recipe_id"`
}

// ============================================
// QUERY RESULT TYPES
// ============================================

// CraftNodeView is the reporting form of one node in a craft list.
type CraftNodeView struct {
	ItemID              ItemID   `json:"item_id"`
	Name                string   `json:"name,omitempty"`
	HQ                  bool     `json:"hq,omitempty"`
	Phase               *int     `json:"phase,omitempty"`
	Depth               int      `json:"depth"`
	Method              string   `json:"method"`
	RecipeID            RecipeID `json:"recipe_id,omitempty"`
	IsOutputItem        bool     `json:"is_output_item"`
	QuantityRequired    uint32   `json:"quantity_required"`
	QuantityNeeded      uint32   `json:"quantity_needed"`
	QuantityReady       uint32   `json:"quantity_ready"`
	QuantityAvailable   uint32   `json:"quantity_available"`
	QuantityCanCraft    uint32   `json:"quantity_can_craft"`
	QuantityMissing     uint32   `json:"quantity_missing"`
	QuantityUnavailable uint32   `json:"quantity_unavailable"`
	QuantityToRetrieve  uint32   `json:"quantity_to_retrieve"`
	CycleBroken         bool     `json:"cycle_broken,omitempty"`
}

// CraftListTotals holds per-item sums over the whole list.
type CraftListTotals struct {
	Required   map[ItemID]uint32 `json:"required"`
	Needed     map[ItemID]uint32 `json:"needed"`
	Ready      map[ItemID]uint32 `json:"ready"`
	Available  map[ItemID]uint32 `json:"available"`
	Missing    map[ItemID]uint32 `json:"missing"`
	CanCraft   map[ItemID]uint32 `json:"can_craft"`
	ToRetrieve map[ItemID]uint32 `json:"to_retrieve"`
}

// ItemCostView is the cost of one merged node.
type ItemCostView struct {
	ItemID      ItemID `json:"item_id"`
	Name        string `json:"name,omitempty"`
	Quantity    uint32 `json:"quantity"`
	NQUnitPrice uint32 `json:"nq_unit_price"`
	HQUnitPrice uint32 `json:"hq_unit_price"`
	NQCost      uint64 `json:"nq_cost"`
	HQCost      uint64 `json:"hq_cost"`
	Status      string `json:"status"`
}

// BOMItem represents a raw material requirement.
type BOMItem struct {
	ItemID   ItemID `json:"item_id"`
	Name     string `json:"name,omitempty"`
	Quantity uint32 `json:"quantity"`
}

// BOMIntermediate represents an intermediate crafted item in the dependency tree.
type BOMIntermediate struct {
	ItemID        ItemID   `json:"item_id"`
	Name          string   `json:"name,omitempty"`
	RecipeID      RecipeID `json:"recipe_id,omitempty"`
	Method        string   `json:"method"`
	CraftRuns     uint32   `json:"craft_runs"`
	TotalProduced uint32   `json:"total_produced"`
	TotalNeeded   uint32   `json:"total_needed"`
}

// BOMCraftStep represents a single crafting operation in the build order.
type BOMCraftStep struct {
	StepNumber   int      `json:"step_number"`
	ItemID       ItemID   `json:"item_id"`
	Name         string   `json:"name,omitempty"`
	RecipeID     RecipeID `json:"recipe_id,omitempty"`
	CraftRuns    uint32   `json:"craft_runs"`
	OutputPerRun uint32   `json:"output_per_run"`
}

// ItemSearchHit is a lightweight item match for search results.
type ItemSearchHit struct {
	ItemID ItemID `json:"item_id"`
	Name   string `json:"name"`
}

// ComponentUseInfo describes how an item is consumed by another item's method.
type ComponentUseInfo struct {
	ItemID           ItemID   `json:"item_id"`
	Name             string   `json:"name,omitempty"`
	Method           string   `json:"method"`
	RecipeID         RecipeID `json:"recipe_id,omitempty"`
	QuantityPerCraft uint32   `json:"quantity_per_craft"`
}

// ============================================
// TOOL REQUEST/RESPONSE TYPES
// ============================================

// CraftListRequest is the input for the craft_list tool.
type CraftListRequest struct {
	Items              []CraftListItem  `json:"items"`
	CharacterInventory []InventoryEntry `json:"character_inventory"`
	ExternalInventory  []InventoryEntry `json:"external_inventory"`
	RecipeOverrides    []RecipeOverride `json:"recipe_overrides,omitempty"`
	Cascade            *bool            `json:"cascade,omitempty"`
	Merged             bool             `json:"merged"`
}

// CraftListResponse is the output for the craft_list tool.
type CraftListResponse struct {
	Outputs []CraftNodeView `json:"outputs"`
	Nodes   []CraftNodeView `json:"nodes"`
	Totals  CraftListTotals `json:"totals"`
	Cascade bool            `json:"cascade"`
}

// CraftCostRequest is the input for the craft_cost tool.
type CraftCostRequest struct {
	CraftListRequest
	SourcePreference []SourceID `json:"source_preference,omitempty"`
}

// CraftCostResponse is the output for the craft_cost tool.
type CraftCostResponse struct {
	NQTotal uint64         `json:"nq_total"`
	HQTotal uint64         `json:"hq_total"`
	Items   []ItemCostView `json:"items"`
	Pending []ItemID       `json:"pending,omitempty"`
}

// BillOfMaterialsRequest is the input for the bill_of_materials tool.
type BillOfMaterialsRequest struct {
	ItemID   ItemID `json:"item_id"`
	Quantity uint32 `json:"quantity"`
	HQ       bool   `json:"hq,omitempty"`
	Phase    *int   `json:"phase,omitempty"`
}

// BillOfMaterialsResponse is the output for the bill_of_materials tool.
type BillOfMaterialsResponse struct {
	ItemID        ItemID            `json:"item_id"`
	Name          string            `json:"name,omitempty"`
	Quantity      uint32            `json:"quantity"`
	RawMaterials  []BOMItem         `json:"raw_materials"`
	Intermediates []BOMIntermediate `json:"intermediates"`
	CraftSteps    []BOMCraftStep    `json:"craft_steps"`
}

// RecipeLookupRequest is the input for the recipe_lookup tool.
type RecipeLookupRequest struct {
	ItemID ItemID `json:"item_id,omitempty"`
	Search string `json:"search,omitempty"`
}

// RecipeLookupResponse is the output for the recipe_lookup tool.
type RecipeLookupResponse struct {
	Item          *Item              `json:"item,omitempty"`
	Methods       []ProductionMethod `json:"methods,omitempty"`
	UsedIn        []ItemID           `json:"used_in,omitempty"`
	SearchResults []ItemSearchHit    `json:"search_results,omitempty"`
}

// ComponentUsesRequest is the input for the component_uses tool.
type ComponentUsesRequest struct {
	ItemID ItemID `json:"item_id"`
}

// ComponentUsesResponse is the output for the component_uses tool.
type ComponentUsesResponse struct {
	ItemID    ItemID             `json:"item_id"`
	Name      string             `json:"name,omitempty"`
	UsedIn    []ComponentUseInfo `json:"used_in"`
	TotalUses int                `json:"total_uses"`
}

// MaxCraftableRequest is the input for the max_craftable tool.
type MaxCraftableRequest struct {
	ItemID             ItemID           `json:"item_id"`
	Quantity           uint32           `json:"quantity"`
	HQ                 bool             `json:"hq,omitempty"`
	CharacterInventory []InventoryEntry `json:"character_inventory"`
	ExternalInventory  []InventoryEntry `json:"external_inventory"`
}

// MaxCraftableResponse is the output for the max_craftable tool.
type MaxCraftableResponse struct {
	ItemID     ItemID `json:"item_id"`
	Name       string `json:"name,omitempty"`
	Quantity   uint32 `json:"quantity"`
	Ready      uint32 `json:"ready"`
	Strict     uint32 `json:"strict"`
	Cascade    uint32 `json:"cascade"`
	Bottleneck ItemID `json:"bottleneck,omitempty"`
}
