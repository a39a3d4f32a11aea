package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// ToolDefinition describes an MCP tool.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema is a simplified JSON Schema representation.
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a schema property.
type Property struct {
	Type                 string              `json:"type,omitempty"`
	Description          string              `json:"description,omitempty"`
	Default              any                 `json:"default,omitempty"`
	Enum                 []string            `json:"enum,omitempty"`
	Minimum              *float64            `json:"minimum,omitempty"`
	Maximum              *float64            `json:"maximum,omitempty"`
	Items                *Property           `json:"items,omitempty"`
	Properties           map[string]Property `json:"properties,omitempty"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *Property           `json:"additionalProperties,omitempty"`
}

// GetToolDefinitions returns all tool definitions.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		craftListTool(),
		craftCostTool(),
		maxCraftableTool(),
		billOfMaterialsTool(),
		recipeLookupTool(),
		componentUsesTool(),
	}
}

func inventoryProperty(description string) Property {
	return Property{
		Type:        "array",
		Description: description,
		Items: &Property{
			Type: "object",
			Properties: map[string]Property{
				"item_id":  {Type: "integer", Description: "Item ID"},
				"quantity": {Type: "integer", Description: "Quantity held"},
				"hq":       {Type: "boolean", Description: "High quality stack"},
				"source":   {Type: "string", Description: "Where the stack is held, for external inventory"},
			},
			Required: []string{"item_id", "quantity"},
		},
	}
}

// craftListProperties are shared by craft_list and craft_cost.
func craftListProperties() map[string]Property {
	return map[string]Property{
		"items": {
			Type:        "array",
			Description: "Items to produce",
			Items: &Property{
				Type: "object",
				Properties: map[string]Property{
					"item_id":  {Type: "integer", Description: "Item ID"},
					"quantity": {Type: "integer", Description: "How many to produce"},
					"hq":       {Type: "boolean", Description: "Produce high quality"},
					"phase":    {Type: "integer", Description: "Sequence phase to produce, omitted for every phase"},
				},
				Required: []string{"item_id", "quantity"},
			},
		},
		"character_inventory": inventoryProperty("Items the character carries"),
		"external_inventory":  inventoryProperty("Items held in retainers, storage or other external sources"),
		"recipe_overrides": {
			Type:        "array",
			Description: "Use a specific recipe for an item instead of its first one",
			Items: &Property{
				Type: "object",
				Properties: map[string]Property{
					"item_id":   {Type: "integer"},
					"recipe_id": {Type: "integer"},
				},
				Required: []string{"item_id", "recipe_id"},
			},
		},
		"cascade": {
			Type:        "boolean",
			Description: "Count what intermediates could be crafted as available to their parents",
		},
		"merged": {
			Type:        "boolean",
			Description: "Merge identical items across the tree into one entry each",
			Default:     false,
		},
	}
}

func craftListTool() ToolDefinition {
	return ToolDefinition{
		Name:        "craft_list",
		Description: "Resolve the full requirement tree for a list of items against the character's and external inventories. Returns per-item needed, ready, available, missing and craftable quantities with per-item totals.",
		InputSchema: JSONSchema{
			Type:       "object",
			Properties: craftListProperties(),
			Required:   []string{"items"},
		},
	}
}

func craftCostTool() ToolDefinition {
	props := craftListProperties()
	props["source_preference"] = Property{
		Type:        "array",
		Description: "Market sources to prefer, in order",
		Items:       &Property{Type: "string"},
	}

	return ToolDefinition{
		Name:        "craft_cost",
		Description: "Price every intermediate and raw material of a craft list at the cheapest normal and high quality market listing. Items whose prices are still loading are listed as pending.",
		InputSchema: JSONSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"items"},
		},
	}
}

func maxCraftableTool() ToolDefinition {
	minQty := 1.0

	return ToolDefinition{
		Name:        "max_craftable",
		Description: "Report how many of an item the inventories allow right now, both from ready ingredients only and when intermediates are crafted first.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {
					Type:        "integer",
					Description: "Item to craft",
				},
				"quantity": {
					Type:        "integer",
					Description: "Target quantity, caps the result",
					Default:     1,
					Minimum:     &minQty,
				},
				"hq":                  {Type: "boolean", Description: "Only count high quality supply"},
				"character_inventory": inventoryProperty("Items the character carries"),
				"external_inventory":  inventoryProperty("Items held in external sources"),
			},
			Required: []string{"item_id"},
		},
	}
}

func billOfMaterialsTool() ToolDefinition {
	minQty := 1.0

	return ToolDefinition{
		Name:        "bill_of_materials",
		Description: "Calculate the complete recursive bill of materials for an item. Returns all raw materials, intermediate items, and crafting steps needed in dependency order.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {
					Type:        "integer",
					Description: "Item to calculate BOM for",
				},
				"quantity": {
					Type:        "integer",
					Description: "How many to craft",
					Default:     1,
					Minimum:     &minQty,
				},
				"hq":    {Type: "boolean", Description: "Produce high quality"},
				"phase": {Type: "integer", Description: "Sequence phase, omitted for every phase"},
			},
			Required: []string{"item_id"},
		},
	}
}

func recipeLookupTool() ToolDefinition {
	return ToolDefinition{
		Name:        "recipe_lookup",
		Description: "Look up how an item is produced by ID or search term. Returns its production methods and what items consume it.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {
					Type:        "integer",
					Description: "Exact item ID to look up",
				},
				"search": {
					Type:        "string",
					Description: "Search term for item name (alternative to item_id)",
				},
			},
		},
	}
}

func componentUsesTool() ToolDefinition {
	return ToolDefinition{
		Name:        "component_uses",
		Description: "Find all recipes, sequences and conversions that consume a specific item. Useful when acquiring a new item to see crafting options.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {
					Type:        "integer",
					Description: "Item to look up uses for",
				},
			},
			Required: []string{"item_id"},
		},
	}
}

// Tool handlers

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidParams, err)
	}
	return nil
}

func (s *Server) toolCraftList(ctx context.Context, args json.RawMessage) (any, error) {
	var req crafting.CraftListRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.CraftList(ctx, req)
}

func (s *Server) toolCraftCost(ctx context.Context, args json.RawMessage) (any, error) {
	var req crafting.CraftCostRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.CraftCost(ctx, req)
}

func (s *Server) toolMaxCraftable(ctx context.Context, args json.RawMessage) (any, error) {
	var req crafting.MaxCraftableRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.MaxCraftable(ctx, req)
}

func (s *Server) toolBillOfMaterials(ctx context.Context, args json.RawMessage) (any, error) {
	var req crafting.BillOfMaterialsRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.BillOfMaterials(ctx, req)
}

func (s *Server) toolRecipeLookup(ctx context.Context, args json.RawMessage) (any, error) {
	var req crafting.RecipeLookupRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.RecipeLookup(ctx, req)
}

func (s *Server) toolComponentUses(ctx context.Context, args json.RawMessage) (any, error) {
	var req crafting.ComponentUsesRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.ComponentUses(ctx, req)
}
