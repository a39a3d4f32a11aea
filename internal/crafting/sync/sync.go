// Package sync imports game data exports into the crafting database.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/rsned/craftlist-server/internal/crafting/db"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

// Syncer loads exported item, recipe and market data into the database.
type Syncer struct {
	db     *db.DB
	logger *slog.Logger
}

// NewSyncer creates a new Syncer.
func NewSyncer(database *db.DB, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{db: database, logger: logger}
}

// ItemImport is one item in an items export.
type ItemImport struct {
	ID      crafting.ItemID `json:"id,omitempty"`
	ItemID  crafting.ItemID `json:"item_id,omitempty"`
	Name    string          `json:"name"`
	CanBeHQ bool            `json:"can_be_hq,omitempty"`
	CanHQ   bool            `json:"can_hq,omitempty"`
}

// IngredientImport is one recipe input. Exports disagree on field names.
type IngredientImport struct {
	ID       crafting.ItemID `json:"id,omitempty"`
	ItemID   crafting.ItemID `json:"item_id,omitempty"`
	Amount   uint32          `json:"amount,omitempty"`
	Quantity uint32          `json:"quantity,omitempty"`
}

// RecipeImport is one recipe in a recipes export.
type RecipeImport struct {
	ID       crafting.RecipeID `json:"id,omitempty"`
	RecipeID crafting.RecipeID `json:"recipe_id,omitempty"`

	// Output may be nested or flat
	Result struct {
		ItemID crafting.ItemID `json:"item_id,omitempty"`
		ID     crafting.ItemID `json:"id,omitempty"`
		Amount uint32          `json:"amount,omitempty"`
	} `json:"result,omitempty"`
	ItemID         crafting.ItemID `json:"item_id,omitempty"`
	OutputItemID   crafting.ItemID `json:"output_item_id,omitempty"`
	Yield          uint32          `json:"yield,omitempty"`
	OutputQuantity uint32          `json:"output_quantity,omitempty"`

	Ingredients []IngredientImport `json:"ingredients,omitempty"`
	Components  []IngredientImport `json:"components,omitempty"`
}

// SequencePartImport is one part of a sequence phase.
type SequencePartImport struct {
	ItemID       crafting.ItemID `json:"item_id"`
	AmountPerSet uint32          `json:"amount_per_set,omitempty"`
	Amount       uint32          `json:"amount,omitempty"`
	SetsRequired uint32          `json:"sets_required,omitempty"`
	Sets         uint32          `json:"sets,omitempty"`
}

// SequenceImport is one phased production.
type SequenceImport struct {
	ItemID crafting.ItemID        `json:"item_id"`
	Phases [][]SequencePartImport `json:"phases"`
}

// ConversionImport is one item-for-item exchange.
type ConversionImport struct {
	ItemID         crafting.ItemID `json:"item_id"`
	InputItemID    crafting.ItemID `json:"input_item_id,omitempty"`
	Input          crafting.ItemID `json:"input,omitempty"`
	OutputPerInput uint32          `json:"output_per_input,omitempty"`
	Amount         uint32          `json:"amount,omitempty"`
}

// RecipeFile is the object form of a recipes export. A bare array of
// recipes is also accepted.
type RecipeFile struct {
	Recipes     []RecipeImport     `json:"recipes"`
	Sequences   []SequenceImport   `json:"sequences,omitempty"`
	Conversions []ConversionImport `json:"conversions,omitempty"`
}

// ListingImport is one market board listing.
type ListingImport struct {
	ItemID       crafting.ItemID `json:"item_id"`
	SourceID     string          `json:"source_id,omitempty"`
	Source       string          `json:"source,omitempty"`
	World        string          `json:"world,omitempty"`
	UnitPrice    uint32          `json:"unit_price,omitempty"`
	PricePerUnit uint32          `json:"price_per_unit,omitempty"`
	Quantity     uint32          `json:"quantity"`
	HQ           bool            `json:"hq,omitempty"`
	RecordedAt   time.Time       `json:"recorded_at,omitempty"`
	Timestamp    time.Time       `json:"timestamp,omitempty"`
}

// ImportResult counts what an import stored.
type ImportResult struct {
	Items       int
	Recipes     int
	Sequences   int
	Conversions int
	Listings    int
}

// ImportItemsFromFile imports items from a JSON file.
func (s *Syncer) ImportItemsFromFile(ctx context.Context, path string) (int, error) {
	var imports []ItemImport
	if err := readJSON(path, &imports); err != nil {
		return 0, err
	}

	items := make([]crafting.Item, 0, len(imports))
	for _, imp := range imports {
		item, ok := transformItem(imp)
		if !ok {
			s.logger.Warn("skipping item without id", "name", imp.Name)
			continue
		}
		items = append(items, item)
	}

	if err := db.NewItemStore(s.db).BulkInsertItems(ctx, items); err != nil {
		return 0, fmt.Errorf("inserting items: %w", err)
	}

	if err := s.recordSync(ctx, "items", len(items)); err != nil {
		return 0, err
	}
	return len(items), nil
}

// ImportRecipesFromFile imports recipes, sequences and conversions from a
// JSON file.
func (s *Syncer) ImportRecipesFromFile(ctx context.Context, path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading file: %w", err)
	}

	var file RecipeFile
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &file.Recipes); err != nil {
			return ImportResult{}, fmt.Errorf("parsing JSON: %w", err)
		}
	} else if err := json.Unmarshal(data, &file); err != nil {
		return ImportResult{}, fmt.Errorf("parsing JSON: %w", err)
	}

	recipes := make([]crafting.Recipe, 0, len(file.Recipes))
	for _, imp := range file.Recipes {
		recipe, ok := transformRecipe(imp)
		if !ok {
			s.logger.Warn("skipping recipe without id or output", "recipe_id", imp.ID)
			continue
		}
		recipes = append(recipes, recipe)
	}
	sequences := make([]crafting.Sequence, 0, len(file.Sequences))
	for _, imp := range file.Sequences {
		sequences = append(sequences, transformSequence(imp))
	}
	conversions := make([]crafting.Conversion, 0, len(file.Conversions))
	for _, imp := range file.Conversions {
		conv, ok := transformConversion(imp)
		if !ok {
			s.logger.Warn("skipping conversion without input", "item_id", imp.ItemID)
			continue
		}
		conversions = append(conversions, conv)
	}

	recipeStore := db.NewRecipeStore(s.db)
	if err := recipeStore.BulkInsertRecipes(ctx, recipes); err != nil {
		return ImportResult{}, fmt.Errorf("inserting recipes: %w", err)
	}
	if err := recipeStore.BulkInsertSequences(ctx, sequences); err != nil {
		return ImportResult{}, fmt.Errorf("inserting sequences: %w", err)
	}
	if err := recipeStore.BulkInsertConversions(ctx, conversions); err != nil {
		return ImportResult{}, fmt.Errorf("inserting conversions: %w", err)
	}

	// Update sync metadata
	if err := s.recordSync(ctx, "recipes", len(recipes)); err != nil {
		return ImportResult{}, err
	}
	if err := s.db.SetSyncMetadata(ctx, "sequences_count", strconv.Itoa(len(sequences))); err != nil {
		return ImportResult{}, err
	}
	if err := s.db.SetSyncMetadata(ctx, "conversions_count", strconv.Itoa(len(conversions))); err != nil {
		return ImportResult{}, err
	}

	return ImportResult{
		Recipes:     len(recipes),
		Sequences:   len(sequences),
		Conversions: len(conversions),
	}, nil
}

// ImportMarketDataFromFile imports market listings from a JSON file.
func (s *Syncer) ImportMarketDataFromFile(ctx context.Context, path string) (int, error) {
	var imports []ListingImport
	if err := readJSON(path, &imports); err != nil {
		return 0, err
	}

	listings := make([]crafting.MarketListing, 0, len(imports))
	for _, imp := range imports {
		listing, ok := transformListing(imp)
		if !ok {
			s.logger.Warn("skipping listing without source", "item_id", imp.ItemID)
			continue
		}
		listings = append(listings, listing)
	}

	if err := db.NewMarketStore(s.db).ImportListings(ctx, listings); err != nil {
		return 0, fmt.Errorf("importing market data: %w", err)
	}

	// Update metadata
	if err := s.recordSync(ctx, "market", len(listings)); err != nil {
		return 0, err
	}
	return len(listings), nil
}

// PruneMarketData drops listings older than maxAge.
func (s *Syncer) PruneMarketData(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := db.NewMarketStore(s.db).PruneOldListings(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	s.logger.Info("pruned market listings", "removed", n, "max_age", maxAge)
	return n, nil
}

// ClearAll removes all data from the database.
func (s *Syncer) ClearAll(ctx context.Context) error {
	if err := db.NewRecipeStore(s.db).ClearRecipes(ctx); err != nil {
		return err
	}
	if err := db.NewItemStore(s.db).ClearItems(ctx); err != nil {
		return err
	}
	if err := db.NewMarketStore(s.db).ClearMarketData(ctx); err != nil {
		return err
	}

	return nil
}

func (s *Syncer) recordSync(ctx context.Context, kind string, count int) error {
	if err := s.db.SetSyncMetadata(ctx, kind+"_last_sync", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := s.db.SetSyncMetadata(ctx, kind+"_count", strconv.Itoa(count)); err != nil {
		return err
	}
	s.logger.Info("import stored", "kind", kind, "count", count)
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// firstOf returns the first non-zero value.
func firstOf[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// transformItem converts import format to domain format.
func transformItem(imp ItemImport) (crafting.Item, bool) {
	id := firstOf(imp.ID, imp.ItemID)
	if id == 0 {
		return crafting.Item{}, false
	}
	return crafting.Item{
		ID:      id,
		Name:    imp.Name,
		CanBeHQ: imp.CanBeHQ || imp.CanHQ,
	}, true
}

// transformRecipe converts import format to domain format.
func transformRecipe(imp RecipeImport) (crafting.Recipe, bool) {
	recipe := crafting.Recipe{
		ID: firstOf(imp.ID, imp.RecipeID),
		// Handle output - try multiple field names
		ItemID: firstOf(imp.Result.ItemID, imp.Result.ID, imp.OutputItemID, imp.ItemID),
		Yield:  firstOf(imp.Result.Amount, imp.Yield, imp.OutputQuantity),
	}
	if recipe.ID == 0 || recipe.ItemID == 0 {
		return crafting.Recipe{}, false
	}
	if recipe.Yield == 0 {
		recipe.Yield = 1
	}

	ingredients := imp.Ingredients
	if len(ingredients) == 0 {
		ingredients = imp.Components
	}
	for _, ing := range ingredients {
		itemID := firstOf(ing.ItemID, ing.ID)
		amount := firstOf(ing.Amount, ing.Quantity)
		if itemID == 0 || amount == 0 {
			continue
		}
		recipe.Ingredients = append(recipe.Ingredients, crafting.Ingredient{ItemID: itemID, Amount: amount})
	}

	return recipe, true
}

// transformSequence converts import format to domain format. Missing set
// counts default to one.
func transformSequence(imp SequenceImport) crafting.Sequence {
	seq := crafting.Sequence{ItemID: imp.ItemID}
	for _, phase := range imp.Phases {
		parts := make([]crafting.SequencePart, 0, len(phase))
		for _, p := range phase {
			parts = append(parts, crafting.SequencePart{
				ItemID:       p.ItemID,
				AmountPerSet: max(1, firstOf(p.AmountPerSet, p.Amount)),
				SetsRequired: max(1, firstOf(p.SetsRequired, p.Sets)),
			})
		}
		seq.Phases = append(seq.Phases, parts)
	}
	return seq
}

// transformConversion converts import format to domain format.
func transformConversion(imp ConversionImport) (crafting.Conversion, bool) {
	input := firstOf(imp.InputItemID, imp.Input)
	if imp.ItemID == 0 || input == 0 {
		return crafting.Conversion{}, false
	}
	return crafting.Conversion{
		ItemID:         imp.ItemID,
		InputItemID:    input,
		OutputPerInput: max(1, firstOf(imp.OutputPerInput, imp.Amount)),
	}, true
}

// transformListing converts import format to domain format.
func transformListing(imp ListingImport) (crafting.MarketListing, bool) {
	source := firstOf(imp.SourceID, imp.Source, imp.World)
	if imp.ItemID == 0 || source == "" {
		return crafting.MarketListing{}, false
	}
	recorded := imp.RecordedAt
	if recorded.IsZero() {
		recorded = imp.Timestamp
	}
	return crafting.MarketListing{
		ItemID:     imp.ItemID,
		SourceID:   crafting.SourceID(source),
		UnitPrice:  firstOf(imp.UnitPrice, imp.PricePerUnit),
		Quantity:   imp.Quantity,
		HQ:         imp.HQ,
		RecordedAt: recorded,
	}, true
}
