package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// RecipeStore handles production method data access: recipes, sequences and
// conversions.
type RecipeStore struct {
	db *DB
}

// NewRecipeStore creates a new RecipeStore.
func NewRecipeStore(db *DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// ProductionMethods returns every way to produce an item in data order:
// recipes by position, then the item's sequence, then its conversion.
// An item with no rows has no methods and is treated as raw by callers.
func (s *RecipeStore) ProductionMethods(ctx context.Context, itemID crafting.ItemID) ([]crafting.ProductionMethod, error) {
	var methods []crafting.ProductionMethod

	recipes, err := s.recipesFor(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for _, r := range recipes {
		methods = append(methods, crafting.RecipeMethod(r))
	}

	seq, err := s.GetSequence(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if seq != nil {
		methods = append(methods, crafting.SequenceMethod(*seq))
	}

	conv, err := s.GetConversion(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		methods = append(methods, crafting.ConversionMethod(*conv))
	}

	return methods, nil
}

// GetRecipe retrieves a single recipe by ID with its ingredients.
func (s *RecipeStore) GetRecipe(ctx context.Context, id crafting.RecipeID) (*crafting.Recipe, error) {
	recipe := &crafting.Recipe{ID: id}

	err := s.db.QueryRowContext(ctx, `
		SELECT output_item_id, yield FROM recipes WHERE id = ?
	`, id).Scan(&recipe.ItemID, &recipe.Yield)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying recipe: %w", err)
	}

	ingredients, err := s.getIngredients(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredients

	return recipe, nil
}

// recipesFor retrieves the recipes producing an item, ordered by position.
func (s *RecipeStore) recipesFor(ctx context.Context, itemID crafting.ItemID) ([]crafting.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, yield
		FROM recipes
		WHERE output_item_id = ?
		ORDER BY position, id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding recipes by output: %w", err)
	}

	var recipes []crafting.Recipe
	for rows.Next() {
		r := crafting.Recipe{ItemID: itemID}
		if err := rows.Scan(&r.ID, &r.Yield); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Close before the ingredient queries; an in-memory database has one connection.
	_ = rows.Close()

	for i := range recipes {
		ingredients, err := s.getIngredients(ctx, recipes[i].ID)
		if err != nil {
			return nil, fmt.Errorf("loading ingredients for %d: %w", recipes[i].ID, err)
		}
		recipes[i].Ingredients = ingredients
	}

	return recipes, nil
}

// getIngredients retrieves the ingredients of a recipe in position order.
func (s *RecipeStore) getIngredients(ctx context.Context, recipeID crafting.RecipeID) ([]crafting.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, amount
		FROM recipe_ingredients
		WHERE recipe_id = ?
		ORDER BY position
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("querying recipe ingredients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ingredients []crafting.Ingredient
	for rows.Next() {
		var ing crafting.Ingredient
		if err := rows.Scan(&ing.ItemID, &ing.Amount); err != nil {
			return nil, fmt.Errorf("scanning ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}

	return ingredients, rows.Err()
}

// GetSequence retrieves an item's production sequence. Returns nil if the item
// has none.
func (s *RecipeStore) GetSequence(ctx context.Context, itemID crafting.ItemID) (*crafting.Sequence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT phase, part_item_id, amount_per_set, sets_required
		FROM sequence_parts
		WHERE item_id = ?
		ORDER BY phase, position
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("querying sequence parts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var seq *crafting.Sequence
	for rows.Next() {
		var phase int
		var part crafting.SequencePart
		if err := rows.Scan(&phase, &part.ItemID, &part.AmountPerSet, &part.SetsRequired); err != nil {
			return nil, fmt.Errorf("scanning sequence part: %w", err)
		}
		if seq == nil {
			seq = &crafting.Sequence{ItemID: itemID}
		}
		for len(seq.Phases) <= phase {
			seq.Phases = append(seq.Phases, nil)
		}
		seq.Phases[phase] = append(seq.Phases[phase], part)
	}

	return seq, rows.Err()
}

// GetConversion retrieves an item's conversion. Returns nil if the item has none.
func (s *RecipeStore) GetConversion(ctx context.Context, itemID crafting.ItemID) (*crafting.Conversion, error) {
	conv := &crafting.Conversion{ItemID: itemID}

	err := s.db.QueryRowContext(ctx, `
		SELECT input_item_id, output_per_input FROM conversions WHERE item_id = ?
	`, itemID).Scan(&conv.InputItemID, &conv.OutputPerInput)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversion: %w", err)
	}

	return conv, nil
}

// FindItemsUsing lists every production method that consumes the given item,
// with the amount consumed per execution of that method.
func (s *RecipeStore) FindItemsUsing(ctx context.Context, itemID crafting.ItemID) ([]crafting.ComponentUseInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.output_item_id, COALESCE(i.name, ''), 'recipe', r.id, SUM(ri.amount)
		FROM recipe_ingredients ri
		JOIN recipes r ON r.id = ri.recipe_id
		LEFT JOIN items i ON i.id = r.output_item_id
		WHERE ri.item_id = ?
		GROUP BY r.id
		UNION ALL
		SELECT sp.item_id, COALESCE(i.name, ''), 'sequence', 0, SUM(sp.amount_per_set * sp.sets_required)
		FROM sequence_parts sp
		LEFT JOIN items i ON i.id = sp.item_id
		WHERE sp.part_item_id = ?
		GROUP BY sp.item_id
		UNION ALL
		SELECT c.item_id, COALESCE(i.name, ''), 'conversion', 0, 1
		FROM conversions c
		LEFT JOIN items i ON i.id = c.item_id
		WHERE c.input_item_id = ?
		ORDER BY 1, 4
	`, itemID, itemID, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding items using %d: %w", itemID, err)
	}
	defer func() { _ = rows.Close() }()

	var uses []crafting.ComponentUseInfo
	for rows.Next() {
		var u crafting.ComponentUseInfo
		if err := rows.Scan(&u.ItemID, &u.Name, &u.Method, &u.RecipeID, &u.QuantityPerCraft); err != nil {
			return nil, fmt.Errorf("scanning item use: %w", err)
		}
		uses = append(uses, u)
	}

	return uses, rows.Err()
}

// CountRecipes returns the total number of recipes.
func (s *RecipeStore) CountRecipes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recipes: %w", err)
	}
	return count, nil
}

// BulkInsertRecipes inserts multiple recipes in a transaction. Slice order
// becomes data order for recipes sharing an output item.
func (s *RecipeStore) BulkInsertRecipes(ctx context.Context, recipes []crafting.Recipe) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		var base int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM recipes`).Scan(&base); err != nil {
			return fmt.Errorf("reading recipe position: %w", err)
		}

		// Prepare statements
		recipeStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO recipes (id, output_item_id, yield, position)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing recipe statement: %w", err)
		}
		defer func() { _ = recipeStmt.Close() }()

		ingStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO recipe_ingredients (recipe_id, position, item_id, amount)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing ingredient statement: %w", err)
		}
		defer func() { _ = ingStmt.Close() }()

		for i, r := range recipes {
			if _, err := recipeStmt.ExecContext(ctx, r.ID, r.ItemID, r.Yield, base+i); err != nil {
				return fmt.Errorf("inserting recipe %d: %w", r.ID, err)
			}

			for pos, ing := range r.Ingredients {
				if _, err := ingStmt.ExecContext(ctx, r.ID, pos, ing.ItemID, ing.Amount); err != nil {
					return fmt.Errorf("inserting ingredient for %d: %w", r.ID, err)
				}
			}
		}

		return nil
	})
}

// BulkInsertSequences replaces the sequences of the given items.
func (s *RecipeStore) BulkInsertSequences(ctx context.Context, sequences []crafting.Sequence) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sequence_parts (item_id, phase, position, part_item_id, amount_per_set, sets_required)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing sequence statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, seq := range sequences {
			if _, err := tx.ExecContext(ctx, `DELETE FROM sequence_parts WHERE item_id = ?`, seq.ItemID); err != nil {
				return fmt.Errorf("replacing sequence for %d: %w", seq.ItemID, err)
			}
			for phase, parts := range seq.Phases {
				for pos, p := range parts {
					_, err := stmt.ExecContext(ctx, seq.ItemID, phase, pos, p.ItemID, p.AmountPerSet, p.SetsRequired)
					if err != nil {
						return fmt.Errorf("inserting sequence part for %d: %w", seq.ItemID, err)
					}
				}
			}
		}

		return nil
	})
}

// BulkInsertConversions inserts or replaces conversions.
func (s *RecipeStore) BulkInsertConversions(ctx context.Context, conversions []crafting.Conversion) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO conversions (item_id, input_item_id, output_per_input)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing conversion statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, c := range conversions {
			if _, err := stmt.ExecContext(ctx, c.ItemID, c.InputItemID, c.OutputPerInput); err != nil {
				return fmt.Errorf("inserting conversion for %d: %w", c.ItemID, err)
			}
		}

		return nil
	})
}

// ClearRecipes removes all production data (for re-sync).
func (s *RecipeStore) ClearRecipes(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		// Foreign keys cascade to recipe_ingredients
		for _, table := range []string{"recipes", "sequence_parts", "conversions"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
}
