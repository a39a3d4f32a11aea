package craftlist

import (
	"errors"
	"fmt"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

var (
	// ErrNoPriceProvider is returned when cost aggregation runs without prices.
	ErrNoPriceProvider = errors.New("craftlist: no price provider configured")

	// ErrItemNotInList is returned when a mutation targets an item the list does not hold.
	ErrItemNotInList = errors.New("craftlist: item not in list")

	// ErrRecipeNotFound is returned when switching to an unknown recipe.
	ErrRecipeNotFound = errors.New("craftlist: recipe not found")

	// ErrRecipeMismatch is matched by every RecipeMismatchError.
	ErrRecipeMismatch = errors.New("craftlist: recipe does not produce item")
)

// RecipeMismatchError indicates a recipe that does not produce the item it was selected for.
type RecipeMismatchError struct {
	ItemID   crafting.ItemID
	RecipeID crafting.RecipeID
	Produces crafting.ItemID
}

func (e *RecipeMismatchError) Error() string {
	return fmt.Sprintf("craftlist: recipe %d produces item %d, not %d", e.RecipeID, e.Produces, e.ItemID)
}

func (e *RecipeMismatchError) Unwrap() error {
	return ErrRecipeMismatch
}
