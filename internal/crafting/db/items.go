package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// ItemStore handles item data access.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// GetItem retrieves a single item by ID. Returns nil if the item is unknown.
func (s *ItemStore) GetItem(ctx context.Context, id crafting.ItemID) (*crafting.Item, error) {
	item := &crafting.Item{ID: id}

	err := s.db.QueryRowContext(ctx, `
		SELECT name, can_be_hq FROM items WHERE id = ?
	`, id).Scan(&item.Name, &item.CanBeHQ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}

	return item, nil
}

// Names returns display names for the given items. Unknown items are omitted.
func (s *ItemStore) Names(ctx context.Context, ids []crafting.ItemID) (map[crafting.ItemID]string, error) {
	names := make(map[crafting.ItemID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	// Build placeholders
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, name FROM items WHERE id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying item names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id crafting.ItemID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning item name: %w", err)
		}
		names[id] = name
	}

	return names, rows.Err()
}

// SearchItems searches items by name (case-insensitive partial match).
func (s *ItemStore) SearchItems(ctx context.Context, term string, limit int) ([]crafting.ItemSearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM items
		WHERE name LIKE ?
		ORDER BY length(name), name
		LIMIT ?
	`, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []crafting.ItemSearchHit
	for rows.Next() {
		var hit crafting.ItemSearchHit
		if err := rows.Scan(&hit.ItemID, &hit.Name); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		results = append(results, hit)
	}

	return results, rows.Err()
}

// CountItems returns the total number of items.
func (s *ItemStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// BulkInsertItems inserts or replaces multiple items in a transaction.
func (s *ItemStore) BulkInsertItems(ctx context.Context, items []crafting.Item) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO items (id, name, can_be_hq)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing item statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, it := range items {
			if _, err := stmt.ExecContext(ctx, it.ID, it.Name, it.CanBeHQ); err != nil {
				return fmt.Errorf("inserting item %d: %w", it.ID, err)
			}
		}

		return nil
	})
}

// ClearItems removes all item data (for re-sync).
func (s *ItemStore) ClearItems(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items`)
	if err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	return nil
}
