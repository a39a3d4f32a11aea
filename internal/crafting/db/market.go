package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rsned/craftlist-server/pkg/crafting"
)

// MarketStore handles market listing data access.
type MarketStore struct {
	db *DB
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(db *DB) *MarketStore {
	return &MarketStore{db: db}
}

// Listings retrieves the current listings for an item, grouped by source and
// sorted by ascending unit price within a source.
func (s *MarketStore) Listings(ctx context.Context, itemID crafting.ItemID) ([]crafting.MarketListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, unit_price, quantity, is_hq, recorded_at
		FROM market_listings
		WHERE item_id = ?
		ORDER BY source_id, unit_price, id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var listings []crafting.MarketListing
	for rows.Next() {
		l := crafting.MarketListing{ItemID: itemID}
		var recorded string
		if err := rows.Scan(&l.SourceID, &l.UnitPrice, &l.Quantity, &l.HQ, &recorded); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		if l.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// ImportListings stores a market snapshot. Each (item, source) board present
// in the snapshot replaces whatever was stored for that board before.
func (s *MarketStore) ImportListings(ctx context.Context, listings []crafting.MarketListing) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		type board struct {
			item   crafting.ItemID
			source crafting.SourceID
		}
		cleared := make(map[board]bool)

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO market_listings (item_id, source_id, unit_price, quantity, is_hq, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for _, l := range listings {
			b := board{item: l.ItemID, source: l.SourceID}
			if !cleared[b] {
				_, err := tx.ExecContext(ctx,
					`DELETE FROM market_listings WHERE item_id = ? AND source_id = ?`,
					l.ItemID, l.SourceID,
				)
				if err != nil {
					return fmt.Errorf("replacing board %d/%s: %w", l.ItemID, l.SourceID, err)
				}
				cleared[b] = true
			}

			recorded := l.RecordedAt
			if recorded.IsZero() {
				recorded = now
			}
			_, err := stmt.ExecContext(ctx,
				l.ItemID, l.SourceID, l.UnitPrice, l.Quantity, l.HQ, formatTime(recorded),
			)
			if err != nil {
				return fmt.Errorf("inserting listing for %d: %w", l.ItemID, err)
			}
		}

		return nil
	})
}

// PruneOldListings removes listings recorded before now minus maxAge.
func (s *MarketStore) PruneOldListings(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM market_listings
		WHERE recorded_at < ?
	`, formatTime(time.Now().Add(-maxAge)))
	if err != nil {
		return 0, fmt.Errorf("pruning old listings: %w", err)
	}
	return result.RowsAffected()
}

// CountListings returns the total number of stored listings.
func (s *MarketStore) CountListings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM market_listings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return count, nil
}

// ClearMarketData removes all market data.
func (s *MarketStore) ClearMarketData(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM market_listings`)
	if err != nil {
		return fmt.Errorf("clearing market data: %w", err)
	}
	return nil
}
