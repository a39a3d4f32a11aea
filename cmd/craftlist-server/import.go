package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsned/craftlist-server/internal/crafting/sync"
)

// newImportCommand creates the import command
func newImportCommand() *cobra.Command {
	var (
		itemsFile   string
		recipesFile string
		marketFile  string
		pruneAge    time.Duration
		clearFirst  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import game data exports into the database",
		Long: `Import items, recipes (with sequences and conversions) and market listings
from JSON exports. Files are imported in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if itemsFile == "" && recipesFile == "" && marketFile == "" && pruneAge == 0 && !clearFirst {
				return errors.New("nothing to do: pass --items, --recipes, --market, --prune-older-than or --clear")
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			logger := a.logger

			syncer := sync.NewSyncer(a.database, logger)

			if clearFirst {
				logger.Info("clearing all data")
				if err := syncer.ClearAll(ctx); err != nil {
					return err
				}
			}

			if itemsFile != "" {
				logger.Info("importing items", "file", itemsFile)
				n, err := syncer.ImportItemsFromFile(ctx, itemsFile)
				if err != nil {
					return err
				}
				logger.Info("items imported successfully", "count", n)
			}

			if recipesFile != "" {
				logger.Info("importing recipes", "file", recipesFile)
				res, err := syncer.ImportRecipesFromFile(ctx, recipesFile)
				if err != nil {
					return err
				}
				logger.Info("recipes imported successfully",
					"recipes", res.Recipes, "sequences", res.Sequences, "conversions", res.Conversions)
			}

			if marketFile != "" {
				logger.Info("importing market data", "file", marketFile)
				n, err := syncer.ImportMarketDataFromFile(ctx, marketFile)
				if err != nil {
					return err
				}
				logger.Info("market data imported successfully", "listings", n)
			}

			if pruneAge > 0 {
				if _, err := syncer.PruneMarketData(ctx, pruneAge); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&itemsFile, "items", "", "Items JSON file")
	cmd.Flags().StringVar(&recipesFile, "recipes", "", "Recipes JSON file")
	cmd.Flags().StringVar(&marketFile, "market", "", "Market listings JSON file")
	cmd.Flags().DurationVar(&pruneAge, "prune-older-than", 0, "Drop market listings older than this after importing")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Remove all stored data before importing")

	return cmd
}
