package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/queryscout/queryscout/internal/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the metadata catalog",
	Long: `Fetch all table metadata from the configured catalog, build one document per
table, embed the documents, and persist them as a fresh vector index. Any
existing index at the configured location is replaced.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	application, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	logging.GetLogger().Infow("building vector index",
		"location", cfg.Index.Location, "catalog", cfg.Catalog.ServerURL)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Building index from catalog metadata..."
	s.Start()

	start := time.Now()
	store, err := application.manager.Rebuild(ctx)

	s.Stop()

	if err != nil {
		return err
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d tables in %s (%s)\n",
		count, time.Since(start).Round(time.Millisecond), cfg.Index.Location)

	return nil
}
