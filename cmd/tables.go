package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables in the vector index",
	Long: `List every table currently present in the vector index. Builds the index
from the catalog first if none exists at the configured location.`,
	Args: cobra.NoArgs,
	RunE: runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, _ []string) error {
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

	store, err := application.manager.Get(ctx)
	if err != nil {
		return err
	}

	names, err := store.ListTableNames(ctx)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Println("The index is empty.")
		return nil
	}

	for _, name := range names {
		fmt.Println(name)
	}

	fmt.Printf("\n%d tables indexed at %s\n", len(names), cfg.Index.Location)

	return nil
}
