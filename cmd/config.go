package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the active configuration",
	Long:  `Show the current active configuration merged from file, environment variables, and command-line flags.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigCmd,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	fmt.Println("Active Configuration:")

	fmt.Println("\nCatalog:")
	fmt.Printf("  Server URL: %s\n", cfg.Catalog.ServerURL)
	fmt.Printf("  Timeout: %s\n", cfg.Catalog.Timeout)
	fmt.Printf("  Fetch Workers: %d\n", cfg.Catalog.FetchWorkers)

	fmt.Println("\nEmbedding:")
	fmt.Printf("  Provider: %s\n", cfg.Embedding.Provider)
	fmt.Printf("  Model: %s\n", cfg.Embedding.Model)

	fmt.Println("\nLLM:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model: %s\n", cfg.LLM.Model)

	fmt.Println("\nIndex:")
	fmt.Printf("  Location: %s\n", cfg.Index.Location)

	fmt.Println("\nReranker:")
	fmt.Printf("  Base URL: %s\n", cfg.Reranker.BaseURL)
	fmt.Printf("  Model: %s\n", cfg.Reranker.Model)
	fmt.Printf("  Cache Size: %d\n", cfg.Reranker.CacheSize)

	fmt.Println("\nPipeline:")
	fmt.Printf("  Topology: %s\n", cfg.Pipeline.Topology)
	fmt.Printf("  Retriever: %s\n", cfg.Pipeline.Retriever)
	fmt.Printf("  Top N: %d\n", cfg.Pipeline.TopN)
	fmt.Printf("  Device: %s\n", cfg.Pipeline.Device)
	fmt.Printf("  Database Env: %s\n", cfg.Pipeline.DatabaseEnv)

	if cfg.Prompt.TemplateDir != "" {
		fmt.Println("\nPrompts:")
		fmt.Printf("  Template Dir: %s\n", cfg.Prompt.TemplateDir)
	}

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	return nil
}
