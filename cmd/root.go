// Package cmd wires the CLI surface: index building, question answering, and
// inspection commands over the shared configuration.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/queryscout/queryscout/internal/config"
	"github.com/queryscout/queryscout/internal/logging"
)

var (
	flagLogLevel      string
	flagIndexLocation string
)

var rootCmd = &cobra.Command{
	Use:   "queryscout",
	Short: "Turn natural-language questions into SQL using your data catalog",
	Long: `queryscout indexes table metadata from an external data catalog into a local
vector index and answers natural-language questions about your data. Each
question is matched against the indexed tables, optionally profiled and
enriched, and handed to a language model that produces a SQL statement with
an explanation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&flagIndexLocation, "index-location", "", "Path to the vector index file")
}

// loadConfig resolves the active configuration with persistent flag
// overrides applied, expands paths, and initializes logging
func loadConfig(extraOverrides map[string]interface{}) (*config.Config, error) {
	overrides := map[string]interface{}{
		"log-level":      flagLogLevel,
		"index-location": flagIndexLocation,
	}
	for key, value := range extraOverrides {
		overrides[key] = value
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, err
	}

	cfg.ExpandAllPaths()

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, err
	}

	return cfg, nil
}
