package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/llm"
	"github.com/queryscout/queryscout/internal/logging"
	"github.com/queryscout/queryscout/internal/pipeline"
)

var (
	queryTopology    string
	queryRetriever   string
	queryTopN        int
	queryDatabaseEnv string
	queryDevice      string
	queryNoSQL       bool
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a natural-language question with a generated SQL statement",
	Long: `Run the full question-to-SQL pipeline: retrieve relevant tables from the
vector index, optionally profile and enrich the question, and generate a SQL
statement with an explanation.

Examples:
  queryscout query "how many orders were placed last month"
  queryscout query --topology enriched "top customers by revenue"
  queryscout query --retriever rerank --top-n 3 "daily active users"
  queryscout query --no-sql "which tables describe shipments"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryTopology, "topology", "", "Pipeline topology: basic, enriched, or simplified")
	queryCmd.Flags().StringVar(&queryRetriever, "retriever", "", "Retrieval strategy: basic or rerank")
	queryCmd.Flags().IntVar(&queryTopN, "top-n", 0, "Number of tables to retrieve")
	queryCmd.Flags().StringVar(&queryDatabaseEnv, "database-env", "", "Target SQL dialect (e.g. postgres, mysql, bigquery)")
	queryCmd.Flags().StringVar(&queryDevice, "device", "", "Reranker execution device hint")
	queryCmd.Flags().BoolVar(&queryNoSQL, "no-sql", false, "Stop after table retrieval, skip SQL generation")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the full pipeline state as JSON")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	cfg, err := loadConfig(map[string]interface{}{
		"topology":     queryTopology,
		"retriever":    queryRetriever,
		"top-n":        queryTopN,
		"database-env": queryDatabaseEnv,
	})
	if err != nil {
		return err
	}

	application, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	graph, err := buildGraph(application, cfg.Pipeline.Topology)
	if err != nil {
		return err
	}

	device := cfg.Pipeline.Device
	if queryDevice != "" {
		device = queryDevice
	}

	state := pipeline.NewState(question, cfg.Pipeline.DatabaseEnv,
		cfg.Pipeline.Retriever, cfg.Pipeline.TopN, device)

	logging.GetLogger().Debugw("running query",
		"run_id", state.RunID, "topology", graph.Topology(), "question", question)

	final, err := graph.Run(ctx, state)
	if err != nil {
		return err
	}

	if queryJSON {
		encoded, err := json.MarshalIndent(final, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode pipeline state")
		}

		fmt.Println(string(encoded))

		return nil
	}

	printResult(os.Stdout, final)

	return nil
}

// buildGraph maps the --no-sql flag onto a custom graph that stops after
// retrieval; otherwise the configured topology runs unchanged
func buildGraph(application *app, topology string) (*pipeline.Graph, error) {
	if queryNoSQL {
		return pipeline.NewCustomGraph(application.pipelineDeps(), nil, false)
	}

	return pipeline.NewGraph(application.pipelineDeps(), topology)
}

func printResult(w io.Writer, state *pipeline.State) {
	if len(state.SearchedTables) == 0 {
		fmt.Fprintln(w, "No matching tables found.")
	} else {
		fmt.Fprintln(w, "Tables:")

		for _, name := range state.SearchedTables.TableNames() {
			attrs := state.SearchedTables[name]
			fmt.Fprintf(w, "  %s. %s (score %s): %s\n",
				attrs["rank"], name, attrs["score"], attrs["table_description"])
		}
	}

	if state.GeneratedQuery == "" {
		fmt.Fprintln(w, "\nNo SQL generated: the pipeline ran without a generation step.")
		return
	}

	sql, err := llm.ExtractSQL(state.GeneratedQuery)
	if err != nil {
		// Show the raw output rather than failing the whole run
		fmt.Fprintln(w, "\nModel output (no SQL block found):")
		fmt.Fprintln(w, state.GeneratedQuery)

		return
	}

	fmt.Fprintln(w, "\nSQL:")
	fmt.Fprintln(w, sql)

	if explanation := llm.ExtractExplanation(state.GeneratedQuery); explanation != "" {
		fmt.Fprintln(w, "\nExplanation:")
		fmt.Fprintln(w, explanation)
	}
}
