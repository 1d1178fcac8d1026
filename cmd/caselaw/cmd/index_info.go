package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

func newIndexInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info [path]",
		Short: "Show index configuration and statistics",
		Long: `Display detailed information about the search index including the
decision count, embedding model, dimensions, and on-disk sizes.

This command helps you:
- Check which embedding model the current index uses
- Debug dimension mismatch errors
- Verify the index was built correctly after a reindex`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			return runIndexInfo(cmd.Context(), cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func runIndexInfo(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	root, err := config.FindProjectRoot(absPath)
	if err != nil {
		root = absPath
	}

	dataDir := filepath.Join(root, ".caselaw")
	decisionsPath := filepath.Join(dataDir, "decisions.db")

	if _, err := os.Stat(decisionsPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s\nRun 'caselaw index <decisions-export-dir>' to create one", dataDir)
	}

	decisions, err := store.NewSQLiteDecisionStore(decisionsPath)
	if err != nil {
		return fmt.Errorf("failed to open decision store: %w", err)
	}
	defer func() { _ = decisions.Close() }()

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	currentModel := cfg.Vector.Model
	currentDimensions := cfg.Vector.Dimensions

	embedCtx, embedCancel := context.WithTimeout(ctx, 5*time.Second)
	defer embedCancel()
	if embedder, err := embed.NewEmbedder(embedCtx, embed.ParseProvider(cfg.Vector.Provider), cfg.Vector.Model); err == nil {
		embedderInfo := embed.GetInfo(embedCtx, embedder)
		currentModel = embedderInfo.Model
		currentDimensions = embedderInfo.Dimensions
		_ = embedder.Close()
	}

	info, err := store.GetIndexInfo(ctx, decisions, dataDir, currentModel, currentDimensions)
	if err != nil {
		return fmt.Errorf("failed to get index info: %w", err)
	}

	if jsonOutput {
		return outputIndexInfoJSON(cmd, info)
	}
	return outputIndexInfoHuman(cmd, info)
}

func outputIndexInfoJSON(cmd *cobra.Command, info *store.IndexInfo) error {
	output := map[string]interface{}{
		"location": info.Location,
		"statistics": map[string]interface{}{
			"decisions":         info.DecisionCount,
			"index_size_bytes":  info.IndexSizeBytes,
			"bm25_size_bytes":   info.BM25SizeBytes,
			"vector_size_bytes": info.VectorSizeBytes,
		},
		"timestamps": map[string]interface{}{
			"created":     info.CreatedAt,
			"last_update": info.UpdatedAt,
		},
		"current_embedder": map[string]interface{}{
			"model":      info.CurrentModel,
			"dimensions": info.CurrentDimensions,
			"compatible": info.Compatible,
		},
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputIndexInfoHuman(cmd *cobra.Command, info *store.IndexInfo) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Index Information")
	fmt.Fprintln(out, "=================")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Location: %s\n", info.Location)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Index Statistics:")
	fmt.Fprintf(out, "  Decisions:   %d\n", info.DecisionCount)
	fmt.Fprintf(out, "  Index Size:  %s\n", store.FormatBytes(info.IndexSizeBytes))
	fmt.Fprintf(out, "  BM25 Size:   %s\n", store.FormatBytes(info.BM25SizeBytes))
	fmt.Fprintf(out, "  Vector Size: %s\n", store.FormatBytes(info.VectorSizeBytes))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Timestamps:")
	fmt.Fprintf(out, "  Created:     %s\n", store.FormatTime(info.CreatedAt))
	fmt.Fprintf(out, "  Last Update: %s\n", store.FormatTime(info.UpdatedAt))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Current Embedder:")
	fmt.Fprintf(out, "  Model:      %s\n", info.CurrentModel)
	fmt.Fprintf(out, "  Dimensions: %d\n", info.CurrentDimensions)

	if info.Compatible {
		fmt.Fprintln(out, "  Status:     Compatible")
	} else {
		fmt.Fprintln(out, "  Status:     INCOMPATIBLE")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  Dimension/model mismatch detected!")
		fmt.Fprintf(out, "    Current: %d dims (%s)\n", info.CurrentDimensions, info.CurrentModel)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "    Semantic search will be disabled until reindex.")
		fmt.Fprintf(out, "    Run 'caselaw index --force <decisions-export-dir>' to rebuild with %s.\n", info.CurrentModel)
	}

	return nil
}
