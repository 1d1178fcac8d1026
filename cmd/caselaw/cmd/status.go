package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/swiss-caselaw/caselawmcp/internal/ui"
)

// hashString returns SHA256 hash of a string (first 16 chars).
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the current index including:
  - Number of indexed decisions and citation edges
  - Last indexing time
  - Storage sizes (decisions, BM25, vectors)
  - Embedder status (type, model, availability)
  - Watcher status (if running)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	// Find project root
	root, err := config.FindProjectRoot(".")
	if err != nil {
		cwd, _ := os.Getwd()
		root = cwd
	}

	dataDir := filepath.Join(root, ".caselaw")

	// Check if index exists
	decisionsPath := filepath.Join(dataDir, "decisions.db")
	if !fileExists(decisionsPath) {
		return fmt.Errorf("no index found in %s\nRun 'caselaw index <decisions-export-dir>' to create one", root)
	}

	// Collect status info
	info, err := collectStatus(ctx, root, dataDir)
	if err != nil {
		return fmt.Errorf("failed to collect status: %w", err)
	}

	// Render output
	noColor := ui.DetectNoColor()
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)

	if jsonOutput {
		return renderer.RenderJSON(info)
	}

	return renderer.Render(info)
}

func collectStatus(ctx context.Context, root, dataDir string) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		ProjectName: filepath.Base(root),
	}

	decisionsPath := filepath.Join(dataDir, "decisions.db")
	decisions, err := store.NewSQLiteDecisionStore(decisionsPath)
	if err != nil {
		return info, fmt.Errorf("failed to open decisions store: %w", err)
	}
	defer func() { _ = decisions.Close() }()

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	idxInfo, err := store.GetIndexInfo(ctx, decisions, dataDir, cfg.Vector.Model, cfg.Vector.Dimensions)
	if err != nil {
		return info, fmt.Errorf("failed to collect index info: %w", err)
	}

	info.TotalDecisions = idxInfo.DecisionCount
	info.LastIndexed = idxInfo.UpdatedAt
	info.MetadataSize = idxInfo.IndexSizeBytes
	info.BM25Size = idxInfo.BM25SizeBytes
	info.VectorSize = idxInfo.VectorSizeBytes
	info.TotalSize = idxInfo.IndexSizeBytes + idxInfo.BM25SizeBytes + idxInfo.VectorSizeBytes

	graphPath := filepath.Join(dataDir, "graph.db")
	if graph, err := store.NewSQLiteGraphStore(graphPath); err == nil {
		defer func() { _ = graph.Close() }()
		if n, err := graph.CountEdges(ctx); err == nil {
			info.TotalCitations = n
		}
	}

	info.EmbedderType = cfg.Vector.Provider
	if info.EmbedderType == "" {
		info.EmbedderType = "ollama" // Default (ADR-037: cross-platform, lower RAM)
	}

	info.EmbedderStatus = "ready"
	if !idxInfo.Compatible {
		info.EmbedderStatus = "error"
	}
	info.EmbedderModel = cfg.Vector.Model
	if info.EmbedderModel == "" {
		info.EmbedderModel = "embeddinggemma"
	}

	// Watcher status - check if watcher process is running
	// For now, we don't have a way to check if watcher is running
	// So we'll just report "n/a"
	info.WatcherStatus = "n/a"

	return info, nil
}
