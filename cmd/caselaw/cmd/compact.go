package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/logging"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact [path]",
		Short: "Compact the vector index by removing orphaned nodes",
		Long: `Rebuilds the HNSW vector index from the decisions already stored in
decisions.db, dropping any node left over from a deleted or superseded
decision (lazy deletion otherwise leaves it in the graph until the next
full reindex).

Unlike a full 'caselaw index' run, compact does not re-run citation-graph
extraction or touch the BM25 index — it only rebuilds the vector graph.
Since embeddings are not persisted separately from the vector index
itself, compaction re-embeds every decision's regeste and full text through the
configured embedder.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runCompact(cmd.Context(), path)
		},
	}

	return cmd
}

func runCompact(ctx context.Context, path string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	root, err := config.FindProjectRoot(absPath)
	if err != nil {
		root = absPath
	}

	dataDir := filepath.Join(root, ".caselaw")

	decisionsPath := filepath.Join(dataDir, "decisions.db")
	if !fileExists(decisionsPath) {
		return fmt.Errorf("no index found at %s - run 'caselaw index <decisions-export-dir>' first", dataDir)
	}

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	if !fileExists(vectorPath) {
		return fmt.Errorf("no vector index found at %s - run 'caselaw index' first", vectorPath)
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	fmt.Println("Compacting vector index...")
	startTime := time.Now()

	decisions, err := store.NewSQLiteDecisionStore(decisionsPath)
	if err != nil {
		return fmt.Errorf("failed to open decisions store: %w", err)
	}
	defer func() { _ = decisions.Close() }()

	total, err := decisions.CountDecisions(ctx)
	if err != nil {
		return fmt.Errorf("failed to count decisions: %w", err)
	}
	if total == 0 {
		return fmt.Errorf("no decisions found in %s", decisionsPath)
	}

	embedCtx, embedCancel := context.WithTimeout(ctx, 15*time.Second)
	embedder, err := embed.NewEmbedder(embedCtx, embed.ParseProvider(cfg.Vector.Provider), cfg.Vector.Model)
	embedCancel()
	if err != nil {
		return fmt.Errorf("embedder initialization failed: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	batch, err := decisions.ListAllForEmbedding(ctx)
	if err != nil {
		return fmt.Errorf("failed to load decisions for compaction: %w", err)
	}

	fmt.Printf("Re-embedding %d decisions (dims=%d)...\n", len(batch), embedder.Dimensions())

	vectorCfg := store.DefaultVectorStoreConfig(embedder.Dimensions())
	newVector, err := store.NewHNSWStore(vectorCfg)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = newVector.Close() }()

	ids := make([]string, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, d := range batch {
		ids = append(ids, d.DecisionID)
		texts = append(texts, d.Regeste+"\n"+d.FullText)
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed decisions: %w", err)
	}

	fmt.Printf("Adding %d vectors to new graph...\n", len(ids))
	if err := newVector.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("failed to add vectors: %w", err)
	}

	oldVector, err := store.NewHNSWStore(vectorCfg)
	if err != nil {
		slog.Warn("failed to open old vector store for comparison", slog.String("error", err.Error()))
	} else {
		if err := oldVector.Load(vectorPath); err != nil {
			slog.Warn("failed to load old vector store for comparison", slog.String("error", err.Error()))
		} else {
			oldCount := oldVector.Count()
			newCount := newVector.Count()
			if orphansRemoved := oldCount - newCount; orphansRemoved > 0 {
				fmt.Printf("Orphaned nodes removed: %d\n", orphansRemoved)
			}
		}
		_ = oldVector.Close()
	}

	fmt.Println("Saving compacted index...")
	if err := newVector.Save(vectorPath); err != nil {
		return fmt.Errorf("failed to save vector store: %w", err)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Compaction complete in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Vector count: %d\n", newVector.Count())

	return nil
}
