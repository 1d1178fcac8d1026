package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/ingest"
	"github.com/swiss-caselaw/caselawmcp/internal/search"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/swiss-caselaw/caselawmcp/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		noTUI   bool
		force   bool
		backend string
	)

	cmd := &cobra.Command{
		Use:   "index <decisions-export-dir>",
		Short: "Build the FTS/vector/sparse indexes and citation graph from a decisions export",
		Long: `Reads a directory of newline-delimited JSON decision exports and
(re)builds the BM25 full-text index, the dense-vector index, the
learned-sparse index, and the citation/statute graph derived from the
decisions' own text.

Backend Selection:
  (default)          Auto-detect: Ollama unless CASELAW_EMBEDDER overrides it
  --backend=mlx      Use MLX (Apple Silicon, faster but higher RAM)
  --backend=ollama   Use Ollama (cross-platform)
  --backend=static   Use the hash-based fallback embedder (no external service)

Use --force to clear existing index data and rebuild from scratch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if backend != "" {
				os.Setenv("CASELAW_EMBEDDER", backend)
			}

			return runIndex(ctx, cmd, args[0], noTUI, force)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&force, "force", false, "Clear existing index data and rebuild from scratch")
	cmd.Flags().StringVar(&backend, "backend", "", "Embedding backend: auto-detect (default), mlx, ollama, or static")

	cmd.AddCommand(newIndexInfoCmd())

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, exportDir string, noTUI bool, force bool) error {
	absExportDir, err := filepath.Abs(exportDir)
	if err != nil {
		return fmt.Errorf("resolve export directory: %w", err)
	}
	if info, statErr := os.Stat(absExportDir); statErr != nil || !info.IsDir() {
		return fmt.Errorf("decisions export directory not found: %s", absExportDir)
	}

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	dataDir := filepath.Join(root, ".caselaw")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// A single-writer lock guards against two `caselaw index` runs
	// racing on the same on-disk indexes.
	lock := embed.NewFileLock(dataDir)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire index lock (another 'caselaw index' running?): %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	if force {
		if err := clearIndexData(dataDir); err != nil {
			return fmt.Errorf("clear existing index: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared existing index data, starting fresh...")
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(noTUI), ui.WithProjectDir(root)))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	start := time.Now()
	var timings ui.StageTimings

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "scanning decisions export"})
	scanStart := time.Now()
	decisions, err := ingest.ReadDecisionsDir(absExportDir)
	timings.Scan = time.Since(scanStart)
	if err != nil {
		return fmt.Errorf("read decisions export: %w", err)
	}
	if len(decisions) == 0 {
		return fmt.Errorf("no decisions found in %s", absExportDir)
	}
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage: ui.StageScanning, Current: len(decisions), Total: len(decisions),
		Message: fmt.Sprintf("%d decisions found", len(decisions)),
	})

	embedCtx, embedCancel := context.WithTimeout(ctx, 15*time.Second)
	embedder, err := embed.NewEmbedder(embedCtx, embed.ParseProvider(cfg.Vector.Provider), cfg.Vector.Model)
	embedCancel()
	if err != nil {
		return fmt.Errorf("embedder initialization failed: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	decisionStore, err := store.NewSQLiteDecisionStore(filepath.Join(dataDir, "decisions.db"))
	if err != nil {
		return fmt.Errorf("open decision store: %w", err)
	}
	defer func() { _ = decisionStore.Close() }()

	graphStore, err := store.NewSQLiteGraphStore(filepath.Join(dataDir, "graph.db"))
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer func() { _ = graphStore.Close() }()

	backendName := cfg.Search.BM25Backend
	if backendName == "" {
		backendName = string(store.BM25BackendSQLite)
	}
	bm25Index, err := store.NewBM25IndexWithBackend(filepath.Join(dataDir, "bm25"), store.DefaultBM25Config(), backendName)
	if err != nil {
		return fmt.Errorf("open BM25 index: %w", err)
	}
	defer func() { _ = bm25Index.Close() }()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	vectorStore, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer func() { _ = vectorStore.Close() }()
	if _, statErr := os.Stat(vectorPath); statErr == nil && !force {
		if err := vectorStore.Load(vectorPath); err != nil {
			slog.Warn("could not load existing vector index, rebuilding", slog.String("error", err.Error()))
		}
	}

	engine, err := search.NewEngine(bm25Index, vectorStore, embedder, decisionStore, search.DefaultConfig(),
		search.WithGraphStore(graphStore))
	if err != nil {
		return fmt.Errorf("create search engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Message: fmt.Sprintf("embedding %d decisions", len(decisions))})
	embedStart := time.Now()
	if err := engine.Index(ctx, decisions); err != nil {
		return fmt.Errorf("index decisions: %w", err)
	}
	timings.Embed = time.Since(embedStart)

	if err := vectorStore.Save(vectorPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	if err := bm25Index.Save(""); err != nil {
		slog.Warn("BM25 checkpoint failed", slog.String("error", err.Error()))
	}

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Message: "building citation graph"})
	indexStart := time.Now()

	docketIndex := ingest.BuildDocketIndex(decisions)
	var statuteRefs []*store.StatuteReference
	var citations []*store.CitationReference
	for _, d := range decisions {
		statuteRefs = append(statuteRefs, ingest.ExtractStatuteReferences(d)...)
		citations = append(citations, ingest.ExtractCitations(d, docketIndex)...)
	}

	if len(statuteRefs) > 0 {
		if err := decisionStore.SaveStatuteReferences(ctx, statuteRefs); err != nil {
			return fmt.Errorf("save statute references: %w", err)
		}
	}
	if len(citations) > 0 {
		if err := graphStore.SaveCitations(ctx, citations); err != nil {
			return fmt.Errorf("save citations: %w", err)
		}
	}
	timings.Index = time.Since(indexStart)

	embedderInfo := embed.GetInfo(ctx, embedder)
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageComplete})
	renderer.Complete(ui.CompletionStats{
		Files:    len(decisions),
		Chunks:   len(statuteRefs) + len(citations),
		Duration: time.Since(start),
		Stages:   timings,
		Embedder: ui.EmbedderInfo{
			Backend:    string(embedderInfo.Provider),
			Model:      embedderInfo.Model,
			Dimensions: embedderInfo.Dimensions,
		},
	})

	slog.Info("index build complete",
		slog.Int("decisions", len(decisions)),
		slog.Int("statute_refs", len(statuteRefs)),
		slog.Int("citations", len(citations)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// clearIndexData removes on-disk index artifacts for --force, leaving
// .caselaw.yaml (which lives at the project root, not in dataDir)
// untouched.
func clearIndexData(dataDir string) error {
	indexFiles := []string{
		filepath.Join(dataDir, "decisions.db"),
		filepath.Join(dataDir, "decisions.db-wal"),
		filepath.Join(dataDir, "decisions.db-shm"),
		filepath.Join(dataDir, "graph.db"),
		filepath.Join(dataDir, "graph.db-wal"),
		filepath.Join(dataDir, "graph.db-shm"),
		filepath.Join(dataDir, "bm25.db"),
		filepath.Join(dataDir, "bm25.db-wal"),
		filepath.Join(dataDir, "bm25.db-shm"),
		filepath.Join(dataDir, "bm25.bleve"),
		filepath.Join(dataDir, "vectors.hnsw"),
	}

	for _, path := range indexFiles {
		if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
		}
	}

	return nil
}
