package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/facade"
	"github.com/swiss-caselaw/caselawmcp/internal/logging"
	"github.com/swiss-caselaw/caselawmcp/internal/mcp"
	"github.com/swiss-caselaw/caselawmcp/internal/search"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/swiss-caselaw/caselawmcp/internal/telemetry"
	"github.com/swiss-caselaw/caselawmcp/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		debug     bool
		session   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server, exposing hybrid search
(search) and the analytics facade (get_decision, find_citations,
find_appeal_chain, find_leading_cases, analyze_legal_trend, get_law,
search_laws) to MCP clients such as Claude Code over stdio.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if debug {
				if cleanup, err := logging.SetupMCPModeWithLevel("debug"); err == nil {
					defer cleanup()
				}
			} else if cleanup, err := logging.SetupMCPMode(); err == nil {
				defer cleanup()
			}

			if transport == "stdio" {
				if err := verifyStdinForMCP(); err != nil {
					slog.Warn("stdin validation failed", slog.String("error", err.Error()))
				}
			}

			if session != "" {
				return runServeWithSession(ctx, transport, session)
			}
			return runServe(ctx, transport, 0)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio (default) or sse")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug-level MCP logging")
	cmd.Flags().StringVar(&session, "session", "", "Tag this server instance with a session name (for log correlation)")

	return cmd
}

// runServeWithSession runs the server tagged with a session name, used
// for log correlation when multiple caselaw instances run concurrently
// against different corpora.
func runServeWithSession(ctx context.Context, transport, session string) error {
	slog.Info("starting MCP server", slog.String("session", session))
	return runServe(ctx, transport, 0)
}

// runServe wires the on-disk indexes into a search engine and analytics
// facade and serves them over MCP. port is reserved for the sse
// transport, not yet implemented.
func runServe(ctx context.Context, transport string, port int) error {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	dataDir := filepath.Join(root, ".caselaw")

	decisionsPath := filepath.Join(dataDir, "decisions.db")
	if !fileExists(decisionsPath) {
		return fmt.Errorf("no index found in %s\nRun 'caselaw index <decisions-export-dir>' to create one", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	decisionStore, err := store.NewSQLiteDecisionStore(decisionsPath)
	if err != nil {
		return fmt.Errorf("open decision store: %w", err)
	}
	defer func() { _ = decisionStore.Close() }()

	graphStore, err := store.NewSQLiteGraphStore(filepath.Join(dataDir, "graph.db"))
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer func() { _ = graphStore.Close() }()

	statutesStore, err := store.NewSQLiteStatutesStore(filepath.Join(dataDir, "statutes.db"))
	if err != nil {
		return fmt.Errorf("open statutes store: %w", err)
	}
	defer func() { _ = statutesStore.Close() }()

	backendName := cfg.Search.BM25Backend
	if backendName == "" {
		backendName = string(store.BM25BackendSQLite)
	}
	bm25Index, err := store.NewBM25IndexWithBackend(filepath.Join(dataDir, "bm25"), store.DefaultBM25Config(), backendName)
	if err != nil {
		return fmt.Errorf("open BM25 index: %w", err)
	}
	defer func() { _ = bm25Index.Close() }()

	embedCtx, embedCancel := context.WithTimeout(ctx, 15*time.Second)
	embedder, err := embed.NewEmbedder(embedCtx, embed.ParseProvider(cfg.Vector.Provider), cfg.Vector.Model)
	embedCancel()
	if err != nil {
		return fmt.Errorf("embedder initialization failed: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	vectorStore, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer func() { _ = vectorStore.Close() }()
	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	if fileExists(vectorPath) {
		if err := vectorStore.Load(vectorPath); err != nil {
			slog.Warn("could not load vector index, serving BM25-only", slog.String("error", err.Error()))
		}
	}

	engine, err := search.NewEngine(bm25Index, vectorStore, embedder, decisionStore, search.DefaultConfig(),
		search.WithGraphStore(graphStore))
	if err != nil {
		return fmt.Errorf("create search engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	fac := facade.New(decisionStore, graphStore, statutesStore, bm25Index)

	srv, err := mcp.NewServer(engine, fac, embedder, cfg, dataDir)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	if metricsStore, cleanup, err := openTelemetryStore(dataDir); err != nil {
		slog.Warn("query telemetry disabled", slog.String("error", err.Error()))
	} else {
		defer cleanup()
		srv.SetMetrics(telemetry.NewQueryMetrics(metricsStore))
	}

	stopWatcher := startDecisionsWatcher(ctx, root)
	defer stopWatcher()

	return srv.Serve(ctx, transport, fmt.Sprintf(":%d", port))
}

// openTelemetryStore opens (creating if needed) the dedicated telemetry
// database backing the server's query_metrics resource.
func openTelemetryStore(dataDir string) (*telemetry.SQLiteMetricsStore, func(), error) {
	telemetryPath := filepath.Join(dataDir, "telemetry.db")
	db, err := sql.Open("sqlite", telemetryPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry store: %w", err)
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init telemetry schema: %w", err)
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open metrics store: %w", err)
	}
	return metricsStore, func() { _ = db.Close() }, nil
}

// startDecisionsWatcher watches the project root for a refreshed
// decisions export and logs a reminder to reindex; it never blocks
// server startup, since the MCP handshake must complete within the
// client's connect timeout regardless of filesystem responsiveness.
// CASELAW_WATCHER_STARTUP_TIMEOUT overrides how long Start is given to
// come up before the watcher is abandoned.
func startDecisionsWatcher(ctx context.Context, root string) func() {
	startupTimeout := 2 * time.Second
	if v := os.Getenv("CASELAW_WATCHER_STARTUP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			startupTimeout = d
		}
	}

	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		slog.Warn("decisions watcher unavailable", slog.String("error", err.Error()))
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if err := w.Start(startCtx, root); err != nil {
			slog.Warn("decisions watcher failed to start", slog.String("error", err.Error()))
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case events, ok := <-w.Events():
				if !ok {
					return
				}
				slog.Info("decisions export changed, reindex recommended",
					slog.Int("changed_files", len(events)))
			}
		}
	}()

	return func() {
		_ = w.Stop()
		<-done
	}
}

// verifyStdinForMCP warns when stdin looks like an interactive terminal
// rather than a client's pipe, since an MCP client always connects over
// a pipe and a terminal means the user likely ran 'caselaw serve'
// directly instead of through their AI tool's MCP configuration.
func verifyStdinForMCP() error {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return fmt.Errorf("stat stdin: %w", err)
	}
	if fi.Mode()&os.ModeCharDevice != 0 {
		return fmt.Errorf("stdin is a terminal, not a pipe - caselaw serve expects to be launched by an MCP client")
	}
	return nil
}
