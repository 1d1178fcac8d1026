package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/embed"
	"github.com/swiss-caselaw/caselawmcp/internal/facade"
	"github.com/swiss-caselaw/caselawmcp/internal/search"
	"github.com/swiss-caselaw/caselawmcp/internal/telemetry"
	"github.com/swiss-caselaw/caselawmcp/pkg/version"
)

// Server is the MCP server for Caselaw.
// It bridges AI clients (Claude Code, Cursor, legal research tools) with
// the hybrid search engine and the analytics facade (get_decision,
// find_citations, find_appeal_chain, find_leading_cases,
// analyze_legal_trend, get_law, search_laws).
type Server struct {
	mcp      *mcp.Server
	engine   search.SearchEngine
	facade   *facade.Facade
	embedder embed.Embedder // Embedder for capability signaling
	config   *config.Config
	logger   *slog.Logger

	corpusRoot string

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent contains the content of a resource.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// NewServer creates a new MCP server over a search engine and analytics
// facade. The embedder parameter is used for capability signaling - AI
// clients can query the actual embedder state to adjust their search
// strategies. corpusRoot identifies the data directory backing the
// loaded stores, surfaced via corpus_status.
func NewServer(engine search.SearchEngine, fac *facade.Facade, embedder embed.Embedder, cfg *config.Config, corpusRoot string) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if fac == nil {
		return nil, errors.New("analytics facade is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:     engine,
		facade:     fac,
		embedder:   embedder, // May be nil - will report as unavailable
		config:     cfg,
		corpusRoot: corpusRoot,
		logger:     slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "Caselaw",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools/resources
	)

	s.registerTools()

	return s, nil
}

// SetMetrics sets the query metrics collector for telemetry.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "Caselaw", version.Version
}

// Capabilities returns whether tools and resources are enabled.
func (s *Server) Capabilities() (hasTools, hasResources bool) {
	return true, true
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "search", Description: "Hybrid search over the Swiss caselaw corpus. Combines BM25 keyword search, dense-vector semantic search, and learned-sparse retrieval with Reciprocal Rank Fusion and citation-graph signals. Resolves docket-shaped queries directly."},
		{Name: "get_decision", Description: "Fetch a single decision by canonical decision_id, exact docket number, or partial docket number."},
		{Name: "find_citations", Description: "List the decisions a given decision cites (outgoing) and/or is cited by (incoming), with extraction confidence."},
		{Name: "find_appeal_chain", Description: "Walk the prior-instance/subsequent-instance citation chain for a decision to reconstruct its full appeal history."},
		{Name: "find_leading_cases", Description: "Rank decisions by incoming citation count, optionally scoped to a statute article or a full-text query."},
		{Name: "analyze_legal_trend", Description: "Chart year-by-year decision counts for a statute article and/or a full-text query."},
		{Name: "get_law", Description: "Look up a Fedlex law by SR number or abbreviation, and optionally a specific article, in German/French/Italian."},
		{Name: "search_laws", Description: "Full-text search over Fedlex statute article text, with a highlighted excerpt per hit."},
		{Name: "corpus_status", Description: "Report decision/vector/BM25/graph/statutes store availability and the active embedder."},
	}
}

// CallTool invokes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case "search":
		return s.handleSearchTool(ctx, args)
	case "get_decision":
		return s.handleGetDecisionTool(ctx, args)
	case "find_citations":
		return s.handleFindCitationsTool(ctx, args)
	case "find_appeal_chain":
		return s.handleFindAppealChainTool(ctx, args)
	case "find_leading_cases":
		return s.handleFindLeadingCasesTool(ctx, args)
	case "analyze_legal_trend":
		return s.handleAnalyzeLegalTrendTool(ctx, args)
	case "get_law":
		return s.handleGetLawTool(ctx, args)
	case "search_laws":
		return s.handleSearchLawsTool(ctx, args)
	case "corpus_status":
		return s.handleCorpusStatusTool(ctx, args)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]any, key string) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return 0
}

func argInt(args map[string]any, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

func argBool(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// handleSearchTool handles the search tool invocation, returning markdown.
func (s *Server) handleSearchTool(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	query := argString(args, "query")
	if strings.TrimSpace(query) == "" {
		return "", NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	limit := clampLimit(argInt(args, "limit"), 10, 1, 200)

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	opts := search.SearchOptions{
		Limit:          limit,
		Court:          argString(args, "court"),
		Canton:         argString(args, "canton"),
		Language:       argString(args, "language"),
		DateFrom:       argString(args, "date_from"),
		DateTo:         argString(args, "date_to"),
		StatuteLawCode: argString(args, "statute_law_code"),
		StatuteArticle: argString(args, "statute_article"),
		Sort:           argString(args, "sort"),
		BM25Only:       argBool(args, "bm25_only"),
		Explain:        argBool(args, "explain"),
	}

	results, err := s.engine.Search(ctx, query, opts)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	return FormatSearchResults(query, results), nil
}

func (s *Server) handleGetDecisionTool(ctx context.Context, args map[string]any) (*GetDecisionOutput, error) {
	id := argString(args, "id")
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidParamsError("id parameter is required")
	}

	d, err := s.facade.GetDecision(ctx, id)
	if err != nil {
		return nil, MapError(err)
	}

	return &GetDecisionOutput{
		Decision: DecisionOutput{
			DecisionID:   d.DecisionID,
			Court:        d.Court,
			Canton:       d.Canton,
			DocketNumber: d.DocketNumber,
			Language:     d.Language,
			Title:        d.Title,
			Regeste:      d.Regeste,
			DecisionDate: d.DecisionDate,
			URL:          d.URL,
		},
		FullText: d.FullText,
	}, nil
}

func (s *Server) handleFindCitationsTool(ctx context.Context, args map[string]any) (*FindCitationsOutput, error) {
	decisionID := argString(args, "decision_id")
	if strings.TrimSpace(decisionID) == "" {
		return nil, NewInvalidParamsError("decision_id parameter is required")
	}

	res, err := s.facade.FindCitations(ctx, decisionID, argString(args, "direction"), argFloat(args, "min_confidence"), argInt(args, "limit"))
	if err != nil {
		return nil, MapError(err)
	}

	out := &FindCitationsOutput{DecisionID: res.DecisionID, Direction: res.Direction}
	for _, e := range res.Outgoing {
		out.Outgoing = append(out.Outgoing, CitationEdgeOutput(e))
	}
	for _, e := range res.Incoming {
		out.Incoming = append(out.Incoming, CitationEdgeOutput(e))
	}
	return out, nil
}

func (s *Server) handleFindAppealChainTool(ctx context.Context, args map[string]any) (*FindAppealChainOutput, error) {
	decisionID := argString(args, "decision_id")
	if strings.TrimSpace(decisionID) == "" {
		return nil, NewInvalidParamsError("decision_id parameter is required")
	}

	res, err := s.facade.FindAppealChain(ctx, decisionID, argFloat(args, "min_confidence"))
	if err != nil {
		return nil, MapError(err)
	}

	out := &FindAppealChainOutput{
		DecisionID:   res.DecisionID,
		DocketNumber: res.DocketNumber,
		Court:        res.Court,
		DecisionDate: res.DecisionDate,
	}
	for _, n := range res.Chain {
		out.Chain = append(out.Chain, AppealChainNodeOutput(n))
	}
	return out, nil
}

func (s *Server) handleFindLeadingCasesTool(ctx context.Context, args map[string]any) (*FindLeadingCasesOutput, error) {
	limit := clampLimit(argInt(args, "limit"), 10, 1, 100)

	res, err := s.facade.FindLeadingCases(ctx,
		argString(args, "query"),
		argString(args, "statute_law_code"),
		argString(args, "statute_article"),
		argString(args, "court"),
		argString(args, "date_from"),
		argString(args, "date_to"),
		limit)
	if err != nil {
		return nil, MapError(err)
	}

	out := &FindLeadingCasesOutput{Query: res.Query, LawCode: res.LawCode, Article: res.Article}
	for _, r := range res.Results {
		out.Results = append(out.Results, LeadingCaseOutput{
			Decision: DecisionOutput{
				DecisionID:   r.Decision.DecisionID,
				Court:        r.Decision.Court,
				Canton:       r.Decision.Canton,
				DocketNumber: r.Decision.DocketNumber,
				Language:     r.Decision.Language,
				Title:        r.Decision.Title,
				Regeste:      r.Decision.Regeste,
				DecisionDate: r.Decision.DecisionDate,
				URL:          r.Decision.URL,
			},
			CitationCount: r.CitationCount,
		})
	}
	return out, nil
}

func (s *Server) handleAnalyzeLegalTrendTool(ctx context.Context, args map[string]any) (*AnalyzeLegalTrendOutput, error) {
	res, err := s.facade.AnalyzeLegalTrend(ctx,
		argString(args, "query"),
		argString(args, "statute_law_code"),
		argString(args, "statute_article"),
		argString(args, "court"),
		argString(args, "date_from"),
		argString(args, "date_to"))
	if err != nil {
		return nil, MapError(err)
	}

	out := &AnalyzeLegalTrendOutput{LawCode: res.LawCode, Article: res.Article, Query: res.Query, Total: res.Total}
	for _, y := range res.Years {
		out.Years = append(out.Years, YearCountOutput(y))
	}
	return out, nil
}

func (s *Server) handleGetLawTool(ctx context.Context, args map[string]any) (*GetLawOutput, error) {
	res, err := s.facade.GetLaw(ctx, argString(args, "sr_number"), argString(args, "abbreviation"), argString(args, "article"), argString(args, "language"))
	if err != nil {
		return nil, MapError(err)
	}

	out := &GetLawOutput{
		SRNumber:          res.SRNumber,
		Title:             res.Title,
		Abbreviation:      res.Abbreviation,
		ConsolidationDate: res.ConsolidationDate,
		ArticleCount:      res.ArticleCount,
	}
	for _, a := range res.Articles {
		out.Articles = append(out.Articles, ArticleOutput{ArticleNum: a.ArticleNum, Heading: a.Heading, Text: a.Text})
	}
	return out, nil
}

func (s *Server) handleSearchLawsTool(ctx context.Context, args map[string]any) (*SearchLawsOutput, error) {
	query := argString(args, "query")
	if strings.TrimSpace(query) == "" {
		return nil, NewInvalidParamsError("query parameter is required")
	}

	limit := clampLimit(argInt(args, "limit"), 10, 1, 50)
	res, err := s.facade.SearchLaws(ctx, query, argString(args, "sr_number"), argString(args, "language"), limit)
	if err != nil {
		return nil, MapError(err)
	}

	out := &SearchLawsOutput{Query: res.Query}
	for _, h := range res.Results {
		out.Results = append(out.Results, ArticleHitOutput(h))
	}
	return out, nil
}

// handleCorpusStatusTool reports store/embedder availability.
func (s *Server) handleCorpusStatusTool(ctx context.Context, _ map[string]any) (*CorpusStatusOutput, error) {
	stats := s.engine.Stats()

	out := &CorpusStatusOutput{
		GraphAvailable:    s.facade.Graph != nil,
		StatutesAvailable: s.facade.Statutes != nil,
		BM25Available:     s.facade.BM25 != nil,
		EmbedderProvider:  s.config.Vector.Provider,
		EmbedderModel:     s.config.Vector.Model,
	}

	if stats != nil {
		if stats.BM25Stats != nil {
			out.DecisionCount = stats.BM25Stats.DocumentCount
		}
		out.VectorCount = stats.VectorCount
	}

	if s.embedder != nil {
		out.EmbedderModel = s.embedder.ModelName()
		out.Dimensions = s.embedder.Dimensions()
		out.EmbedderReady = s.embedder.Available(ctx)
	}

	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid search over the Swiss caselaw corpus. Combines BM25 keyword search, dense-vector semantic search, and learned-sparse retrieval with Reciprocal Rank Fusion and citation-graph signals. Resolves docket-shaped queries directly.",
	}, s.mcpSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_decision",
		Description: "Fetch a single decision by canonical decision_id, exact docket number, or partial docket number.",
	}, s.mcpGetDecisionHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_citations",
		Description: "List the decisions a given decision cites (outgoing) and/or is cited by (incoming), with extraction confidence.",
	}, s.mcpFindCitationsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_appeal_chain",
		Description: "Walk the prior-instance/subsequent-instance citation chain for a decision to reconstruct its full appeal history.",
	}, s.mcpFindAppealChainHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_leading_cases",
		Description: "Rank decisions by incoming citation count, optionally scoped to a statute article or a full-text query.",
	}, s.mcpFindLeadingCasesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_legal_trend",
		Description: "Chart year-by-year decision counts for a statute article and/or a full-text query.",
	}, s.mcpAnalyzeLegalTrendHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_law",
		Description: "Look up a Fedlex law by SR number or abbreviation, and optionally a specific article, in German/French/Italian.",
	}, s.mcpGetLawHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_laws",
		Description: "Full-text search over Fedlex statute article text, with a highlighted excerpt per hit.",
	}, s.mcpSearchLawsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "corpus_status",
		Description: "Report decision/vector/BM25/graph/statutes store availability and the active embedder.",
	}, s.mcpCorpusStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 9))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.SearchOptions{
		Limit:          clampLimit(input.Limit, 10, 1, 200),
		Court:          input.Court,
		Canton:         input.Canton,
		Language:       input.Language,
		DateFrom:       input.DateFrom,
		DateTo:         input.DateTo,
		StatuteLawCode: input.StatuteLawCode,
		StatuteArticle: input.StatuteArticle,
		Sort:           input.Sort,
		BM25Only:       input.BM25Only,
		Explain:        input.Explain,
	}

	results, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		if r.Decision != nil {
			output.Results = append(output.Results, ToSearchResultOutput(r))
		}
	}
	return nil, output, nil
}

func (s *Server) mcpGetDecisionHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetDecisionInput) (*mcp.CallToolResult, GetDecisionOutput, error) {
	out, err := s.handleGetDecisionTool(ctx, map[string]any{"id": input.ID})
	if err != nil {
		return nil, GetDecisionOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpFindCitationsHandler(ctx context.Context, _ *mcp.CallToolRequest, input FindCitationsInput) (*mcp.CallToolResult, FindCitationsOutput, error) {
	out, err := s.handleFindCitationsTool(ctx, map[string]any{
		"decision_id":    input.DecisionID,
		"direction":      input.Direction,
		"min_confidence": input.MinConfidence,
		"limit":          float64(input.Limit),
	})
	if err != nil {
		return nil, FindCitationsOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpFindAppealChainHandler(ctx context.Context, _ *mcp.CallToolRequest, input FindAppealChainInput) (*mcp.CallToolResult, FindAppealChainOutput, error) {
	out, err := s.handleFindAppealChainTool(ctx, map[string]any{
		"decision_id":    input.DecisionID,
		"min_confidence": input.MinConfidence,
	})
	if err != nil {
		return nil, FindAppealChainOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpFindLeadingCasesHandler(ctx context.Context, _ *mcp.CallToolRequest, input FindLeadingCasesInput) (*mcp.CallToolResult, FindLeadingCasesOutput, error) {
	out, err := s.handleFindLeadingCasesTool(ctx, map[string]any{
		"query":            input.Query,
		"statute_law_code": input.StatuteLawCode,
		"statute_article":  input.StatuteArticle,
		"court":            input.Court,
		"date_from":        input.DateFrom,
		"date_to":          input.DateTo,
		"limit":            float64(input.Limit),
	})
	if err != nil {
		return nil, FindLeadingCasesOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpAnalyzeLegalTrendHandler(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeLegalTrendInput) (*mcp.CallToolResult, AnalyzeLegalTrendOutput, error) {
	out, err := s.handleAnalyzeLegalTrendTool(ctx, map[string]any{
		"query":            input.Query,
		"statute_law_code": input.StatuteLawCode,
		"statute_article":  input.StatuteArticle,
		"court":            input.Court,
		"date_from":        input.DateFrom,
		"date_to":          input.DateTo,
	})
	if err != nil {
		return nil, AnalyzeLegalTrendOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpGetLawHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetLawInput) (*mcp.CallToolResult, GetLawOutput, error) {
	out, err := s.handleGetLawTool(ctx, map[string]any{
		"sr_number":    input.SRNumber,
		"abbreviation": input.Abbreviation,
		"article":      input.Article,
		"language":     input.Language,
	})
	if err != nil {
		return nil, GetLawOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpSearchLawsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchLawsInput) (*mcp.CallToolResult, SearchLawsOutput, error) {
	out, err := s.handleSearchLawsTool(ctx, map[string]any{
		"query":     input.Query,
		"sr_number": input.SRNumber,
		"language":  input.Language,
		"limit":     float64(input.Limit),
	})
	if err != nil {
		return nil, SearchLawsOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpCorpusStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ CorpusStatusInput) (*mcp.CallToolResult, CorpusStatusOutput, error) {
	out, err := s.handleCorpusStatusTool(ctx, nil)
	if err != nil {
		return nil, CorpusStatusOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ListResources returns all available resources. Individual decisions
// are addressable via ReadResource's decision:// scheme but are not
// enumerated here - the corpus is too large to list in one page.
func (s *Server) ListResources(ctx context.Context, cursor string) ([]ResourceInfo, string, error) {
	return nil, "", nil
}

// ReadResource reads a resource by URI. Supports decision://<id>,
// resolved through the same fallback chain as get_decision.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !strings.HasPrefix(uri, "decision://") {
		return nil, NewResourceNotFoundError(uri)
	}
	id := strings.TrimPrefix(uri, "decision://")

	d, err := s.facade.GetDecision(ctx, id)
	if err != nil {
		return nil, NewResourceNotFoundError(uri)
	}

	content, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &ResourceContent{
		URI:      uri,
		Content:  string(content),
		MIMEType: "application/json",
	}, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case "stdio":
		s.logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	case "sse":
		return fmt.Errorf("SSE transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	// The MCP server doesn't have a Close method - it stops when context is canceled.
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
