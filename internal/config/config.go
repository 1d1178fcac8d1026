package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete caselaw engine configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Corpus      CorpusConfig      `yaml:"corpus" json:"corpus"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Vector      VectorConfig      `yaml:"vector" json:"vector"`
	Rerank      RerankConfig      `yaml:"rerank" json:"rerank"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Sessions    SessionsConfig    `yaml:"sessions" json:"sessions"`
	Compaction  CompactionConfig  `yaml:"compaction" json:"compaction"`
}

// CorpusConfig locates the backing stores for decisions, statutes, and
// the citation reference graph. Any of these may be empty — the engine
// degrades gracefully (C1, C8) when a store is not deployed.
type CorpusConfig struct {
	// DecisionsDB is the path to the SQLite database holding decisions
	// and the decisions_fts full-text index.
	DecisionsDB string `yaml:"decisions_db" json:"decisions_db"`
	// StatutesDB is the path to the Fedlex-derived statutes database
	// (laws/articles/articles_fts). Optional.
	StatutesDB string `yaml:"statutes_db" json:"statutes_db"`
	// GraphDB is the path to the citation reference graph database
	// (citation_targets/decision_statutes). Optional.
	GraphDB string `yaml:"graph_db" json:"graph_db"`
	// VectorIndexPath is the path to the persisted HNSW vector index.
	VectorIndexPath string `yaml:"vector_index_path" json:"vector_index_path"`
}

// SearchConfig configures hybrid search parameters.
// Weights and RRF constant are configurable via:
//  1. User config (~/.config/caselaw/config.yaml) - personal defaults
//  2. Project config (.caselaw.yaml) - per-deployment tuning
//  3. Env vars (CASELAW_BM25_WEIGHT, CASELAW_SEMANTIC_WEIGHT, CASELAW_RRF_CONSTANT) - highest precedence
type SearchConfig struct {
	// BM25Weight is the weight for lexical (FTS) matching (0.0-1.0).
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`
	// SemanticWeight is the weight for dense-vector similarity (0.0-1.0).
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	// SparseWeight is the RRF contribution weight for the learned-sparse
	// retrieval channel.
	SparseWeight float64 `yaml:"sparse_weight" json:"sparse_weight"`

	// RRFConstant is the RRF fusion smoothing parameter (k). Default: 60.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// BM25Backend selects the lexical index backend.
	// Options: "sqlite" (default, concurrent multi-process access via
	// FTS5/WAL) or "bleve" (single-process, in-process scoring).
	BM25Backend string `yaml:"bm25_backend" json:"bm25_backend"`

	// MinCandidatePool and TargetPoolMultiplier govern how many
	// candidates the strategy planner tries to assemble before
	// reranking (C3).
	MinCandidatePool     int `yaml:"min_candidate_pool" json:"min_candidate_pool"`
	DocketMinCandidatePool int `yaml:"docket_min_candidate_pool" json:"docket_min_candidate_pool"`
	TargetPoolMultiplier int `yaml:"target_pool_multiplier" json:"target_pool_multiplier"`
	MaxRerankCandidates  int `yaml:"max_rerank_candidates" json:"max_rerank_candidates"`

	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`
	FilterMaxLimit int `yaml:"filter_max_limit" json:"filter_max_limit"`

	MaxSnippetLen int `yaml:"max_snippet_len" json:"max_snippet_len"`
}

// VectorConfig configures the dense-vector (HNSW) retrieval channel.
type VectorConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`

	// M and EfConstruction/EfSearch are coder/hnsw graph parameters.
	M              int `yaml:"m" json:"m"`
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	EfSearch       int `yaml:"ef_search" json:"ef_search"`

	K int `yaml:"k" json:"k"` // candidates fetched per KNN query

	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// RerankConfig configures the C6 reranker, incl. the optional
// cross-encoder boost stage.
type RerankConfig struct {
	CrossEncoderEnabled bool    `yaml:"cross_encoder_enabled" json:"cross_encoder_enabled"`
	CrossEncoderModel   string  `yaml:"cross_encoder_model" json:"cross_encoder_model"`
	CrossEncoderTopN    int     `yaml:"cross_encoder_top_n" json:"cross_encoder_top_n"`
	CrossEncoderWeight  float64 `yaml:"cross_encoder_weight" json:"cross_encoder_weight"`

	VectorSignalWeight float64 `yaml:"vector_signal_weight" json:"vector_signal_weight"`
	SparseSignalWeight float64 `yaml:"sparse_signal_weight" json:"sparse_signal_weight"`

	FullTextRerankChars  int `yaml:"full_text_rerank_chars" json:"full_text_rerank_chars"`
	PassageSentenceWindow int `yaml:"passage_sentence_window" json:"passage_sentence_window"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	IndexWorkers  int    `yaml:"index_workers" json:"index_workers"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	MemoryLimit   string `yaml:"memory_limit" json:"memory_limit"`
	SQLiteCacheMB int    `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// SessionsConfig configures analyst session management (recent queries,
// saved searches for a research session).
type SessionsConfig struct {
	StoragePath string `yaml:"storage_path" json:"storage_path"`
	AutoSave    bool   `yaml:"auto_save" json:"auto_save"`
	MaxSessions int    `yaml:"max_sessions" json:"max_sessions"`
}

// CompactionConfig configures automatic background compaction of the
// HNSW vector index as decisions are added/removed.
type CompactionConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	OrphanThreshold float64 `yaml:"orphan_threshold" json:"orphan_threshold"`
	MinOrphanCount  int     `yaml:"min_orphan_count" json:"min_orphan_count"`
	IdleTimeout     string  `yaml:"idle_timeout" json:"idle_timeout"`
	Cooldown        string  `yaml:"cooldown" json:"cooldown"`
}

// NewConfig creates a new Config with sensible defaults, grounded in the
// constants observed in the original retrieval implementation.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			DecisionsDB: "decisions.db",
		},
		Search: SearchConfig{
			BM25Weight:     0.35,
			SemanticWeight: 0.65,
			SparseWeight:   1.2,
			RRFConstant:    60,
			BM25Backend:    "sqlite",

			MinCandidatePool:       60,
			DocketMinCandidatePool: 80,
			TargetPoolMultiplier:   4,
			MaxRerankCandidates:    2500,

			DefaultLimit:   50,
			MaxLimit:       2000,
			FilterMaxLimit: 10000,

			MaxSnippetLen: 500,
		},
		Vector: VectorConfig{
			Provider:       "",
			Model:          "",
			Dimensions:     0,
			M:              32,
			EfConstruction: 128,
			EfSearch:       64,
			K:              50,
			OllamaHost:     "",
		},
		Rerank: RerankConfig{
			CrossEncoderEnabled:   false,
			CrossEncoderModel:     "cross-encoder/mmarco-mMiniLMv2-L12-H384-v1",
			CrossEncoderTopN:      30,
			CrossEncoderWeight:    1.4,
			VectorSignalWeight:    3.0,
			SparseSignalWeight:    2.5,
			FullTextRerankChars:   1400,
			PassageSentenceWindow: 4,
		},
		Performance: PerformanceConfig{
			IndexWorkers:  runtime.NumCPU(),
			CacheSize:     10000,
			MemoryLimit:   "auto",
			SQLiteCacheMB: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
		Sessions: SessionsConfig{
			StoragePath: defaultSessionsPath(),
			AutoSave:    true,
			MaxSessions: 20,
		},
		Compaction: CompactionConfig{
			Enabled:         true,
			OrphanThreshold: 0.2,
			MinOrphanCount:  100,
			IdleTimeout:     "30s",
			Cooldown:        "1h",
		},
	}
}

// defaultSessionsPath returns the default sessions storage path.
func defaultSessionsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".caselaw", "sessions")
	}
	return filepath.Join(home, ".caselaw", "sessions")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/caselaw/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/caselaw/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "caselaw", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "caselaw", "config.yaml")
	}
	return filepath.Join(home, ".config", "caselaw", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/caselaw/config.yaml)
//  3. Deployment config (.caselaw.yaml in the given directory)
//  4. Environment variables (CASELAW_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .caselaw.yaml or .caselaw.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".caselaw.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".caselaw.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Corpus.DecisionsDB != "" {
		c.Corpus.DecisionsDB = other.Corpus.DecisionsDB
	}
	if other.Corpus.StatutesDB != "" {
		c.Corpus.StatutesDB = other.Corpus.StatutesDB
	}
	if other.Corpus.GraphDB != "" {
		c.Corpus.GraphDB = other.Corpus.GraphDB
	}
	if other.Corpus.VectorIndexPath != "" {
		c.Corpus.VectorIndexPath = other.Corpus.VectorIndexPath
	}

	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.SparseWeight != 0 {
		c.Search.SparseWeight = other.Search.SparseWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.BM25Backend != "" {
		c.Search.BM25Backend = other.Search.BM25Backend
	}
	if other.Search.MinCandidatePool != 0 {
		c.Search.MinCandidatePool = other.Search.MinCandidatePool
	}
	if other.Search.DocketMinCandidatePool != 0 {
		c.Search.DocketMinCandidatePool = other.Search.DocketMinCandidatePool
	}
	if other.Search.TargetPoolMultiplier != 0 {
		c.Search.TargetPoolMultiplier = other.Search.TargetPoolMultiplier
	}
	if other.Search.MaxRerankCandidates != 0 {
		c.Search.MaxRerankCandidates = other.Search.MaxRerankCandidates
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.FilterMaxLimit != 0 {
		c.Search.FilterMaxLimit = other.Search.FilterMaxLimit
	}
	if other.Search.MaxSnippetLen != 0 {
		c.Search.MaxSnippetLen = other.Search.MaxSnippetLen
	}

	if other.Vector.Provider != "" {
		c.Vector.Provider = other.Vector.Provider
	}
	if other.Vector.Model != "" {
		c.Vector.Model = other.Vector.Model
	}
	if other.Vector.Dimensions != 0 {
		c.Vector.Dimensions = other.Vector.Dimensions
	}
	if other.Vector.M != 0 {
		c.Vector.M = other.Vector.M
	}
	if other.Vector.EfConstruction != 0 {
		c.Vector.EfConstruction = other.Vector.EfConstruction
	}
	if other.Vector.EfSearch != 0 {
		c.Vector.EfSearch = other.Vector.EfSearch
	}
	if other.Vector.K != 0 {
		c.Vector.K = other.Vector.K
	}
	if other.Vector.OllamaHost != "" {
		c.Vector.OllamaHost = other.Vector.OllamaHost
	}

	if other.Rerank.CrossEncoderEnabled {
		c.Rerank.CrossEncoderEnabled = other.Rerank.CrossEncoderEnabled
	}
	if other.Rerank.CrossEncoderModel != "" {
		c.Rerank.CrossEncoderModel = other.Rerank.CrossEncoderModel
	}
	if other.Rerank.CrossEncoderTopN != 0 {
		c.Rerank.CrossEncoderTopN = other.Rerank.CrossEncoderTopN
	}
	if other.Rerank.CrossEncoderWeight != 0 {
		c.Rerank.CrossEncoderWeight = other.Rerank.CrossEncoderWeight
	}
	if other.Rerank.VectorSignalWeight != 0 {
		c.Rerank.VectorSignalWeight = other.Rerank.VectorSignalWeight
	}
	if other.Rerank.SparseSignalWeight != 0 {
		c.Rerank.SparseSignalWeight = other.Rerank.SparseSignalWeight
	}
	if other.Rerank.FullTextRerankChars != 0 {
		c.Rerank.FullTextRerankChars = other.Rerank.FullTextRerankChars
	}
	if other.Rerank.PassageSentenceWindow != 0 {
		c.Rerank.PassageSentenceWindow = other.Rerank.PassageSentenceWindow
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}
	if other.Performance.MemoryLimit != "" {
		c.Performance.MemoryLimit = other.Performance.MemoryLimit
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Sessions.StoragePath != "" {
		c.Sessions.StoragePath = other.Sessions.StoragePath
		c.Sessions.AutoSave = other.Sessions.AutoSave
	}
	if other.Sessions.MaxSessions > 0 {
		c.Sessions.MaxSessions = other.Sessions.MaxSessions
	}

	if other.Compaction.OrphanThreshold != 0 || other.Compaction.MinOrphanCount != 0 ||
		other.Compaction.IdleTimeout != "" || other.Compaction.Cooldown != "" {
		c.Compaction.Enabled = other.Compaction.Enabled
	}
	if other.Compaction.OrphanThreshold != 0 {
		c.Compaction.OrphanThreshold = other.Compaction.OrphanThreshold
	}
	if other.Compaction.MinOrphanCount != 0 {
		c.Compaction.MinOrphanCount = other.Compaction.MinOrphanCount
	}
	if other.Compaction.IdleTimeout != "" {
		c.Compaction.IdleTimeout = other.Compaction.IdleTimeout
	}
	if other.Compaction.Cooldown != "" {
		c.Compaction.Cooldown = other.Compaction.Cooldown
	}
}

// applyEnvOverrides applies CASELAW_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CASELAW_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("CASELAW_SEMANTIC_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("CASELAW_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("CASELAW_DECISIONS_DB"); v != "" {
		c.Corpus.DecisionsDB = v
	}
	if v := os.Getenv("CASELAW_STATUTES_DB"); v != "" {
		c.Corpus.StatutesDB = v
	}
	if v := os.Getenv("CASELAW_GRAPH_DB"); v != "" {
		c.Corpus.GraphDB = v
	}
	if v := os.Getenv("CASELAW_VECTOR_PROVIDER"); v != "" {
		c.Vector.Provider = v
	}
	if v := os.Getenv("CASELAW_OLLAMA_HOST"); v != "" {
		c.Vector.OllamaHost = v
	}
	if v := os.Getenv("CASELAW_CROSS_ENCODER_ENABLED"); v != "" {
		c.Rerank.CrossEncoderEnabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("CASELAW_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CASELAW_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CASELAW_COMPACTION_ENABLED"); v != "" {
		c.Compaction.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("CASELAW_COMPACTION_ORPHAN_THRESHOLD"); v != "" {
		if t, err := parseFloat64(v); err == nil && t >= 0 && t <= 1 {
			c.Compaction.OrphanThreshold = t
		}
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FindProjectRoot finds the deployment root directory for a caselaw
// corpus by walking up from startDir looking for a `.git` directory or
// a `.caselaw.yaml`/`.caselaw.yml` file. Falls back to startDir itself
// (absolute) if neither is found before reaching the filesystem root.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".caselaw.yaml")) ||
			fileExists(filepath.Join(currentDir, ".caselaw.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}

	sum := c.Search.BM25Weight + c.Search.SemanticWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("bm25_weight + semantic_weight must equal 1.0, got %.2f", sum)
	}

	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("default_limit must be non-negative, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must be >= default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	if c.Vector.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Vector.Provider)] {
			return fmt.Errorf("vector.provider must be 'ollama', 'static', or empty (auto-detect), got %s", c.Vector.Provider)
		}
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Search.BM25Weight == 0 {
		c.Search.BM25Weight = defaults.Search.BM25Weight
		added = append(added, "search.bm25_weight")
	}
	if c.Search.SemanticWeight == 0 {
		c.Search.SemanticWeight = defaults.Search.SemanticWeight
		added = append(added, "search.semantic_weight")
	}
	if c.Search.RRFConstant == 0 {
		c.Search.RRFConstant = defaults.Search.RRFConstant
		added = append(added, "search.rrf_constant")
	}
	if c.Performance.SQLiteCacheMB == 0 {
		c.Performance.SQLiteCacheMB = defaults.Performance.SQLiteCacheMB
		added = append(added, "performance.sqlite_cache_mb")
	}
	if c.Sessions.StoragePath == "" {
		c.Sessions.StoragePath = defaults.Sessions.StoragePath
		added = append(added, "sessions.storage_path")
	}
	if c.Sessions.MaxSessions == 0 {
		c.Sessions.MaxSessions = defaults.Sessions.MaxSessions
		added = append(added, "sessions.max_sessions")
	}

	return added
}
