package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FormatBytes renders a byte count as a human-readable string, used by
// the `caselaw index info` command to report BM25/vector index sizes.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), units[exp])
}

// FormatTime renders a timestamp for display, with a placeholder for
// the zero value (e.g. an index that has never been built).
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}

// containsAny reports whether s contains any of substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// inferBackendFromModel guesses the embedding backend from a model name
// or path, used when config.yaml specifies a model without an explicit
// backend (C2 embedding config).
func inferBackendFromModel(model string) string {
	if model == "static" || strings.HasPrefix(model, "static") {
		return "static"
	}
	if filepath.IsAbs(model) || containsAny(model, []string{"mlx-community/", "mlx-"}) {
		return "mlx"
	}
	return "ollama"
}

// getDirSize returns the total size in bytes of all files under dir,
// recursively. Returns 0 if dir does not exist.
func getDirSize(dir string) int64 {
	var size int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort size accounting
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// getFileSize returns the size of a file in bytes, or 0 if it doesn't exist.
func getFileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// getFileModTime returns a file's modification time, or the zero time
// if it doesn't exist.
func getFileModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// GetIndexInfo summarizes the on-disk indexes under dataDir for the
// `caselaw index info` command: decision count, per-index storage
// sizes, and whether the stored index embedding dimension/model still
// matches the currently configured embedder (currentModel/
// currentDimensions), mirroring the dimension check Engine.Index runs
// before trusting the vector channel.
func GetIndexInfo(ctx context.Context, decisions DecisionStore, dataDir, currentModel string, currentDimensions int) (*IndexInfo, error) {
	count, err := decisions.CountDecisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}

	decisionsPath := filepath.Join(dataDir, "decisions.db")
	bm25Path := filepath.Join(dataDir, "bm25.db")
	bm25Size := getFileSize(bm25Path)
	if bm25Size == 0 {
		bm25Size = getDirSize(filepath.Join(dataDir, "bm25.bleve"))
	}
	vectorSize := getFileSize(filepath.Join(dataDir, "vectors.hnsw"))

	info := &IndexInfo{
		Location:          dataDir,
		DecisionCount:     count,
		IndexSizeBytes:    getFileSize(decisionsPath),
		BM25SizeBytes:     bm25Size,
		VectorSizeBytes:   vectorSize,
		CreatedAt:         getFileModTime(decisionsPath),
		UpdatedAt:         getFileModTime(bm25Path),
		CurrentModel:      currentModel,
		CurrentDimensions: currentDimensions,
		Compatible:        true,
	}

	storedModel, _ := decisions.GetState(ctx, StateKeyIndexModel)
	storedDimStr, _ := decisions.GetState(ctx, StateKeyIndexDimension)
	if storedModel != "" && storedModel != currentModel {
		info.Compatible = false
	}
	if storedDimStr != "" {
		if storedDim, err := strconv.Atoi(storedDimStr); err == nil && storedDim != currentDimensions {
			info.Compatible = false
		}
	}

	return info, nil
}
