// Package ingest reads a decisions export (one JSON object per line,
// one or more files per directory) into store.Decision records, and
// derives the statute-reference and citation-graph edges that
// `caselaw index` persists alongside the FTS/vector/sparse indexes.
//
// The export format mirrors the columns searched by decisions_fts: a
// producer outside this module (a scraper, a bulk-download converter)
// is expected to emit one line like
//
//	{"decision_id":"bger|4a_123/2021|20211215","court":"BGer", ...}
//
// per decision. This package does not fetch or scrape; it only parses
// what is already on disk.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/swiss-caselaw/caselawmcp/internal/store"
)

// record is the on-disk JSON shape of one decisions-export line. Field
// names match the decisions_fts column set so a dump of the FTS table
// round-trips through this struct unchanged.
type record struct {
	DecisionID   string `json:"decision_id"`
	Court        string `json:"court"`
	Canton       string `json:"canton"`
	DocketNumber string `json:"docket_number"`
	Language     string `json:"language"`
	Title        string `json:"title"`
	Regeste      string `json:"regeste"`
	FullText     string `json:"full_text"`
	DecisionDate string `json:"decision_date"`
	URL          string `json:"url"`
}

// ReadDecisionsDir reads every *.jsonl file directly under dir (Swiss
// export pipelines split by spider/court, so a directory rather than a
// single file is the normal unit of ingestion) and returns the combined
// decision set in file, then line, order.
func ReadDecisionsDir(dir string) ([]*store.Decision, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read export directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".jsonl") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no .jsonl files found in %s", dir)
	}

	var all []*store.Decision
	for _, p := range paths {
		decisions, err := ReadDecisionsFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		all = append(all, decisions...)
	}
	return all, nil
}

// ReadDecisionsFile parses a single newline-delimited JSON export file.
func ReadDecisionsFile(path string) ([]*store.Decision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var decisions []*store.Decision
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024) // decisions carry full_text, default 64KB token limit is too small
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if r.DecisionID == "" {
			return nil, fmt.Errorf("line %d: missing decision_id", lineNo)
		}

		decisions = append(decisions, &store.Decision{
			DecisionID:   r.DecisionID,
			Court:        r.Court,
			Canton:       r.Canton,
			DocketNumber: r.DocketNumber,
			Language:     r.Language,
			Title:        r.Title,
			Regeste:      r.Regeste,
			FullText:     r.FullText,
			DecisionDate: r.DecisionDate,
			URL:          r.URL,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

// BuildDocketIndex maps a normalized docket number to the decision that
// carries it, so ExtractCitations can resolve an in-text docket mention
// to a known decision ID without a database round-trip per reference.
func BuildDocketIndex(decisions []*store.Decision) map[string]string {
	idx := make(map[string]string, len(decisions))
	for _, d := range decisions {
		if d.DocketNumber == "" {
			continue
		}
		idx[normalizeDocket(d.DocketNumber)] = d.DecisionID
	}
	return idx
}
