package gitleaks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/varalys/pipescan/internal/types"
)

// Leak is one entry of the gitleaks JSON report.
type Leak struct {
	Description string   `json:"Description"`
	RuleID      string   `json:"RuleID"`
	Match       string   `json:"Match"`
	Secret      string   `json:"Secret"`
	StartLine   int      `json:"StartLine"`
	EndLine     int      `json:"EndLine"`
	StartColumn int      `json:"StartColumn"`
	EndColumn   int      `json:"EndColumn"`
	File        string   `json:"File"`
	Commit      string   `json:"Commit,omitempty"`
	Entropy     float64  `json:"Entropy,omitempty"`
	Tags        []string `json:"Tags,omitempty"`
	Fingerprint string   `json:"Fingerprint,omitempty"`
}

// leakKey is the identity of a leak location. The same secret reported by
// several rules has the same key.
type leakKey struct {
	File        string
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
	Secret      string
}

func (l Leak) key() leakKey {
	return leakKey{l.File, l.StartLine, l.EndLine, l.StartColumn, l.EndColumn, l.Secret}
}

// hashKey buckets keys; equal keys always share a bucket.
var hashKey = func(k leakKey) uint64 {
	d := xxhash.New()
	for _, part := range []string{
		k.File,
		strconv.Itoa(k.StartLine),
		strconv.Itoa(k.EndLine),
		strconv.Itoa(k.StartColumn),
		strconv.Itoa(k.EndColumn),
		k.Secret,
	} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// isEmptyReport matches the outputs gitleaks writes when nothing leaked.
func isEmptyReport(data []byte) bool {
	s := bytes.TrimSpace(data)
	return len(s) == 0 || bytes.Equal(s, []byte("null")) || bytes.Equal(s, []byte("[]"))
}

// ParseReport decodes a gitleaks report. An empty report, "null" and "[]"
// all mean no leaks.
func ParseReport(data []byte) ([]Leak, error) {
	if isEmptyReport(data) {
		return nil, nil
	}
	var leaks []Leak
	if err := json.Unmarshal(data, &leaks); err != nil {
		return nil, fmt.Errorf("failed to parse gitleaks JSON output: %w", err)
	}
	return leaks, nil
}

// Dedup drops leaks sharing file, line and column span, and secret text,
// keeping the first occurrence and the report order. Two leaks are
// duplicates only when all six fields are equal.
func Dedup(leaks []Leak) []Leak {
	buckets := linkedhashmap.New()
	out := make([]Leak, 0, len(leaks))
	for _, l := range leaks {
		k := l.key()
		h := hashKey(k)
		var keys []leakKey
		if v, ok := buckets.Get(h); ok {
			keys = v.([]leakKey)
		}
		if containsKey(keys, k) {
			continue
		}
		buckets.Put(h, append(keys, k))
		out = append(out, l)
	}
	return out
}

func containsKey(keys []leakKey, k leakKey) bool {
	for _, c := range keys {
		if c == k {
			return true
		}
	}
	return false
}

// DisplayPath returns file relative to root with a leading "/". Paths
// outside root are kept as reported.
func DisplayPath(root, file string) string {
	rel := file
	if filepath.IsAbs(file) && root != "" {
		if r, err := filepath.Rel(root, file); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "./")
	return "/" + strings.TrimPrefix(rel, "/")
}

// BuildResult deduplicates leaks and converts them to SECRET findings.
func BuildResult(scannerName, root string, leaks []Leak) types.ScanResult {
	res := types.NewResult(scannerName, types.CategorySecret)
	for _, l := range Dedup(leaks) {
		res.AddFinding(types.Finding{
			Category: types.CategorySecret,
			Secret: &types.SecretDetail{
				File:        l.File,
				DisplayFile: DisplayPath(root, l.File),
				StartLine:   l.StartLine,
				EndLine:     l.EndLine,
				StartColumn: l.StartColumn,
				EndColumn:   l.EndColumn,
				RuleID:      l.RuleID,
				Description: l.Description,
				MatchedText: l.Match,
				SecretText:  l.Secret,
			},
		})
	}
	return res
}
