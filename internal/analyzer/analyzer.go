// Package analyzer turns a scan result into the summaries shown to users:
// space per rule, space per project and the largest matches.
package analyzer

import (
	"sort"
	"strings"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/rules"
)

// Summarize groups matches by the rule that selected them, largest first.
func Summarize(res *cleaner.ScanResult) []RuleSummary {
	if res == nil || res.Len() == 0 {
		return nil
	}

	index := make(map[rules.Rule]int)
	var out []RuleSummary
	for _, m := range res.Matches() {
		i, ok := index[m.Rule]
		if !ok {
			i = len(out)
			index[m.Rule] = i
			out = append(out, RuleSummary{Rule: m.Rule})
		}
		out[i].Count++
		out[i].Bytes += m.Size
	}

	total := res.TotalBytes()
	for i := range out {
		if total > 0 {
			out[i].Percent = float64(out[i].Bytes) / float64(total) * 100
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Rule.Pattern < out[j].Rule.Pattern
	})
	return out
}

// ByProject groups matches by the first path segment below the scan root.
// Matches sitting directly in the root are grouped under ".".
func ByProject(res *cleaner.ScanResult) []ProjectSummary {
	if res == nil || res.Len() == 0 {
		return nil
	}

	index := make(map[string]int)
	var out []ProjectSummary
	for _, m := range res.Matches() {
		name := "."
		if i := strings.IndexByte(m.RelPath, '/'); i > 0 {
			name = m.RelPath[:i]
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, ProjectSummary{Name: name})
		}
		out[i].Count++
		out[i].Bytes += m.Size
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Largest returns up to n matches ordered by size, biggest first. n <= 0
// returns every match.
func Largest(res *cleaner.ScanResult, n int) []cleaner.Match {
	if res == nil {
		return nil
	}
	ms := res.Matches()
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Size != ms[j].Size {
			return ms[i].Size > ms[j].Size
		}
		return ms[i].RelPath < ms[j].RelPath
	})
	if n > 0 && n < len(ms) {
		ms = ms[:n]
	}
	return ms
}
