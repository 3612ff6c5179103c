package analyzer

import "github.com/blackwell-systems/projclean/internal/rules"

// RuleSummary totals the matches attributed to one rule.
type RuleSummary struct {
	Rule    rules.Rule
	Count   int
	Bytes   int64
	Percent float64 // share of the scan's total bytes, 0-100
}

// ProjectSummary totals the matches under one top-level directory of the
// scan root.
type ProjectSummary struct {
	Name  string
	Count int
	Bytes int64
}
