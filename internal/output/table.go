// Package output provides terminal output utilities for projclean.
//
// This package includes:
//   - Table rendering for scan matches, rule summaries, clean reports, history and trash
//   - Progress bars for long-running operations
//   - Spinners for indeterminate operations
//   - Human-readable formatting for sizes and dates
//
// Tables are plain text; status words are coloured with lipgloss only when
// stdout is a terminal and NO_COLOR is unset.
// Progress indicators are thread-safe and can be used from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/projclean/internal/analyzer"
	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/blackwell-systems/projclean/internal/store"
)

var (
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"})
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"})
	styleError = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"})
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"})
	styleBold  = lipgloss.NewStyle().Bold(true)
)

const ruleWidth = 80

// IsColorEnabled returns true if colour codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// paint renders text with style if colour is enabled, otherwise returns the
// plain text.
func paint(style lipgloss.Style, text string) string {
	if IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// RenderScanTable renders matches with their kind, size and rule, in the
// order given.
func RenderScanTable(matches []cleaner.Match) string {
	if len(matches) == 0 {
		return "No matches found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-48s %-5s %10s  %s\n", "Path", "Kind", "Size", "Rule"))
	sb.WriteString(strings.Repeat("─", ruleWidth))
	sb.WriteString("\n")

	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%-48s %-5s %10s  %s\n",
			truncatePath(m.RelPath, 48),
			m.Kind,
			FormatSize(m.Size),
			m.Rule.Pattern))
	}

	return sb.String()
}

// RenderScanSummary renders the one-line summary printed after a scan.
func RenderScanSummary(res *cleaner.ScanResult) string {
	line := fmt.Sprintf("Found %s in %s: %s reclaimable",
		plural(res.Len(), "match", "matches"),
		res.Root(),
		paint(styleBold, FormatSize(res.TotalBytes())))
	if n := len(res.Warnings()); n > 0 {
		line += paint(styleWarn, fmt.Sprintf(" (%s)", plural(n, "warning", "warnings")))
	}
	return line + "\n"
}

// RenderWarnings lists up to max scan warnings, noting how many were left out.
func RenderWarnings(warnings []string, max int) string {
	if len(warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(paint(styleWarn, "Warnings:") + "\n")
	for i, w := range warnings {
		if max > 0 && i >= max {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(warnings)-max))
			break
		}
		sb.WriteString("  " + w + "\n")
	}
	return sb.String()
}

// RenderRuleSummary renders per-rule totals as produced by analyzer.Summarize.
func RenderRuleSummary(summaries []analyzer.RuleSummary) string {
	if len(summaries) == 0 {
		return "Nothing to reclaim.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-5s %8s %10s %7s\n", "Rule", "Kind", "Matches", "Size", "Share"))
	sb.WriteString(strings.Repeat("─", 58))
	sb.WriteString("\n")

	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%-24s %-5s %8d %10s %6.1f%%\n",
			truncate(s.Rule.Pattern, 24),
			s.Rule.Kind,
			s.Count,
			FormatSize(s.Bytes),
			s.Percent))
	}

	return sb.String()
}

// RenderProjectSummary renders per-project totals as produced by analyzer.ByProject.
func RenderProjectSummary(projects []analyzer.ProjectSummary) string {
	if len(projects) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-40s %8s %10s\n", "Project", "Matches", "Size"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, p := range projects {
		sb.WriteString(fmt.Sprintf("%-40s %8d %10s\n", truncatePath(p.Name, 40), p.Count, FormatSize(p.Bytes)))
	}

	return sb.String()
}

// RenderCleanReport renders one line per entry followed by the summary. With
// failuresOnly set, successful entries are left out.
func RenderCleanReport(report *cleaner.CleanReport, failuresOnly bool) string {
	var sb strings.Builder

	for _, e := range report.Entries() {
		if failuresOnly && e.Status != cleaner.StatusFailed {
			continue
		}
		sb.WriteString(formatEntry(e))
		sb.WriteString("\n")
	}

	sb.WriteString(RenderCleanSummary(report))
	return sb.String()
}

func formatEntry(e cleaner.CleanEntry) string {
	size := FormatSize(e.Size)
	switch e.Status {
	case cleaner.StatusDeleted:
		return fmt.Sprintf("  %s %s (%s)", paint(styleOK, "✓"), e.RelPath, size)
	case cleaner.StatusWouldDelete:
		return fmt.Sprintf("  %s %s (%s)", paint(styleDim, "~"), e.RelPath, size)
	case cleaner.StatusFailed:
		return fmt.Sprintf("  %s %s: %s", paint(styleError, "✗"), e.RelPath, formatEntryError(e))
	default:
		return fmt.Sprintf("  %s %s (skipped)", paint(styleDim, "-"), e.RelPath)
	}
}

func formatEntryError(e cleaner.CleanEntry) string {
	switch e.ErrorKind() {
	case cleaner.KindPermission:
		return "permission denied"
	case cleaner.KindNotFound:
		return "already gone"
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	}
}

// RenderCleanSummary renders the closing lines of a clean.
func RenderCleanSummary(report *cleaner.CleanReport) string {
	var sb strings.Builder

	if report.DryRun() {
		sb.WriteString(fmt.Sprintf("Dry run: would delete %s, %s reclaimable\n",
			plural(report.Len(), "path", "paths"),
			paint(styleBold, FormatSize(report.BytesReclaimable()))))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Deleted %d/%d paths, freed %s",
		len(report.Succeeded()), report.Len(), paint(styleBold, FormatSize(report.BytesFreed()))))
	sb.WriteString(fmt.Sprintf(" in %s\n", report.Duration().Round(time.Millisecond)))

	if n := len(report.Failed()); n > 0 {
		sb.WriteString(paint(styleError, fmt.Sprintf("%s failed\n", plural(n, "path", "paths"))))
	}
	if report.Canceled() {
		sb.WriteString(paint(styleWarn, fmt.Sprintf("Cancelled: %s skipped\n", plural(len(report.Skipped()), "path", "paths"))))
	}
	return sb.String()
}

// RenderHistoryTable renders past cleans, newest first as given.
func RenderHistoryTable(cleans []*store.CleanRecord) string {
	if len(cleans) == 0 {
		return "No cleans recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-16s %-32s %7s %6s %10s  %s\n",
		"ID", "When", "Root", "Deleted", "Failed", "Freed", "Mode"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, c := range cleans {
		mode := "delete"
		switch {
		case c.DryRun:
			mode = "dry run"
		case c.ManifestID > 0:
			mode = fmt.Sprintf("trash #%d", c.ManifestID)
		}
		if c.Canceled {
			mode += ", cancelled"
		}

		failed := fmt.Sprintf("%d", c.Failed)
		if c.Failed > 0 {
			failed = paint(styleError, failed)
		}

		sb.WriteString(fmt.Sprintf("%-5d %-16s %-32s %7d %6s %10s  %s\n",
			c.ID,
			truncate(formatRelativeTime(c.StartedAt), 16),
			truncatePath(c.Root, 32),
			c.Succeeded,
			failed,
			FormatSize(c.BytesFreed),
			mode))
	}

	return sb.String()
}

// RenderScanHistory renders recorded scans, newest first as given.
func RenderScanHistory(scans []*store.ScanRecord) string {
	if len(scans) == 0 {
		return "No scans recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-16s %-36s %7s %10s\n", "Scan", "When", "Root", "Matches", "Size"))
	sb.WriteString(strings.Repeat("─", ruleWidth))
	sb.WriteString("\n")

	for _, s := range scans {
		sb.WriteString(fmt.Sprintf("%-8s %-16s %-36s %7d %10s\n",
			truncate(s.ID, 8),
			truncate(formatRelativeTime(s.ScannedAt), 16),
			truncatePath(s.Root, 36),
			s.MatchCount,
			FormatSize(s.TotalBytes)))
	}

	return sb.String()
}

// RenderCleanDetail renders one recorded clean and its entries.
func RenderCleanDetail(c *store.CleanRecord, entries []*store.CleanEntryRecord) string {
	var sb strings.Builder

	sb.WriteString(paint(styleBold, fmt.Sprintf("Clean #%d", c.ID)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Root:    %s\n", c.Root))
	sb.WriteString(fmt.Sprintf("  Scan:    %s\n", c.ScanID))
	sb.WriteString(fmt.Sprintf("  Started: %s (%s)\n",
		c.StartedAt.Local().Format("2006-01-02 15:04:05"), formatRelativeTime(c.StartedAt)))
	sb.WriteString(fmt.Sprintf("  Freed:   %s\n", FormatSize(c.BytesFreed)))
	if c.ManifestID > 0 {
		sb.WriteString(fmt.Sprintf("  Trash:   #%d\n", c.ManifestID))
	}
	sb.WriteString("\n")

	for _, e := range entries {
		switch cleaner.EntryStatus(e.Status) {
		case cleaner.StatusDeleted:
			sb.WriteString(fmt.Sprintf("  %s %s (%s)\n", paint(styleOK, "✓"), e.Path, FormatSize(e.FreedBytes)))
		case cleaner.StatusWouldDelete:
			sb.WriteString(fmt.Sprintf("  %s %s (%s)\n", paint(styleDim, "~"), e.Path, FormatSize(e.SizeBytes)))
		case cleaner.StatusFailed:
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n", paint(styleError, "✗"), e.Path, e.Error))
		default:
			sb.WriteString(fmt.Sprintf("  %s %s (skipped)\n", paint(styleDim, "-"), e.Path))
		}
	}

	return sb.String()
}

// RenderTotals renders the all-time totals line of the history command.
func RenderTotals(t *store.Totals) string {
	if t.Cleans == 0 {
		return "Total: nothing cleaned yet\n"
	}
	return fmt.Sprintf("Total: %s freed across %s since %s\n",
		paint(styleBold, FormatSize(t.BytesFreed)),
		plural(t.Cleans, "clean", "cleans"),
		t.FirstClean.Local().Format("2006-01-02"))
}

// RenderManifestTable renders trash manifests.
func RenderManifestTable(manifests []*store.Manifest) string {
	if len(manifests) == 0 {
		return "Trash is empty.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-16s %-8s %10s %-10s %s\n",
		"ID", "Created", "Entries", "Size", "State", "Root"))
	sb.WriteString(strings.Repeat("─", ruleWidth))
	sb.WriteString("\n")

	for _, m := range manifests {
		state := paint(styleOK, "available")
		switch {
		case m.RestoredAt != nil:
			state = paint(styleDim, "restored")
		case m.PurgedAt != nil:
			state = paint(styleDim, "purged")
		}

		sb.WriteString(fmt.Sprintf("%-5d %-16s %-8d %10s %-10s %s\n",
			m.ID,
			truncate(formatRelativeTime(m.CreatedAt), 16),
			m.EntryCount,
			FormatSize(m.TotalBytes),
			state,
			truncatePath(m.Root, 30)))
	}

	return sb.String()
}

// RenderRuleTable renders the rules and protect patterns of a set.
func RenderRuleTable(set *rules.Set) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-5s %s\n", "Pattern", "Kind", "Description"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, r := range set.Rules {
		sb.WriteString(fmt.Sprintf("%-24s %-5s %s\n", truncate(r.Pattern, 24), r.Kind, r.Description))
	}

	if len(set.Protect) > 0 {
		sb.WriteString("\nProtected: " + strings.Join(set.Protect, ", ") + "\n")
	}

	return sb.String()
}

// FormatSize converts bytes to a human-readable IEC size ("1.5 GiB").
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// truncatePath keeps the end of a path, which is the informative part.
func truncatePath(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-maxLen+3:]
}
