package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/blackwell-systems/projclean/internal/analyzer"
	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/blackwell-systems/projclean/internal/store"
	"github.com/spf13/cobra"
)

// maxWarningsShown limits how many scan warnings are printed.
const maxWarningsShown = 10

var (
	scanRulesFile string
	scanTop       int
	scanOneFS     bool
	scanQuiet     bool

	scanCmd = &cobra.Command{
		Use:   "scan <root>",
		Short: "Report disposable build artifacts under a directory",
		Long: `Walk <root> and report every entry selected by the rules, with sizes,
a per-rule and per-project breakdown, and the change since the last scan
of the same root. Nothing is deleted.

A matched directory is reported once and not descended into. Protected
directories (.git, .hg, .svn and any configured protect patterns) are
never entered. Symlinks are never followed.

The scan is recorded in the history database.`,
		Example: `  # Scan a source tree with the built-in rules
  projclean scan ~/src

  # Use a custom rule file and show the 20 largest matches
  projclean scan ~/src --rules ./rules.json --top 20

  # Stay on the root's filesystem
  projclean scan / --one-filesystem`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().StringVar(&scanRulesFile, "rules", "", "rule file (JSON)")
	scanCmd.Flags().IntVar(&scanTop, "top", 0, "only list the N largest matches")
	scanCmd.Flags().BoolVar(&scanOneFS, "one-filesystem", false, "do not cross filesystem boundaries")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "only print the summary")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanTop < 0 {
		return usageErrorf("--top must not be negative")
	}

	e, err := setup(writeStore)
	if err != nil {
		return err
	}
	defer e.Close()

	set, _, err := loadRules(scanRulesFile, e.cfg)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	engine := cleaner.New(
		cleaner.WithLogger(e.log),
		cleaner.WithOneFilesystem(scanOneFS || e.cfg.OneFilesystem),
	)
	res, err := scanRoot(cmdContext(cmd), engine, args[0], set)
	if err != nil {
		return err
	}

	prev, err := e.store.LatestScan(res.Root())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		e.log.Warnf("failed to look up previous scan: %v", err)
	}
	if err := e.store.InsertScan(res); err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	if !scanQuiet {
		if scanTop > 0 {
			fmt.Print(output.RenderScanTable(analyzer.Largest(res, scanTop)))
		} else {
			fmt.Print(output.RenderScanTable(res.Matches()))
		}
		if res.Len() > 0 {
			fmt.Println()
			fmt.Print(output.RenderRuleSummary(analyzer.Summarize(res)))
			if projects := analyzer.ByProject(res); len(projects) > 1 {
				fmt.Println()
				fmt.Print(output.RenderProjectSummary(projects))
			}
		}
		if len(res.Warnings()) > 0 {
			fmt.Println()
			fmt.Print(output.RenderWarnings(res.Warnings(), maxWarningsShown))
		}
		fmt.Println()
	}

	fmt.Print(output.RenderScanSummary(res))
	if prev != nil {
		printScanDelta(e, prev, res)
	}
	return nil
}

// scanRoot runs a scan behind a spinner. Problems with root itself come
// back as usage errors.
func scanRoot(ctx context.Context, engine *cleaner.Engine, root string, set *rules.Set) (*cleaner.ScanResult, error) {
	spinner := output.NewSpinner(fmt.Sprintf("Scanning %s", root)).WithElapsed()
	spinner.Start()
	res, err := engine.Scan(ctx, root, set)
	spinner.Stop()
	if err != nil {
		return nil, classifyInputError(fmt.Errorf("scan failed: %w", err))
	}
	return res, nil
}

func printScanDelta(e *env, prev *store.ScanRecord, res *cleaner.ScanResult) {
	old, err := e.store.GetScanMatches(prev.ID)
	if err != nil {
		e.log.Warnf("failed to load matches of scan %s: %v", prev.ID, err)
		return
	}
	added, removed := diffScans(old, res.Matches())

	delta := res.TotalBytes() - prev.TotalBytes
	sign := "+"
	if delta < 0 {
		sign, delta = "-", -delta
	}
	fmt.Printf("Since last scan (%s): %s%s, %d new, %d gone\n",
		prev.ScannedAt.Local().Format("2006-01-02 15:04"), sign, output.FormatSize(delta), len(added), len(removed))
}

// diffScans compares a stored scan with a new one by path. Both results
// are returned in the order of their source.
func diffScans(prev []*store.MatchRecord, cur []cleaner.Match) (added, removed []string) {
	seen := make(map[string]bool, len(prev))
	for _, m := range prev {
		seen[m.Path] = true
	}
	now := make(map[string]bool, len(cur))
	for _, m := range cur {
		now[m.Path] = true
		if !seen[m.Path] {
			added = append(added, m.Path)
		}
	}
	for _, m := range prev {
		if !now[m.Path] {
			removed = append(removed, m.Path)
		}
	}
	return added, removed
}
