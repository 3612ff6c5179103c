package app

import (
	"fmt"

	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyScans bool
	historyClean int64

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show past cleans and the total space reclaimed",
		Long: `List recorded cleans, newest first, followed by the all-time total of
space freed. Dry runs are listed but do not count towards the total.

Use --clean ID to see every path of one clean, and --scans to list scans
instead.`,
		Example: `  projclean history
  projclean history --limit 50
  projclean history --clean 12
  projclean history --scans`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyScans, "scans", false, "list scans instead of cleans")
	historyCmd.Flags().Int64Var(&historyClean, "clean", 0, "show the entries of one clean")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 0 {
		return usageErrorf("--limit must not be negative")
	}

	e, err := setup(readStore)
	if err != nil {
		return err
	}
	defer e.Close()

	if historyClean > 0 {
		c, err := e.store.GetClean(historyClean)
		if err != nil {
			return err
		}
		entries, err := e.store.GetCleanEntries(c.ID)
		if err != nil {
			return err
		}
		fmt.Print(output.RenderCleanDetail(c, entries))
		return nil
	}

	if historyScans {
		scans, err := e.store.ListScans(historyLimit)
		if err != nil {
			return err
		}
		fmt.Print(output.RenderScanHistory(scans))
		return nil
	}

	cleans, err := e.store.ListCleans(historyLimit)
	if err != nil {
		return err
	}
	totals, err := e.store.TotalFreed()
	if err != nil {
		return err
	}

	fmt.Print(output.RenderHistoryTable(cleans))
	fmt.Println()
	fmt.Print(output.RenderTotals(totals))
	return nil
}
