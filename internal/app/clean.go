package app

import (
	"fmt"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/fsinfo"
	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/blackwell-systems/projclean/internal/trash"
	"github.com/spf13/cobra"
)

var (
	cleanDryRun    bool
	cleanRulesFile string
	cleanYes       bool
	cleanTrash     bool
	cleanWorkers   int
	cleanOneFS     bool

	cleanCmd = &cobra.Command{
		Use:   "clean <root>",
		Short: "Delete disposable build artifacts under a directory",
		Long: `Scan <root> and delete every match. Deletions run in parallel; a path
that cannot be removed is reported and does not stop the others.

With --dry-run nothing is deleted and the report shows what would be
removed. With --trash matches are moved to ~/.projclean/trash instead of
being deleted, and 'projclean undo' can restore them. Trash older than
trash_max_age_days (default 30) is purged automatically.

A clean asks for confirmation unless --yes is given. When stdin is not a
terminal, --yes is required.

Protected paths (.git, .hg, .svn, the config's protect list and
~/.projclean itself) are never entered, whatever rule file is used.

Exit status is 1 if any path failed or the clean was interrupted, and 2
if the arguments are invalid. A deleting clean without a terminal and
without --yes also exits 2, before anything is touched.`,
		Example: `  # Preview
  projclean clean ~/src --dry-run

  # Delete with 8 workers, no prompt
  projclean clean ~/src --yes --workers 8

  # Reversible clean
  projclean clean ~/src --trash`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: runClean,
	}
)

func init() {
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false, "report what would be deleted without deleting")
	cleanCmd.Flags().StringVar(&cleanRulesFile, "rules", "", "rule file (JSON)")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanTrash, "trash", false, "move matches to the trash so they can be restored")
	cleanCmd.Flags().IntVarP(&cleanWorkers, "workers", "j", cleaner.DefaultWorkers, "number of parallel deletions")
	cleanCmd.Flags().BoolVar(&cleanOneFS, "one-filesystem", false, "do not cross filesystem boundaries")
}

func runClean(cmd *cobra.Command, args []string) error {
	root := args[0]

	e, err := setup(writeStore)
	if err != nil {
		return err
	}
	defer e.Close()

	workers := e.cfg.Workers
	if cmd != nil && cmd.Flags().Changed("workers") {
		workers = cleanWorkers
	}
	if workers < 1 {
		return usageErrorf("--workers must be at least 1, got %d", workers)
	}
	useTrash := cleanTrash || e.cfg.Trash

	set, _, err := loadRules(cleanRulesFile, e.cfg)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	var bar *output.ProgressBar
	engine := cleaner.New(
		cleaner.WithLogger(e.log),
		cleaner.WithWorkers(workers),
		cleaner.WithOneFilesystem(cleanOneFS || e.cfg.OneFilesystem),
		cleaner.WithEntryHook(func(entry cleaner.CleanEntry) {
			if bar != nil {
				bar.Add(entry.Freed, entry.Status == cleaner.StatusFailed)
			}
		}),
	)

	ctx := cmdContext(cmd)
	res, err := scanRoot(ctx, engine, root, set)
	if err != nil {
		return err
	}
	if err := e.store.InsertScan(res); err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	if res.Len() == 0 {
		fmt.Print(output.RenderScanSummary(res))
		return nil
	}

	if cleanDryRun {
		report, err := engine.Clean(ctx, res, true)
		if err != nil {
			return fmt.Errorf("dry run failed: %w", err)
		}
		if _, err := e.store.InsertClean(report, 0); err != nil {
			e.log.Warnf("failed to record dry run: %v", err)
		}
		fmt.Print(output.RenderCleanReport(report, false))
		return nil
	}

	fmt.Print(output.RenderScanTable(res.Matches()))
	fmt.Println()
	verb := "Delete"
	if useTrash {
		verb = "Move to trash"
	}
	ok, err := confirmOrRefuse(cleanYes, fmt.Sprintf("%s %d paths (%s)? [y/N]: ",
		verb, res.Len(), output.FormatSize(res.TotalBytes())))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Clean cancelled.")
		return nil
	}

	before, err := fsinfo.DiskUsage(res.Root())
	if err != nil {
		e.log.Debugf("disk usage before clean: %v", err)
	}

	var (
		tm      *trash.Manager
		session *trash.Session
		deleter cleaner.Deleter
	)
	if useTrash {
		trashDir, err := getTrashDir()
		if err != nil {
			return fmt.Errorf("failed to get trash directory: %w", err)
		}
		tm = trash.New(e.store, trashDir, e.log)
		session, err = tm.Begin(res, "clean "+res.Root())
		if err != nil {
			return fmt.Errorf("failed to start trash session: %w", err)
		}
		deleter = session
	}

	bar = output.NewProgress(res.Len(), "removed")
	report, err := engine.CleanUsing(ctx, res, false, deleter)
	bar.Finish()
	if err != nil {
		if session != nil {
			if derr := session.Discard(); derr != nil {
				e.log.Warnf("failed to discard trash session: %v", derr)
			}
		}
		return fmt.Errorf("clean failed: %w", err)
	}

	var manifestID int64
	if session != nil {
		data, err := session.Finish(report)
		if err != nil {
			fmt.Printf("Warning: trash manifest not written: %v\n", err)
			e.log.Errorf("trash session %d: %v", session.ID(), err)
		} else if len(data.Entries) > 0 {
			manifestID = session.ID()
		}
	}

	if _, err := e.store.InsertClean(report, manifestID); err != nil {
		fmt.Printf("Warning: clean not recorded in history: %v\n", err)
		e.log.Errorf("failed to record clean: %v", err)
	}

	fmt.Print(output.RenderCleanReport(report, true))
	if before != nil {
		if after, err := fsinfo.DiskUsage(res.Root()); err == nil {
			fmt.Printf("Free space on %s: %s (was %s)\n",
				after.Path, output.FormatSize(int64(after.Free)), output.FormatSize(int64(before.Free)))
		}
	}
	if manifestID > 0 {
		fmt.Printf("\nMoved to trash #%d. Run 'projclean undo %d' to restore.\n", manifestID, manifestID)
	}

	if tm != nil {
		if n, err := tm.Purge(e.cfg.TrashMaxAge()); err != nil {
			e.log.Warnf("trash purge failed: %v", err)
		} else if n > 0 {
			e.log.Infof("purged %d expired trash entries", n)
		}
	}

	switch {
	case report.Canceled():
		return failuref("clean interrupted: %d paths skipped", len(report.Skipped()))
	case report.HasFailures():
		return failuref("%d of %d paths could not be removed", len(report.Failed()), report.Len())
	}
	return nil
}
