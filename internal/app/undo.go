package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/blackwell-systems/projclean/internal/store"
	"github.com/blackwell-systems/projclean/internal/trash"
	"github.com/spf13/cobra"
)

// maxUndoEntriesShown limits the paths listed before a restore.
const maxUndoEntriesShown = 10

var (
	undoFlagList  bool
	undoFlagYes   bool
	undoFlagPurge bool
)

var undoCmd = &cobra.Command{
	Use:   "undo [trash-id | latest]",
	Short: "Restore paths moved to the trash by a clean",
	Long: `Move the paths of a trash clean back to where they were.

Only cleans run with --trash (or with trash = true in the config) can be
undone. A path that exists again at its original location is not
overwritten; it stays in the trash and is reported.

Arguments:
  trash-id  The numeric ID shown by 'projclean undo --list'
  latest    The most recent trash clean that has not been restored`,
	Example: `  projclean undo --list      # List trash cleans
  projclean undo latest      # Restore the latest one
  projclean undo 4 --yes     # Restore trash #4 without confirmation
  projclean undo --purge     # Delete expired trash now`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().BoolVar(&undoFlagList, "list", false, "list trash cleans")
	undoCmd.Flags().BoolVar(&undoFlagYes, "yes", false, "skip confirmation prompt")
	undoCmd.Flags().BoolVar(&undoFlagPurge, "purge", false, "delete trash older than trash_max_age_days")

	RootCmd.AddCommand(undoCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	e, err := setup(readStore)
	if err != nil {
		return err
	}
	defer e.Close()

	trashDir, err := getTrashDir()
	if err != nil {
		return fmt.Errorf("failed to get trash directory: %w", err)
	}
	tm := trash.New(e.store, trashDir, e.log)

	if undoFlagList {
		manifests, err := tm.List()
		if err != nil {
			return err
		}
		fmt.Print(output.RenderManifestTable(manifests))
		return nil
	}

	if undoFlagPurge {
		n, err := tm.Purge(e.cfg.TrashMaxAge())
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d trash %s older than %d days.\n",
			n, pluralWord(n, "clean", "cleans"), e.cfg.TrashMaxAgeDays)
		return nil
	}

	if len(args) == 0 {
		return usageErrorf("trash ID or 'latest' required\n\nUsage: projclean undo [trash-id | latest]\n\nUse 'projclean undo --list' to see available trash")
	}

	id, err := resolveTrashID(tm, args[0])
	if err != nil {
		return err
	}

	m, err := e.store.GetManifest(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("trash #%d not found\n\nRun 'projclean undo --list' to see available trash", id)
		}
		return err
	}
	switch {
	case m.RestoredAt != nil:
		return usageErrorf("trash #%d was already restored on %s", id, m.RestoredAt.Local().Format("2006-01-02 15:04"))
	case m.PurgedAt != nil:
		return usageErrorf("trash #%d has been purged", id)
	}

	data, err := tm.Load(id)
	if err != nil {
		return err
	}

	var total int64
	for _, entry := range data.Entries {
		total += entry.Size
	}

	fmt.Printf("Trash #%d\n", data.ID)
	fmt.Printf("  Created: %s\n", data.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Root:    %s\n", data.Root)
	fmt.Printf("  Reason:  %s\n", data.Reason)
	fmt.Printf("  Paths:   %d (%s)\n\n", len(data.Entries), output.FormatSize(total))
	for i, entry := range data.Entries {
		if i == maxUndoEntriesShown {
			fmt.Printf("  ... and %d more\n", len(data.Entries)-maxUndoEntriesShown)
			break
		}
		fmt.Printf("  %s\n", entry.Original)
	}
	fmt.Println()

	ok, err := confirmOrRefuse(undoFlagYes, fmt.Sprintf("Restore %d paths? [y/N]: ", len(data.Entries)))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Restore cancelled.")
		return nil
	}

	result, err := tm.Restore(id)
	if result != nil {
		fmt.Printf("✓ Restored %d %s\n", len(result.Restored), pluralWord(len(result.Restored), "path", "paths"))
		for _, f := range result.Failed {
			fmt.Printf("✗ %s: %v\n", f.Path, f.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return nil
}

// resolveTrashID accepts a numeric id or "latest".
func resolveTrashID(tm *trash.Manager, arg string) (int64, error) {
	if strings.ToLower(arg) == "latest" {
		m, err := tm.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, fmt.Errorf("no trash to restore\n\nOnly cleans run with --trash can be undone")
			}
			return 0, err
		}
		fmt.Printf("Using latest trash: #%d\n", m.ID)
		return m.ID, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid trash ID: %s (must be a number or 'latest')", arg)
	}
	return id, nil
}

func pluralWord(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
