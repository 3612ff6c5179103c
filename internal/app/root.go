package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	dbPath    string
	configDir string
	verbose   bool

	// RootCmd is the root command for projclean
	RootCmd = &cobra.Command{
		Use:   "projclean",
		Short: "Find and remove disposable build artifacts",
		Long: `projclean walks a directory tree, finds build output and dependency
caches that can be regenerated (node_modules, target, build, __pycache__,
*.o and similar) and reports or removes them.

Every scan and clean is recorded, so you can see how much space has been
reclaimed over time. Cleans run with --trash move matches aside instead of
deleting them, and 'projclean undo' puts them back.

Quick Start:
  1. projclean scan ~/src
  2. projclean clean ~/src --dry-run
  3. projclean clean ~/src --trash

Exit codes:
  0  success
  1  one or more paths could not be removed, or the command failed
  2  invalid arguments, including a deleting clean with no terminal and no --yes`,
		Example: `  # Report reclaimable space
  projclean scan ~/src

  # Show the 10 largest matches
  projclean scan ~/src --top 10

  # Delete without prompting
  projclean clean ~/src --yes

  # Undo the last trash clean
  projclean undo latest`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("projclean: find and remove disposable build artifacts")
			fmt.Println()
			path, _ := getDBPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Println("Run 'projclean scan <dir>' to see what can be reclaimed.")
			} else {
				fmt.Println("Tip: Run 'projclean history' to see past cleans.")
			}
			fmt.Println("Run 'projclean --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.projclean/projclean.db)")
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default: $XDG_CONFIG_HOME/projclean)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	RootCmd.SetFlagErrorFunc(flagUsageError)

	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context, which stops a clean between paths.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}
