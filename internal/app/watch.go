package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/logging"
	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/blackwell-systems/projclean/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchDebounce    time.Duration
	watchRulesFile   string

	watchCmd = &cobra.Command{
		Use:   "watch <root>",
		Short: "Monitor reclaimable space under a directory",
		Long: `Watch <root> for changes and rescan after each burst of activity, printing
the reclaimable total and how it changed. Every rescan is recorded in the
history database.

Matched and protected directories are not watched, so a build writing
into node_modules or target does not trigger rescans on its own; their
creation or removal does.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process, logging to ~/.projclean/watch.log
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  projclean watch ~/src

  # Rescan at most every 10 seconds of quiet
  projclean watch ~/src --debounce 10s

  # Run as background daemon
  projclean watch ~/src --daemon

  # Stop running daemon
  projclean watch --stop`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.projclean/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "daemon output file (default: ~/.projclean/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a rescan")
	watchCmd.Flags().StringVar(&watchRulesFile, "rules", "", "rule file (JSON)")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Get default paths if not specified
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getWatchLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	// Handle stop command
	if watchStop {
		return stopWatchDaemon()
	}

	if len(args) == 0 {
		return usageErrorf("a directory to watch is required\n\nUsage: projclean watch <root>")
	}
	if watchDebounce <= 0 {
		return usageErrorf("--debounce must be positive")
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return usageErrorf("%s is not a directory", root)
	}

	// The parent only spawns the child, which opens everything itself.
	if watchDaemon {
		return startWatchDaemon(root)
	}

	e, err := setup(writeStore)
	if err != nil {
		return err
	}
	defer e.Close()

	set, _, err := loadRules(watchRulesFile, e.cfg)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	var onScan watcher.ScanFunc
	if watchDaemonChild {
		onScan = logReporter(e.log)
	} else {
		onScan = newWatchReporter(os.Stdout).report
	}

	w, err := watcher.New(root, set, onScan, watcher.Options{
		Debounce:      watchDebounce,
		Store:         e.store,
		Logger:        e.log,
		OneFilesystem: e.cfg.OneFilesystem,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Handle daemon child process
	if watchDaemonChild {
		return w.RunDaemon(watchPIDFile)
	}

	return runWatchForeground(cmd, w)
}

func stopWatchDaemon() error {
	// Check if daemon is running
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon")
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

// daemonArgs rebuilds the command line for the daemon child.
func daemonArgs(root string) []string {
	args := []string{"watch", root, "--daemon-child",
		"--pid-file", watchPIDFile,
		"--debounce", watchDebounce.String(),
	}
	if watchRulesFile != "" {
		if abs, err := filepath.Abs(watchRulesFile); err == nil {
			args = append(args, "--rules", abs)
		}
	}
	if dbPath != "" {
		if abs, err := filepath.Abs(dbPath); err == nil {
			args = append(args, "--db", abs)
		}
	}
	if configDir != "" {
		if abs, err := filepath.Abs(configDir); err == nil {
			args = append(args, "--config-dir", abs)
		}
	}
	return args
}

func startWatchDaemon(root string) error {
	pid, err := watcher.StartDaemon(watchPIDFile, watchLogFile, daemonArgs(root))
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("✓ Watching %s in the background (PID %d)\n", root, pid)
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: projclean watch --stop\n")

	return nil
}

func runWatchForeground(cmd *cobra.Command, w *watcher.Watcher) error {
	ctx := cmdContext(cmd)

	fmt.Printf("Watching %s (press Ctrl+C to stop)...\n\n", w.Root())
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	<-ctx.Done()
	fmt.Println("\nStopping watcher...")
	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	return nil
}

// watchReporter prints one line per rescan with the change since the
// previous one.
type watchReporter struct {
	mu    sync.Mutex
	w     io.Writer
	now   func() time.Time
	last  int64
	first bool
}

func newWatchReporter(w io.Writer) *watchReporter {
	return &watchReporter{w: w, now: time.Now, first: true}
}

func (r *watchReporter) report(res *cleaner.ScanResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := r.now().Format("15:04:05")
	if err != nil {
		fmt.Fprintf(r.w, "[%s] rescan failed: %v\n", stamp, err)
		return
	}

	line := fmt.Sprintf("[%s] %d matches, %s reclaimable", stamp, res.Len(), output.FormatSize(res.TotalBytes()))
	if !r.first {
		if delta := res.TotalBytes() - r.last; delta > 0 {
			line += fmt.Sprintf(" (+%s)", output.FormatSize(delta))
		} else if delta < 0 {
			line += fmt.Sprintf(" (-%s)", output.FormatSize(-delta))
		}
	}
	if n := len(res.Warnings()); n > 0 {
		line += fmt.Sprintf(", %d warnings", n)
	}
	fmt.Fprintln(r.w, line)

	r.last = res.TotalBytes()
	r.first = false
}

func logReporter(lg *logging.Logger) watcher.ScanFunc {
	return func(res *cleaner.ScanResult, err error) {
		if err != nil {
			lg.Errorf("rescan failed: %v", err)
			return
		}
		lg.Infof("%s: %d matches, %d bytes reclaimable", res.Root(), res.Len(), res.TotalBytes())
	}
}
