package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/projclean/internal/config"
	"github.com/blackwell-systems/projclean/internal/fsinfo"
	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/blackwell-systems/projclean/internal/store"
	"github.com/blackwell-systems/projclean/internal/trash"
	"github.com/blackwell-systems/projclean/internal/watcher"
	"github.com/spf13/cobra"
)

// lowDiskPercent is the free-space share below which doctor warns.
const lowDiskPercent = 10.0

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check system health",
	Long: `Runs diagnostic checks on your projclean setup.

Checks:
  • Config file parses cleanly
  • Rules load and validate
  • Database is accessible
  • Log file is writable
  • Trash holds nothing past its expiry
  • Free disk space
  • Watch daemon status`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// doctorReport counts issues by severity.
type doctorReport struct {
	critical int
	warnings int
}

func (r *doctorReport) ok(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

func (r *doctorReport) warn(action, format string, args ...any) {
	fmt.Printf("⚠ "+format+"\n", args...)
	if action != "" {
		fmt.Println("  Action:", action)
	}
	r.warnings++
}

func (r *doctorReport) fail(action, format string, args ...any) {
	fmt.Printf("✗ "+format+"\n", args...)
	if action != "" {
		fmt.Println("  Action:", action)
	}
	r.critical++
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running projclean diagnostics...")
	fmt.Println()

	r := &doctorReport{}

	cfg := checkConfig(r)
	checkRules(r, cfg)
	st := checkDatabase(r)
	if st != nil {
		defer st.Close()
	}
	checkLogFile(r)
	checkTrash(r, st, cfg)
	checkDisk(r)
	checkDaemon(r)

	fmt.Println()
	if r.critical == 0 && r.warnings == 0 {
		fmt.Println("✓ All checks passed!")
		return nil
	}
	if r.critical > 0 {
		fmt.Printf("Found %d critical issue(s) and %d warning(s).\n", r.critical, r.warnings)
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Printf("Found %d warning(s). projclean is usable.\n", r.warnings)
	return nil
}

func checkConfig(r *doctorReport) *config.Config {
	dir, err := getConfigDir()
	if err != nil {
		r.fail("", "Cannot determine config directory: %v", err)
		return config.Default()
	}
	cfg, err := config.Load(dir)
	if err != nil {
		r.fail("Check permissions on "+dir, "Cannot read config: %v", err)
		return config.Default()
	}

	if cfg.Path == "" {
		r.ok("No config file (using defaults; create %s to customize)", filepath.Join(dir, config.FileName))
	} else {
		r.ok("Config: %s", cfg.Path)
	}
	for _, w := range cfg.Warnings {
		r.warn("", "Config %s", w)
	}
	return cfg
}

func checkRules(r *doctorReport, cfg *config.Config) {
	set, source, err := loadRules("", cfg)
	if err != nil {
		r.fail("Run 'projclean rules validate <file>' for details", "Rules: %v", err)
		return
	}
	r.ok("Rules: %d rules, %d protect patterns (%s)", set.Len(), len(set.Protect), source)
}

// checkDatabase returns an open store, or nil when there is none to use.
func checkDatabase(r *doctorReport) *store.Store {
	path, err := getDBPath()
	if err != nil {
		r.fail("", "Database path error: %v", err)
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.warn("Run 'projclean scan <dir>' to create it", "Database not found at: %s", path)
		return nil
	}

	st, err := store.New(path)
	if err != nil {
		r.fail("", "Cannot open database: %v", err)
		return nil
	}

	scans, err := st.ListScans(0)
	if errors.Is(err, store.ErrNotInitialized) {
		r.warn("Run 'projclean scan <dir>'", "Database has no schema yet: %s", path)
		st.Close()
		return nil
	} else if err != nil {
		r.fail("", "Cannot read database: %v", err)
		st.Close()
		return nil
	}

	totals, err := st.TotalFreed()
	if err != nil {
		r.fail("", "Cannot read clean history: %v", err)
		st.Close()
		return nil
	}
	r.ok("Database: %d scans, %d cleans, %s freed (%s)",
		len(scans), totals.Cleans, output.FormatSize(totals.BytesFreed), path)
	return st
}

func checkLogFile(r *doctorReport) {
	path, err := getDefaultLogFile()
	if err != nil {
		r.warn("", "Log file path error: %v", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		r.warn("Check permissions on "+filepath.Dir(path), "Log file not writable: %v", err)
		return
	}
	f.Close()
	r.ok("Log file: %s", path)
}

func checkTrash(r *doctorReport, st *store.Store, cfg *config.Config) {
	if st == nil {
		return
	}
	dir, err := getTrashDir()
	if err != nil {
		r.warn("", "Trash directory error: %v", err)
		return
	}
	manifests, err := trash.New(st, dir, nil).List()
	if err != nil {
		r.warn("", "Cannot read trash: %v", err)
		return
	}

	maxAge := cfg.TrashMaxAge()
	if maxAge <= 0 {
		maxAge = trash.DefaultMaxAge
	}
	var available, expired int
	var bytes int64
	for _, m := range manifests {
		if m.RestoredAt != nil || m.PurgedAt != nil {
			continue
		}
		available++
		bytes += m.TotalBytes
		if time.Since(m.CreatedAt) > maxAge {
			expired++
		}
	}

	if expired > 0 {
		r.warn("Run 'projclean undo --purge'", "Trash: %d of %d cleans are past expiry", expired, available)
		return
	}
	r.ok("Trash: %d restorable %s (%s)", available, pluralWord(available, "clean", "cleans"), output.FormatSize(bytes))
}

func checkDisk(r *doctorReport) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	u, err := fsinfo.DiskUsage(home)
	if err != nil {
		r.warn("", "Cannot read disk usage: %v", err)
		return
	}

	freePercent := 100 - u.UsedPercent
	if freePercent < lowDiskPercent {
		r.warn("Run 'projclean scan ~' to find reclaimable space",
			"Disk: only %s free of %s (%.0f%%)", output.FormatSize(int64(u.Free)), output.FormatSize(int64(u.Total)), freePercent)
		return
	}
	r.ok("Disk: %s free of %s on %s", output.FormatSize(int64(u.Free)), output.FormatSize(int64(u.Total)), u.Path)
}

// checkDaemon only reports; a stopped daemon is not an issue.
func checkDaemon(r *doctorReport) {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	switch {
	case err != nil:
		r.warn("Run 'projclean watch --stop' to clean up", "Cannot check watch daemon: %v", err)
	case running:
		r.ok("Watch daemon running")
	default:
		fmt.Println("- Watch daemon not running")
	}
}
