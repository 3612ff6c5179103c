package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/projclean/internal/config"
	"github.com/blackwell-systems/projclean/internal/logging"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/blackwell-systems/projclean/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// stdinIsTerminal reports whether confirmation prompts can be shown.
// Tests replace it to feed answers through a pipe.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// appDir returns ~/.projclean, creating it if needed.
func appDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".projclean")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create projclean directory: %w", err)
	}
	return dir, nil
}

func appFile(name string) (string, error) {
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	return appFile("projclean.db")
}

func getTrashDir() (string, error) {
	return appFile("trash")
}

// getDefaultLogFile returns the rotating log used by every command.
func getDefaultLogFile() (string, error) {
	return appFile("projclean.log")
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	return appFile("watch.pid")
}

// getWatchLogFile receives the daemon's stdout and stderr.
func getWatchLogFile() (string, error) {
	return appFile("watch.log")
}

func getConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return config.Dir()
}

type storeMode int

const (
	noStore storeMode = iota
	// readStore opens the database as is; queries against a database
	// that was never written report store.ErrNotInitialized.
	readStore
	// writeStore also creates the schema.
	writeStore
)

// env bundles what every command needs: settings, a logger and optionally
// the database.
type env struct {
	cfg   *config.Config
	log   *logging.Logger
	store *store.Store
}

func setup(mode storeMode) (*env, error) {
	dir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: logging.Discard()}
	if verbose {
		e.log = logging.NewWriter(os.Stderr, logging.LevelDebug)
	} else if logFile, err := getDefaultLogFile(); err == nil {
		if lg, err := logging.New(cfg.LogOptions(logFile)); err == nil {
			e.log = lg
		} else {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
	}
	for _, w := range cfg.Warnings {
		e.log.Warnf("config %s: %s", cfg.Path, w)
	}

	if mode == noStore {
		return e, nil
	}

	path, err := getDBPath()
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	e.store = st

	if mode == writeStore {
		if err := st.CreateSchema(); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create database schema: %w", err)
		}
	}
	return e, nil
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
	e.log.Close()
}

// loadRules picks the rule source: the --rules flag, then rules_file from
// the config, then the built-in defaults. Whatever the source, the built-in
// protect patterns, the config's protect patterns and projclean's own
// directory (trash included) are protected.
func loadRules(flagPath string, cfg *config.Config) (*rules.Set, string, error) {
	path := flagPath
	if path == "" {
		path = cfg.RulesFile
	}

	set := rules.Defaults()
	source := "built-in defaults"
	if path != "" {
		loaded, err := rules.Load(path)
		if err != nil {
			return nil, "", err
		}
		set, source = loaded, path
	}
	set = set.WithProtect(rules.DefaultProtect()...).WithProtect(cfg.Protect...)

	dir, err := appDir()
	if err != nil {
		return nil, "", err
	}
	// Absolute protect patterns start with "/", so this only applies on unix.
	if p := protectedAppDir(dir); strings.HasPrefix(p, "/") {
		set = set.WithProtect(p)
	}
	return set, source, nil
}

// protectedAppDir returns dir as an absolute protect pattern. Scans walk
// symlink-free paths, so the pattern is resolved the same way.
func protectedAppDir(dir string) string {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	return dir
}

// confirm asks a yes/no question on stdin. Anything but y or yes is a no.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		fmt.Println()
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// confirmOrRefuse asks before a destructive step. Without a terminal on
// stdin there is nobody to ask, so the step is refused unless --yes was
// given.
func confirmOrRefuse(yes bool, prompt string) (bool, error) {
	if yes {
		return true, nil
	}
	if !stdinIsTerminal() {
		return false, usageErrorf("stdin is not a terminal: pass --yes to proceed without confirmation")
	}
	return confirm(prompt), nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if cmd != nil {
		if ctx := cmd.Context(); ctx != nil {
			return ctx
		}
	}
	return context.Background()
}
