package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/spf13/cobra"
)

func TestRootCommand(t *testing.T) {
	// Test that root command is properly configured
	if RootCmd.Use != "projclean" {
		t.Errorf("expected Use to be 'projclean', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	foundCommands := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range []string{"scan", "clean", "rules", "history", "undo", "watch", "doctor"} {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"db", "config-dir", "verbose"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestGetDBPath(t *testing.T) {
	tmp := setupTestEnv(t)

	dbPath = "/custom/path/test.db"
	if got, err := getDBPath(); err != nil || got != "/custom/path/test.db" {
		t.Errorf("flag value: got %q, %v", got, err)
	}

	dbPath = ""
	got, err := getDBPath()
	if err != nil {
		t.Fatalf("getDBPath: %v", err)
	}
	want := filepath.Join(tmp, ".projclean", "projclean.db")
	if got != want {
		t.Errorf("default: got %q, want %q", got, want)
	}
	if info, err := os.Stat(filepath.Dir(got)); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created", filepath.Dir(got))
	}
}

func TestAppPaths(t *testing.T) {
	tmp := setupTestEnv(t)
	dir := filepath.Join(tmp, ".projclean")

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"trash", getTrashDir, filepath.Join(dir, "trash")},
		{"log", getDefaultLogFile, filepath.Join(dir, "projclean.log")},
		{"pid", getDefaultPIDFile, filepath.Join(dir, "watch.pid")},
		{"watch log", getWatchLogFile, filepath.Join(dir, "watch.log")},
		{"config", getConfigDir, filepath.Join(tmp, "config", "projclean")},
	}
	for _, tt := range tests {
		got, err := tt.fn()
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}

	configDir = "/etc/projclean"
	if got, _ := getConfigDir(); got != "/etc/projclean" {
		t.Errorf("--config-dir not honored: %q", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain error", errors.New("boom"), ExitFailure},
		{"usage", usageErrorf("bad flag"), ExitUsage},
		{"failure", failuref("2 paths failed"), ExitFailure},
		{"wrapped usage", fmt.Errorf("outer: %w", usageErrorf("bad")), ExitUsage},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("%s: ExitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClassifyInputError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing root", &cleaner.NotFoundError{Path: "/x", Err: os.ErrNotExist}, ExitUsage},
		{"not a directory", &cleaner.IOError{Path: "/x", Err: cleaner.ErrNotDirectory}, ExitUsage},
		{"bad rule", fmt.Errorf("rule file: %w", rules.ErrInvalidRule), ExitUsage},
		{"unreadable root", &cleaner.PermissionError{Path: "/x", Err: os.ErrPermission}, ExitFailure},
		{"busy", cleaner.ErrBusy, ExitFailure},
	}
	for _, tt := range tests {
		if got := ExitCode(classifyInputError(tt.err)); got != tt.want {
			t.Errorf("%s: exit code %d, want %d", tt.name, got, tt.want)
		}
	}
	if classifyInputError(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestUsageArgs(t *testing.T) {
	check := usageArgs(cobra.ExactArgs(1))
	if err := check(scanCmd, []string{"a"}); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}
	if code := ExitCode(check(scanCmd, nil)); code != ExitUsage {
		t.Errorf("missing arg: exit code %d, want %d", code, ExitUsage)
	}
}

// TestExecute_UsageErrors runs the full command tree so flag parsing and
// argument validation are covered.
func TestExecute_UsageErrors(t *testing.T) {
	setupTestEnv(t)
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"scan", "--frobnicate", "."}},
		{"missing root", []string{"clean"}},
		{"too many args", []string{"scan", "a", "b"}},
		{"bad flag value", []string{"history", "--limit", "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RootCmd.SetArgs(tt.args)
			var err error
			captureStdout(t, func() {
				err = RootCmd.Execute()
			})
			if code := ExitCode(err); code != ExitUsage {
				t.Errorf("expected exit code %d, got %d (err: %v)", ExitUsage, code, err)
			}
		})
	}
}

func TestRootCommandRun(t *testing.T) {
	setupTestEnv(t)

	out := captureStdout(t, func() {
		if err := RootCmd.RunE(RootCmd, nil); err != nil {
			t.Fatalf("RunE: %v", err)
		}
	})
	if !strings.Contains(out, "projclean scan <dir>") {
		t.Errorf("expected a getting-started hint:\n%s", out)
	}
}
