package app

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/projclean/internal/cleaner"
)

func TestWatchCommandFlags(t *testing.T) {
	tests := []struct {
		name         string
		flagName     string
		shouldHidden bool
	}{
		{name: "daemon flag", flagName: "daemon"},
		{name: "daemon-child flag", flagName: "daemon-child", shouldHidden: true},
		{name: "pid-file flag", flagName: "pid-file"},
		{name: "log-file flag", flagName: "log-file"},
		{name: "stop flag", flagName: "stop"},
		{name: "debounce flag", flagName: "debounce"},
		{name: "rules flag", flagName: "rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := watchCmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("expected flag '%s' to be registered", tt.flagName)
			}
			if flag.Usage == "" {
				t.Errorf("expected flag '%s' to have usage text", tt.flagName)
			}
			if flag.Hidden != tt.shouldHidden {
				t.Errorf("expected flag '%s' hidden to be %v, got %v", tt.flagName, tt.shouldHidden, flag.Hidden)
			}
		})
	}
}

func TestRunWatch_UsageErrors(t *testing.T) {
	tmp := setupTestEnv(t)

	tests := []struct {
		name     string
		args     []string
		debounce time.Duration
	}{
		{name: "no root", args: nil, debounce: time.Second},
		{name: "missing root", args: []string{filepath.Join(tmp, "nope")}, debounce: time.Second},
		{name: "zero debounce", args: []string{tmp}, debounce: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			watchPIDFile, watchLogFile = "", ""
			watchDebounce = tt.debounce
			var err error
			captureStdout(t, func() {
				err = runWatch(watchCmd, tt.args)
			})
			if code := ExitCode(err); code != ExitUsage {
				t.Errorf("expected exit code %d, got %d (err: %v)", ExitUsage, code, err)
			}
		})
	}
}

func TestRunWatch_StopWhenNotRunning(t *testing.T) {
	tmp := setupTestEnv(t)
	watchStop = true
	watchPIDFile = filepath.Join(tmp, "watch.pid")

	var err error
	out := captureStdout(t, func() {
		err = runWatch(watchCmd, nil)
	})
	if err != nil {
		t.Fatalf("runWatch --stop: %v", err)
	}
	if !strings.Contains(out, "Daemon is not running") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDaemonArgs(t *testing.T) {
	tmp := setupTestEnv(t)
	watchPIDFile = filepath.Join(tmp, "watch.pid")
	watchDebounce = 5 * time.Second
	watchRulesFile = filepath.Join(tmp, "rules.json")
	configDir = filepath.Join(tmp, "cfg")

	args := daemonArgs("/src")
	joined := strings.Join(args, " ")

	if args[0] != "watch" || args[1] != "/src" {
		t.Errorf("expected 'watch /src' prefix, got %v", args)
	}
	for _, want := range []string{
		"--daemon-child",
		"--pid-file " + watchPIDFile,
		"--debounce 5s",
		"--rules " + watchRulesFile,
		"--db " + dbPath,
		"--config-dir " + configDir,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("daemon args missing %q: %v", want, args)
		}
	}
	if strings.Contains(joined, "--daemon ") || strings.HasSuffix(joined, "--daemon") {
		t.Errorf("daemon child must not be started with --daemon: %v", args)
	}
}

func TestWatchReporter(t *testing.T) {
	var buf bytes.Buffer
	r := newWatchReporter(&buf)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local) }

	first := cleaner.NewScanResult("a", "/src", time.Now(), []cleaner.Match{{Path: "/src/x", Size: 1024}}, nil)
	grown := cleaner.NewScanResult("b", "/src", time.Now(), []cleaner.Match{{Path: "/src/x", Size: 1024}, {Path: "/src/y", Size: 2048}}, []string{"cannot read /src/z"})
	shrunk := cleaner.NewScanResult("c", "/src", time.Now(), nil, nil)

	r.report(first, nil)
	r.report(grown, nil)
	r.report(nil, errors.New("boom"))
	r.report(shrunk, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"[09:30:00] 1 matches, 1.0 KiB reclaimable",
		"[09:30:00] 2 matches, 3.0 KiB reclaimable (+2.0 KiB), 1 warnings",
		"[09:30:00] rescan failed: boom",
		"[09:30:00] 0 matches, 0 B reclaimable (-3.0 KiB)",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
