package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/watcher"
)

// captureStdout runs f and returns everything it printed to os.Stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	f()

	w.Close()
	return <-done
}

// withStdin feeds input to os.Stdin and makes it look like a terminal.
func withStdin(t *testing.T, input string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	if _, err := w.WriteString(input); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	w.Close()

	origStdin, origTTY := os.Stdin, stdinIsTerminal
	os.Stdin = r
	stdinIsTerminal = func() bool { return true }
	t.Cleanup(func() {
		os.Stdin, stdinIsTerminal = origStdin, origTTY
		r.Close()
	})
}

// setupTestEnv points HOME, the config directory and the database at a
// temp dir and resets every command flag. It returns the temp dir.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("NO_COLOR", "1")

	origTTY := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }

	resetFlags()
	dbPath = filepath.Join(tmp, "projclean.db")

	t.Cleanup(func() {
		stdinIsTerminal = origTTY
		resetFlags()
	})
	return tmp
}

func resetFlags() {
	dbPath, configDir, verbose = "", "", false

	scanRulesFile, scanTop, scanOneFS, scanQuiet = "", 0, false, false

	cleanDryRun, cleanRulesFile, cleanYes, cleanTrash = false, "", false, false
	cleanWorkers, cleanOneFS = cleaner.DefaultWorkers, false
	if f := cleanCmd.Flags().Lookup("workers"); f != nil {
		f.Changed = false
	}

	rulesFile, rulesInitForce = "", false

	historyLimit, historyScans, historyClean = 20, false, 0

	undoFlagList, undoFlagYes, undoFlagPurge = false, false, false

	watchDaemon, watchDaemonChild, watchStop = false, false, false
	watchPIDFile, watchLogFile, watchRulesFile = "", "", ""
	watchDebounce = watcher.DefaultDebounce
}

// writeTree creates files under root; a name ending in "/" is a directory.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, name := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("content of "+name), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// sampleTree builds a small source tree with two projects and returns its
// root.
func sampleTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "src")
	writeTree(t, root,
		"web/package.json",
		"web/node_modules/left-pad/index.js",
		"web/node_modules/left-pad/package.json",
		"web/.git/HEAD",
		"tool/main.c",
		"tool/main.o",
		"tool/build/tool",
	)
	return root
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
