package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// trashCleanSample runs a trash clean over a fresh sample tree.
func trashCleanSample(t *testing.T) string {
	t.Helper()
	root := sampleTree(t)
	cleanYes, cleanTrash = true, true
	captureStdout(t, func() {
		if err := runClean(cleanCmd, []string{root}); err != nil {
			t.Fatalf("trash clean: %v", err)
		}
	})
	cleanYes, cleanTrash = false, false
	return root
}

func TestUndoCommandFlags(t *testing.T) {
	for _, name := range []string{"list", "yes", "purge"} {
		if undoCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag '%s' to be registered", name)
		}
	}
}

func TestRunUndo_List(t *testing.T) {
	setupTestEnv(t)
	// A write-mode command creates the schema first.
	captureStdout(t, func() {
		if err := runScan(scanCmd, []string{t.TempDir()}); err != nil {
			t.Fatalf("runScan: %v", err)
		}
	})

	undoFlagList = true
	out := captureStdout(t, func() {
		if err := runUndo(undoCmd, nil); err != nil {
			t.Fatalf("runUndo --list: %v", err)
		}
	})
	if !strings.Contains(out, "Trash is empty.") {
		t.Errorf("expected empty trash listing:\n%s", out)
	}

	undoFlagList = false
	trashCleanSample(t)

	undoFlagList = true
	out = captureStdout(t, func() {
		if err := runUndo(undoCmd, nil); err != nil {
			t.Fatalf("runUndo --list: %v", err)
		}
	})
	if !strings.Contains(out, "available") {
		t.Errorf("expected an available trash entry:\n%s", out)
	}
}

func TestRunUndo_ArgumentErrors(t *testing.T) {
	setupTestEnv(t)
	trashCleanSample(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no argument", args: nil},
		{name: "not a number", args: []string{"abc"}},
		{name: "zero", args: []string{"0"}},
		{name: "negative", args: []string{"-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			captureStdout(t, func() {
				err = runUndo(undoCmd, tt.args)
			})
			if code := ExitCode(err); code != ExitUsage {
				t.Errorf("expected exit code %d, got %d (err: %v)", ExitUsage, code, err)
			}
		})
	}

	var err error
	captureStdout(t, func() {
		err = runUndo(undoCmd, []string{"42"})
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRunUndo_ConfirmAndRestoreTwice(t *testing.T) {
	setupTestEnv(t)
	root := trashCleanSample(t)

	// Declining leaves everything in the trash.
	withStdin(t, "n\n")
	out := captureStdout(t, func() {
		if err := runUndo(undoCmd, []string{"1"}); err != nil {
			t.Fatalf("runUndo: %v", err)
		}
	})
	if !strings.Contains(out, "Restore cancelled.") {
		t.Errorf("expected cancellation:\n%s", out)
	}
	if exists(filepath.Join(root, "tool", "main.o")) {
		t.Fatal("declined restore should not move anything back")
	}

	undoFlagYes = true
	captureStdout(t, func() {
		if err := runUndo(undoCmd, []string{"1"}); err != nil {
			t.Fatalf("runUndo: %v", err)
		}
	})
	if !exists(filepath.Join(root, "tool", "main.o")) {
		t.Fatal("restore should move main.o back")
	}

	var err error
	captureStdout(t, func() {
		err = runUndo(undoCmd, []string{"1"})
	})
	if code := ExitCode(err); code != ExitUsage || !strings.Contains(err.Error(), "already restored") {
		t.Errorf("second restore: expected usage error about restored trash, got %d (%v)", code, err)
	}

	captureStdout(t, func() {
		err = runUndo(undoCmd, []string{"latest"})
	})
	if err == nil || !strings.Contains(err.Error(), "no trash to restore") {
		t.Errorf("latest with nothing left: got %v", err)
	}
}

func TestRunUndo_ConflictKeepsEntryInTrash(t *testing.T) {
	setupTestEnv(t)
	root := trashCleanSample(t)

	// Rebuild one of the trashed paths before restoring.
	obj := filepath.Join(root, "tool", "main.o")
	if err := os.WriteFile(obj, []byte("rebuilt"), 0644); err != nil {
		t.Fatal(err)
	}

	undoFlagYes = true
	var err error
	out := captureStdout(t, func() {
		err = runUndo(undoCmd, []string{"latest"})
	})
	if err == nil {
		t.Fatal("expected an error for the conflicting entry")
	}
	if code := ExitCode(err); code != ExitFailure {
		t.Errorf("expected exit code %d, got %d", ExitFailure, code)
	}
	if !strings.Contains(out, "Restored 2 paths") || !strings.Contains(out, "✗ "+obj) {
		t.Errorf("expected partial restore report:\n%s", out)
	}

	data, err := os.ReadFile(obj)
	if err != nil || string(data) != "rebuilt" {
		t.Errorf("existing file was overwritten: %q, %v", data, err)
	}
}

func TestRunUndo_Purge(t *testing.T) {
	setupTestEnv(t)
	trashCleanSample(t)

	undoFlagPurge = true
	out := captureStdout(t, func() {
		if err := runUndo(undoCmd, nil); err != nil {
			t.Fatalf("runUndo --purge: %v", err)
		}
	})
	// A fresh trash clean is not yet expired.
	if !strings.Contains(out, "Purged 0 trash cleans older than 30 days.") {
		t.Errorf("unexpected purge output:\n%s", out)
	}
}
