package app

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/store"
)

func TestScanCommand(t *testing.T) {
	if scanCmd.Use != "scan <root>" {
		t.Errorf("expected Use to be 'scan <root>', got '%s'", scanCmd.Use)
	}
	if scanCmd.Short == "" || scanCmd.Long == "" || scanCmd.Example == "" {
		t.Error("expected Short, Long and Example to be set")
	}
	for _, name := range []string{"rules", "top", "one-filesystem", "quiet"} {
		if scanCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag '%s' to be registered", name)
		}
	}
}

func TestRunScan_ReportsAndRecords(t *testing.T) {
	setupTestEnv(t)
	root := sampleTree(t)

	var err error
	out := captureStdout(t, func() {
		err = runScan(scanCmd, []string{root})
	})
	if err != nil {
		t.Fatalf("runScan: %v", err)
	}

	for _, want := range []string{"web/node_modules", "tool/main.o", "tool/build", "Found 3 matches"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".git") {
		t.Errorf("protected .git should not be reported:\n%s", out)
	}

	// Scanning deletes nothing.
	if !exists(filepath.Join(root, "web", "node_modules", "left-pad", "index.js")) {
		t.Error("scan removed a file")
	}

	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()
	scans, err := st.ListScans(0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(scans) != 1 || scans[0].MatchCount != 3 {
		t.Fatalf("expected one recorded scan with 3 matches, got %+v", scans)
	}
}

func TestRunScan_ShowsDeltaOnRescan(t *testing.T) {
	setupTestEnv(t)
	root := sampleTree(t)

	captureStdout(t, func() {
		if err := runScan(scanCmd, []string{root}); err != nil {
			t.Fatalf("first scan: %v", err)
		}
	})

	writeTree(t, root, "py/__pycache__/mod.cpython-312.pyc")

	var err error
	out := captureStdout(t, func() {
		err = runScan(scanCmd, []string{root})
	})
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !strings.Contains(out, "Since last scan") || !strings.Contains(out, "1 new, 0 gone") {
		t.Errorf("expected a delta line with one new match:\n%s", out)
	}
}

func TestRunScan_TopAndQuiet(t *testing.T) {
	setupTestEnv(t)
	root := sampleTree(t)

	scanTop = 1
	out := captureStdout(t, func() {
		if err := runScan(scanCmd, []string{root}); err != nil {
			t.Fatalf("runScan: %v", err)
		}
	})
	if !strings.Contains(out, "web/node_modules") || strings.Contains(out, "tool/main.o") {
		t.Errorf("--top 1 should list only the largest match:\n%s", out)
	}

	scanTop, scanQuiet = 0, true
	out = captureStdout(t, func() {
		if err := runScan(scanCmd, []string{root}); err != nil {
			t.Fatalf("runScan: %v", err)
		}
	})
	if strings.Contains(out, "web/node_modules") {
		t.Errorf("--quiet should only print the summary:\n%s", out)
	}
	if !strings.Contains(out, "Found 3 matches") {
		t.Errorf("--quiet output missing summary:\n%s", out)
	}
}

func TestRunScan_UsageErrors(t *testing.T) {
	tmp := setupTestEnv(t)

	file := filepath.Join(tmp, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	badRules := filepath.Join(tmp, "rules.json")
	if err := os.WriteFile(badRules, []byte(`[{"pattern": "", "kind": "dir"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		root  string
		rules string
		top   int
	}{
		{name: "missing root", root: filepath.Join(tmp, "nope")},
		{name: "root is a file", root: file},
		{name: "invalid rule file", root: tmp, rules: badRules},
		{name: "missing rule file", root: tmp, rules: filepath.Join(tmp, "absent.json")},
		{name: "negative top", root: tmp, top: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanRulesFile, scanTop = tt.rules, tt.top
			var err error
			captureStdout(t, func() {
				err = runScan(scanCmd, []string{tt.root})
			})
			if code := ExitCode(err); code != ExitUsage {
				t.Errorf("expected exit code %d, got %d (err: %v)", ExitUsage, code, err)
			}
		})
	}
}

func TestDiffScans(t *testing.T) {
	prev := []*store.MatchRecord{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}}
	cur := []cleaner.Match{{Path: "/b"}, {Path: "/d"}, {Path: "/a"}}

	added, removed := diffScans(prev, cur)
	if !reflect.DeepEqual(added, []string{"/d"}) {
		t.Errorf("added = %v, want [/d]", added)
	}
	if !reflect.DeepEqual(removed, []string{"/c"}) {
		t.Errorf("removed = %v, want [/c]", removed)
	}

	added, removed = diffScans(nil, nil)
	if added != nil || removed != nil {
		t.Errorf("empty diff = %v, %v", added, removed)
	}
}
