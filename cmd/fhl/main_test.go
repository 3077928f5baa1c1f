package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildRunOptions(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config")
	if err := os.WriteFile(config, []byte("[performance]\nhash_workers = 2\n\n[scan]\nexclude = *.tmp\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	opts := defineOptions()
	args := []string{"-H", "-q", "--config=" + config, "--algorithm=sha256", "--exclude=*.bak,cache", "-n", "10", "-o", "out.list", dir}
	if err := opts.Parse(args); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	runOpts, closeStore, err := buildRunOptions(opts, dir)
	if err != nil {
		t.Fatalf("buildRunOptions failed: %v", err)
	}
	defer closeStore()

	if !runOpts.Pipeline.HashContents || runOpts.Pipeline.Algorithm.Name != "sha256" || runOpts.Pipeline.Workers != 2 {
		t.Errorf("Unexpected pipeline options: %+v", runOpts.Pipeline)
	}
	if got := strings.Join(runOpts.Scan.Excludes, ","); got != "*.tmp,*.bak,cache" {
		t.Errorf("Unexpected excludes %s", got)
	}
	if runOpts.Scan.MaxCount != 10 || runOpts.Output != "out.list" || runOpts.Status != nil {
		t.Errorf("Unexpected run options: %+v", runOpts)
	}
}

func TestBuildRunOptions_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string][]string{
		"missing config":    {"--config=" + filepath.Join(dir, "nope")},
		"bad algorithm":     {"--algorithm=md5"},
		"bad workers":       {"--workers=0"},
		"bad exclude":       {"--exclude=[x"},
		"negative count":    {"--count=-1"},
		"bad override":      {"--override=colour:blue"},
		"missing load file": {"--load=" + filepath.Join(dir, "missing.db")},
	}
	for name, args := range tests {
		opts := defineOptions()
		// keep a real user config out of the test
		argv := append([]string{"--config=/dev/null"}, args...)
		if err := opts.Parse(append(argv, dir)); err != nil {
			t.Fatalf("%s: Parse failed: %v", name, err)
		}
		if _, _, err := buildRunOptions(opts, dir); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestRunWritesList(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "tree")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("hello world"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	out := filepath.Join(dir, "tree.list")
	db := filepath.Join(dir, "tree.db")

	if code := run([]string{"-Hq", "--config=/dev/null", "--sqlite=" + db, "-o", out, root}); code != exitOK {
		t.Fatalf("run exited with %d", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "| 2aae6c35c94fcfb415dbe95f408b9ce91ee846ed | ") {
		t.Errorf("Expected hashed record, got %q", data)
	}

	// the database works as a cache for the next run
	if code := run([]string{"-Hq", "--config=/dev/null", "--load=" + db, "-o", out, root}); code != exitOK {
		t.Fatalf("second run exited with %d", code)
	}

	if code := run([]string{"a", "b"}); code != exitError {
		t.Errorf("Expected exit %d for two paths, got %d", exitError, code)
	}
}
