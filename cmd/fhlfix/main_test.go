package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const legacyList = "      11 bytes: 2aae6c35c94fcfb415dbe95f408b9ce91ee846ed docs/hello.txt\n" +
	"       4 bytes: notes/to do.txt\n" +
	"not a record\n"

func writeList(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestUpgradeCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "old.txt", legacyList)
	out := filepath.Join(dir, "new.list")

	var stdout bytes.Buffer
	if code := run([]string{"-o", out, "upgrade", in}, &stdout); code != 0 {
		t.Fatalf("upgrade exited with %d", code)
	}
	if !strings.Contains(stdout.String(), "Wrote 2 records") {
		t.Errorf("Unexpected summary %q", stdout.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "> 11 | None | 2aae6c35c94fcfb415dbe95f408b9ce91ee846ed | docs/hello.txt\n" +
		"> 4 | None | None | notes/to do.txt\n"
	if string(data) != want {
		t.Errorf("Unexpected upgraded list:\n%s", data)
	}
}

func TestMergeRequiresOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "old.txt", legacyList)
	if code := run([]string{"merge", in}, &bytes.Buffer{}); code != 1 {
		t.Errorf("Expected exit 1 without --output, got %d", code)
	}
}

func TestMergeReportsKeptRecordsPerList(t *testing.T) {
	dir := t.TempDir()
	older := writeList(t, dir, "older.list", "> 1 | None | None | a\n> 2 | None | None | b\n")
	newer := writeList(t, dir, "newer.list", "> 10 | None | None | a\n> 3 | None | None | c\n")
	out := filepath.Join(dir, "merged.list")

	var stdout bytes.Buffer
	if code := run([]string{"-o", out, "merge", older, newer}, &stdout); code != 0 {
		t.Fatalf("merge exited with %d", code)
	}
	got := stdout.String()
	for _, want := range []string{"Wrote 3 records", older + ": 1 records kept", newer + ": 2 records kept"} {
		if !strings.Contains(got, want) {
			t.Errorf("merge output missing %q:\n%s", want, got)
		}
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), "> 10 | None | None | a\n") {
		t.Errorf("Expected the later list to win for a:\n%s", data)
	}
}

func TestShowCommandSelectedPaths(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "l.list", "> 1 | None | None | a\n> 2 | None | None | b c\n> 3 | None | None | x%0025y\n")

	var stdout bytes.Buffer
	if code := run([]string{"--format=json", "show", in, "x%0025y", "b c"}, &stdout); code != 0 {
		t.Fatalf("show exited with %d", code)
	}
	var got []jsonRecord
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON %q: %v", stdout.String(), err)
	}
	if len(got) != 2 || got[0].Path != "b c" || got[0].Size != 2 || got[1].Path != "x%0025y" || got[1].Size != 3 {
		t.Errorf("Unexpected selected records %+v", got)
	}

	if code := run([]string{"show", in, "missing"}, &bytes.Buffer{}); code != 1 {
		t.Errorf("Expected exit 1 for a path not in the list, got %d", code)
	}
}

func TestShowCommandJSON(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "l.list", "> 3 | 1700000000 | None | caf%00e9\n")

	var stdout bytes.Buffer
	if code := run([]string{"--format=json", "show", in}, &stdout); code != 0 {
		t.Fatalf("show exited with %d", code)
	}
	var got []jsonRecord
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON %q: %v", stdout.String(), err)
	}
	if len(got) != 1 || got[0].Path != "caf%00e9" || got[0].Size != 3 || got[0].ModTime == nil || *got[0].ModTime != 1700000000 {
		t.Errorf("Unexpected JSON records %+v", got)
	}
}

func TestShowCommandYAML(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "l.list", "> 3 | None | "+strings.Repeat("ab", 20)+" | x%0025y\n")

	var stdout bytes.Buffer
	if code := run([]string{"--format=yaml", "show", in}, &stdout); code != 0 {
		t.Fatalf("show exited with %d", code)
	}
	var got []jsonRecord
	if err := yaml.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("Invalid YAML %q: %v", stdout.String(), err)
	}
	if len(got) != 1 || got[0].Path != "x%0025y" || got[0].ModTime != nil || got[0].Hash != strings.Repeat("ab", 20) {
		t.Errorf("Unexpected YAML records %+v", got)
	}

	if code := run([]string{"--format=xml", "show", in}, &bytes.Buffer{}); code != 1 {
		t.Errorf("Expected exit 1 for an unknown format, got %d", code)
	}
}

func TestShowCommandHuman(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "l.list", "> 2048 | None | None | a\n")

	var stdout bytes.Buffer
	if code := run([]string{"show", in}, &stdout); code != 0 {
		t.Fatalf("show exited with %d", code)
	}
	fields := strings.Fields(stdout.String())
	if len(fields) != 5 || fields[0] != "2.0" || fields[1] != "KiB" || fields[2] != "-" || fields[4] != "a" {
		t.Errorf("Unexpected show output %q", stdout.String())
	}
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "old.txt", legacyList)

	var stdout bytes.Buffer
	if code := run([]string{"stats", in}, &stdout); code != 0 {
		t.Fatalf("stats exited with %d", code)
	}
	out := stdout.String()
	for _, want := range []string{"Records:   2 (0 current, 2 legacy, 1 skipped)", "Hashed:    1", "15 bytes"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	in := writeList(t, dir, "old.txt", legacyList)
	db := filepath.Join(dir, "lists.db")
	out := filepath.Join(dir, "from-db.list")

	for i := 0; i < 2; i++ {
		var exported bytes.Buffer
		if code := run([]string{"--db=" + db, "export", in}, &exported); code != 0 {
			t.Fatalf("export exited with %d", code)
		}
		// re-exporting replaces records by path
		if !strings.Contains(exported.String(), "Exported 2 records to "+db+" (2 in database)") {
			t.Errorf("Unexpected export summary %q", exported.String())
		}
	}
	var stdout bytes.Buffer
	if code := run([]string{"--db=" + db, "-o", out, "import"}, &stdout); code != 0 {
		t.Fatalf("import exited with %d", code)
	}
	if !strings.Contains(stdout.String(), "Imported 2 records") {
		t.Errorf("Unexpected import summary %q", stdout.String())
	}
	data, _ := os.ReadFile(out)
	if strings.Count(string(data), "\n") != 2 || !strings.Contains(string(data), "| notes/to do.txt\n") {
		t.Errorf("Unexpected imported list %q", data)
	}

	if code := run([]string{"--db=" + filepath.Join(dir, "missing.db"), "-o", out, "import"}, &bytes.Buffer{}); code != 1 {
		t.Errorf("Expected import from a missing database to fail, got %d", code)
	}
}

func TestUnknownCommand(t *testing.T) {
	if code := run([]string{"frobnicate"}, &bytes.Buffer{}); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	var stdout bytes.Buffer
	if code := run(nil, &stdout); code != 0 || !strings.Contains(stdout.String(), "Usage: fhlfix") {
		t.Errorf("Expected help with no arguments, got %d %q", code, stdout.String())
	}
}
