package filehashlist

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCacheFile_MixedFormats(t *testing.T) {
	captureLogs(t)
	dir := t.TempDir()
	content := strings.Join([]string{
		"> 10 | 1700000000 | " + testSHA1 + " | a.txt",
		"      20 bytes: " + testSHA1 + " b.txt",
		"      30 bytes: c d.txt",
		"this line is garbage",
		"",
		"> 40 | None | None | caf%00e9",
	}, "\n") + "\n"
	path := writeTestFile(t, dir, "old.list", content)

	cs, err := LoadCacheFile(path)
	if err != nil {
		t.Fatalf("LoadCacheFile failed: %v", err)
	}

	if cs.Len() != 4 {
		t.Errorf("Expected 4 records, got %d", cs.Len())
	}
	stats := cs.LoadStats()
	if stats.Lines != 5 || stats.Current != 2 || stats.Legacy != 2 || stats.Skipped != 1 {
		t.Errorf("Unexpected load stats: %+v", stats)
	}

	rec, ok := cs.Lookup("b.txt")
	if !ok || rec.Size != 20 || rec.Hash != testSHA1 {
		t.Errorf("Unexpected legacy record: %+v (found=%t)", rec, ok)
	}
	rec, ok = cs.Lookup("c d.txt")
	if !ok || rec.HasHash() {
		t.Errorf("Expected unhashed legacy record for 'c d.txt', got %+v (found=%t)", rec, ok)
	}
	if _, ok := cs.Lookup("café"); !ok {
		t.Error("Expected escaped path to be looked up by its native bytes")
	}
}

func TestLoadCacheFile_LaterLineWins(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "dup.list",
		"> 1 | None | aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa | same\n"+
			"> 2 | None | bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb | same\n")

	cs, err := LoadCacheFile(path)
	if err != nil {
		t.Fatalf("LoadCacheFile failed: %v", err)
	}
	rec, _ := cs.Lookup("same")
	if rec.Size != 2 || !strings.HasPrefix(rec.Hash, "b") {
		t.Errorf("Expected the later line to win, got %+v", rec)
	}
	if cs.Len() != 1 {
		t.Errorf("Expected 1 distinct path, got %d", cs.Len())
	}
}

func TestLoadCacheFile_CRLFAndNoTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "crlf.list",
		"> 1 | None | None | one\r\n> 2 | None | None | two")

	cs, err := LoadCacheFile(path)
	if err != nil {
		t.Fatalf("LoadCacheFile failed: %v", err)
	}
	for _, p := range []string{"one", "two"} {
		if _, ok := cs.Lookup(p); !ok {
			t.Errorf("Expected record for %q", p)
		}
	}
	if cs.LoadStats().Skipped != 0 {
		t.Errorf("Expected no skipped lines, got %d", cs.LoadStats().Skipped)
	}
}

func TestLoadCacheFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "empty.list", "")

	cs, err := LoadCacheFile(path)
	if err != nil {
		t.Fatalf("LoadCacheFile failed on empty file: %v", err)
	}
	if cs.Len() != 0 {
		t.Errorf("Expected empty store, got %d records", cs.Len())
	}
}

func TestLoadCacheFile_Missing(t *testing.T) {
	_, err := LoadCacheFile(filepath.Join(t.TempDir(), "nope.list"))
	if err == nil {
		t.Fatal("Expected error for missing cache file")
	}
	if !strings.Contains(err.Error(), "failed to open cache file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadCache_Reader(t *testing.T) {
	cs, err := LoadCache(strings.NewReader("> 5 | None | None | x\n\n5 bytes: y\n"))
	if err != nil {
		t.Fatalf("LoadCache failed: %v", err)
	}
	if cs.Len() != 2 {
		t.Errorf("Expected 2 records, got %d", cs.Len())
	}
}

func TestCacheStore_NilSafe(t *testing.T) {
	var cs *CacheStore
	if _, ok := cs.Lookup("x"); ok {
		t.Error("Expected nil store lookup to miss")
	}
	if cs.Len() != 0 {
		t.Error("Expected nil store to be empty")
	}
}

func TestNewCacheStore(t *testing.T) {
	cs := NewCacheStore([]FileRecord{
		{Path: "a", Size: 1, Hash: "old"},
		{Path: "a", Size: 2, Hash: "new"},
		{Path: "b", Size: 3},
	})
	if cs.Len() != 2 {
		t.Errorf("Expected 2 records, got %d", cs.Len())
	}
	if rec, _ := cs.Lookup("a"); rec.Hash != "new" {
		t.Errorf("Expected later record to win, got %+v", rec)
	}
}

func TestLoadCache_OverlongLineSkipped(t *testing.T) {
	content := "> 1 | None | None | first\n" +
		strings.Repeat("x", 2*maxLineSize) + "\n" +
		"> 2 | None | None | second\n"

	cs, err := LoadCache(strings.NewReader(content))
	if err != nil {
		t.Fatalf("LoadCache failed on an overlong line: %v", err)
	}
	if cs.Len() != 2 {
		t.Errorf("Expected the records around the long line, got %d", cs.Len())
	}
	if stats := cs.LoadStats(); stats.Lines != 3 || stats.Skipped != 1 || stats.Current != 2 {
		t.Errorf("Unexpected load stats: %+v", stats)
	}

	// the mapped loader agrees with the reader
	path := writeTestFile(t, t.TempDir(), "long.list", content)
	mapped, err := LoadCacheFile(path)
	if err != nil {
		t.Fatalf("LoadCacheFile failed: %v", err)
	}
	if mapped.LoadStats() != cs.LoadStats() {
		t.Errorf("Mapped load %+v differs from reader load %+v", mapped.LoadStats(), cs.LoadStats())
	}
}

func TestLoadCache_OverlongValidRecordSkipped(t *testing.T) {
	long := "> 1 | None | None | " + strings.Repeat("p", maxLineSize)
	cs, err := LoadCache(strings.NewReader(long))
	if err != nil {
		t.Fatalf("LoadCache failed: %v", err)
	}
	if cs.Len() != 0 || cs.LoadStats().Skipped != 1 {
		t.Errorf("Expected the overlong line to be skipped, got %d records (%+v)", cs.Len(), cs.LoadStats())
	}
}
