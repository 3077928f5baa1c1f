package filehashlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// errScanInterrupted is returned when shutdown is signalled during a walk
var errScanInterrupted = errors.New("scan interrupted by shutdown")

// ScanOptions controls ScanTree
type ScanOptions struct {
	FollowLinks bool     // descend into and report through symbolic links
	MaxCount    int      // stop after this many candidates, 0 means no limit
	Excludes    []string // doublestar patterns matched against the relative path and the base name
	IgnoreFile  string   // gitignore syntax rules applied relative to the root
	Skip        []string // files never reported, such as the run's own output
}

// devIno identifies a directory for cycle detection
type devIno struct {
	dev uint64
	ino uint64
}

type treeScanner struct {
	root         string
	opts         ScanOptions
	skip         []os.FileInfo
	ignore       gitignore.GitIgnore
	visited      map[devIno]bool
	candidates   []Candidate
	shutdownChan <-chan struct{}
}

// ScanTree walks root in sorted name order and returns the regular files
// found. A missing or unreadable root is an error. Unreadable subdirectories
// are logged and skipped. If shutdown is signalled the candidates found so
// far are returned with an error.
func ScanTree(root string, opts ScanOptions, shutdownChan <-chan struct{}) ([]Candidate, error) {
	defer VerboseEnter()()

	if err := ValidateExcludePatterns(opts.Excludes); err != nil {
		return nil, err
	}

	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		// an explicitly named root is always resolved
		if info, err = os.Stat(root); err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
	}

	ts := &treeScanner{
		root:         root,
		opts:         opts,
		visited:      make(map[devIno]bool),
		shutdownChan: shutdownChan,
	}
	if opts.IgnoreFile != "" {
		if ts.ignore, err = loadIgnoreFile(opts.IgnoreFile, root); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.Skip {
		if fi, err := os.Stat(p); err == nil {
			ts.skip = append(ts.skip, fi)
		}
	}

	switch {
	case info.Mode().IsRegular():
		ts.addFile(root, info)
		return ts.candidates, nil
	case !info.IsDir():
		return nil, fmt.Errorf("root %s is neither a directory nor a regular file", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read root %s: %w", root, err)
	}
	ts.markVisited(info)
	err = ts.walkEntries(root, entries)
	if err == errScanInterrupted {
		DebugLog("scan", "Filesystem scan interrupted by shutdown after %d files", len(ts.candidates))
	}
	VerboseLog(1, "Scanned %s: %d files", root, len(ts.candidates))
	return ts.candidates, err
}

// full reports whether the count limit has been reached
func (ts *treeScanner) full() bool {
	return ts.opts.MaxCount > 0 && len(ts.candidates) >= ts.opts.MaxCount
}

func (ts *treeScanner) walkEntries(dir string, entries []os.DirEntry) error {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		select {
		case <-ts.shutdownChan:
			return errScanInterrupted
		default:
		}
		if ts.full() {
			return nil
		}

		path := filepath.Join(dir, entry.Name())
		if ts.excluded(path) {
			DebugLog("scan", "Excluded: %s", path)
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			LogWarning("cannot stat %s: %v", path, err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !ts.opts.FollowLinks {
				DebugLog("scan", "Skipping symlink: %s", path)
				continue
			}
			if info, err = os.Stat(path); err != nil {
				DebugLog("scan", "Skipping broken symlink %s: %v", path, err)
				continue
			}
		}

		if ts.ignored(path, info.IsDir()) {
			DebugLog("scan", "Ignored: %s", path)
			continue
		}

		switch {
		case info.IsDir():
			if !ts.markVisited(info) {
				DebugLog("scan", "Skipping directory cycle at %s", path)
				continue
			}
			children, err := os.ReadDir(path)
			if err != nil {
				LogWarning("cannot read directory %s: %v", path, err)
				continue
			}
			if err := ts.walkEntries(path, children); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			ts.addFile(path, info)
		}
	}
	return nil
}

func (ts *treeScanner) addFile(path string, info os.FileInfo) {
	for _, s := range ts.skip {
		if os.SameFile(s, info) {
			DebugLog("scan", "Skipping output file %s", path)
			return
		}
	}
	DebugLog("scan", "Scanned file: %s", path)
	ts.candidates = append(ts.candidates, Candidate{
		Path:    path,
		Size:    uint64(info.Size()),
		ModTime: info.ModTime().Truncate(time.Second).UTC(),
	})
}

// markVisited records a directory and reports whether it was new
func (ts *treeScanner) markVisited(info os.FileInfo) bool {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	key := devIno{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}
	if ts.visited[key] {
		return false
	}
	ts.visited[key] = true
	return true
}

// excluded matches the exclude patterns against the slash separated path
// relative to the root and against the base name
func (ts *treeScanner) excluded(path string) bool {
	if len(ts.opts.Excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(ts.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, pattern := range ts.opts.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// ignored applies the ignore file rules to path
func (ts *treeScanner) ignored(path string, isDir bool) bool {
	if ts.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(ts.root, path)
	if err != nil {
		return false
	}
	match := ts.ignore.Relative(filepath.ToSlash(rel), isDir)
	return match != nil && match.Ignore()
}

func loadIgnoreFile(path, root string) (gitignore.GitIgnore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file %s: %w", path, err)
	}
	defer f.Close()
	return gitignore.New(f, root, nil), nil
}

// ValidateExcludePatterns rejects malformed doublestar patterns
func ValidateExcludePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern: %q", p)
		}
	}
	return nil
}
