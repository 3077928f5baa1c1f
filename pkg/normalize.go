package filehashlist

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"

	"github.com/google/vectorio"
)

// iovMax is the Linux UIO_MAXIOV limit on iovecs per writev call
const iovMax = 1024

// ListSource is one input of MergeLists
type ListSource struct {
	Label string
	Path  string
}

// MergeStats describes a merge
type MergeStats struct {
	Sources  int
	Records  int // records read over all sources
	Distinct int // paths in the result
	Legacy   int // legacy lines upgraded
	Skipped  int // undecodable lines
}

// LoadRecordList loads one list file into an ordered list labelled context
func LoadRecordList(path string, context string) (*RecordList, CacheLoadStats, error) {
	store, err := LoadCacheFile(path)
	if err != nil {
		return nil, CacheLoadStats{}, err
	}
	rl := NewRecordList(16)
	for _, rec := range store.records {
		rl.Put(rec, context)
	}
	return rl, store.LoadStats(), nil
}

// MergeLists combines lists into one ordered list. For a path present in
// several sources the record from the later source wins.
func MergeLists(sources []ListSource) (*RecordList, MergeStats, error) {
	defer VerboseEnter()()

	merged := NewRecordList(16)
	var stats MergeStats
	for _, src := range sources {
		label := src.Label
		if label == "" {
			label = src.Path
		}
		rl, loadStats, err := LoadRecordList(src.Path, label)
		if err != nil {
			return nil, stats, err
		}
		if err := merged.Merge(rl, MergeTheirs); err != nil {
			return nil, stats, fmt.Errorf("failed to merge %s: %w", src.Path, err)
		}
		stats.Sources++
		stats.Records += loadStats.Current + loadStats.Legacy
		stats.Legacy += loadStats.Legacy
		stats.Skipped += loadStats.Skipped
		VerboseLog(1, "Merged %s: %d records (%d legacy, %d skipped)", src.Path, rl.Length(), loadStats.Legacy, loadStats.Skipped)
	}
	stats.Distinct = merged.Length()
	return merged, stats, nil
}

// WriteList writes the list in path order in the current format. The file is
// written under a temporary name and renamed over outputPath when complete.
func WriteList(outputPath string, rl *RecordList) error {
	defer VerboseEnter()()

	tempPath := GenerateTempFileName(filepath.Dir(outputPath), filepath.Base(outputPath))
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp list file %s: %w", tempPath, err)
	}

	if err := writeLines(file, encodeLines(rl)); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp list file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp list file: %w", err)
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s to %s: %w", tempPath, outputPath, err)
	}
	return nil
}

// encodeLines encodes every record into one shared buffer and returns a
// slice per line, newline included
func encodeLines(rl *RecordList) [][]byte {
	buf := make([]byte, 0, rl.Length()*96)
	offsets := make([]int, 0, rl.Length()+1)
	rl.ForEach(func(rec *FileRecord, _ string) bool {
		offsets = append(offsets, len(buf))
		buf = AppendRecord(buf, *rec)
		buf = append(buf, '\n')
		return true
	})
	offsets = append(offsets, len(buf))

	lines := make([][]byte, 0, len(offsets)-1)
	for i := 0; i+1 < len(offsets); i++ {
		lines = append(lines, buf[offsets[i]:offsets[i+1]])
	}
	return lines
}

// writeLines writes lines with writev in chunks of at most iovMax lines.
// A short writev is completed with plain writes.
func writeLines(file *os.File, lines [][]byte) error {
	iovecs := make([]syscall.Iovec, 0, iovMax)
	for offset := 0; offset < len(lines); offset += iovMax {
		end := offset + iovMax
		if end > len(lines) {
			end = len(lines)
		}
		chunk := lines[offset:end]

		iovecs = iovecs[:0]
		expected := 0
		for _, line := range chunk {
			iov := syscall.Iovec{Base: (*byte)(unsafe.Pointer(&line[0]))}
			iov.SetLen(len(line))
			iovecs = append(iovecs, iov)
			expected += len(line)
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs)
		if err != nil {
			return fmt.Errorf("failed to write list chunk with vectorio: %w", err)
		}
		if nw < expected {
			if err := writeRemainder(file, chunk, nw); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRemainder(file *os.File, chunk [][]byte, written int) error {
	for _, line := range chunk {
		if written >= len(line) {
			written -= len(line)
			continue
		}
		if _, err := file.Write(line[written:]); err != nil {
			return fmt.Errorf("failed to write list remainder: %w", err)
		}
		written = 0
	}
	return nil
}
