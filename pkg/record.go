package filehashlist

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FileRecord is one inventoried file. Path is an opaque byte sequence and is
// never assumed to be valid UTF-8.
type FileRecord struct {
	Path    string
	Size    uint64
	ModTime time.Time // zero when unknown
	Hash    string    // lowercase hex, empty when not hashed
}

// HasModTime reports whether the record carries a modification time
func (r FileRecord) HasModTime() bool {
	return !r.ModTime.IsZero()
}

// HasHash reports whether the record carries a content hash
func (r FileRecord) HasHash() bool {
	return r.Hash != ""
}

// Candidate is a file produced by the scanner, before hashing
type Candidate struct {
	Path    string
	Size    uint64
	ModTime time.Time
}

// Record converts a candidate into a FileRecord without a hash
func (c Candidate) Record() FileRecord {
	return FileRecord{Path: c.Path, Size: c.Size, ModTime: c.ModTime}
}

// ProgressRecord is a completed FileRecord in flight from a hash worker to the collector.
type ProgressRecord struct {
	Record          FileRecord
	PreviouslyKnown bool    // cached hash reused, no bytes read
	Hashed          bool    // file content was streamed through the hash
	Throughput      float64 // bytes per second for this file, valid when Hashed
	Err             error   // per-file failure, the record carries no hash
}

// Statistics aggregates a run. It is owned by the collector until returned.
type Statistics struct {
	NumHashesReused  int
	TotalBytes       uint64
	TotalHashedBytes uint64
	TotalFiles       int
	FailedFiles      int
	Elapsed          time.Duration
}

// HashRate returns the bytes hashed per second over the run
func (s *Statistics) HashRate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.TotalHashedBytes) / secs
}

// String renders the final summary printed at the end of a run
func (s *Statistics) String() string {
	return fmt.Sprintf("Files scanned:  %s\nBytes seen:     %s (%s)\nBytes hashed:   %s (%s)\nHashes reused:  %s\nFailed files:   %s\nElapsed:        %s",
		humanize.Comma(int64(s.TotalFiles)),
		humanize.Comma(int64(s.TotalBytes)), humanize.IBytes(s.TotalBytes),
		humanize.Comma(int64(s.TotalHashedBytes)), humanize.IBytes(s.TotalHashedBytes),
		humanize.Comma(int64(s.NumHashesReused)),
		humanize.Comma(int64(s.FailedFiles)),
		s.Elapsed.Round(time.Millisecond))
}
