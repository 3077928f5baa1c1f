package filehashlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// RecordSink receives finished records, in completion order
type RecordSink interface {
	WriteRecord(rec FileRecord) error
	Close() error
}

// LineSink writes records in the current list format, one line per record.
// Each line is flushed as soon as it is complete so an interrupted run
// leaves a valid list.
type LineSink struct {
	w      *bufio.Writer
	closer io.Closer
	buf    []byte
}

// NewLineSink wraps w. Close flushes but only closes w when it is an io.Closer
// other than stdout or stderr.
func NewLineSink(w io.Writer) *LineSink {
	s := &LineSink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		s.closer = c
	}
	return s
}

// WriteRecord encodes and writes one line
func (s *LineSink) WriteRecord(rec FileRecord) error {
	s.buf = AppendRecord(s.buf[:0], rec)
	s.buf = append(s.buf, '\n')
	if _, err := s.w.Write(s.buf); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (s *LineSink) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// FileSink is a LineSink on a file that is written under a temporary name
// and renamed over the target by Commit.
type FileSink struct {
	*LineSink
	file      *os.File
	path      string
	tempPath  string
	closed    bool
	committed bool
}

// CreateFileSink creates the list file at path. With atomic set the lines go
// to a temporary sibling until Commit.
func CreateFileSink(path string, atomic bool) (*FileSink, error) {
	target := path
	if atomic {
		target = GenerateTempFileName(filepath.Dir(path), filepath.Base(path))
	}
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", target, err)
	}
	s := &FileSink{
		LineSink: NewLineSink(file),
		file:     file,
		path:     path,
	}
	if atomic {
		s.tempPath = target
	}
	return s, nil
}

// Close flushes and closes the file. A temporary file is left for Commit or Abort.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.LineSink.Close()
}

// Commit syncs and closes the file and renames a temporary file over the target
func (s *FileSink) Commit() error {
	if s.committed {
		return nil
	}
	if s.tempPath != "" && !s.closed {
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s: %w", s.tempPath, err)
		}
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync %s: %w", s.tempPath, err)
		}
	}
	if err := s.Close(); err != nil {
		return err
	}
	s.committed = true
	if s.tempPath == "" {
		return nil
	}
	if err := os.Rename(s.tempPath, s.path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", s.tempPath, s.path, err)
	}
	return nil
}

// Abort closes the file and removes a temporary file, leaving the target untouched
func (s *FileSink) Abort() {
	s.Close()
	if s.tempPath != "" && !s.committed {
		os.Remove(s.tempPath)
	}
}

// Path returns the file currently being written
func (s *FileSink) Path() string {
	if s.tempPath != "" && !s.committed {
		return s.tempPath
	}
	return s.path
}

// multiSink fans every record out to several sinks
type multiSink []RecordSink

func (m multiSink) WriteRecord(rec FileRecord) error {
	for _, s := range m {
		if err := s.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
