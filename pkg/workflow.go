package filehashlist

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInterrupted is returned by Run when shutdown was signalled before the run completed
var ErrInterrupted = errors.New("run interrupted")

// RunOptions configures one inventory run
type RunOptions struct {
	Root     string
	Scan     ScanOptions
	Pipeline PipelineOptions

	// Cache is used as is when set, otherwise LoadFrom names a list file
	Cache    *CacheStore
	LoadFrom string

	// Output names the list file to write, empty writes to Stdout
	Output string
	Stdout io.Writer

	// ExtraSinks receive every record after the list sink. Run closes them.
	ExtraSinks []RecordSink

	QueueSize     int
	ProgressEvery int
	Status        io.Writer
}

// Run loads the cache, scans the root, hashes the candidates and writes the
// new list. The returned statistics are valid whenever they are non-nil, on
// interruption too.
//
// When Output is the file named by LoadFrom the new list is written to a
// temporary sibling and only renamed over the old one when the run
// completes, so an interrupted run leaves the previous list untouched.
func Run(opts RunOptions, shutdownChan <-chan struct{}) (*Statistics, error) {
	defer VerboseEnter()()

	cache := opts.Cache
	if cache == nil {
		cache = NewCacheStore(nil)
		if opts.LoadFrom != "" {
			loaded, err := LoadCacheFile(opts.LoadFrom)
			if err != nil {
				closeSinks(opts.ExtraSinks)
				return nil, err
			}
			cache = loaded
		}
	}

	scanOpts := opts.Scan
	if opts.Output != "" {
		scanOpts.Skip = append(append([]string(nil), scanOpts.Skip...), opts.Output)
	}
	candidates, err := ScanTree(opts.Root, scanOpts, shutdownChan)
	if errors.Is(err, errScanInterrupted) {
		closeSinks(opts.ExtraSinks)
		return &Statistics{}, ErrInterrupted
	}
	if err != nil {
		closeSinks(opts.ExtraSinks)
		return nil, err
	}

	pipeline, err := NewPipeline(cache, opts.Pipeline)
	if err != nil {
		closeSinks(opts.ExtraSinks)
		return nil, err
	}

	var fileSink *FileSink
	var listSink RecordSink
	if opts.Output != "" {
		atomic := opts.LoadFrom != "" && SameFile(opts.Output, opts.LoadFrom)
		fileSink, err = CreateFileSink(opts.Output, atomic)
		if err != nil {
			closeSinks(opts.ExtraSinks)
			return nil, err
		}
		if atomic {
			VerboseLog(1, "Output is the loaded cache, writing %s first", fileSink.Path())
		}
		listSink = fileSink
	} else {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		listSink = NewLineSink(stdout)
	}
	sinks := append([]RecordSink{listSink}, opts.ExtraSinks...)

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	VerboseLog(1, "Processing %d files with %d cached records", len(candidates), cache.Len())

	records := make(chan ProgressRecord, queueSize)
	go pipeline.Run(candidates, records, shutdownChan)

	collector := NewCollector(sinks, CollectorOptions{
		ProgressEvery: opts.ProgressEvery,
		Status:        opts.Status,
	})
	stats, runErr := collector.Run(records)

	interrupted := false
	select {
	case <-shutdownChan:
		interrupted = true
	default:
	}

	closeErr := closeSinks(sinks[1:])
	switch {
	case runErr != nil:
		if fileSink != nil {
			fileSink.Abort()
		} else {
			listSink.Close()
		}
		return stats, fmt.Errorf("failed to write records: %w", runErr)
	case interrupted:
		if fileSink != nil && fileSink.Path() != opts.Output {
			fileSink.Abort()
		} else {
			listSink.Close()
		}
		return stats, ErrInterrupted
	}

	if fileSink != nil {
		if err := fileSink.Commit(); err != nil {
			fileSink.Abort()
			return stats, err
		}
	} else if err := listSink.Close(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}
	if closeErr != nil {
		return stats, fmt.Errorf("failed to close sink: %w", closeErr)
	}
	return stats, nil
}

func closeSinks(sinks []RecordSink) error {
	var first error
	for _, s := range sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
