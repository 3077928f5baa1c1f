package filehashlist

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// FileOpener opens a file for hashing
type FileOpener func(path string) (io.ReadCloser, error)

// PipelineOptions configures a Pipeline
type PipelineOptions struct {
	Workers      int            // hash workers, DefaultHashWorkers when <= 0
	HashContents bool           // compute hashes, otherwise inventory size and mtime only
	Algorithm    *HashAlgorithm // sha1 when nil
	BufferSize   int            // read buffer per worker, 2M when <= 0
	Open         FileOpener     // OpenSequential when nil
}

// Pipeline hashes candidates on a fixed pool of workers, reusing hashes from
// the cache for files whose size has not changed.
type Pipeline struct {
	cache *CacheStore
	opts  PipelineOptions
}

// NewPipeline creates a pipeline reading from cache, which may be nil
func NewPipeline(cache *CacheStore, opts PipelineOptions) (*Pipeline, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultHashWorkers
	}
	if opts.Algorithm == nil {
		alg, err := GetHashAlgorithm(DefaultHashAlgorithm)
		if err != nil {
			return nil, err
		}
		opts.Algorithm = alg
	}
	if opts.BufferSize <= 0 {
		size, err := ParseHumanSize(DefaultHashBuffer)
		if err != nil {
			return nil, err
		}
		opts.BufferSize = size
	}
	if opts.Open == nil {
		opts.Open = func(path string) (io.ReadCloser, error) {
			return OpenSequential(path)
		}
	}
	return &Pipeline{cache: cache, opts: opts}, nil
}

// Run dispatches candidates to the workers and sends one ProgressRecord per
// processed file to out, in completion order. out is closed once every worker
// has finished. When shutdown is signalled no new files are started and
// in-flight hashes are abandoned without emitting a record.
func (p *Pipeline) Run(candidates []Candidate, out chan<- ProgressRecord, shutdownChan <-chan struct{}) {
	defer VerboseEnter()()
	defer close(out)

	jobs := make(chan Candidate)
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go p.hashWorker(i, jobs, out, shutdownChan, &wg)
	}

dispatch:
	for _, c := range candidates {
		select {
		case jobs <- c:
		case <-shutdownChan:
			DebugLog("pipeline", "Dispatch stopped by shutdown")
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
}

func (p *Pipeline) hashWorker(id int, jobs <-chan Candidate, out chan<- ProgressRecord, shutdownChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	buffer := make([]byte, p.opts.BufferSize)

	for c := range jobs {
		pr, ok := p.process(c, buffer, shutdownChan)
		if !ok {
			continue
		}
		DebugLog("pipeline", "worker %d finished %s (reused=%t hashed=%t)", id, c.Path, pr.PreviouslyKnown, pr.Hashed)
		out <- pr
	}
}

// process produces the record for one candidate. It returns false when the
// file was abandoned because of shutdown.
func (p *Pipeline) process(c Candidate, buffer []byte, shutdownChan <-chan struct{}) (ProgressRecord, bool) {
	pr := ProgressRecord{Record: c.Record()}
	if !p.opts.HashContents {
		return pr, true
	}

	// same size is taken as unchanged. mtime is carried but not compared.
	if cached, ok := p.cache.Lookup(c.Path); ok && cached.HasHash() && cached.Size == c.Size {
		pr.Record.Hash = cached.Hash
		pr.PreviouslyKnown = true
		return pr, true
	}

	start := time.Now()
	sum, n, err := p.hashFile(c.Path, buffer, shutdownChan)
	if errors.Is(err, errHashInterrupted) {
		return pr, false
	}
	if err != nil {
		pr.Err = err
		return pr, true
	}
	pr.Record.Hash = sum
	pr.Hashed = true
	if secs := time.Since(start).Seconds(); secs > 0 {
		pr.Throughput = float64(n) / secs
	}
	return pr, true
}

func (p *Pipeline) hashFile(path string, buffer []byte, shutdownChan <-chan struct{}) (string, uint64, error) {
	file, err := p.opts.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	sum, n, err := HashReaderInterruptible(file, p.opts.Algorithm, buffer, shutdownChan)
	if errors.Is(err, errHashInterrupted) {
		return "", n, err
	}
	if err != nil {
		return "", n, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return sum, n, nil
}
