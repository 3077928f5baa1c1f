package filehashlist

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// CollectorOptions configures a Collector
type CollectorOptions struct {
	ProgressEvery int       // records between status lines, 0 disables them
	Status        io.Writer // status line destination, nil disables it
	Now           func() time.Time
}

// Collector is the only consumer of the pipeline's channel. It owns the
// sinks and the Statistics for the duration of a run.
type Collector struct {
	sink  RecordSink
	opts  CollectorOptions
	stats Statistics
	start time.Time
}

// NewCollector creates a collector writing every record to each sink
func NewCollector(sinks []RecordSink, opts CollectorOptions) *Collector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var sink RecordSink = multiSink(sinks)
	if len(sinks) == 1 {
		sink = sinks[0]
	}
	return &Collector{sink: sink, opts: opts}
}

// Run consumes in until it is closed and returns the run statistics. A sink
// failure stops writing but the channel is still drained so workers never
// block, and the first such error is returned. Sinks are not closed.
func (c *Collector) Run(in <-chan ProgressRecord) (stats *Statistics, err error) {
	defer VerboseEnter()()
	c.start = c.opts.Now()

	defer func() {
		if r := recover(); r != nil {
			for range in {
			}
			err = fmt.Errorf("collector failed: %v", r)
		}
		c.stats.Elapsed = c.opts.Now().Sub(c.start)
		stats = &c.stats
	}()

	var sinkErr error
	for pr := range in {
		c.account(pr)
		if sinkErr != nil {
			continue
		}
		if werr := c.sink.WriteRecord(pr.Record); werr != nil {
			sinkErr = werr
			LogError("Output failed, draining remaining records: %v", werr)
			continue
		}
		if c.opts.ProgressEvery > 0 && c.stats.TotalFiles%c.opts.ProgressEvery == 0 {
			c.writeStatus()
		}
	}
	if c.opts.ProgressEvery > 0 && c.stats.TotalFiles > 0 {
		c.writeStatus()
		if c.opts.Status != nil {
			fmt.Fprintln(c.opts.Status)
		}
	}
	return &c.stats, sinkErr
}

func (c *Collector) account(pr ProgressRecord) {
	c.stats.TotalFiles++
	c.stats.TotalBytes += pr.Record.Size
	// every file not served from the cache counts as hashed, whether or
	// not its content was read
	if pr.PreviouslyKnown {
		c.stats.NumHashesReused++
	} else {
		c.stats.TotalHashedBytes += pr.Record.Size
	}
	if pr.Hashed {
		VerboseLog(2, "Hashed %s (%s, %s/s)", pr.Record.Path, humanize.IBytes(pr.Record.Size), humanize.IBytes(uint64(pr.Throughput)))
	}
	if pr.Err != nil {
		c.stats.FailedFiles++
		LogError("%v", pr.Err)
	}
}

// writeStatus rewrites the status line in place, best effort
func (c *Collector) writeStatus() {
	if c.opts.Status == nil {
		return
	}
	elapsed := c.opts.Now().Sub(c.start)
	c.stats.Elapsed = elapsed
	fmt.Fprintf(c.opts.Status, "\r%10s, %7s files, %s/s        ",
		humanize.IBytes(c.stats.TotalBytes),
		humanize.Comma(int64(c.stats.TotalFiles)),
		humanize.IBytes(uint64(c.stats.HashRate())))
}
