package filehashlist

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// memorySink records what it receives
type memorySink struct {
	records []FileRecord
	failAt  int // 1-based record number that fails, 0 never
	panicAt int
	closed  bool
}

func (m *memorySink) WriteRecord(rec FileRecord) error {
	n := len(m.records) + 1
	if m.panicAt == n {
		panic("sink exploded")
	}
	if m.failAt == n {
		return errors.New("disk full")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func feed(prs []ProgressRecord) <-chan ProgressRecord {
	ch := make(chan ProgressRecord, len(prs))
	for _, pr := range prs {
		ch <- pr
	}
	close(ch)
	return ch
}

// fakeClock advances one second per call
func fakeClock() func() time.Time {
	now := time.Unix(1700000000, 0)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestCollector_Accounting(t *testing.T) {
	logs := captureLogs(t)
	sink := &memorySink{}
	c := NewCollector([]RecordSink{sink}, CollectorOptions{Now: fakeClock()})

	stats, err := c.Run(feed([]ProgressRecord{
		{Record: FileRecord{Path: "reused", Size: 100, Hash: "h1"}, PreviouslyKnown: true},
		{Record: FileRecord{Path: "hashed", Size: 50, Hash: "h2"}, Hashed: true},
		{Record: FileRecord{Path: "plain", Size: 7}},
		{Record: FileRecord{Path: "failed", Size: 3}, Err: errors.New("permission denied")},
	}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.TotalFiles != 4 || stats.TotalBytes != 160 {
		t.Errorf("Unexpected totals: %+v", stats)
	}
	// everything not reused counts as hashed, inventory and failed files included
	if stats.NumHashesReused != 1 || stats.TotalHashedBytes != 60 || stats.FailedFiles != 1 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if stats.Elapsed <= 0 {
		t.Errorf("Expected elapsed time, got %v", stats.Elapsed)
	}
	if len(sink.records) != 4 {
		t.Errorf("Expected every record written, failed files included, got %d", len(sink.records))
	}
	if sink.closed {
		t.Error("Collector must not close its sinks")
	}
	if !strings.Contains(logs.String(), "[ERROR] permission denied") {
		t.Errorf("Expected per-file failure to be logged, got %q", logs.String())
	}
}

func TestCollector_InventoryAndFailedBytes(t *testing.T) {
	captureLogs(t)
	c := NewCollector([]RecordSink{&memorySink{}}, CollectorOptions{})

	stats, err := c.Run(feed([]ProgressRecord{
		{Record: FileRecord{Path: "listed", Size: 100}},
		{Record: FileRecord{Path: "unreadable", Size: 50}, Err: errors.New("read error")},
	}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.TotalHashedBytes != 150 || stats.TotalBytes != 150 || stats.NumHashesReused != 0 {
		t.Errorf("Expected records not served from the cache to count as hashed bytes, got %+v", stats)
	}
}

func TestCollector_StatusLines(t *testing.T) {
	var status bytes.Buffer
	c := NewCollector([]RecordSink{&memorySink{}}, CollectorOptions{ProgressEvery: 2, Status: &status, Now: fakeClock()})

	prs := make([]ProgressRecord, 5)
	for i := range prs {
		prs[i] = ProgressRecord{Record: FileRecord{Path: string(rune('a' + i)), Size: 1024}, Hashed: true}
	}
	if _, err := c.Run(feed(prs)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := status.String()
	// after records 2 and 4, then the final line
	if n := strings.Count(out, "\r"); n != 3 {
		t.Errorf("Expected 3 status lines, got %d in %q", n, out)
	}
	if !strings.Contains(out, "5.0 KiB") || !strings.HasSuffix(out, "\n") {
		t.Errorf("Unexpected final status %q", out)
	}
}

func TestCollector_StatusDisabled(t *testing.T) {
	var status bytes.Buffer
	c := NewCollector([]RecordSink{&memorySink{}}, CollectorOptions{ProgressEvery: 0, Status: &status})
	if _, err := c.Run(feed([]ProgressRecord{{Record: FileRecord{Path: "a"}}})); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if status.Len() != 0 {
		t.Errorf("Expected no status output, got %q", status.String())
	}
}

func TestCollector_SinkErrorDrains(t *testing.T) {
	captureLogs(t)
	sink := &memorySink{failAt: 2}
	c := NewCollector([]RecordSink{sink}, CollectorOptions{})

	prs := make([]ProgressRecord, 10)
	for i := range prs {
		prs[i] = ProgressRecord{Record: FileRecord{Path: string(rune('a' + i)), Size: 1}}
	}
	in := feed(prs)
	stats, err := c.Run(in)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Expected the sink error, got %v", err)
	}
	if len(in) != 0 {
		t.Errorf("Expected the channel to be drained, %d left", len(in))
	}
	if stats.TotalFiles != 10 {
		t.Errorf("Expected all records counted, got %d", stats.TotalFiles)
	}
	if len(sink.records) != 1 {
		t.Errorf("Expected writes to stop after the failure, got %d", len(sink.records))
	}
}

func TestCollector_PanicRecovered(t *testing.T) {
	sink := &memorySink{panicAt: 1}
	c := NewCollector([]RecordSink{sink}, CollectorOptions{})

	in := feed([]ProgressRecord{{Record: FileRecord{Path: "a"}}, {Record: FileRecord{Path: "b"}}})
	stats, err := c.Run(in)
	if err == nil || !strings.Contains(err.Error(), "collector failed") {
		t.Fatalf("Expected recovered panic error, got %v", err)
	}
	if stats == nil {
		t.Fatal("Expected statistics after a recovered panic")
	}
	if len(in) != 0 {
		t.Errorf("Expected the channel to be drained, %d left", len(in))
	}
}

func TestCollector_MultipleSinks(t *testing.T) {
	first, second := &memorySink{}, &memorySink{}
	c := NewCollector([]RecordSink{first, second}, CollectorOptions{})
	if _, err := c.Run(feed([]ProgressRecord{{Record: FileRecord{Path: "a"}}})); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(first.records) != 1 || len(second.records) != 1 {
		t.Errorf("Expected the record in both sinks, got %d and %d", len(first.records), len(second.records))
	}
}
