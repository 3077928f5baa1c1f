package filehashlist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// maxLineSize bounds a single list line, longer lines are skipped
const maxLineSize = 1 << 20

// CacheLoadStats describes what a cache load found
type CacheLoadStats struct {
	Lines   int // non-empty lines read
	Current int // records in the current format
	Legacy  int // records in the legacy format
	Skipped int // lines that could not be decoded
}

// CacheStore maps exact path bytes to the record of a previous run. It is
// built once before hashing starts and only read afterwards, so workers share
// it without locking.
type CacheStore struct {
	records map[string]FileRecord
	stats   CacheLoadStats
}

// NewCacheStore builds a store from records. Later records win.
func NewCacheStore(records []FileRecord) *CacheStore {
	cs := &CacheStore{records: make(map[string]FileRecord, len(records))}
	for _, r := range records {
		cs.records[r.Path] = r
		cs.stats.Lines++
		cs.stats.Current++
	}
	return cs
}

// LoadCache reads a list in either format. Undecodable lines are skipped.
func LoadCache(r io.Reader) (*CacheStore, error) {
	defer VerboseEnter()()

	cs := &CacheStore{records: make(map[string]FileRecord)}
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	overlong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if len(line)+len(bytes.TrimSuffix(chunk, []byte{'\n'})) > maxLineSize {
			overlong, line = true, line[:0]
		} else if !overlong {
			line = append(line, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}

		if overlong {
			cs.skipLine(fmt.Errorf("%w: line longer than %d bytes", ErrMalformedRecord, maxLineSize))
		} else {
			cs.addLine(string(bytes.TrimSuffix(line, []byte{'\n'})))
		}
		line, overlong = line[:0], false

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read cache: %w", err)
		}
	}
	cs.logLoaded("reader")
	return cs, nil
}

// LoadCacheFile memory-maps a list file and loads it. Failing to open the
// file is an error, an empty file is an empty store.
func LoadCacheFile(path string) (*CacheStore, error) {
	defer VerboseEnter()()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat cache file %s: %w", path, err)
	}
	if !stat.Mode().IsRegular() {
		// pipes and devices cannot be mapped
		return LoadCache(file)
	}

	cs := &CacheStore{records: make(map[string]FileRecord)}
	if stat.Size() == 0 {
		return cs, nil
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap cache file %s: %w", path, err)
	}
	defer unix.Munmap(data)

	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		if len(line) > maxLineSize {
			cs.skipLine(fmt.Errorf("%w: line longer than %d bytes", ErrMalformedRecord, maxLineSize))
			continue
		}
		// string() copies the line out of the mapping before it goes away
		cs.addLine(string(line))
	}
	cs.logLoaded(path)
	return cs, nil
}

func (cs *CacheStore) addLine(line string) {
	if len(line) == 0 || line == "\r" {
		return
	}
	rec, err := DecodeRecord(line)
	if err != nil {
		cs.skipLine(err)
		return
	}
	cs.stats.Lines++
	if IsCurrentFormat(line) {
		cs.stats.Current++
	} else {
		cs.stats.Legacy++
	}
	cs.records[rec.Path] = rec
}

// skipLine counts a line that could not be used
func (cs *CacheStore) skipLine(err error) {
	cs.stats.Lines++
	cs.stats.Skipped++
	VerboseLog(2, "Skipping cache line %d: %v", cs.stats.Lines, err)
}

func (cs *CacheStore) logLoaded(source string) {
	VerboseLog(1, "Loaded %d cache records from %s (%d current, %d legacy, %d skipped)",
		len(cs.records), source, cs.stats.Current, cs.stats.Legacy, cs.stats.Skipped)
}

// Lookup returns the cached record for path
func (cs *CacheStore) Lookup(path string) (FileRecord, bool) {
	if cs == nil {
		return FileRecord{}, false
	}
	rec, ok := cs.records[path]
	return rec, ok
}

// Len returns the number of distinct paths in the store
func (cs *CacheStore) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.records)
}

// LoadStats returns what the load found
func (cs *CacheStore) LoadStats() CacheLoadStats {
	if cs == nil {
		return CacheLoadStats{}
	}
	return cs.stats
}
