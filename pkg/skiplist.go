package filehashlist

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// RecordList is an ordered set of records keyed by path bytes. Each entry
// carries a context label naming the source it came from.
type RecordList struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

// NewRecordList creates an empty list
func NewRecordList(maxLevels int) *RecordList {
	if maxLevels < 8 {
		maxLevels = 16
	}

	getKeyFromItem := func(rec *FileRecord) string {
		return rec.Path
	}
	getItemSize := func(rec *FileRecord) int {
		return len(rec.Path) + len(rec.Hash) + 48
	}

	return &RecordList{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			strings.Compare,
		),
	}
}

// Put inserts rec, replacing any entry with the same path
func (rl *RecordList) Put(rec FileRecord, context string) {
	rl.skiplist.Delete(rec.Path)
	rl.skiplist.Insert(&rec, context)
}

// Find returns the record for path and its context
func (rl *RecordList) Find(path string) (*FileRecord, string) {
	node, context := rl.skiplist.Find(path)
	if node == nil {
		return nil, ""
	}
	return node.Item(), context
}

// ForEach visits entries in path order until the callback returns false
func (rl *RecordList) ForEach(callback func(*FileRecord, string) bool) {
	for current := rl.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// Merge merges other into this list. With MergeTheirs entries of other win.
func (rl *RecordList) Merge(other *RecordList, strategy zcsl.MergeStrategy) error {
	if other == nil {
		return nil
	}
	return rl.skiplist.Merge(other.skiplist, strategy)
}

// Length returns the number of entries
func (rl *RecordList) Length() int {
	return rl.skiplist.Length()
}

// CountByContext counts entries per context label
func (rl *RecordList) CountByContext() map[string]int {
	counts := make(map[string]int)
	rl.ForEach(func(_ *FileRecord, context string) bool {
		counts[context]++
		return true
	})
	return counts
}
