// Package filehashlist builds flat, line oriented inventories of directory
// trees with optional content hashes, reusing the hashes of a previous
// inventory for files whose size has not changed.
//
// # List format
//
// Each line describes one file:
//
//	> 1024 | 1700000000 | 2aae6c35c94fcfb415dbe95f408b9ce91ee846ed | docs/read%0025me.txt
//
// The size, the modification time in Unix seconds or None, the hex hash or
// None, and the path. Paths are written as UTF-16 code units: printable
// ASCII as is, '%' as %0025 and every other unit as %xxxx. Paths that are not
// valid UTF-8 survive a round trip unchanged.
//
// Older lists in the form
//
//	        1024 bytes: 2aae6c35c94fcfb415dbe95f408b9ce91ee846ed docs/readme.txt
//
// are still read, only the current form is written.
//
// # Core API
//
// An inventory run loads the old list, scans, hashes on a worker pool and
// writes the new list:
//
//	stats, err := filehashlist.Run(filehashlist.RunOptions{
//		Root:     "/data",
//		LoadFrom: "/var/lib/fhl/data.list",
//		Output:   "/var/lib/fhl/data.list",
//		Pipeline: filehashlist.PipelineOptions{HashContents: true},
//	}, shutdownChan)
//
// The pieces can be used on their own: DecodeRecord and EncodeRecord for the
// format, LoadCacheFile for a CacheStore, ScanTree, Pipeline and Collector.
//
// # Configuration
//
// Enable debug output:
//
//	filehashlist.SetDebugFlags("scan,pipeline")
//	filehashlist.SetVerboseLevel(2)
package filehashlist
