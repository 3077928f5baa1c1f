package filehashlist

import (
	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// List format constants
const (
	CurrentMarker   = '>'
	FieldSeparator  = " | "
	NoneSentinel    = "None"
	LegacySeparator = " bytes: "
)

// Context labels attached to entries of an ordered record list
const (
	CacheContext  = "cache"
	ImportContext = "import"
)

// Hash size constants
const (
	HashSizeSHA1   = 20 // SHA-1 hash size in bytes
	HashSizeSHA256 = 32 // SHA-256 hash size in bytes
	HashSizeSHA512 = 64 // SHA-512 hash size in bytes
)

// Hex digest lengths recognized in legacy lines
const (
	HexLenMD5    = 32
	HexLenSHA1   = 2 * HashSizeSHA1
	HexLenSHA256 = 2 * HashSizeSHA256
	HexLenSHA512 = 2 * HashSizeSHA512
)

// Defaults used when neither the config file nor the command line set a value
const (
	DefaultHashAlgorithm = "sha1"
	DefaultHashWorkers   = 4
	DefaultHashBuffer    = "2M"
	DefaultQueueSize     = 100
	DefaultProgressEvery = 1000
)

// MergeTheirs lets the merged-in list win on duplicate paths
const MergeTheirs = zcsl.MergeTheirs
