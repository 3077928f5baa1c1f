package filehashlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ParseHumanSize parses human-readable size strings (e.g., "2M", "512k", "1G").
// Single letter suffixes are binary multiples. Anything else is handed to
// go-humanize, so "1.5 GiB" and "10MB" work too.
func ParseHumanSize(sizeStr string) (int, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	end := 0
	for end < len(sizeStr) && (sizeStr[end] >= '0' && sizeStr[end] <= '9' || sizeStr[end] == '.') {
		end++
	}
	numPart, suffix := sizeStr[:end], sizeStr[end:]
	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var result int64
	switch suffix {
	case "", "B":
		result = int64(num)
	case "K":
		result = int64(num * 1024)
	case "M":
		result = int64(num * 1024 * 1024)
	case "G":
		result = int64(num * 1024 * 1024 * 1024)
	default:
		parsed, err := humanize.ParseBytes(sizeStr)
		if err != nil {
			return 0, fmt.Errorf("unknown size suffix: %s", suffix)
		}
		if parsed > uint64(^uint(0)>>1) {
			return 0, fmt.Errorf("size too large: %s", sizeStr)
		}
		result = int64(parsed)
	}

	if result <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	if result > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return int(result), nil
}

// GenerateTempFileName returns a temporary sibling name in dir with PID and timestamp
func GenerateTempFileName(dir, prefix string) string {
	return filepath.Join(dir, fmt.Sprintf(".%s-%d-%d.tmp", prefix, os.Getpid(), time.Now().UnixNano()))
}

// SplitPatternList splits a comma separated pattern list, dropping empty items
func SplitPatternList(s string) []string {
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// SameFile reports whether two paths name the same existing file
func SameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
