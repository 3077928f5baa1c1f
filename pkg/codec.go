package filehashlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedRecord is wrapped by every decode failure
var ErrMalformedRecord = errors.New("malformed record")

// AppendRecord appends the current-format line for r to dst, without a newline.
//
//	> <size> | <mtime-or-None> | <hash-or-None> | <escaped-path>
func AppendRecord(dst []byte, r FileRecord) []byte {
	dst = append(dst, CurrentMarker, ' ')
	dst = strconv.AppendUint(dst, r.Size, 10)
	dst = append(dst, FieldSeparator...)
	if r.HasModTime() {
		dst = strconv.AppendInt(dst, r.ModTime.Unix(), 10)
	} else {
		dst = append(dst, NoneSentinel...)
	}
	dst = append(dst, FieldSeparator...)
	if r.HasHash() {
		dst = append(dst, r.Hash...)
	} else {
		dst = append(dst, NoneSentinel...)
	}
	dst = append(dst, FieldSeparator...)
	return appendEncodedPath(dst, r.Path)
}

// EncodeRecord returns the current-format line for r, without a newline
func EncodeRecord(r FileRecord) string {
	return string(AppendRecord(make([]byte, 0, 64+len(r.Path)), r))
}

// DecodeRecord parses one line in either the current or the legacy format.
// The leading marker selects the format.
func DecodeRecord(line string) (FileRecord, error) {
	line = strings.TrimSuffix(line, "\r")
	if strings.HasPrefix(line, string(CurrentMarker)) {
		return decodeCurrent(line[1:])
	}
	return decodeLegacy(line)
}

// IsCurrentFormat reports whether a line is tagged with the current-format marker
func IsCurrentFormat(line string) bool {
	return strings.HasPrefix(line, string(CurrentMarker))
}

func decodeCurrent(body string) (FileRecord, error) {
	fields := strings.SplitN(body, "|", 4)
	if len(fields) != 4 {
		return FileRecord{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedRecord, len(fields))
	}

	var rec FileRecord
	size, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("%w: invalid size %q", ErrMalformedRecord, strings.TrimSpace(fields[0]))
	}
	rec.Size = size

	switch mtime := strings.TrimSpace(fields[1]); mtime {
	case NoneSentinel:
	case "":
		return FileRecord{}, fmt.Errorf("%w: missing modification time", ErrMalformedRecord)
	default:
		secs, err := strconv.ParseInt(mtime, 10, 64)
		if err != nil {
			return FileRecord{}, fmt.Errorf("%w: invalid modification time %q", ErrMalformedRecord, mtime)
		}
		rec.ModTime = time.Unix(secs, 0).UTC()
	}

	switch hash := strings.TrimSpace(fields[2]); hash {
	case NoneSentinel:
	case "":
		return FileRecord{}, fmt.Errorf("%w: missing hash", ErrMalformedRecord)
	default:
		rec.Hash = hash
	}

	// only the separator space is stripped, the path may start or end with spaces
	path, err := DecodePath(strings.TrimPrefix(fields[3], " "))
	if err != nil {
		return FileRecord{}, err
	}
	if path == "" {
		return FileRecord{}, fmt.Errorf("%w: missing path", ErrMalformedRecord)
	}
	rec.Path = path
	return rec, nil
}

func decodeLegacy(line string) (FileRecord, error) {
	idx := strings.Index(line, LegacySeparator)
	if idx < 0 {
		return FileRecord{}, fmt.Errorf("%w: no %q separator", ErrMalformedRecord, strings.TrimSpace(LegacySeparator))
	}
	size, err := strconv.ParseUint(strings.TrimSpace(line[:idx]), 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("%w: invalid size %q", ErrMalformedRecord, strings.TrimSpace(line[:idx]))
	}

	rest := line[idx+len(LegacySeparator):]
	rec := FileRecord{Size: size, Path: rest}
	if sp := strings.IndexByte(rest, ' '); sp > 0 && isHexDigest(rest[:sp]) {
		rec.Hash = rest[:sp]
		rec.Path = rest[sp+1:]
	}
	if rec.Path == "" {
		return FileRecord{}, fmt.Errorf("%w: missing path", ErrMalformedRecord)
	}
	return rec, nil
}

// isHexDigest reports whether s looks like a lowercase hex digest of a known length
func isHexDigest(s string) bool {
	switch len(s) {
	case HexLenMD5, HexLenSHA1, HexLenSHA256, HexLenSHA512:
	default:
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
