package filehashlist

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Native paths are byte strings. The printable list format describes them as
// UTF-16 code units, so every byte sequence needs a reversible unit mapping:
// valid UTF-8 runes become their UTF-16 units and every stray byte becomes
// the lone low surrogate 0xDC00+byte. Valid UTF-8 never yields a lone
// surrogate, so the two cases cannot collide.
const (
	surrogateEscapeBase = 0xDC00
	surrogateEscapeLow  = 0xDC80
	surrogateEscapeHigh = 0xDCFF
)

// pathToUnits converts native path bytes to UTF-16 code units
func pathToUnits(path string) []uint16 {
	units := make([]uint16, 0, len(path))
	for i := 0; i < len(path); {
		r, size := utf8.DecodeRuneInString(path[i:])
		if r == utf8.RuneError && size <= 1 {
			units = append(units, uint16(surrogateEscapeBase+int(path[i])))
			i++
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			units = append(units, uint16(r1), uint16(r2))
		} else {
			units = append(units, uint16(r))
		}
		i += size
	}
	return units
}

// unitsToPath converts UTF-16 code units back to native path bytes
func unitsToPath(units []uint16) string {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		switch {
		case utf16.IsSurrogate(u) && u < 0xDC00 && i+1 < len(units) && isLowSurrogate(rune(units[i+1])):
			buf = utf8.AppendRune(buf, utf16.DecodeRune(u, rune(units[i+1])))
			i++
		case u >= surrogateEscapeLow && u <= surrogateEscapeHigh:
			buf = append(buf, byte(u-surrogateEscapeBase))
		case utf16.IsSurrogate(u):
			// lone surrogate from a foreign list, kept as generalized UTF-8
			buf = append(buf, 0xE0|byte(u>>12), 0x80|byte(u>>6)&0x3F, 0x80|byte(u)&0x3F)
		default:
			buf = utf8.AppendRune(buf, u)
		}
	}
	return string(buf)
}

func isLowSurrogate(r rune) bool {
	return r >= 0xDC00 && r <= 0xDFFF
}

// appendEncodedPath appends the printable escape form of path to dst
func appendEncodedPath(dst []byte, path string) []byte {
	const hexDigits = "0123456789abcdef"
	for _, u := range pathToUnits(path) {
		switch {
		case u == '%':
			dst = append(dst, "%0025"...)
		case u >= 0x20 && u <= 0x7F:
			dst = append(dst, byte(u))
		default:
			dst = append(dst, '%',
				hexDigits[u>>12&0xF], hexDigits[u>>8&0xF],
				hexDigits[u>>4&0xF], hexDigits[u&0xF])
		}
	}
	return dst
}

// EncodePath returns the printable escape form of a native path
func EncodePath(path string) string {
	return string(appendEncodedPath(make([]byte, 0, len(path)+8), path))
}

// DecodePath reverses EncodePath
func DecodePath(encoded string) (string, error) {
	units := make([]uint16, 0, len(encoded))
	for i := 0; i < len(encoded); {
		c := encoded[i]
		if c == '%' {
			if i+5 > len(encoded) {
				return "", fmt.Errorf("%w: truncated escape at offset %d", ErrMalformedRecord, i)
			}
			var unit uint16
			for _, d := range []byte(encoded[i+1 : i+5]) {
				v, ok := hexValue(d)
				if !ok {
					return "", fmt.Errorf("%w: invalid hex digit %q in escape at offset %d", ErrMalformedRecord, d, i)
				}
				unit = unit<<4 | uint16(v)
			}
			units = append(units, unit)
			i += 5
			continue
		}
		if c < utf8.RuneSelf {
			units = append(units, uint16(c))
			i++
			continue
		}
		// raw non-ASCII text, e.g. a hand-edited list
		r, size := utf8.DecodeRuneInString(encoded[i:])
		if r == utf8.RuneError && size <= 1 {
			units = append(units, uint16(surrogateEscapeBase+int(c)))
			i++
			continue
		}
		units = append(units, utf16.Encode([]rune{r})...)
		i += size
	}
	return unitsToPath(units), nil
}

// hexValue decodes one hex digit of either case
func hexValue(d byte) (byte, bool) {
	switch {
	case d >= '0' && d <= '9':
		return d - '0', true
	case d >= 'a' && d <= 'f':
		return d - 'a' + 10, true
	case d >= 'A' && d <= 'F':
		return d - 'A' + 10, true
	default:
		return 0, false
	}
}
