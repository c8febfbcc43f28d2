package wire

import (
	"fmt"
	"strings"
)

// ASCIIError reports the first character the device cannot store.
type ASCIIError struct {
	Pos  int
	Char rune
}

func (e *ASCIIError) Error() string {
	return fmt.Sprintf("invalid character %q at position: %d", e.Char, e.Pos)
}

// CheckASCII returns the index of the first character with a code above 127,
// or -1 if s is plain ASCII. Every character before the returned index is a
// single byte, so the byte offset equals the character position.
func CheckASCII(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return i
		}
	}
	return -1
}

// ValidateASCII wraps CheckASCII in an *ASCIIError.
func ValidateASCII(s string) error {
	pos := CheckASCII(s)
	if pos == -1 {
		return nil
	}
	r := []rune(s[pos:])[0]
	return &ASCIIError{Pos: pos, Char: r}
}

// SetQuery builds the query of a setDataReq request.
func SetQuery(id, value string) string {
	return "name" + FieldSep + id + "&value" + FieldSep + EscapeValue(value)
}

// FetchQuery builds a getDataReq query asking for ids, each defaulted to "0".
func FetchQuery(ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id + FieldSep + "0"
	}
	return strings.Join(parts, "&")
}

// RawQuery joins args verbatim.
func RawQuery(args ...string) string {
	return strings.Join(args, "&")
}

// EscapeValue escapes s the way browsers' encodeURIComponent does.
func EscapeValue(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
