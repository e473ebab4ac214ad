package translate

import (
	"regexp"
	"strings"
)

// schemePattern matches a leading URI scheme such as "http:" or "alpha:".
// A scheme colon is never a version separator.
var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// IncrementVersion derives the next version identifier from s.
//
// The last path segment of s is scanned for a version separator (":" or its
// percent-encoded form "%3A") followed by a run of decimal digits that ends
// the segment. That run is incremented with carry. When no such run exists
// "1" is appended. The rebuilt segment is percent-encoded: "#" and existing
// %XX escapes are kept verbatim, a literal ":" becomes "%3A".
//
//	"abc"                              -> "abc1"
//	"alpha:1"                          -> "alpha:11"
//	"http://example.org/ac-d/art%3A55" -> "http://example.org/ac-d/art%3A56"
//	"http://example.org/o/v%3A99"      -> "http://example.org/o/v%3A100"
func IncrementVersion(s string) string {
	scheme := schemePattern.FindString(s)
	rest := s[len(scheme):]

	head, tail := "", rest
	if i := strings.LastIndexByte(rest, '/'); i >= 0 {
		head, tail = rest[:i+1], rest[i+1:]
	}

	digits := trailingDigits(tail)
	stem := tail[:len(tail)-len(digits)]

	var next string
	switch {
	case digits != "" && strings.HasSuffix(stem, ":"):
		next = stem + incrementDigits(digits)
	case digits != "" && hasSuffixFold(stem, "%3A"):
		next = stem + incrementDigits(digits)
	default:
		next = tail + "1"
	}

	return scheme + head + encodeSegment(next)
}

// IdentityBase returns the namespace under which resources of an identity
// are minted: the identity followed by "#", unless it already ends in a
// namespace delimiter.
func IdentityBase(identity string) string {
	if strings.HasSuffix(identity, "#") || strings.HasSuffix(identity, "/") {
		return identity
	}
	return identity + "#"
}

// FirstVersion returns the initial version IRI of a freshly minted identity.
func FirstVersion(identity string) string {
	return strings.TrimSuffix(identity, "/") + "/version%3A1"
}

func trailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[i:]
}

// incrementDigits adds one to a decimal string, keeping its width unless
// the carry overflows it.
func incrementDigits(d string) string {
	b := []byte(d)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}
	return "1" + string(b)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

const hexDigits = "0123456789ABCDEF"

// encodeSegment percent-encodes bytes that are unsafe in a path or query
// position. "#" and well-formed %XX escapes pass through.
func encodeSegment(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteString(s[i : i+3])
			i += 2
		case c == '#' || isPathSafe(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// isPathSafe reports unreserved and sub-delimiter bytes plus "@" and "?".
// ":" is deliberately absent.
func isPathSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=@?", c) >= 0
}
