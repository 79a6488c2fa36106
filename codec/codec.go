// Package codec converts arbitrary text to and from the restricted alphabet
// the backing system's entry names can safely carry, and slices long text
// into length-bounded pieces.
//
// The wire alphabet is the digits '0' and '1' plus a single space between
// tokens: each code point is rendered as its binary value with no fixed
// width. The alphabet is chosen so an encoded payload can never collide with
// the delimiter characters of the entry-name template it is embedded in.
//
// All functions are pure and safe for concurrent use.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sentinel errors returned by Decode.
var (
	ErrInvalidToken = errors.New("codec: token is not a binary number")
	ErrInvalidRune  = errors.New("codec: token is not a valid code point")
)

// Encode maps each code point of s to its binary representation (leading
// zeros dropped) and joins them with single spaces. Encode("") == "".
func Encode(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	// Rough estimate: most code points need well under 24 bits + separator.
	b.Grow(len(s) * 8)

	first := true
	for _, r := range s {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(strconv.FormatInt(int64(r), 2))
	}
	return b.String()
}

// Decode is the inverse of [Encode]: it splits code on single spaces, parses
// each token as a binary integer, and maps it back to a code point.
// Decode(Encode(s)) == s for all s. Tokens containing anything other than
// '0' and '1', or naming an invalid code point, are an error.
func Decode(code string) (string, error) {
	if code == "" {
		return "", nil
	}

	var b strings.Builder
	for _, tok := range strings.Split(code, " ") {
		// ParseInt tolerates sign prefixes, which are not part of the
		// wire alphabet.
		if tok == "" || tok[0] == '+' || tok[0] == '-' {
			return "", fmt.Errorf("%w: %q", ErrInvalidToken, tok)
		}
		n, err := strconv.ParseInt(tok, 2, 32)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidToken, tok)
		}
		r := rune(n)
		if !utf8.ValidRune(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidRune, tok)
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// Split slices s left to right into consecutive pieces of exactly maxLen
// code points, except the last piece which holds the remainder. Joining the
// pieces in order reconstructs s. Splitting an empty string yields no
// pieces; callers that require at least one chunk must special-case that.
// Split panics if maxLen < 1.
func Split(s string, maxLen int) []string {
	if maxLen < 1 {
		panic(fmt.Sprintf("codec: split length must be >= 1, got %d", maxLen))
	}
	if s == "" {
		return nil
	}

	runes := []rune(s)
	pieces := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for start := 0; start < len(runes); start += maxLen {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
