package cast

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var simpleEscapes = map[byte]byte{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
	'e':  0x1b,
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'?':  '?',
}

// DecodeLiteral decodes a C string or character literal as written in source
// (including quotes, encoding prefixes and adjacent string concatenation)
// into the text it denotes.
func DecodeLiteral(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty literal", ErrMalformedLiteral)
	}

	var b strings.Builder
	for s != "" {
		s = trimEncodingPrefix(s)
		if s == "" || (s[0] != '"' && s[0] != '\'') {
			return "", fmt.Errorf("%w: %s is not a string or character literal", ErrMalformedLiteral, raw)
		}
		n, err := decodeQuoted(s, &b)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMalformedLiteral, raw, err)
		}
		s = strings.TrimLeft(s[n:], " \t\r\n")
	}
	return b.String(), nil
}

func trimEncodingPrefix(s string) string {
	for _, prefix := range []string{"u8", "u", "U", "L"} {
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) && (s[len(prefix)] == '"' || s[len(prefix)] == '\'') {
			return s[len(prefix):]
		}
	}
	return s
}

// decodeQuoted decodes one quoted segment starting at s[0] and returns the
// number of bytes consumed.
func decodeQuoted(s string, b *strings.Builder) (int, error) {
	quote := s[0]
	for i := 1; i < len(s); {
		ch := s[i]
		switch {
		case ch == quote:
			return i + 1, nil
		case ch == '\n':
			return 0, fmt.Errorf("unterminated literal")
		case ch != '\\':
			b.WriteByte(ch)
			i++
			continue
		}

		if i+1 >= len(s) {
			return 0, fmt.Errorf("dangling escape")
		}
		esc := s[i+1]
		i += 2
		if r, ok := simpleEscapes[esc]; ok {
			b.WriteByte(r)
			continue
		}

		switch {
		case esc >= '0' && esc <= '7':
			v := int(esc - '0')
			for n := 1; n < 3 && i < len(s) && s[i] >= '0' && s[i] <= '7'; n++ {
				v = v*8 + int(s[i]-'0')
				i++
			}
			if v > 0xff {
				return 0, fmt.Errorf("octal escape out of range")
			}
			b.WriteByte(byte(v))
		case esc == 'x':
			v, n := hexValue(s[i:], 2)
			if n == 0 {
				return 0, fmt.Errorf("\\x used with no following hex digits")
			}
			i += n
			b.WriteByte(byte(v))
		case esc == 'u' || esc == 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			v, n := hexValue(s[i:], width)
			if n != width {
				return 0, fmt.Errorf("incomplete universal character name")
			}
			i += n
			if !utf8.ValidRune(rune(v)) {
				return 0, fmt.Errorf("invalid universal character name")
			}
			b.WriteRune(rune(v))
		default:
			return 0, fmt.Errorf("unknown escape sequence \\%c", esc)
		}
	}
	return 0, fmt.Errorf("unterminated literal")
}

func hexValue(s string, max int) (int, int) {
	v, n := 0, 0
	for n < max && n < len(s) {
		d, ok := hexDigit(s[n])
		if !ok {
			break
		}
		v = v*16 + d
		n++
	}
	return v, n
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
