// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonwire

import (
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// ConsumeWhitespace reports the number of leading bytes in b that are
// JSON whitespace (space, tab, line feed, carriage return).
func ConsumeWhitespace(b []byte) int {
	var n int
	for n < len(b) {
		switch b[n] {
		case ' ', '\t', '\n', '\r':
			n++
		default:
			return n
		}
	}
	return n
}

// IsWhitespace reports whether c is one of the four JSON whitespace bytes.
func IsWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// ConsumeString parses a complete JSON string literal (starting with a
// leading quote) from the start of src and reports the number of bytes
// consumed. Unpaired UTF-16 surrogate escapes are rejected. If
// validateUTF8 is false, invalid UTF-8 is tolerated.
func ConsumeString(src []byte, validateUTF8 bool) (n int, err error) {
	if len(src) == 0 || src[0] != '"' {
		return 0, ErrInvalidEscape
	}
	n = 1
	for {
		if n >= len(src) {
			return n, ErrInvalidEscape
		}
		switch c := src[n]; {
		case c == '"':
			return n + 1, nil
		case c == '\\':
			n++
			if n >= len(src) {
				return n, ErrInvalidEscape
			}
			switch src[n] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				n++
			case 'u':
				if n+5 > len(src) {
					return n, ErrInvalidEscape
				}
				v, ok := parseHex4(src[n+1 : n+5])
				if !ok {
					return n, ErrInvalidEscape
				}
				n += 5
				switch {
				case utf16.IsSurrogate(v) && v < 0xDC00:
					// A high surrogate must be immediately followed by a
					// low surrogate escape.
					if n+6 > len(src) || src[n] != '\\' || src[n+1] != 'u' {
						return n, ErrUnpairedSurrogate
					}
					if v2, ok := parseHex4(src[n+2 : n+6]); !ok || v2 < 0xDC00 || v2 > 0xDFFF {
						return n, ErrUnpairedSurrogate
					}
					n += 6
				case utf16.IsSurrogate(v):
					return n, ErrUnpairedSurrogate
				}
			default:
				return n, ErrInvalidEscape
			}
		case c < 0x20:
			return n, ErrInvalidControlChar
		case c < utf8.RuneSelf:
			n++
		default:
			r, rn := utf8.DecodeRune(src[n:])
			if r == utf8.RuneError && rn == 1 {
				if validateUTF8 {
					return n, ErrInvalidUTF8
				}
			}
			n += rn
		}
	}
}

func parseHex4(b []byte) (v rune, ok bool) {
	if len(b) != 4 {
		return 0, false
	}
	for _, c := range b {
		var d rune
		switch {
		case '0' <= c && c <= '9':
			d = rune(c - '0')
		case 'a' <= c && c <= 'f':
			d = rune(c-'a') + 10
		case 'A' <= c && c <= 'F':
			d = rune(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

// AppendUnquote appends the decoded contents of the JSON string literal
// src (which must be exactly one complete, well-formed string, as
// validated by ConsumeString) to dst.
func AppendUnquote[Bytes ~[]byte | ~string](dst []byte, src Bytes) ([]byte, error) {
	s := string(src)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return dst, ErrInvalidEscape
	}
	s = s[1 : len(s)-1]
	var pendingHigh rune
	for len(s) > 0 {
		switch c := s[0]; {
		case c == '\\':
			if len(s) < 2 {
				return dst, ErrInvalidEscape
			}
			switch s[1] {
			case '"', '\\', '/':
				dst = append(dst, s[1])
				s = s[2:]
			case 'b':
				dst = append(dst, '\b')
				s = s[2:]
			case 'f':
				dst = append(dst, '\f')
				s = s[2:]
			case 'n':
				dst = append(dst, '\n')
				s = s[2:]
			case 'r':
				dst = append(dst, '\r')
				s = s[2:]
			case 't':
				dst = append(dst, '\t')
				s = s[2:]
			case 'u':
				if len(s) < 6 {
					return dst, ErrInvalidEscape
				}
				v, ok := parseHex4([]byte(s[2:6]))
				if !ok {
					return dst, ErrInvalidEscape
				}
				s = s[6:]
				switch {
				case pendingHigh != 0:
					if !utf16.IsSurrogate(v) || v < 0xDC00 {
						return dst, ErrUnpairedSurrogate
					}
					dst = utf8.AppendRune(dst, utf16.DecodeRune(pendingHigh, v))
					pendingHigh = 0
				case utf16.IsSurrogate(v) && v < 0xDC00:
					pendingHigh = v
				case utf16.IsSurrogate(v):
					return dst, ErrUnpairedSurrogate
				default:
					dst = utf8.AppendRune(dst, v)
				}
				continue
			default:
				return dst, ErrInvalidEscape
			}
		default:
			if pendingHigh != 0 {
				return dst, ErrUnpairedSurrogate
			}
			r, rn := utf8.DecodeRuneInString(s)
			if r == utf8.RuneError && rn == 1 {
				dst = utf8.AppendRune(dst, utf8.RuneError)
			} else {
				dst = append(dst, s[:rn]...)
			}
			s = s[rn:]
		}
		if pendingHigh != 0 && len(s) == 0 {
			return dst, ErrUnpairedSurrogate
		}
	}
	if pendingHigh != 0 {
		return dst, ErrUnpairedSurrogate
	}
	return dst, nil
}

// ConsumeNumber parses a complete JSON number literal from the start of
// src and reports the number of bytes consumed.
func ConsumeNumber(src []byte) (n int, err error) {
	if len(src) == 0 {
		return 0, ErrInvalidNumber
	}
	if src[n] == '-' {
		n++
	}
	if n >= len(src) {
		return n, ErrInvalidNumber
	}
	switch {
	case src[n] == '0':
		n++
	case '1' <= src[n] && src[n] <= '9':
		n++
		for n < len(src) && '0' <= src[n] && src[n] <= '9' {
			n++
		}
	default:
		return n, ErrInvalidNumber
	}
	if n < len(src) && src[n] == '.' {
		m := n
		n++
		if n >= len(src) || src[n] < '0' || src[n] > '9' {
			return m, ErrInvalidNumber
		}
		for n < len(src) && '0' <= src[n] && src[n] <= '9' {
			n++
		}
	}
	if n < len(src) && (src[n] == 'e' || src[n] == 'E') {
		m := n
		n++
		if n < len(src) && (src[n] == '+' || src[n] == '-') {
			n++
		}
		if n >= len(src) || src[n] < '0' || src[n] > '9' {
			return m, ErrInvalidNumber
		}
		for n < len(src) && '0' <= src[n] && src[n] <= '9' {
			n++
		}
	}
	return n, nil
}

// IsNumberContinuation reports whether c could be part of a JSON number
// that has already begun (used to find where a number token ends while
// scanning byte-at-a-time).
func IsNumberContinuation(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E':
		return true
	}
	return false
}

// ParseFloat parses the floating-point value of a JSON number literal.
func ParseFloat(b []byte, bits int) (float64, error) {
	return strconv.ParseFloat(string(b), bits)
}

// ParseInt parses the signed integer value of a JSON number literal.
// It fails if the literal has a fractional or exponent part.
func ParseInt(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}

// ParseUint parses the unsigned integer value of a JSON number literal.
func ParseUint(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}
