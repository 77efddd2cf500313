// Package codec turns arbitrary payloads into route-safe strings and back.
//
// A route token is an action name and an encoded payload joined by "::".
// Payload encoding escapes a small reserved set as %XX so that the result
// contains no spaces, line breaks or colons and therefore can never contain
// the separator. Every literal '%' is escaped as well, which keeps Decode an
// exact inverse of Encode for any input.
package codec

import (
	"errors"
	"strings"
)

// Separator joins an action name and its payload.
const Separator = "::"

// ErrMalformed indicates an escape sequence that Encode could not have produced.
var ErrMalformed = errors.New("malformed route payload")

const hexDigits = "0123456789ABCDEF"

func reserved(b byte) bool {
	switch b {
	case '%', ' ', '\n', '\r', ':':
		return true
	}
	return false
}

// Encode escapes s for use as a route payload.
func Encode(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if reserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if reserved(c) {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Decode reverses Encode.
func Decode(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", ErrMalformed
		}
		hi, okHi := unhex(s[i+1])
		lo, okLo := unhex(s[i+2])
		if !okHi || !okLo {
			return "", ErrMalformed
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

// JoinRoute builds a route token. An empty payload yields the bare name.
func JoinRoute(name, payload string) string {
	if payload == "" {
		return name
	}
	return name + Separator + Encode(payload)
}

// SplitRoute splits a route token into its name and decoded payload.
func SplitRoute(token string) (name, payload string, err error) {
	name, raw, found := strings.Cut(token, Separator)
	if !found {
		return token, "", nil
	}
	payload, err = Decode(raw)
	if err != nil {
		return "", "", err
	}
	return name, payload, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
