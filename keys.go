package nanocom

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultExitKey is Ctrl-]
	DefaultExitKey rune = 0x1d

	// KeyInterrupt is the end-of-text control character sent in place of a
	// local interrupt.
	KeyInterrupt rune = 0x03

	controlBase rune = '@'
	controlMax  rune = '_'
)

// DescriptionToKey converts a letter description such as "G" or "]" into
// the control key produced by Ctrl+letter. Only characters with codes 64
// through 95 are accepted.
func DescriptionToKey(desc string) (rune, error) {
	r, size := utf8.DecodeRuneInString(desc)
	if size == 0 || size != len(desc) || r < controlBase || r > controlMax {
		return 0, fmt.Errorf("%w: %q (use A to Z, [, \\, ], or _)", ErrInvalidExitChar, desc)
	}
	return r - controlBase, nil
}

// KeyToDescription is the inverse of DescriptionToKey.
func KeyToDescription(key rune) string {
	return string(controlBase + key)
}

// CharMap maps a typed key to the string transmitted in its place.
type CharMap map[rune]string

// ParseCharMap builds a CharMap from KEY=VALUE entries. KEY must be a
// single character; VALUE is taken literally and may be empty. Later
// entries for the same key win.
func ParseCharMap(entries []string) (CharMap, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	m := make(CharMap, len(entries))
	for _, entry := range entries {
		key, size := utf8.DecodeRuneInString(entry)
		if size == 0 || key == utf8.RuneError || !strings.HasPrefix(entry[size:], "=") {
			return nil, fmt.Errorf("%w: %q (expected KEY=VALUE with a single-character KEY)", ErrInvalidMapping, entry)
		}
		m[key] = entry[size+1:]
	}
	return m, nil
}

// Lookup returns the replacement for key, if any.
func (m CharMap) Lookup(key rune) (string, bool) {
	s, ok := m[key]
	return s, ok
}
