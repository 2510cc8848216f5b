package export

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FileNumberPlaceholder is replaced by the zero-padded index of the current
// segment when a file name is resolved.
const FileNumberPlaceholder = "%Misc.FileNumber%"

// fileNumberWidth is the minimum number of digits of a rendered file number.
const fileNumberWidth = 5

// invalidFileNameRunes are removed from resolved file names. Control
// characters are removed as well.
const invalidFileNameRunes = `<>:"/\|?*`

// ResolveFileName derives the file name of the segment at index from pattern.
// Every placeholder occurrence is replaced, the result is sanitized, truncated
// to maxLength runes and finally suffixed with extension. The extension does
// not count against maxLength. A maxLength of zero disables truncation.
func ResolveFileName(pattern string, index int, extension string, maxLength int) (string, error) {
	if index < 0 {
		return "", newError(ErrInvalidFileIndex, nil, map[string]interface{}{"file_index": index})
	}
	resolved := strings.ReplaceAll(pattern, FileNumberPlaceholder, FormatFileNumber(index))
	resolved = SanitizeFileName(resolved)
	resolved = TruncateRunes(resolved, maxLength)
	return resolved + extension, nil
}

// FormatFileNumber renders index as a zero-padded decimal of at least five digits.
func FormatFileNumber(index int) string {
	return fmt.Sprintf("%0*d", fileNumberWidth, index)
}

// SanitizeFileName removes characters that are not allowed in a file name on
// common platforms. Applying it to its own output is a no-op.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if !validFileNameRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validFileNameRune(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case r < 0x20 || r == 0x7f:
		return false
	case strings.ContainsRune(invalidFileNameRunes, r):
		return false
	}
	return true
}

// TruncateRunes shortens s to at most max runes. Non-positive max returns s unchanged.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
