package reference

import "strings"

// WordAt returns the identifier under a 1-based cursor position in text, or
// "" when the cursor is not on an identifier. A cursor directly after an
// identifier counts as on it.
func WordAt(text string, line, column int) string {
	if line < 1 || column < 1 {
		return ""
	}

	lines := strings.Split(text, "\n")
	if line > len(lines) {
		return ""
	}
	src := strings.TrimRight(lines[line-1], "\r")

	pos := column - 1
	if pos > len(src) {
		return ""
	}
	if (pos == len(src) || !isIdentByte(src[pos])) && pos > 0 && isIdentByte(src[pos-1]) {
		pos--
	}
	if pos >= len(src) || !isIdentByte(src[pos]) {
		return ""
	}

	start, end := pos, pos
	for start > 0 && isIdentByte(src[start-1]) {
		start--
	}
	for end < len(src) && isIdentByte(src[end]) {
		end++
	}

	word := src[start:end]
	// GAMS identifiers start with a letter; "12" or "_x" are not symbols.
	if !isLetter(word[0]) {
		return ""
	}
	return word
}

func isIdentByte(b byte) bool {
	return isLetter(b) || b == '_' || (b >= '0' && b <= '9')
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
