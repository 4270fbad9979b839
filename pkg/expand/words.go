package expand

// Word scanning over make text. A token is a substring of its parent
// text; nothing here copies.

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isSpaceRune(r rune) bool {
	return r < 0x80 && isSpace(byte(r))
}

func skipBlanks(s string, i int) int {
	for i < len(s) && isBlank(s[i]) {
		i++
	}
	return i
}

// EndOfToken returns the offset just past the token starting at i.
func EndOfToken(s string, i int) int {
	for i < len(s) && !isBlank(s[i]) {
		i++
	}
	return i
}

// NextToken skips blanks from i and returns the following word and the
// offset just past it. ok is false when only blanks remain.
func NextToken(s string, i int) (word string, next int, ok bool) {
	start, end, ok := tokenSpan(s, i)
	if !ok {
		return "", len(s), false
	}
	return s[start:end], end, true
}

func tokenSpan(s string, i int) (start, end int, ok bool) {
	start = skipBlanks(s, i)
	if start >= len(s) {
		return len(s), len(s), false
	}
	return start, EndOfToken(s, start), true
}

// Words splits s into its blank-separated words.
func Words(s string) []string {
	var words []string
	for i := 0; ; {
		w, next, ok := NextToken(s, i)
		if !ok {
			return words
		}
		words = append(words, w)
		i = next
	}
}

// stripSpace trims leading and trailing isspace characters.
func stripSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}
