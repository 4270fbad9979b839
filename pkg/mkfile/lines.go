package mkfile

import "strings"

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// continued reports whether l ends in an unescaped backslash.
func continued(l string) bool {
	n := 0
	for i := len(l) - 1; i >= 0 && l[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// collapse replaces each backslash-newline, together with the blanks
// around it, by a single space.
func collapse(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	parts := strings.Split(s, "\n")
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			part = strings.TrimLeft(part, " \t")
		}
		if i < len(parts)-1 {
			part = strings.TrimRight(strings.TrimSuffix(part, "\\"), " \t")
			b.WriteString(part)
			b.WriteByte(' ')
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}

// stripComment cuts s at the first unescaped '#'. Backslashes in front
// of a '#' are halved; an odd one out makes the '#' literal.
func stripComment(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != '#' {
			continue
		}
		n := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			n++
		}
		if n%2 == 0 {
			return s[:i-n] + strings.Repeat("\\", n/2)
		}
		keep := (n - 1) / 2
		s = s[:i-n] + strings.Repeat("\\", keep) + s[i:]
		i = i - n + keep
	}
	return s
}

// skipReference returns the index of the closer matching the opener at
// s[open], or the last index when it is unterminated.
func skipReference(s string, open int) int {
	opener, closer := s[open], byte(')')
	if opener == '{' {
		closer = '}'
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case opener:
			depth++
		case closer:
			if depth--; depth == 0 {
				return i
			}
		}
	}
	return len(s) - 1
}

// findSeparator locates the first assignment operator or rule colon in s
// outside variable references.
func findSeparator(s string) (int, string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '$':
			if i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{') {
				i = skipReference(s, i+1)
			} else {
				i++
			}
		case '=':
			if i > 0 {
				switch s[i-1] {
				case '+', '?', '!':
					return i - 1, s[i-1 : i+1]
				}
			}
			return i, "="
		case ':':
			for _, op := range []string{":::=", "::=", ":="} {
				if strings.HasPrefix(s[i:], op) {
					return i, op
				}
			}
			return i, ":"
		}
	}
	return -1, ""
}

func splitAssignment(line string) (name, op, value string, ok bool) {
	i, op := findSeparator(line)
	if i < 0 || op == ":" {
		return "", "", "", false
	}
	return line[:i], op, line[i+len(op):], true
}

// IsAssignment reports whether s has the form NAME op VALUE with a
// single-word name, as command-line variable definitions do.
func IsAssignment(s string) bool {
	name, _, _, ok := splitAssignment(s)
	name = strings.TrimSpace(name)
	return ok && name != "" && !strings.ContainsAny(name, " \t")
}

// startsAssignment reports whether rest, the text after a directive
// keyword, makes the line an assignment to a variable named like the
// directive.
func startsAssignment(rest string) bool {
	for _, op := range []string{"=", ":=", "::=", ":::=", "+=", "?=", "!="} {
		if strings.HasPrefix(rest, op) {
			return true
		}
	}
	return false
}

// splitRecipe splits a rule line at the ';' introducing an inline recipe.
func splitRecipe(s string) (head, recipe string, ok bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '$':
			if i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{') {
				i = skipReference(s, i+1)
			} else {
				i++
			}
		case '#':
			if i == 0 || s[i-1] != '\\' {
				return s, "", false
			}
		case ';':
			return s[:i], strings.TrimLeft(s[i+1:], " \t"), true
		}
	}
	return s, "", false
}

// splitWord returns the first blank-delimited word of s and the rest with
// leading blanks removed.
func splitWord(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	end := strings.IndexAny(s, " \t")
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimLeft(s[end:], " \t")
}

var directives = map[string]bool{
	"ifeq": true, "ifneq": true, "ifdef": true, "ifndef": true,
	"else": true, "endif": true, "define": true, "endef": true,
	"include": true, "-include": true, "sinclude": true,
	"override": true, "export": true, "unexport": true, "private": true,
	"undefine": true, "vpath": true,
}

// IsStatement reports whether line is makefile syntax (an assignment, a
// rule or a directive) rather than plain text to expand.
func IsStatement(line string) bool {
	line = strings.TrimLeft(stripComment(line), " \t")
	if strings.TrimSpace(line) == "" {
		return false
	}
	word, rest := splitWord(line)
	if strings.HasPrefix(word, "ifeq(") || strings.HasPrefix(word, "ifneq(") {
		return true
	}
	if directives[word] && !startsAssignment(rest) {
		return true
	}
	i, _ := findSeparator(line)
	return i > 0
}

// Nesting reports whether line opens (1) or closes (-1) a define or
// conditional block.
func Nesting(line string) int {
	word, rest := splitWord(stripComment(line))
	if startsAssignment(rest) {
		return 0
	}
	switch {
	case word == "define", word == "ifdef", word == "ifndef",
		word == "ifeq", word == "ifneq",
		strings.HasPrefix(word, "ifeq("), strings.HasPrefix(word, "ifneq("):
		return 1
	case word == "endef", word == "endif":
		return -1
	}
	for _, mod := range []string{"override", "export", "private"} {
		if word == mod {
			if w, _ := splitWord(rest); w == "define" {
				return 1
			}
		}
	}
	return 0
}
