package expand

import (
	"bytes"
	"strings"
)

// FindPercent locates the first unquoted '%' in s. Backslashes that quote
// a '%' are consumed the way make does it: a run of n backslashes before
// a '%' collapses to n/2, and the '%' is a wildcard only when n is even.
// It returns the unquoted text and the wildcard offset in it, or -1.
func FindPercent(s string) (string, int) {
	if strings.IndexByte(s, '%') < 0 {
		return s, -1
	}
	var b []byte
	src := s
	for {
		p := strings.IndexByte(src, '%')
		if p < 0 {
			break
		}
		n := 0
		for p-n-1 >= 0 && src[p-n-1] == '\\' {
			n++
		}
		b = append(b, src[:p-n]...)
		b = append(b, strings.Repeat(`\`, n/2)...)
		if n%2 == 0 {
			at := len(b)
			b = append(b, src[p:]...)
			return string(b), at
		}
		b = append(b, '%')
		src = src[p+1:]
	}
	b = append(b, src...)
	return string(b), -1
}

// Pattern is make text split at its wildcard.
type Pattern struct {
	Prefix string
	Suffix string
	Wild   bool
}

// ParsePattern splits s at its first unquoted '%'. Without a wildcard the
// whole unquoted text is in Prefix.
func ParsePattern(s string) Pattern {
	text, at := FindPercent(s)
	if at < 0 {
		return Pattern{Prefix: text}
	}
	return Pattern{Prefix: text[:at], Suffix: text[at+1:], Wild: true}
}

func (p Pattern) String() string {
	if !p.Wild {
		return p.Prefix
	}
	return p.Prefix + "%" + p.Suffix
}

// Match reports whether word fits p and returns the text bound to the
// wildcard.
func (p Pattern) Match(word string) (stem string, ok bool) {
	if !p.Wild {
		return "", word == p.Prefix
	}
	if len(word) < len(p.Prefix)+len(p.Suffix) ||
		!strings.HasPrefix(word, p.Prefix) || !strings.HasSuffix(word, p.Suffix) {
		return "", false
	}
	return word[len(p.Prefix) : len(word)-len(p.Suffix)], true
}

// Matches reports whether text matches the '%' pattern.
func Matches(pattern, text string) bool {
	_, ok := ParsePattern(pattern).Match(text)
	return ok
}

// Subst replaces every occurrence of from in text by to. In byWord mode
// only occurrences that are whole words count.
func Subst(from, to, text string, byWord bool) string {
	var out bytes.Buffer
	substTo(&out, text, from, to, byWord)
	return out.String()
}

func substTo(out *bytes.Buffer, text, from, to string, byWord bool) {
	if from == "" {
		if !byWord {
			out.WriteString(text)
			out.WriteString(to)
			return
		}
		i := 0
		for {
			start, end, ok := tokenSpan(text, i)
			out.WriteString(text[i:start])
			if !ok {
				return
			}
			out.WriteString(text[start:end])
			out.WriteString(to)
			i = end
		}
	}
	t := 0
	for t < len(text) {
		p := strings.Index(text[t:], from)
		if p < 0 {
			break
		}
		p += t
		out.WriteString(text[t:p])
		after := p + len(from)
		if byWord && ((p > 0 && !isBlank(text[p-1])) || (after < len(text) && !isBlank(text[after]))) {
			out.WriteString(from)
		} else {
			out.WriteString(to)
		}
		t = after
	}
	out.WriteString(text[t:])
}

// Patsubst replaces the words of text that match pattern by replacement,
// carrying the wildcard stem across.
func Patsubst(pattern, replacement, text string) string {
	var out bytes.Buffer
	patsubstTo(&out, text, ParsePattern(pattern), ParsePattern(replacement))
	return out.String()
}

func patsubstTo(out *bytes.Buffer, text string, pat, rep Pattern) {
	if !pat.Wild {
		substTo(out, text, pat.Prefix, rep.String(), true)
		return
	}
	doneany := false
	for i := 0; ; {
		w, next, ok := NextToken(text, i)
		if !ok {
			break
		}
		i = next
		stem, matched := pat.Match(w)
		if !matched {
			out.WriteString(w)
		} else {
			out.WriteString(rep.Prefix)
			if rep.Wild {
				out.WriteString(stem)
				out.WriteString(rep.Suffix)
			}
		}
		if !matched || rep.Prefix != "" || rep.Wild {
			out.WriteByte(' ')
			doneany = true
		}
	}
	if doneany {
		out.Truncate(out.Len() - 1)
	}
}
