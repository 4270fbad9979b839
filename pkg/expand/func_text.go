package expand

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Thresholds for matching filter's literal patterns through a hash set
// instead of comparing every word against every pattern.
var (
	FilterHashMinLiterals = 2
	FilterHashMinProduct  = 10
)

// killLastSpace drops the separator written after the final word.
func killLastSpace(out *bytes.Buffer, doneany bool) {
	if doneany {
		out.Truncate(out.Len() - 1)
	}
}

func funcSubst(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	substTo(out, args[2], args[0], args[1], false)
	return nil
}

func funcPatsubst(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	patsubstTo(out, args[2], ParsePattern(args[0]), ParsePattern(args[1]))
	return nil
}

func funcFindstring(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if strings.Contains(args[1], args[0]) {
		out.WriteString(args[0])
	}
	return nil
}

func funcStrip(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	s := args[0]
	doneany := false
	for i := 0; i < len(s); {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		start := i
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		if i == start {
			break
		}
		out.WriteString(s[start:i])
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcFilter(e *Engine, out *bytes.Buffer, args []string, name string) error {
	keep := name == "filter"

	var wild []Pattern
	literal := make(map[string]bool)
	literals := 0
	for _, p := range Words(args[0]) {
		pat := ParsePattern(p)
		if pat.Wild {
			wild = append(wild, pat)
			continue
		}
		literals++
		literal[pat.Prefix] = true
	}

	words := Words(args[1])
	hashing := literals >= FilterHashMinLiterals && literals*len(words) >= FilterHashMinProduct
	var lits []string
	if !hashing {
		for l := range literal {
			lits = append(lits, l)
		}
	}

	doneany := false
	for _, w := range words {
		matched := false
		for _, pat := range wild {
			if _, ok := pat.Match(w); ok {
				matched = true
				break
			}
		}
		if !matched {
			if hashing {
				matched = literal[w]
			} else {
				for _, l := range lits {
					if l == w {
						matched = true
						break
					}
				}
			}
		}
		if matched == keep {
			out.WriteString(w)
			out.WriteByte(' ')
			doneany = true
		}
	}
	killLastSpace(out, doneany)
	return nil
}

func funcSort(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	words := Words(args[0])
	sort.Strings(words)
	doneany := false
	for i, w := range words {
		if i+1 < len(words) && words[i+1] == w {
			continue
		}
		out.WriteString(w)
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcJoin(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	doneany := false
	for i, j := 0, 0; ; {
		w1, n1, ok1 := NextToken(args[0], i)
		w2, n2, ok2 := NextToken(args[1], j)
		if !ok1 && !ok2 {
			break
		}
		i, j = n1, n2
		out.WriteString(w1)
		out.WriteString(w2)
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcAddfix(e *Engine, out *bytes.Buffer, args []string, name string) error {
	prefix := name == "addprefix"
	doneany := false
	for _, w := range Words(args[1]) {
		if prefix {
			out.WriteString(args[0])
		}
		out.WriteString(w)
		if !prefix {
			out.WriteString(args[0])
		}
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcFirstword(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if w, _, ok := NextToken(args[0], 0); ok {
		out.WriteString(w)
	}
	return nil
}

func funcLastword(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	last := ""
	for i := 0; ; {
		w, next, ok := NextToken(args[0], i)
		if !ok {
			break
		}
		last, i = w, next
	}
	out.WriteString(last)
	return nil
}

func funcWords(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	n := 0
	for i := 0; ; n++ {
		_, next, ok := NextToken(args[0], i)
		if !ok {
			break
		}
		i = next
	}
	out.WriteString(strconv.Itoa(n))
	return nil
}

// checkNumeric parses a non-negative decimal argument, surrounded by any
// amount of whitespace.
func (e *Engine) checkNumeric(s, msg string) (int, error) {
	t := stripSpace(s)
	if t == "" || strings.IndexFunc(t, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, e.errorf(KindNonNumeric, "%s: '%s'", msg, s)
	}
	n, err := strconv.Atoi(t)
	if err != nil {
		n = math.MaxInt
	}
	return n, nil
}

func funcWord(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	n, err := e.checkNumeric(args[0], "non-numeric first argument to 'word' function")
	if err != nil {
		return err
	}
	if n == 0 {
		return e.errorf(KindArity, "first argument to 'word' function must be greater than 0")
	}
	for i := 0; ; {
		w, next, ok := NextToken(args[1], i)
		if !ok {
			return nil
		}
		if n--; n == 0 {
			out.WriteString(w)
			return nil
		}
		i = next
	}
}

func funcWordlist(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	start, err := e.checkNumeric(args[0], "non-numeric first argument to 'wordlist' function")
	if err != nil {
		return err
	}
	last, err := e.checkNumeric(args[1], "non-numeric second argument to 'wordlist' function")
	if err != nil {
		return err
	}
	if start < 1 {
		return e.errorf(KindArity, "invalid first argument to 'wordlist' function: '%d'", start)
	}
	count := last - start + 1
	if count <= 0 {
		return nil
	}

	text := args[2]
	var from, end int
	found := false
	for i, n := 0, start; ; {
		s, en, ok := tokenSpan(text, i)
		if !ok {
			break
		}
		if n--; n == 0 {
			from, end, found = s, en, true
			break
		}
		i = en
	}
	if !found {
		return nil
	}
	for count--; count > 0; count-- {
		_, en, ok := tokenSpan(text, end)
		if !ok {
			break
		}
		end = en
	}
	out.WriteString(text[from:end])
	return nil
}

func funcEq(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if args[0] == args[1] {
		out.WriteByte('1')
	}
	return nil
}

func funcNot(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if stripSpace(args[0]) == "" {
		out.WriteByte('1')
	}
	return nil
}
