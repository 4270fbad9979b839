package expand

import "bytes"

func isFuncNameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-'
}

// lookupFunction resolves the function named at text[beg:]. The name must
// be followed by a blank, the closing delimiter or the end of text.
func (e *Engine) lookupFunction(text string, beg int, closer byte) (*Descriptor, int) {
	i := beg
	for i < len(text) && isFuncNameChar(text[i]) {
		i++
	}
	if i == beg {
		return nil, beg
	}
	if i < len(text) && !isBlank(text[i]) && text[i] != closer {
		return nil, beg
	}
	return e.registry.Lookup(text[beg:i]), i
}

// findNextArgument returns the offset of the next comma at nesting depth
// zero in text[p:end], or -1.
func findNextArgument(text string, opener, closer byte, p, end int) int {
	count := 0
	for ; p < end; p++ {
		switch text[p] {
		case opener:
			count++
		case closer:
			count--
			if count < 0 {
				return -1
			}
		case ',':
			if count == 0 {
				return p
			}
		}
	}
	return -1
}

// handleFunction expands the function invocation whose opener is at
// text[open]. ok is false when the text does not name a function. end is
// the offset of the closing delimiter.
func (e *Engine) handleFunction(out *bytes.Buffer, text string, open int) (end int, ok bool, err error) {
	opener := text[open]
	closer := closerFor(opener)
	d, nameEnd := e.lookupFunction(text, open+1, closer)
	if d == nil {
		return 0, false, nil
	}

	beg := skipBlanks(text, nameEnd)
	count := 0
	for end = beg; end < len(text); end++ {
		if text[end] == opener {
			count++
		} else if text[end] == closer {
			count--
			if count < 0 {
				break
			}
		}
	}
	if count >= 0 {
		return 0, true, e.errorf(KindUnterminated, "unterminated call to function '%s': missing '%c'", d.Name, closer)
	}

	var args []string
	for p := beg; p <= end; {
		next := end
		if len(args)+1 != d.MaxArgs {
			if n := findNextArgument(text, opener, closer, p, end); n >= 0 {
				next = n
			}
		}
		arg := text[p:next]
		if d.ExpandArgs {
			if arg, err = e.Expand(arg); err != nil {
				return 0, true, err
			}
		}
		args = append(args, arg)
		p = next + 1
	}

	return end, true, e.invoke(out, d, args)
}

// invoke checks the arity of a call and runs the function.
func (e *Engine) invoke(out *bytes.Buffer, d *Descriptor, args []string) error {
	if len(args) < d.MinArgs {
		return e.errorf(KindArity, "insufficient number of arguments (%d) to function '%s'", len(args), d.Name)
	}
	if len(args) == 0 {
		return nil
	}
	tracer().Debugf("%s: $(%s) with %d argument(s)", e.loc.String(), d.Name, len(args))
	return d.Fn(e, out, args, d.Name)
}
