package respparse

import (
	"strings"
)

// scanner tracks whether a byte offset sits inside a string literal.
type scanner struct {
	inString bool
	escaped  bool
}

// step consumes c and reports whether c is structural (outside any string literal).
func (s *scanner) step(c byte) bool {
	if s.inString {
		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == '"':
			s.inString = false
		}
		return false
	}
	if c == '"' {
		s.inString = true
		return false
	}
	return true
}

func stripLineComments(s string) (string, bool) {
	var b strings.Builder
	var sc scanner
	changed := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if sc.step(c) && c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			changed = true
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), changed
}

func stripTrailingCommas(s string) (string, bool) {
	var b strings.Builder
	var sc scanner
	changed := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if sc.step(c) && c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				changed = true
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String(), changed
}

// balance drops stray closers, terminates an open string and closes every container left open,
// innermost first.
func balance(s string) (string, bool) {
	var b strings.Builder
	var sc scanner
	var stack []byte
	changed := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !sc.step(c) {
			b.WriteByte(c)
			continue
		}
		switch c {
		case '{', '[':
			stack = append(stack, c)
			b.WriteByte(c)
		case '}', ']':
			want := opener(c)
			for len(stack) > 0 && stack[len(stack)-1] != want {
				// close the mismatched inner container first
				b.WriteByte(closer(stack[len(stack)-1]))
				stack = stack[:len(stack)-1]
				changed = true
			}
			if len(stack) == 0 {
				changed = true
				continue
			}
			stack = stack[:len(stack)-1]
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	out := b.String()
	if sc.inString {
		if sc.escaped {
			out = out[:len(out)-1]
		}
		out += `"`
		changed = true
	}
	if len(stack) == 0 {
		return out, changed
	}

	out = strings.TrimRight(out, " \t\r\n")
	switch {
	case strings.HasSuffix(out, ","):
		out = out[:len(out)-1]
	case strings.HasSuffix(out, ":"):
		out += "null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(closer(stack[i]))
	}
	return out, true
}

// cutPoints lists offsets just before each structural comma; cutting there keeps only complete elements.
func cutPoints(s string) []int {
	var sc scanner
	var cuts []int
	for i := 0; i < len(s); i++ {
		if sc.step(s[i]) && s[i] == ',' {
			cuts = append(cuts, i)
		}
	}
	return cuts
}

func opener(c byte) byte {
	if c == '}' {
		return '{'
	}
	return '['
}

func closer(c byte) byte {
	if c == '{' {
		return '}'
	}
	return ']'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
