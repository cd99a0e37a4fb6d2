package parser

import (
	"encoding/json"
	"strings"
)

// frame states while scanning a container.
const (
	stOpen   = iota // just opened, a key/value or the closer may follow
	stKey           // after a comma in an object, a key must follow
	stColon         // after a key, a colon must follow
	stValue         // a value must follow
	stNext          // after a value, a comma or the closer must follow
)

type frame struct {
	kind  byte // '{' or '['
	state int

	// element is set when the container is an entry of a list, filled
	// once it holds a complete value.
	element bool
	filled  bool
}

// cutPoint is a prefix of the text that becomes valid JSON once the
// still-open containers are closed.
type cutPoint struct {
	end     int
	closers string
}

// lastCompleteCut scans s, which starts with '{', and returns the longest
// prefix ending after a complete value or an opening bracket, together
// with the closers that balance it. A prefix that would leave an empty
// list entry, such as `[{}]` from `[{"na`, is never a cut. Scanning stops
// at the first syntax error or at the end of input. A number that runs to
// the end of input counts as complete when it is a valid literal.
func lastCompleteCut(s string) (cutPoint, bool) {
	var (
		stack []frame
		best  cutPoint
		found bool
	)

	closersFor := func() string {
		var b strings.Builder
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == '{' {
				b.WriteByte('}')
			} else {
				b.WriteByte(']')
			}
		}
		return b.String()
	}
	mark := func(end int) {
		for _, f := range stack {
			if f.element && !f.filled {
				return
			}
		}
		best = cutPoint{end: end, closers: closersFor()}
		found = true
	}
	// valueDone advances the parent after a complete value. It reports
	// false once the root value itself is complete.
	valueDone := func(end int) bool {
		if len(stack) == 0 {
			mark(end)
			return false
		}
		stack[len(stack)-1].state = stNext
		stack[len(stack)-1].filled = true
		mark(end)
		return true
	}
	expectsValue := func() bool {
		if len(stack) == 0 {
			return !found
		}
		top := stack[len(stack)-1]
		return top.state == stValue || (top.kind == '[' && top.state == stOpen)
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '{' || c == '[':
			if !expectsValue() {
				return best, found
			}
			element := len(stack) > 0 && stack[len(stack)-1].kind == '['
			stack = append(stack, frame{kind: c, state: stOpen, element: element})
			i++
			mark(i)

		case c == '}' || c == ']':
			if len(stack) == 0 {
				return best, found
			}
			top := stack[len(stack)-1]
			want := byte('{')
			if c == ']' {
				want = '['
			}
			if top.kind != want || (top.state != stOpen && top.state != stNext) {
				return best, found
			}
			stack = stack[:len(stack)-1]
			i++
			if !valueDone(i) {
				return best, found
			}

		case c == ',':
			if len(stack) == 0 || stack[len(stack)-1].state != stNext {
				return best, found
			}
			if stack[len(stack)-1].kind == '{' {
				stack[len(stack)-1].state = stKey
			} else {
				stack[len(stack)-1].state = stValue
			}
			i++

		case c == ':':
			if len(stack) == 0 || stack[len(stack)-1].state != stColon {
				return best, found
			}
			stack[len(stack)-1].state = stValue
			i++

		case c == '"':
			end, ok := scanString(s, i)
			if !ok {
				return best, found
			}
			i = end
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.kind == '{' && (top.state == stOpen || top.state == stKey) {
					top.state = stColon
					continue
				}
			}
			if !expectsValue() {
				return best, found
			}
			if !valueDone(i) {
				return best, found
			}

		default:
			if !expectsValue() {
				return best, found
			}
			end := scanLiteral(s, i)
			if end == i || !json.Valid([]byte(s[i:end])) {
				return best, found
			}
			i = end
			if !valueDone(i) {
				return best, found
			}
		}
	}
	return best, found
}

// scanString returns the index just past the closing quote of the string
// starting at s[start]. ok is false when the string is unterminated.
func scanString(s string, start int) (int, bool) {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1, true
		}
	}
	return len(s), false
}

// scanLiteral returns the end of a number or keyword starting at s[start].
func scanLiteral(s string, start int) int {
	i := start
	for i < len(s) && strings.IndexByte("+-.0123456789eEtrufalsn", s[i]) >= 0 {
		i++
	}
	return i
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket or brace, leaving string contents alone.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// LooksTruncated reports whether text appears cut off: it ends with a
// dangling '.' or ',', does not end with '}', or has unbalanced braces.
func LooksTruncated(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if strings.HasSuffix(t, ".") || strings.HasSuffix(t, ",") {
		return true
	}
	if !strings.HasSuffix(t, "}") {
		return true
	}
	return strings.Count(t, "{") != strings.Count(t, "}")
}
