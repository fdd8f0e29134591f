package memdom

import (
	"strings"
)

type (
	// selector is a parsed selector list, supporting a subset of CSS: type,
	// class, and ID selectors, compounded (e.g. `img.js-lazy`), optionally
	// grouped by commas. Combinators aren't supported.
	selector []compound

	compound struct {
		tag     string
		id      string
		classes []string
	}
)

// parseSelector parses s, returning false if it uses unsupported syntax.
func parseSelector(s string) (selector, bool) {
	var result selector
	for _, part := range strings.Split(s, `,`) {
		part = strings.TrimSpace(part)
		if part == `` || strings.ContainsAny(part, " \t\n>+~[]:*") {
			return nil, false
		}
		var (
			c    compound
			kind byte
			buf  strings.Builder
		)
		flush := func() bool {
			v := buf.String()
			buf.Reset()
			switch kind {
			case 0:
				c.tag = strings.ToLower(v)
			case '.':
				if v == `` {
					return false
				}
				c.classes = append(c.classes, v)
			case '#':
				if v == `` || c.id != `` {
					return false
				}
				c.id = v
			}
			return true
		}
		for i := 0; i < len(part); i++ {
			switch ch := part[i]; ch {
			case '.', '#':
				if !flush() {
					return nil, false
				}
				kind = ch
			default:
				buf.WriteByte(ch)
			}
		}
		if !flush() {
			return nil, false
		}
		result = append(result, c)
	}
	return result, len(result) != 0
}

func (x selector) matches(e *Element) bool {
	for _, c := range x {
		if c.matches(e) {
			return true
		}
	}
	return false
}

func (x compound) matches(e *Element) bool {
	if x.tag != `` && x.tag != e.tag {
		return false
	}
	if x.id != `` {
		if v, _ := e.Attribute(`id`); v != x.id {
			return false
		}
	}
	for _, class := range x.classes {
		if !e.HasClass(class) {
			return false
		}
	}
	return true
}
