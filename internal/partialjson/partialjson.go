// Package partialjson turns a truncated JSON document into the most complete
// valid JSON value it implies. Streaming models emit object text token by
// token; each prefix is repaired into a snapshot whose string values only
// grow as more text arrives.
package partialjson

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"
)

// frame is an open container on the scan stack.
type frame struct {
	closer    byte // '}' or ']'
	expectKey bool // next string in this object is a key
}

// checkpoint is a prefix length at which the document can be cut and closed.
type checkpoint struct {
	pos   int
	stack []frame
}

// Complete returns a valid JSON document for the given prefix.
// The second result is false when the prefix holds no value yet (empty,
// whitespace, or a lone scalar that is still incomplete).
func Complete(prefix []byte) ([]byte, bool) {
	var (
		stack    []frame
		last     *checkpoint
		inString bool
		isKey    bool
		escPos   = -1
		escNeed  int
	)

	mark := func(pos int) {
		cp := checkpoint{pos: pos, stack: append([]frame(nil), stack...)}
		last = &cp
	}

	for i := 0; i < len(prefix); i++ {
		c := prefix[i]

		if inString {
			switch {
			case escNeed > 0:
				if escNeed == 5 && c == 'u' {
					escNeed = 4
					continue
				}
				if escNeed == 5 {
					escNeed = 0
					escPos = -1
					continue
				}
				escNeed--
				if escNeed == 0 {
					escPos = -1
				}
			case c == '\\':
				escPos = i
				escNeed = 5 // one escape char, or 'u' followed by four hex digits
			case c == '"':
				inString = false
				if isKey {
					if len(stack) > 0 {
						stack[len(stack)-1].expectKey = false
					}
				} else {
					mark(i + 1)
				}
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			isKey = len(stack) > 0 && stack[len(stack)-1].closer == '}' && stack[len(stack)-1].expectKey
		case '{':
			stack = append(stack, frame{closer: '}', expectKey: true})
			mark(i + 1)
		case '[':
			stack = append(stack, frame{closer: ']'})
			mark(i + 1)
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1].closer != c {
				return nil, false
			}
			stack = stack[:len(stack)-1]
			mark(i + 1)
		case ',':
			mark(i)
			if len(stack) > 0 && stack[len(stack)-1].closer == '}' {
				stack[len(stack)-1].expectKey = true
			}
		}
	}

	// First try: close whatever is open right now.
	var candidate []byte
	switch {
	case inString && !isKey:
		body := prefix
		if escPos >= 0 {
			body = prefix[:escPos]
		}
		body = trimPartialRune(trimHighSurrogate(body))
		candidate = closeStack(append(append([]byte(nil), body...), '"'), stack)
	case !inString:
		candidate = closeStack(trimTrailing(prefix), stack)
	}
	if candidate != nil && json.Valid(candidate) {
		return candidate, true
	}

	// Fall back to the last clean cut.
	if last == nil {
		return nil, false
	}
	candidate = closeStack(trimTrailing(prefix[:last.pos]), last.stack)
	if json.Valid(candidate) {
		return candidate, true
	}
	return nil, false
}

// trimTrailing drops whitespace and a dangling comma.
func trimTrailing(b []byte) []byte {
	b = bytes.TrimRight(b, " \t\r\n")
	b = bytes.TrimSuffix(b, []byte(","))
	return append([]byte(nil), bytes.TrimRight(b, " \t\r\n")...)
}

func closeStack(b []byte, stack []frame) []byte {
	for i := len(stack) - 1; i >= 0; i-- {
		b = append(b, stack[i].closer)
	}
	return b
}

// trimPartialRune drops a multi-byte UTF-8 sequence cut short at the end.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}

// trimHighSurrogate drops a trailing \uD800-\uDBFF escape whose low half
// has not arrived yet; decoding it alone would yield U+FFFD.
func trimHighSurrogate(b []byte) []byte {
	if len(b) < 6 || b[len(b)-6] != '\\' || b[len(b)-5] != 'u' {
		return b
	}
	v, err := strconv.ParseUint(string(b[len(b)-4:]), 16, 16)
	if err != nil || v < 0xD800 || v > 0xDBFF {
		return b
	}
	return b[:len(b)-6]
}
