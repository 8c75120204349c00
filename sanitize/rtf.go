package sanitize

import "strings"

// Destination groups whose content never contributes visible text.
var rtfSkippedDestinations = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"object":     true,
	"header":     true,
	"footer":     true,
}

// rtfToText strips RTF control words and groups, keeping the document's
// visible text. Input that carries no RTF syntax passes through unchanged.
func rtfToText(body string) string {
	var sb strings.Builder

	skipUntilDepth := -1
	depth := 0
	i := 0

	for i < len(body) {
		c := body[i]

		switch c {
		case '{':
			depth++
			i++
		case '}':
			if depth > 0 {
				depth--
			}
			if skipUntilDepth >= 0 && depth <= skipUntilDepth {
				skipUntilDepth = -1
			}
			i++
		case '\\':
			word, param, next := readControlWord(body, i+1)
			i = next

			if skipUntilDepth >= 0 {
				continue
			}

			switch {
			case word == "*" || rtfSkippedDestinations[word]:
				skipUntilDepth = depth - 1
			case word == "par" || word == "line":
				sb.WriteByte('\n')
			case word == "tab":
				sb.WriteByte('\t')
			case word == "'":
				// Hex escape; emit the byte when it is printable ASCII.
				if b, ok := parseHexByte(param); ok && b >= 0x20 && b < 0x7f {
					sb.WriteByte(b)
				}
			case word == "":
				// Escaped literal such as \{ \} or \\.
				if next > 0 && next-1 < len(body) {
					sb.WriteByte(body[next-1])
				}
			}
		default:
			if skipUntilDepth < 0 && c != '\r' {
				sb.WriteByte(c)
			}
			i++
		}
	}

	return sb.String()
}

// readControlWord parses the control word starting at pos (just past the
// backslash) and returns the word, its parameter text, and the next index.
func readControlWord(body string, pos int) (word, param string, next int) {
	if pos >= len(body) {
		return "", "", pos
	}

	c := body[pos]

	// Symbol controls are a single non-alphabetic character.
	if c == '*' {
		return "*", "", pos + 1
	}
	if c == '\'' {
		end := pos + 3
		if end > len(body) {
			end = len(body)
		}
		return "'", body[pos+1 : end], end
	}
	if !isAlpha(c) {
		return "", "", pos + 1
	}

	start := pos
	for pos < len(body) && isAlpha(body[pos]) {
		pos++
	}
	word = body[start:pos]

	paramStart := pos
	if pos < len(body) && (body[pos] == '-' || isDigit(body[pos])) {
		pos++
		for pos < len(body) && isDigit(body[pos]) {
			pos++
		}
	}
	param = body[paramStart:pos]

	// A single space after the control word is part of it.
	if pos < len(body) && body[pos] == ' ' {
		pos++
	}

	return word, param, pos
}

func parseHexByte(s string) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	var v byte
	for i := 0; i < 2; i++ {
		v <<= 4
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			v |= c - '0'
		case c >= 'a' && c <= 'f':
			v |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v |= c - 'A' + 10
		default:
			return 0, false
		}
	}
	return v, true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
