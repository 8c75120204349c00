// Package sanitize normalizes message bodies before entity recognition:
// format-specific markup is stripped, then encoded blobs that would only
// pollute the recognizer's input are scrubbed out.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/mailrake/mailrake/archive"
)

// DefaultSizeThreshold is the body length above which the blob-stripping
// passes run. Small bodies skip them to avoid wasted regex cost.
const DefaultSizeThreshold = 1_000_000

var (
	// Lines that look like base64 encoded data, optionally quoted.
	base64LineRe = regexp.MustCompile(`(?m)^[>\s]*[A-Za-z0-9+/]{76,}\n?`)

	// Uuencoded attachment blocks.
	uuencodeRe = regexp.MustCompile(`(?s)begin [0-7]{3}.*?end`)

	// Embedded calendar/notes markup blocks.
	calendarRe = regexp.MustCompile(`(?s)<(?:OMNI|omni)[^>]*>.*?</(?:OMNI|omni)[^>]*>\s*`)
)

// Decode forces a body to valid UTF-8, replacing undecodable sequences
// rather than failing. Decoders hand over whatever bytes the container held.
func Decode(content string) string {
	if utf8.ValidString(content) {
		return content
	}
	return strings.ToValidUTF8(content, string(utf8.RuneError))
}

// CleanupBody decodes a message body, strips formatting according to its
// type, then removes suspected base64 runs, uuencoded blocks and calendar
// markup, in that order, when the text exceeds sizeThreshold. The result is
// trimmed. The function is idempotent.
func CleanupBody(body string, bodyType archive.BodyType, sizeThreshold int) string {
	body = Decode(body)

	switch bodyType {
	case archive.BodyTypeRTF:
		body = rtfToText(body)
	case archive.BodyTypeHTML:
		body = htmlToText(body)
	}

	if len(body) > sizeThreshold {
		body = base64LineRe.ReplaceAllString(body, "")
	}
	if len(body) > sizeThreshold {
		body = uuencodeRe.ReplaceAllString(body, "")
	}
	if len(body) > sizeThreshold {
		body = calendarRe.ReplaceAllString(body, "")
	}

	return strings.TrimSpace(body)
}

// htmlToText extracts the visible text of an HTML document, skipping script
// and style content.
func htmlToText(markup string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))

	var sb strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(name) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(name) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

func skippedTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
