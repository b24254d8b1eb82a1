// Package format renders user-supplied text for Telegram's HTML parse mode.
package format

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Bot API limits on the visible length of a message, in UTF-16 code units.
const (
	MaxTextLen    = 4096
	MaxCaptionLen = 1024
)

// EscapeHTML escapes text for the HTML parse mode. It must be applied exactly
// once to any user-supplied fragment.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Mention renders "@username" for users with a public handle.
func Mention(username string) string {
	return "@" + EscapeHTML(strings.TrimPrefix(username, "@"))
}

// UserLink renders a clickable link to a user profile by numeric id.
func UserLink(userID int64, label string) string {
	return `<a href="tg://user?id=` + strconv.FormatInt(userID, 10) + `">` + EscapeHTML(label) + `</a>`
}

// VisibleLen returns the length Telegram counts for an HTML-mode message:
// tags are dropped, entities count as the character they stand for, and
// characters outside the BMP count twice.
func VisibleLen(htmlText string) int {
	var b strings.Builder
	inTag := false
	for _, r := range htmlText {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return len(utf16.Encode([]rune(html.UnescapeString(b.String()))))
}
