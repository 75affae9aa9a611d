// Package markdown provides plan page chunking and plain-text conversion.
package markdown

import (
	"regexp"
	"strings"
)

var (
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	imageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	hrRe         = regexp.MustCompile(`(?m)^[-*_]{3,}$`)
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// ToPlainText converts markdown to plain text by removing formatting:
// heading markers, bold/italic markers, images, link syntax (keeping the link
// text), horizontal rules, and code fences/inline code. Runs of three or more
// newlines collapse to two. The transform is idempotent.
func ToPlainText(markdown string) string {
	text := markdown

	text = headingRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = imageRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = hrRe.ReplaceAllString(text, "")
	text = codeFenceRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
