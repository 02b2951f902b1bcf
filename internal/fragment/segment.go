package fragment

import (
	"strings"
	"unicode"
)

// Split cuts text into minimal diff-addressable units: a single punctuation
// rune stands alone, any other run ends at (and includes) one whitespace
// rune. Concatenating the units reproduces text exactly.
func Split(text string) []string {
	var units []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			units = append(units, run.String())
			run.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsPunct(r):
			flush()
			units = append(units, string(r))
		case unicode.IsSpace(r):
			run.WriteRune(r)
			flush()
		default:
			run.WriteRune(r)
		}
	}
	flush()
	return units
}

// Block-level elements for the whitespace-drop rule. Whitespace between
// blocks is indentation in the source document, not content, and it makes
// repeated sibling structures (rows of <li>, runs of <p>) align on the
// indentation instead of the content.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tbody": true, "td": true, "tfoot": true, "th": true,
	"thead": true, "tr": true, "ul": true,
}

// IsBlock reports whether name is a block-level element name.
func IsBlock(name string) bool { return blockElements[name] }

func isWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return len(s) > 0
}

// droppable reports whether children[i] is a whitespace-only text node
// sitting next to a comment or a block-level element on either side. The
// ends of the child list are not boundaries: leading and trailing whitespace
// stays unless a comment or block element flanks it.
func droppable(children []Child, i int) bool {
	t, ok := children[i].(Text)
	if !ok || !isWhitespace(string(t)) {
		return false
	}
	return formattingBoundary(children, i-1) || formattingBoundary(children, i+1)
}

func formattingBoundary(children []Child, i int) bool {
	if i < 0 || i >= len(children) {
		return false
	}
	switch c := children[i].(type) {
	case Comment:
		return true
	case *Fragment:
		return IsBlock(c.Name)
	}
	return false
}
