// Package htmltext converts HTML email and support-desk bodies to plain text.
package htmltext

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockContentRe = regexp.MustCompile(`(?is)<(script|style|head)\b[^>]*>.*?</(script|style|head)\s*>`)
	commentRe      = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreakRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockEndRe     = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr)\s*>`)
	blockStartRe   = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr)(\s[^>]*)?>`)
	hrRe           = regexp.MustCompile(`(?i)<hr(\s[^>]*)?/?>`)
	anchorRe       = regexp.MustCompile(`(?is)<a\s[^>]*?href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`)
	spaceRe        = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	manyNewlinesRe = regexp.MustCompile(`\n{3,}`)
)

const elementNames = `a|abbr|address|area|article|aside|b|base|bdi|bdo|blockquote|body|br|button|caption|center|` +
	`cite|code|col|colgroup|dd|del|details|dfn|div|dl|dt|em|figcaption|figure|font|footer|form|h[1-6]|head|` +
	`header|hr|html|i|img|input|ins|kbd|label|li|link|main|mark|meta|nav|ol|p|picture|pre|q|s|samp|section|` +
	`small|source|span|strike|strong|style|sub|summary|sup|table|tbody|td|tfoot|th|thead|title|tr|tt|u|ul|` +
	`var|wbr|script|noscript|svg|path`

// tagRe only treats known element names as markup, so decoded text such as
// "rows < 10" or "Vec<T>" is kept. Namespaced Office tags like <o:p> match.
var tagRe = regexp.MustCompile(`(?i)</?(?:[a-z][a-z0-9]*:)?(?:` + elementNames + `)\b[^>]*>|<[!?][^>]*>`)

// Strip renders HTML as readable plain text. Scripts, styles and comments are
// dropped, block elements become line breaks, links become "text (url)" and
// entities are decoded. Strip(Strip(x)) == Strip(x).
//
// Nested entities such as &amp;lt; need one pass per level. A pass that
// changes the text either removes a '<' or an '&', or keeps their count and
// shortens the text, so the loop always reaches a fixed point.
func Strip(s string) string {
	out := stripOnce(s)
	for {
		next := stripOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

func stripOnce(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blockContentRe.ReplaceAllString(s, "")
	s = commentRe.ReplaceAllString(s, "")

	s = anchorRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := anchorRe.FindStringSubmatch(m)
		url := strings.TrimSpace(parts[1])
		text := strings.TrimSpace(tagRe.ReplaceAllString(parts[2], ""))
		switch {
		case url == "":
			return text
		case text == "" || text == url:
			return url
		default:
			return text + " (" + url + ")"
		}
	})

	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = hrRe.ReplaceAllString(s, "\n---\n")
	s = blockEndRe.ReplaceAllString(s, "\n")
	s = blockStartRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")

	s = html.UnescapeString(s)

	s = spaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = manyNewlinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
