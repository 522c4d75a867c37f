// Package normalize turns markup and ragged whitespace into plain text and
// derives the lossy fingerprint keys used for duplicate detection.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Clean collapses every whitespace run to a single space and trims.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HTMLToText extracts visible text from an HTML fragment, separating text
// nodes with spaces, and cleans the result. Input that does not parse is
// returned cleaned as-is.
func HTMLToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return Clean(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return Clean(fragment)
	}
	doc.Find("script, style").Remove()
	return NodeText(doc.Selection)
}

// NodeText returns the cleaned text of a selection with a space between
// every text node, so adjacent block elements do not run together.
func NodeText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return Clean(b.String())
}

var bracketed = regexp.MustCompile(`\[.*?\]|\(.*?\)`)

// FingerprintKey is a cheap near-duplicate signature: bracketed and
// parenthesized segments (editorial tags such as "[속보]" or "(종합)") are
// dropped, then everything that is not a letter, digit or underscore, then
// the first length runes are kept.
//
// It is best-effort only. Two different stories sharing a long common
// prefix collide, and the same story with reordered clauses does not.
func FingerprintKey(text string, length int) string {
	if length <= 0 {
		return ""
	}
	text = norm.NFC.String(text)
	text = bracketed.ReplaceAllString(text, "")

	out := make([]rune, 0, length)
	for _, r := range text {
		if !isWordRune(r) {
			continue
		}
		out = append(out, r)
		if len(out) == length {
			break
		}
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
