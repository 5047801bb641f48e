package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// SoleString returns the text of a node that has exactly one string
// descendant along a chain of single children. Nodes with no children or
// more than one child have no sole string.
func SoleString(node *html.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	if node.Type == html.TextNode {
		return node.Data, true
	}
	child := node.FirstChild
	if child == nil || child.NextSibling != nil {
		return "", false
	}
	return SoleString(child)
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean strips non-printable characters, trims the string and collapses
// runs of whitespace into one space.
func Clean(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// Text is the cleaned text of the first node in sel.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return Clean(GetText(sel.Get(0)))
}
