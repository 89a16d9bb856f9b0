// Package extract pulls best-effort values out of parsed listing markup.
// Missing nodes and attributes are reported as absent, never as errors.
package extract

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Field names one entry of the selector table.
type Field int

const (
	Title Field = iota
	Price
	Condition
	Gallery
	CategoryCardLink
	SearchResultLink
)

// Rule selects a node by tag and class.
type Rule struct {
	Tag   string
	Class string
}

// Selector renders the rule as a CSS selector.
func (r Rule) Selector() string {
	return r.Tag + "." + r.Class
}

// Rules is the fixed field table for marketplace markup.
var Rules = map[Field]Rule{
	Title:            {Tag: "h1", Class: "x-item-title__mainTitle"},
	Price:            {Tag: "span", Class: "x-price-primary"},
	Condition:        {Tag: "div", Class: "x-item-condition-text"},
	Gallery:          {Tag: "div", Class: "ux-image-carousel"},
	CategoryCardLink: {Tag: "a", Class: "brwrvr__item-card__image-link"},
	SearchResultLink: {Tag: "a", Class: "s-item__link"},
}

const gradeMarker = "Graded - PSA"

var (
	innerWhitespace = regexp.MustCompile(`\s+`)
	gradeNumber     = regexp.MustCompile(`PSA\s+(\S+)`)
)

// Find returns the first node matching field's rule inside sel.
func Find(sel *goquery.Selection, field Field) (*goquery.Selection, bool) {
	rule, ok := Rules[field]
	if !ok {
		return nil, false
	}
	match := sel.Find(rule.Selector()).First()
	return match, match.Length() > 0
}

// Text returns the trimmed, whitespace-collapsed text of the first node
// matching field, or false when the node is missing or empty.
func Text(doc *goquery.Document, field Field) (string, bool) {
	node, ok := Find(doc.Selection, field)
	if !ok {
		return "", false
	}
	text := NormaliseText(GetText(node.Get(0)))
	return text, text != ""
}

// TextOr is Text with a sentinel for absent values.
func TextOr(doc *goquery.Document, field Field, fallback string) string {
	if text, ok := Text(doc, field); ok {
		return text
	}
	return fallback
}

// Grade scans every span for the first whose text carries the grading
// marker and parses the integer after "PSA ". Malformed or out-of-range
// values are absent.
func Grade(doc *goquery.Document) (int, bool) {
	var raw string
	found := false
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := GetText(s.Get(0))
		if strings.Contains(text, gradeMarker) {
			raw = text
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, false
	}
	return ParseGrade(raw)
}

// ParseGrade parses text like "Graded - PSA 9".
func ParseGrade(text string) (int, bool) {
	idx := strings.Index(text, gradeMarker)
	if idx < 0 {
		return 0, false
	}
	m := gradeNumber.FindStringSubmatch(text[idx:])
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimRight(m[1], ".,;:)"))
	if err != nil || n < 1 || n > 10 {
		return 0, false
	}
	return n, true
}

// GetText concatenates every text node under node.
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
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

// NormaliseText trims and collapses internal whitespace.
func NormaliseText(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}
