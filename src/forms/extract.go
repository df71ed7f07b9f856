package forms

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class markers used by rendered Google Forms. A marker with several tokens
// matches an element carrying every one of them.
const (
	markerQuestion    = "M7eMe"
	markerContainer   = "Qr7Oae"
	markerFlatParent  = "z12JJ"
	markerAnswerGroup = "SG0AAe"
	markerOption      = "aDTYNe snByac OvPDhc OIC90c"
	markerListOption  = "eBFwI"
	markerDescription = "gubaDc OIC90c RjsPE"
	nonBreakingSpace  = "\u00a0"
)

// ExtractHTML parses r as HTML and extracts its questions.
func ExtractHTML(r io.Reader) ([]Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("forms: parse markup: %w", err)
	}
	return Extract(doc), nil
}

// Extract walks a parsed document and returns its questions in document order.
// The nested layout (one container per question) is tried first and the flat
// layout (question and answer group related by adjacency) second. A document
// matching neither yields an empty slice.
func Extract(doc *html.Node) []Record {
	if doc == nil {
		return nil
	}
	if records := extractNested(doc); len(records) > 0 {
		return records
	}
	return extractFlat(doc)
}

func extractNested(doc *html.Node) []Record {
	var records []Record
	for _, container := range findAll(doc, atom.Div, markerContainer) {
		question := findFirst(container, atom.Span, markerQuestion)
		if question == nil {
			continue
		}
		text := normalize(textOf(question))
		if text == "" {
			continue
		}

		desc := findFirst(container, atom.Div, markerDescription)
		if desc == nil {
			desc = nextSibling(container, atom.Div, markerDescription)
		}

		records = append(records, Record{
			Ordinal:     len(records) + 1,
			Text:        text,
			Options:     texts(findAll(container, atom.Span, markerOption)),
			Choices:     texts(findAll(container, atom.Div, markerListOption)),
			Description: textOrEmpty(desc),
		})
	}
	return records
}

func extractFlat(doc *html.Node) []Record {
	var records []Record
	for _, question := range findAll(doc, atom.Span, markerQuestion) {
		text := normalize(textOf(question))
		if text == "" {
			continue
		}
		rec := Record{Ordinal: len(records) + 1, Text: text}

		if parent := findParent(question, atom.Div, markerFlatParent); parent != nil {
			rec.Choices = texts(findAll(parent, atom.Div, markerListOption))
			if groups := findAll(parent, atom.Div, markerAnswerGroup); len(groups) > 0 {
				for _, group := range groups {
					rec.Options = append(rec.Options, texts(findAll(group, atom.Span, markerOption))...)
				}
				records = append(records, rec)
				continue
			}
		}

		if parent := findParent(question, atom.Div, ""); parent != nil {
			rec.Description = textOrEmpty(nextSibling(parent, atom.Div, markerDescription))
		}
		records = append(records, rec)
	}
	return records
}

// normalize trims surrounding whitespace and drops U+00A0.
func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, nonBreakingSpace, ""))
}

func texts(nodes []*html.Node) []string {
	var out []string
	for _, n := range nodes {
		if t := normalize(textOf(n)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func textOrEmpty(n *html.Node) string {
	if n == nil {
		return ""
	}
	return normalize(textOf(n))
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func matches(n *html.Node, tag atom.Atom, marker string) bool {
	if n.Type != html.ElementNode || n.DataAtom != tag {
		return false
	}
	if marker == "" {
		return true
	}
	var classes []string
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			classes = strings.Fields(a.Val)
			break
		}
	}
	for _, want := range strings.Fields(marker) {
		found := false
		for _, c := range classes {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// findAll returns matching descendants of root in document order.
func findAll(root *html.Node, tag atom.Atom, marker string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if matches(c, tag, marker) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func findFirst(root *html.Node, tag atom.Atom, marker string) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if matches(c, tag, marker) {
			return c
		}
		if n := findFirst(c, tag, marker); n != nil {
			return n
		}
	}
	return nil
}

func findParent(n *html.Node, tag atom.Atom, marker string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if matches(p, tag, marker) {
			return p
		}
	}
	return nil
}

func nextSibling(n *html.Node, tag atom.Atom, marker string) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if matches(s, tag, marker) {
			return s
		}
	}
	return nil
}
