package annotate

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/credshield/credshield/internal/model"
)

// Marker classes and ids used for all inserted markup. Clear relies on
// these to find everything Apply added.
const (
	// HighlightClass marks the wrapper around a flagged snippet.
	HighlightClass = "credshield-highlight"
	// IndicatorClass marks the clickable info marker before a wrapper.
	IndicatorClass = "credshield-indicator"
	// StyleID guards the injected stylesheet against double insertion.
	StyleID = "credshield-styles"
)

// indicatorGlyph is the visible content of an indicator element.
const indicatorGlyph = "ⓘ"

// stylesheet is the CSS injected alongside the highlights.
const stylesheet = `
.` + HighlightClass + ` { background-color: rgba(255, 193, 7, 0.45); border-bottom: 2px solid #e6a100; }
.` + IndicatorClass + ` { cursor: pointer; margin-right: 2px; color: #e6a100; user-select: none; }
`

// searchArea is one candidate container for snippet matching.
type searchArea struct {
	tag   string
	class string
	id    string
}

// searchAreas is the ordered list of containers Apply scans, most
// specific first and the whole body last.
var searchAreas = []searchArea{
	{tag: "article"},
	{tag: "main"},
	{class: "post-content"},
	{class: "entry-content"},
	{id: "content"},
	{id: "main-content"},
	{tag: "body"},
}

// Apply annotates each flag's snippet in the document and returns how
// many flags were actually placed.
//
// For every flag the search areas are scanned in order and the first
// text node containing the exact snippet wins. Only that one occurrence
// is wrapped. Flags whose snippet cannot be found verbatim are skipped
// without error: model-produced snippets are not guaranteed to survive
// whitespace collapsing or node splits in the live tree, and losing a
// highlight is better than failing the scan.
func Apply(doc *html.Node, flags []model.Flag) int {
	applied := 0
	for _, flag := range flags {
		snippet := strings.TrimSpace(flag.Snippet)
		if snippet == "" {
			continue
		}
		if applyOne(doc, snippet, flag.Reason) {
			applied++
		} else {
			slog.Debug("snippet not found in document, skipping highlight",
				slog.String("snippet", truncateForLog(snippet)))
		}
	}
	return applied
}

// applyOne wraps the first occurrence of snippet found in any search
// area. Returns false when no area contains it.
func applyOne(doc *html.Node, snippet, reason string) bool {
	for _, area := range searchAreas {
		container := findFirst(doc, area)
		if container == nil {
			continue
		}
		if node, offset := findTextNode(container, snippet); node != nil {
			wrapMatch(node, offset, snippet, reason)
			return true
		}
	}
	return false
}

// findTextNode walks container in document order and returns the first
// text node containing snippet, together with the byte offset of the
// match. Text inside previously inserted markup, scripts, and styles
// is not searched.
func findTextNode(container *html.Node, snippet string) (*html.Node, int) {
	var found *html.Node
	offset := -1

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
			if hasClass(n, HighlightClass) || hasClass(n, IndicatorClass) {
				return
			}
		}
		if n.Type == html.TextNode {
			if i := strings.Index(n.Data, snippet); i >= 0 {
				found, offset = n, i
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(container)
	return found, offset
}

// wrapMatch splits the text node around the match and inserts the
// indicator and highlight wrapper in its place.
func wrapMatch(node *html.Node, offset int, snippet, reason string) {
	parent := node.Parent
	before := node.Data[:offset]
	after := node.Data[offset+len(snippet):]

	if before != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: before}, node)
	}

	indicator := newSpan(IndicatorClass,
		html.Attribute{Key: "data-snippet", Val: snippet},
		html.Attribute{Key: "data-reason", Val: reason},
	)
	indicator.AppendChild(&html.Node{Type: html.TextNode, Data: indicatorGlyph})
	parent.InsertBefore(indicator, node)

	highlight := newSpan(HighlightClass,
		html.Attribute{Key: "data-reason", Val: reason},
	)
	highlight.AppendChild(&html.Node{Type: html.TextNode, Data: snippet})
	parent.InsertBefore(highlight, node)

	if after != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: after}, node)
	}
	parent.RemoveChild(node)
}

// Clear removes every highlight wrapper and indicator from the
// document, restoring the original text layout. Wrapped children are
// reinserted in place and adjacent text nodes are merged back together,
// so the visible text is byte-identical to the pre-Apply tree. Calling
// Clear on an already-clean document is a no-op.
func Clear(doc *html.Node) {
	for _, wrapper := range collect(doc, HighlightClass) {
		parent := wrapper.Parent
		for wrapper.FirstChild != nil {
			child := wrapper.FirstChild
			wrapper.RemoveChild(child)
			parent.InsertBefore(child, wrapper)
		}
		parent.RemoveChild(wrapper)
	}
	for _, indicator := range collect(doc, IndicatorClass) {
		indicator.Parent.RemoveChild(indicator)
	}
	mergeText(doc)
}

// InjectStyles inserts the highlight stylesheet into the document head.
// A second call finds the existing style element and does nothing.
func InjectStyles(doc *html.Node) {
	if findByID(doc, StyleID) != nil {
		return
	}
	head := findFirst(doc, searchArea{tag: "head"})
	if head == nil {
		head = findFirst(doc, searchArea{tag: "body"})
	}
	if head == nil {
		return
	}
	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "id", Val: StyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: stylesheet})
	head.AppendChild(style)
}

// newSpan builds a span element with the given class and extra
// attributes.
func newSpan(class string, extra ...html.Attribute) *html.Node {
	attrs := append([]html.Attribute{{Key: "class", Val: class}}, extra...)
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr:     attrs,
	}
}

// collect returns every element carrying the given marker class, in
// document order.
func collect(doc *html.Node, class string) []*html.Node {
	var nodes []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}

// mergeText joins adjacent sibling text nodes throughout the tree.
func mergeText(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			n.RemoveChild(next)
			continue
		}
		mergeText(c)
		c = next
	}
}

// findFirst returns the first element matching the search area, or nil.
func findFirst(n *html.Node, area searchArea) *html.Node {
	if n.Type == html.ElementNode && matchesArea(n, area) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, area); found != nil {
			return found
		}
	}
	return nil
}

// findByID returns the element with the given id attribute, or nil.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func matchesArea(n *html.Node, area searchArea) bool {
	if area.tag != "" && n.Data != area.tag {
		return false
	}
	if area.class != "" && !hasClass(n, area.class) {
		return false
	}
	if area.id != "" && getAttr(n, "id") != area.id {
		return false
	}
	return true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// truncateForLog shortens a snippet for log output.
func truncateForLog(s string) string {
	const maxLen = 60
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
