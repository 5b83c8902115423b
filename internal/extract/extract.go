package extract

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// Extraction limits.
const (
	// MaxTextLength is the maximum length of extracted text. Longer text
	// is cut and marked with TruncationMarker. The bound keeps scoring
	// prompts within the upstream model's input budget.
	MaxTextLength = 10000

	// TruncationMarker is appended when the text was cut at MaxTextLength.
	TruncationMarker = "... (truncated)"

	// minContentLength is the minimum rendered text length for a
	// candidate container to be accepted. Shorter candidates are usually
	// empty placeholders or teaser blocks, so we keep looking.
	minContentLength = 100
)

// ErrNoText is returned when a page yields no usable text at all.
// Callers surface this distinctly so users understand the failure is
// page-side, not API-side.
var ErrNoText = errors.New("could not extract text from page")

// selector is a minimal content-container matcher. Exactly one field is
// set per candidate; matching is by tag name, class token, id, or
// schema.org itemprop.
type selector struct {
	tag      string
	class    string
	id       string
	itemprop string
}

// contentSelectors lists candidate article-body containers, most
// specific first. The ordering matters: the first candidate with enough
// rendered text wins.
var contentSelectors = []selector{
	{itemprop: "articleBody"},
	{class: "post-content"},
	{class: "entry-content"},
	{class: "article-body"},
	{id: "content"},
	{id: "main-content"},
	{tag: "article"},
	{tag: "main"},
}

// denylistTags are subtrees removed wholesale in the full-body fallback.
var denylistTags = map[string]bool{
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"form":     true,
	"iframe":   true,
	"template": true,
}

// denylistPatterns are substrings that mark a class or id attribute as
// non-content: sidebars, ad slots, cookie banners, comment sections,
// share widgets, menus.
var denylistPatterns = []string{
	"sidebar",
	"advert",
	"ads",
	"cookie",
	"comment",
	"share",
	"social",
	"related",
	"newsletter",
	"menu",
	"breadcrumb",
}

// Extract returns the cleaned article text of a parsed HTML document.
//
// It first tries each content selector in order, accepting the first
// container whose rendered text exceeds minContentLength. If none
// qualifies, it falls back to a detached clone of <body> with denylisted
// subtrees removed. The result is whitespace-normalized and truncated to
// MaxTextLength. Returns ErrNoText when nothing usable remains.
//
// The input tree is never modified.
func Extract(doc *html.Node) (string, error) {
	if doc == nil {
		return "", ErrNoText
	}

	for _, sel := range contentSelectors {
		if n := findFirst(doc, sel); n != nil {
			text := normalize(renderText(n))
			if len(text) >= minContentLength {
				return truncate(text), nil
			}
		}
	}

	// Fallback: whole body minus boilerplate. Work on a clone so the
	// caller's tree stays pristine for annotation.
	body := findFirst(doc, selector{tag: "body"})
	if body == nil {
		return "", ErrNoText
	}
	clone := cloneTree(body)
	pruneBoilerplate(clone)

	text := truncate(normalize(renderText(clone)))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// findFirst returns the first element (depth-first, document order)
// matching the selector, or nil.
func findFirst(n *html.Node, sel selector) *html.Node {
	if n.Type == html.ElementNode && matches(n, sel) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, sel); found != nil {
			return found
		}
	}
	return nil
}

// matches reports whether an element node satisfies the selector.
func matches(n *html.Node, sel selector) bool {
	switch {
	case sel.tag != "":
		return n.Data == sel.tag
	case sel.class != "":
		return hasClass(n, sel.class)
	case sel.id != "":
		return getAttr(n, "id") == sel.id
	case sel.itemprop != "":
		return getAttr(n, "itemprop") == sel.itemprop
	}
	return false
}

// hasClass reports whether the element's class attribute contains the
// given token.
func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(getAttr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// blockTags are elements that introduce a line break in rendered text.
// Used to approximate the browser's innerText line structure.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
	"ul": true, "ol": true, "table": true, "figcaption": true,
	"header": true, "footer": true, "main": true, "aside": true, "nav": true,
}

// renderText walks the subtree and concatenates its text nodes,
// inserting newlines at block boundaries. Script and style text is
// skipped; it is code, not content.
func renderText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
			return
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" || node.Data == "noscript" {
				return
			}
			if blockTags[node.Data] {
				b.WriteString("\n")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && blockTags[node.Data] {
			b.WriteString("\n")
		}
	}
	walk(n)
	return b.String()
}

// normalize cleans extracted text: runs of spaces and tabs become one
// space, each line is trimmed, and runs of blank lines collapse to a
// single blank line (so three or more newlines become exactly two).
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blankPending := false
	for _, line := range lines {
		line = strings.TrimSpace(collapseSpaces(line))
		if line == "" {
			// Remember that a paragraph break occurred, but emit at
			// most one blank line per run.
			if len(out) > 0 {
				blankPending = true
			}
			continue
		}
		if blankPending {
			out = append(out, "")
			blankPending = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// collapseSpaces replaces runs of spaces and tabs with a single space.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == ' ' {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts text at MaxTextLength and appends the marker.
func truncate(text string) string {
	if len(text) <= MaxTextLength {
		return text
	}
	return text[:MaxTextLength] + TruncationMarker
}

// cloneTree deep-copies a node and its subtree. Parent and sibling
// pointers of the copy are detached from the original document.
func cloneTree(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneTree(c))
	}
	return clone
}

// pruneBoilerplate removes denylisted subtrees from a (cloned) tree:
// structural non-content tags and any element whose class or id matches
// a denylist pattern.
func pruneBoilerplate(n *html.Node) {
	var doomed []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (denylistTags[c.Data] || matchesDenyPattern(c)) {
			doomed = append(doomed, c)
			continue
		}
		pruneBoilerplate(c)
	}
	for _, d := range doomed {
		n.RemoveChild(d)
	}
}

// matchesDenyPattern reports whether an element's class or id marks it
// as boilerplate.
func matchesDenyPattern(n *html.Node) bool {
	attrs := strings.ToLower(getAttr(n, "class") + " " + getAttr(n, "id"))
	if strings.TrimSpace(attrs) == "" {
		return false
	}
	for _, pattern := range denylistPatterns {
		if strings.Contains(attrs, pattern) {
			return true
		}
	}
	return false
}
