// Package extract isolates the readable article text of an HTML page
// from its boilerplate (navigation, ads, footers).
//
// The extractor tries a prioritized list of common article-body
// containers first and falls back to the whole body with non-content
// subtrees removed. All removal happens on a detached clone; the input
// tree is never mutated, because the same tree is later annotated in
// place by the annotate package.
//
// Design decision: We walk golang.org/x/net/html nodes directly rather
// than pulling in a CSS selector engine. The selector list is small and
// fixed (tag, class, id, itemprop checks), and a hand-rolled matcher
// keeps the candidate ordering explicit.
package extract
