// Package annotate marks flagged snippets directly in a parsed HTML
// tree and removes those marks again without disturbing the page text.
package annotate
