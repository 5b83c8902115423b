package extract

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// parse is a test helper that parses an HTML string.
func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

// filler returns deterministic text longer than the minimum content
// threshold.
func filler() string {
	return strings.Repeat("The committee reviewed the evidence in detail. ", 5)
}

// TestExtract tests article-text extraction.
func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("prefers article container over body", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body>
			<nav>Home News Sports</nav>
			<article><p>`+filler()+`</p></article>
			<footer>Copyright</footer>
		</body></html>`)

		text, err := Extract(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text, "committee reviewed") {
			t.Errorf("article text missing: %q", text)
		}
		if strings.Contains(text, "Home News Sports") || strings.Contains(text, "Copyright") {
			t.Errorf("boilerplate leaked into extraction: %q", text)
		}
	})

	t.Run("skips empty candidate containers", func(t *testing.T) {
		t.Parallel()

		// The <article> is a placeholder; the real content sits in a
		// CMS class container that ranks higher in the candidate list.
		doc := parse(t, `<html><body>
			<article> </article>
			<div class="entry-content"><p>`+filler()+`</p></div>
		</body></html>`)

		text, err := Extract(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text, "committee reviewed") {
			t.Errorf("expected entry-content text, got %q", text)
		}
	})

	t.Run("matches schema.org article body", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body>
			<div itemprop="articleBody"><p>`+filler()+`</p></div>
		</body></html>`)

		text, err := Extract(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text, "committee reviewed") {
			t.Errorf("expected itemprop container text, got %q", text)
		}
	})

	t.Run("falls back to denylisted body", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body>
			<nav>Navigation links</nav>
			<div class="sidebar">Trending now</div>
			<div class="ads-banner">Buy things</div>
			<div><p>`+filler()+`</p></div>
			<footer>Legal</footer>
		</body></html>`)

		text, err := Extract(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text, "committee reviewed") {
			t.Errorf("body fallback text missing: %q", text)
		}
		for _, boiler := range []string{"Navigation links", "Trending now", "Buy things", "Legal"} {
			if strings.Contains(text, boiler) {
				t.Errorf("denylisted content %q survived extraction", boiler)
			}
		}
	})

	t.Run("fallback does not mutate the document", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body>
			<nav>Navigation links</nav>
			<p>`+filler()+`</p>
		</body></html>`)

		if _, err := Extract(doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The nav subtree must still be present in the original tree.
		if findFirst(doc, selector{tag: "nav"}) == nil {
			t.Error("extraction removed nodes from the live document")
		}
	})

	t.Run("normalizes whitespace", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body><article><p>First   line	here.</p>


			<p>`+filler()+`</p></article></body></html>`)

		text, err := Extract(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(text, "  ") {
			t.Errorf("space runs survived normalization: %q", text)
		}
		if strings.Contains(text, "\n\n\n") {
			t.Errorf("newline runs survived normalization: %q", text)
		}
		if !strings.Contains(text, "First line here.") {
			t.Errorf("expected collapsed line, got %q", text)
		}
	})

	t.Run("truncates long content with marker", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("word ", 4000)
		doc := parse(t, `<html><body><article><p>`+long+`</p></article></body></html>`)

		text, err := Extract(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(text, TruncationMarker) {
			t.Error("expected truncation marker suffix")
		}
		if len(text) != MaxTextLength+len(TruncationMarker) {
			t.Errorf("expected length %d, got %d", MaxTextLength+len(TruncationMarker), len(text))
		}
	})

	t.Run("empty page fails with ErrNoText", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body><script>var x = 1;</script></body></html>`)
		if _, err := Extract(doc); !errors.Is(err, ErrNoText) {
			t.Errorf("expected ErrNoText, got %v", err)
		}
	})

	t.Run("nil document fails with ErrNoText", func(t *testing.T) {
		t.Parallel()

		if _, err := Extract(nil); !errors.Is(err, ErrNoText) {
			t.Errorf("expected ErrNoText, got %v", err)
		}
	})
}
