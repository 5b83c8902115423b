package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/credshield/credshield/internal/annotate"
	"github.com/credshield/credshield/internal/model"
	"github.com/credshield/credshield/internal/reputation"
	"github.com/credshield/credshield/internal/score"
)

// stubModel serves canned scoring and verification replies.
type stubModel struct {
	scoreReply  string
	verifyReply string
}

func (s *stubModel) ScoreText(_ context.Context, _ string, _ model.Sensitivity) (string, error) {
	return s.scoreReply, nil
}

func (s *stubModel) VerifySnippet(_ context.Context, _, _ string, _ model.Sensitivity) (string, error) {
	return s.verifyReply, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const handlerPage = `<html><body><article><p>Officials confirmed on Monday that
the water samples collected downstream all passed the federal safety limits,
according to three independent laboratories.</p></article></body></html>`

// newTestHandler builds a started handler with an attached page.
func newTestHandler(t *testing.T, m *stubModel, opts ...HandlerOption) *Handler {
	t.Helper()
	if m == nil {
		m = &stubModel{
			scoreReply:  `{"score": 75, "flags": []}`,
			verifyReply: `{"summary": "Supported by public records."}`,
		}
	}
	scorer := score.NewScorer(m, score.WithLogger(quietLogger()))
	verifier := score.NewVerifier(m, score.WithVerifierLogger(quietLogger()))

	opts = append(opts, WithHandlerLogger(quietLogger()))
	h := NewHandler(scorer, verifier, opts...)

	doc, err := html.Parse(strings.NewReader(handlerPage))
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}
	h.AttachPage(doc, "example.com")
	h.Start()
	return h
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return raw
}

// TestHandlerReadiness tests the fail-closed gate.
func TestHandlerReadiness(t *testing.T) {
	t.Parallel()

	m := &stubModel{scoreReply: `{"score": 75, "flags": []}`}
	h := NewHandler(
		score.NewScorer(m, score.WithLogger(quietLogger())),
		score.NewVerifier(m, score.WithVerifierLogger(quietLogger())),
		WithHandlerLogger(quietLogger()),
	)

	resp := h.Dispatch(context.Background(), Request{Type: TypeGetText})
	if resp.OK {
		t.Fatal("unstarted handler must reject requests")
	}
	if resp.Code != CodeNotReady {
		t.Errorf("code = %q, want %q", resp.Code, CodeNotReady)
	}

	h.Start()
	doc, _ := html.Parse(strings.NewReader(handlerPage))
	h.AttachPage(doc, "example.com")
	if resp := h.Dispatch(context.Background(), Request{Type: TypeGetText}); !resp.OK {
		t.Errorf("started handler rejected a valid request: %+v", resp)
	}
}

// TestHandlerRequestIDs tests the monotonic id assignment.
func TestHandlerRequestIDs(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	var last uint64
	for range 5 {
		resp := h.Dispatch(context.Background(), Request{Type: TypeGetText})
		if resp.RequestID <= last {
			t.Fatalf("request id %d is not greater than %d", resp.RequestID, last)
		}
		last = resp.RequestID
	}
}

// TestHandlerGetText tests extraction through the boundary.
func TestHandlerGetText(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	resp := h.Dispatch(context.Background(), Request{Type: TypeGetText})
	if !resp.OK {
		t.Fatalf("unexpected failure: %+v", resp)
	}
	result, ok := resp.Payload.(GetTextResult)
	if !ok {
		t.Fatalf("payload type %T", resp.Payload)
	}
	if !strings.Contains(result.Text, "water samples") {
		t.Errorf("unexpected text: %q", result.Text)
	}
}

// TestHandlerAnalyzeText tests scoring through the boundary.
func TestHandlerAnalyzeText(t *testing.T) {
	t.Parallel()

	t.Run("returns the blended result", func(t *testing.T) {
		t.Parallel()

		h := newTestHandler(t, &stubModel{scoreReply: `{"score": 82, "flags": []}`})
		resp := h.Dispatch(context.Background(), Request{
			Type: TypeAnalyzeText,
			Payload: mustMarshal(t, AnalyzeTextPayload{
				Text:        "some page text",
				Sensitivity: "medium",
			}),
		})
		if !resp.OK {
			t.Fatalf("unexpected failure: %+v", resp)
		}
		result := resp.Payload.(AnalyzeTextResult)
		if result.Result.Score != 82 {
			t.Errorf("score = %d, want 82", result.Result.Score)
		}
		if result.DomainInfo.Name != "example.com" {
			t.Errorf("domain = %q", result.DomainInfo.Name)
		}
	})

	t.Run("empty text is an extraction failure", func(t *testing.T) {
		t.Parallel()

		h := newTestHandler(t, nil)
		resp := h.Dispatch(context.Background(), Request{
			Type:    TypeAnalyzeText,
			Payload: mustMarshal(t, AnalyzeTextPayload{Sensitivity: "light"}),
		})
		if resp.OK || resp.Code != CodeExtraction {
			t.Fatalf("expected extraction failure, got %+v", resp)
		}
	})

	t.Run("invalid tier is a bad request", func(t *testing.T) {
		t.Parallel()

		h := newTestHandler(t, nil)
		resp := h.Dispatch(context.Background(), Request{
			Type: TypeAnalyzeText,
			Payload: mustMarshal(t, AnalyzeTextPayload{
				Text:        "text",
				Sensitivity: "extreme",
			}),
		})
		if resp.OK || resp.Code != CodeBadRequest {
			t.Fatalf("expected bad request, got %+v", resp)
		}
	})

	t.Run("unparseable reply hides the raw text", func(t *testing.T) {
		t.Parallel()

		h := newTestHandler(t, &stubModel{scoreReply: "I cannot help with that."})
		resp := h.Dispatch(context.Background(), Request{
			Type: TypeAnalyzeText,
			Payload: mustMarshal(t, AnalyzeTextPayload{
				Text:        "text",
				Sensitivity: "light",
			}),
		})
		if resp.OK || resp.Code != CodeResponseFormat {
			t.Fatalf("expected response_format failure, got %+v", resp)
		}
		if strings.Contains(resp.Message, "I cannot help") {
			t.Error("raw model text must not cross the boundary")
		}
	})
}

// TestHandlerVerifySnippet tests verification through the boundary.
func TestHandlerVerifySnippet(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &stubModel{verifyReply: `{"summary": "Contradicted by the official data."}`})
	resp := h.Dispatch(context.Background(), Request{
		Type: TypeVerifySnippet,
		Payload: mustMarshal(t, VerifySnippetPayload{
			Snippet:     "all passed the federal safety limits",
			Reason:      "needs a source",
			Sensitivity: "light",
		}),
	})
	if !resp.OK {
		t.Fatalf("unexpected failure: %+v", resp)
	}
	result := resp.Payload.(model.VerificationResult)
	if result.Summary != "Contradicted by the official data." {
		t.Errorf("summary = %q", result.Summary)
	}
}

// TestHandlerHighlightText tests highlight apply and clear.
func TestHandlerHighlightText(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)

	apply := h.Dispatch(context.Background(), Request{
		Type: TypeHighlightText,
		Payload: mustMarshal(t, HighlightTextPayload{Flags: []model.Flag{
			{Snippet: "water samples collected downstream", Reason: "check the lab reports"},
		}}),
	})
	if !apply.OK {
		t.Fatalf("unexpected failure: %+v", apply)
	}
	if got := apply.Payload.(HighlightTextResult).Applied; got != 1 {
		t.Errorf("applied = %d, want 1", got)
	}

	// Null flags clear the page.
	cleared := h.Dispatch(context.Background(), Request{Type: TypeHighlightText})
	if !cleared.OK {
		t.Fatalf("unexpected failure: %+v", cleared)
	}

	text := h.Dispatch(context.Background(), Request{Type: TypeGetText})
	if !text.OK {
		t.Fatalf("unexpected failure: %+v", text)
	}
}

// TestHandlerHighlightTextReplaces tests that a new request drops the
// previous pass instead of stacking wrappers from successive scans.
func TestHandlerHighlightTextReplaces(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)

	for _, snippet := range []string{
		"water samples collected downstream",
		"three independent laboratories",
	} {
		resp := h.Dispatch(context.Background(), Request{
			Type: TypeHighlightText,
			Payload: mustMarshal(t, HighlightTextPayload{Flags: []model.Flag{
				{Snippet: snippet, Reason: "check the lab reports"},
			}}),
		})
		if !resp.OK {
			t.Fatalf("unexpected failure for %q: %+v", snippet, resp)
		}
		if got := resp.Payload.(HighlightTextResult).Applied; got != 1 {
			t.Errorf("applied = %d, want 1", got)
		}
	}

	if got := countHighlights(h.doc); got != 1 {
		t.Errorf("highlight wrappers = %d, want 1", got)
	}
}

// countHighlights walks the document counting highlight wrapper spans.
func countHighlights(n *html.Node) int {
	count := 0
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "class" && attr.Val == annotate.HighlightClass {
				count++
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countHighlights(c)
	}
	return count
}

// TestHandlerDomains tests the reputation operations.
func TestHandlerDomains(t *testing.T) {
	t.Parallel()

	store, err := reputation.Open(t.TempDir(), reputation.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := newTestHandler(t, nil, WithStore(store))

	for range 10 {
		resp := h.Dispatch(context.Background(), Request{
			Type:    TypeLogUnreliableDomain,
			Payload: mustMarshal(t, LogUnreliableDomainPayload{Domain: "hoax.example", Score: 20}),
		})
		if !resp.OK {
			t.Fatalf("unexpected failure: %+v", resp)
		}
	}

	resp := h.Dispatch(context.Background(), Request{Type: TypeGetUnreliableDomains})
	if !resp.OK {
		t.Fatalf("unexpected failure: %+v", resp)
	}
	records := resp.Payload.([]model.ReputationRecord)
	if len(records) != 1 {
		t.Fatalf("expected 1 promoted domain, got %d", len(records))
	}
	if records[0].Domain != "hoax.example" || records[0].Reliability != 2 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

// TestHandlerUnknownType tests the closed protocol set.
func TestHandlerUnknownType(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	resp := h.Dispatch(context.Background(), Request{Type: "openSettings"})
	if resp.OK || resp.Code != CodeBadRequest {
		t.Fatalf("expected bad request, got %+v", resp)
	}
}
