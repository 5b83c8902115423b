package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/model"
)

// candidateReply wraps text in a minimal generateContent envelope.
func candidateReply(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + jsonString(text) + `}]}}]}`
}

// jsonString is a tiny helper to JSON-quote a string in fixtures.
func jsonString(s string) string {
	b := strings.Builder{}
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// TestClientScoreText tests the scoring call.
func TestClientScoreText(t *testing.T) {
	t.Parallel()

	t.Run("returns candidate text", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.URL.Query().Get("key") != "test-key" {
				t.Errorf("expected key query parameter, got %q", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(candidateReply(`{"score": 82, "flags": []}`)))
		}))
		defer srv.Close()

		c := New(srv.URL, "test-key")
		raw, err := c.ScoreText(context.Background(), "some article text", model.SensitivityLight)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(raw, `"score": 82`) {
			t.Errorf("unexpected reply text: %q", raw)
		}
	})

	t.Run("missing key fails before any network call", func(t *testing.T) {
		t.Parallel()

		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		c := New(srv.URL, "")
		_, err := c.ScoreText(context.Background(), "text", model.SensitivityLight)
		if !errors.Is(err, config.ErrNoAPIKey) {
			t.Fatalf("expected ErrNoAPIKey, got %v", err)
		}
		if called {
			t.Error("no network call may happen without a credential")
		}
	})

	t.Run("non-2xx carries the upstream error message", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Quota exceeded for this project"}}`))
		}))
		defer srv.Close()

		c := New(srv.URL, "test-key")
		_, err := c.ScoreText(context.Background(), "text", model.SensitivityLight)

		var ue *UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("expected *UpstreamError, got %v", err)
		}
		if ue.Status != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", ue.Status)
		}
		if !strings.Contains(ue.Message, "Quota exceeded") {
			t.Errorf("expected upstream message, got %q", ue.Message)
		}
	})

	t.Run("blocked prompt becomes an upstream error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
		}))
		defer srv.Close()

		c := New(srv.URL, "test-key")
		_, err := c.ScoreText(context.Background(), "text", model.SensitivityLight)

		var ue *UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("expected *UpstreamError, got %v", err)
		}
		if !strings.Contains(ue.Message, "SAFETY") {
			t.Errorf("expected block reason in message, got %q", ue.Message)
		}
	})

	t.Run("tier changes the prompt emphasis", func(t *testing.T) {
		t.Parallel()

		var prompts []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := decodeBody(r, &req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			prompts = append(prompts, req.Contents[0].Parts[0].Text)
			_, _ = w.Write([]byte(candidateReply(`{"score": 50, "flags": []}`)))
		}))
		defer srv.Close()

		c := New(srv.URL, "test-key")
		if _, err := c.ScoreText(context.Background(), "text", model.SensitivityLight); err != nil {
			t.Fatalf("light call failed: %v", err)
		}
		if _, err := c.ScoreText(context.Background(), "text", model.SensitivityDeep); err != nil {
			t.Fatalf("deep call failed: %v", err)
		}

		if strings.Contains(prompts[0], "biased framing") {
			t.Error("light prompt must not ask for bias flags")
		}
		if !strings.Contains(prompts[1], "biased framing") {
			t.Error("deep prompt must ask for bias flags")
		}
	})
}

// TestClientVerifySnippet tests the verification call.
func TestClientVerifySnippet(t *testing.T) {
	t.Parallel()

	t.Run("deep tier asks for a search query", func(t *testing.T) {
		t.Parallel()

		var prompt string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := decodeBody(r, &req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			prompt = req.Contents[0].Parts[0].Text
			_, _ = w.Write([]byte(candidateReply(`{"summary":"ok","search_query":"q"}`)))
		}))
		defer srv.Close()

		c := New(srv.URL, "test-key")
		if _, err := c.VerifySnippet(context.Background(), "snippet", "reason", model.SensitivityDeep); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(prompt, "search_query") {
			t.Error("deep verification prompt must request a search query")
		}
	})

	t.Run("light tier does not ask for a search query", func(t *testing.T) {
		t.Parallel()

		var prompt string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := decodeBody(r, &req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			prompt = req.Contents[0].Parts[0].Text
			_, _ = w.Write([]byte(candidateReply(`{"summary":"ok"}`)))
		}))
		defer srv.Close()

		c := New(srv.URL, "test-key")
		if _, err := c.VerifySnippet(context.Background(), "snippet", "reason", model.SensitivityLight); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(prompt, "search_query") {
			t.Error("light verification prompt must not request a search query")
		}
	})
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
