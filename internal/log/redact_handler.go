package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Mask is the replacement string for redacted values.
const Mask = "***REDACTED***"

// redactedKeys are attribute keys whose values are always masked.
// These cover the credential names used by this tool and the common
// aliases callers might pick when logging request state.
var redactedKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"key":           false, // too many false positives (e.g. cache key)
	"authorization": true,
	"token":         true,
	"secret":        true,
	"credential":    true,
	"password":      true,
}

// redactedValuePatterns match values that look like credentials
// regardless of the attribute key they were logged under.
var redactedValuePatterns = []*regexp.Regexp{
	// Google-style API keys.
	regexp.MustCompile(`^AIza[0-9A-Za-z_\-]{30,}$`),
	// Bearer tokens.
	regexp.MustCompile(`(?i)^bearer\s+\S+`),
	// An API key smuggled into a query string.
	regexp.MustCompile(`(?i)[?&]key=[^&\s]+`),
}

// keyQueryParam rewrites a key= query parameter inside a larger string
// (typically a request URL) instead of masking the whole value.
var keyQueryParam = regexp.MustCompile(`(?i)([?&]key=)[^&\s]+`)

// RedactHandler wraps an slog.Handler and masks credential-bearing
// attributes before they reach the underlying handler.
//
// Design decision: A handler wrapper rather than a custom logger type,
// so it composes with any slog sink (text, JSON) and with libraries that
// accept a *slog.Logger.
type RedactHandler struct {
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler around the given handler.
// A nil handler falls back to slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks sensitive attributes and forwards the record.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs returns a handler with the given attributes added, masked.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup returns a handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks one attribute, recursing into groups.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		masked := make([]slog.Attr, len(members))
		for i, m := range members {
			masked[i] = h.redactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	keyLower := strings.ToLower(a.Key)
	if redactedKeys[keyLower] {
		return slog.String(a.Key, Mask)
	}

	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		if keyQueryParam.MatchString(v) {
			// Preserve the rest of the URL; only the key parameter is secret.
			return slog.String(a.Key, keyQueryParam.ReplaceAllString(v, "${1}"+Mask))
		}
		for _, p := range redactedValuePatterns {
			if p.MatchString(v) {
				return slog.String(a.Key, Mask)
			}
		}
	}

	return a
}

// NewLogger creates a redacting text logger writing to w.
// Verbose selects slog.LevelDebug; otherwise only warnings and errors
// are emitted.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactHandler(handler))
}

// NewJSONLogger creates a redacting JSON logger writing to w, for
// structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactHandler(handler))
}
