package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/credshield/credshield/internal/annotate"
	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/extract"
	"github.com/credshield/credshield/internal/interpret"
	"github.com/credshield/credshield/internal/llm"
	"github.com/credshield/credshield/internal/model"
	"github.com/credshield/credshield/internal/reputation"
	"github.com/credshield/credshield/internal/score"
)

// RequestType identifies one operation of the message surface. The set
// is closed; unknown types are rejected with CodeBadRequest.
type RequestType string

// The supported operations.
const (
	TypeGetText              RequestType = "getText"
	TypeAnalyzeText          RequestType = "analyzeText"
	TypeVerifySnippet        RequestType = "verifySnippet"
	TypeHighlightText        RequestType = "highlightText"
	TypeLogUnreliableDomain  RequestType = "logNewUnreliableDomain"
	TypeGetUnreliableDomains RequestType = "getUnreliableDomains"
)

// ErrorCode classifies a failed response for the caller. Callers must
// branch on the code, not on message text.
type ErrorCode string

// The error taxonomy visible across the boundary.
const (
	// CodeConfiguration: a required credential is absent. Non-retryable
	// until the configuration is fixed.
	CodeConfiguration ErrorCode = "configuration"
	// CodeUpstream: a network or backing-service failure.
	CodeUpstream ErrorCode = "upstream"
	// CodeResponseFormat: the model reply could not be interpreted even
	// after repair. The raw text is logged, never returned.
	CodeResponseFormat ErrorCode = "response_format"
	// CodeExtraction: the page yielded no usable text.
	CodeExtraction ErrorCode = "extraction"
	// CodeNotReady: the handler has not been started yet.
	CodeNotReady ErrorCode = "not_ready"
	// CodeBadRequest: malformed payload or unknown request type.
	CodeBadRequest ErrorCode = "bad_request"
)

// Request is one inbound message.
type Request struct {
	// Type selects the operation.
	Type RequestType `json:"type"`

	// Payload carries the operation-specific fields.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the structured result of one request.
//
// RequestID is assigned from a monotonic counter per handler, so a
// caller juggling overlapping requests can discard responses that were
// superseded by a newer request of the same type.
type Response struct {
	// RequestID is the handler-assigned monotonic id.
	RequestID uint64 `json:"request_id"`

	// OK is the success discriminator. Payload is only meaningful when
	// OK is true; Code and Message only when it is false.
	OK bool `json:"ok"`

	// Code classifies the failure.
	Code ErrorCode `json:"code,omitempty"`

	// Message is a human-readable failure description.
	Message string `json:"message,omitempty"`

	// Payload is the operation result.
	Payload any `json:"payload,omitempty"`
}

// Operation payloads and results.

// AnalyzeTextPayload asks for a credibility analysis of raw text.
type AnalyzeTextPayload struct {
	Text        string `json:"text"`
	Sensitivity string `json:"sensitivity"`
}

// AnalyzeTextResult is the analysis outcome.
type AnalyzeTextResult struct {
	Result     model.ScoreResult `json:"result"`
	DomainInfo model.DomainInfo  `json:"domainInfo"`
}

// VerifySnippetPayload asks for a fact-check of one flagged snippet.
type VerifySnippetPayload struct {
	Snippet     string `json:"snippet"`
	Reason      string `json:"reason"`
	Sensitivity string `json:"sensitivity"`
}

// HighlightTextPayload applies highlights, or clears them when Flags
// is null or empty.
type HighlightTextPayload struct {
	Flags []model.Flag `json:"flags"`
}

// HighlightTextResult reports how many flags were placed.
type HighlightTextResult struct {
	Applied int `json:"applied"`
}

// LogUnreliableDomainPayload forwards a low score as a reputation
// sample.
type LogUnreliableDomainPayload struct {
	Domain string `json:"domain"`
	Score  int    `json:"score"`
}

// GetTextResult carries the extracted page text.
type GetTextResult struct {
	Text string `json:"text"`
}

// Handler dispatches requests against one attached page.
//
// Design decision: One handler instance owns one page (document plus
// its domain), mirroring a per-tab content script. The embedding layer
// creates a handler per page and routes that page's messages to it.
type Handler struct {
	scorer   *score.Scorer
	verifier *score.Verifier
	store    *reputation.Store
	logger   *slog.Logger

	// mu guards the attached page. Highlight operations mutate the
	// document in place.
	mu     sync.Mutex
	doc    *html.Node
	domain string

	ready  atomic.Bool
	nextID atomic.Uint64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStore attaches the reputation store.
func WithStore(store *reputation.Store) HandlerOption {
	return func(h *Handler) {
		h.store = store
	}
}

// WithHandlerLogger sets the structured logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler. It rejects every request with
// CodeNotReady until Start is called.
func NewHandler(scorer *score.Scorer, verifier *score.Verifier, opts ...HandlerOption) *Handler {
	h := &Handler{
		scorer:   scorer,
		verifier: verifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AttachPage binds the handler to a page document and its normalized
// domain. Subsequent getText, analyzeText, and highlightText requests
// operate on this page.
func (h *Handler) AttachPage(doc *html.Node, domain string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = doc
	h.domain = domain
}

// Start marks the handler ready. Callers with a reputation store
// should attach it before starting so analyses can blend; starting
// without a store is allowed and runs degraded.
func (h *Handler) Start() {
	h.ready.Store(true)
}

// Dispatch handles one request and always returns a response; no error
// ever crosses this boundary.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	id := h.nextID.Add(1)

	if !h.ready.Load() {
		return Response{RequestID: id, Code: CodeNotReady, Message: "handler is not started yet"}
	}

	var (
		payload any
		err     error
	)
	switch req.Type {
	case TypeGetText:
		payload, err = h.getText()
	case TypeAnalyzeText:
		payload, err = h.analyzeText(ctx, req.Payload)
	case TypeVerifySnippet:
		payload, err = h.verifySnippet(ctx, req.Payload)
	case TypeHighlightText:
		payload, err = h.highlightText(req.Payload)
	case TypeLogUnreliableDomain:
		payload, err = h.logUnreliableDomain(ctx, req.Payload)
	case TypeGetUnreliableDomains:
		payload, err = h.getUnreliableDomains(ctx)
	default:
		return Response{RequestID: id, Code: CodeBadRequest,
			Message: "unknown request type " + string(req.Type)}
	}

	if err != nil {
		code := classify(err)
		h.logFailure(req.Type, code, err)
		return Response{RequestID: id, Code: code, Message: userMessage(code, err)}
	}
	return Response{RequestID: id, OK: true, Payload: payload}
}

func (h *Handler) getText() (GetTextResult, error) {
	h.mu.Lock()
	doc := h.doc
	h.mu.Unlock()

	if doc == nil {
		return GetTextResult{}, errNoPage
	}
	text, err := extract.Extract(doc)
	if err != nil {
		return GetTextResult{}, err
	}
	return GetTextResult{Text: text}, nil
}

func (h *Handler) analyzeText(ctx context.Context, raw json.RawMessage) (AnalyzeTextResult, error) {
	var p AnalyzeTextPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return AnalyzeTextResult{}, badPayload(err)
	}
	if p.Text == "" {
		return AnalyzeTextResult{}, extract.ErrNoText
	}
	tier, err := model.ParseSensitivity(p.Sensitivity)
	if err != nil {
		return AnalyzeTextResult{}, err
	}

	h.mu.Lock()
	domain := h.domain
	h.mu.Unlock()

	result, info, err := h.scorer.Score(ctx, domain, p.Text, tier)
	if err != nil {
		return AnalyzeTextResult{}, err
	}
	return AnalyzeTextResult{Result: result, DomainInfo: info}, nil
}

func (h *Handler) verifySnippet(ctx context.Context, raw json.RawMessage) (model.VerificationResult, error) {
	var p VerifySnippetPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.VerificationResult{}, badPayload(err)
	}
	if p.Snippet == "" {
		return model.VerificationResult{}, badPayload(errors.New("snippet is required"))
	}
	tier, err := model.ParseSensitivity(p.Sensitivity)
	if err != nil {
		return model.VerificationResult{}, err
	}
	return h.verifier.Verify(ctx, p.Snippet, p.Reason, tier)
}

func (h *Handler) highlightText(raw json.RawMessage) (HighlightTextResult, error) {
	var p HighlightTextPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return HighlightTextResult{}, badPayload(err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.doc == nil {
		return HighlightTextResult{}, errNoPage
	}
	// Each request replaces the previous pass; stale wrappers from an
	// earlier scan must not accumulate.
	annotate.Clear(h.doc)
	if len(p.Flags) == 0 {
		return HighlightTextResult{}, nil
	}
	annotate.InjectStyles(h.doc)
	return HighlightTextResult{Applied: annotate.Apply(h.doc, p.Flags)}, nil
}

func (h *Handler) logUnreliableDomain(ctx context.Context, raw json.RawMessage) (struct{}, error) {
	var p LogUnreliableDomainPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return struct{}{}, badPayload(err)
	}
	if p.Domain == "" {
		return struct{}{}, badPayload(errors.New("domain is required"))
	}
	if h.store == nil {
		return struct{}{}, errNoStore
	}
	return struct{}{}, h.store.RecordSample(ctx, p.Domain, p.Score)
}

func (h *Handler) getUnreliableDomains(ctx context.Context) ([]model.ReputationRecord, error) {
	if h.store == nil {
		return nil, errNoStore
	}
	records, err := h.store.ListUnreliable(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.ReputationRecord{}
	}
	return records, nil
}

var (
	errNoPage  = errors.New("no page is attached to this handler")
	errNoStore = errors.New("no reputation store is attached")
)

// classify maps an internal error onto the boundary taxonomy.
func classify(err error) ErrorCode {
	var (
		upstream *llm.UpstreamError
		format   *interpret.FormatError
	)
	switch {
	case errors.Is(err, config.ErrNoAPIKey):
		return CodeConfiguration
	case errors.As(err, &upstream):
		return CodeUpstream
	case errors.As(err, &format):
		return CodeResponseFormat
	case errors.Is(err, extract.ErrNoText), errors.Is(err, errNoPage):
		return CodeExtraction
	case errors.Is(err, model.ErrInvalidSensitivity), errors.Is(err, errBadPayload):
		return CodeBadRequest
	default:
		// Backing-service failures (store unreachable and similar).
		return CodeUpstream
	}
}

// userMessage renders the failure for display. Format errors hide the
// raw model text; the caller sees a generic message while the details
// go to the log.
func userMessage(code ErrorCode, err error) string {
	if code == CodeResponseFormat {
		return "analysis failed: the service reply could not be interpreted"
	}
	return err.Error()
}

// logFailure writes the internal failure detail, including the raw
// model text withheld from the caller.
func (h *Handler) logFailure(op RequestType, code ErrorCode, err error) {
	attrs := []any{
		slog.String("operation", string(op)),
		slog.String("code", string(code)),
		slog.String("error", err.Error()),
	}
	var format *interpret.FormatError
	if errors.As(err, &format) {
		attrs = append(attrs, slog.String("raw_reply", format.Raw))
	}
	h.logger.Warn("request failed", attrs...)
}

var errBadPayload = errors.New("malformed request payload")

// badPayload wraps a decode failure so classify maps it to
// CodeBadRequest.
func badPayload(err error) error {
	return errors.Join(errBadPayload, err)
}
