// Package log provides structured logging for credshield.
//
// Every logger built here wraps the underlying slog handler with a
// redacting layer. Scan requests carry the user's LLM API credential in
// configuration and request URLs, and the diagnostic path logs raw model
// output for repair-pass debugging; the redacting handler guarantees the
// credential never reaches a log sink even when a caller logs a whole
// config or URL by accident.
package log
