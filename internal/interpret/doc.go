// Package interpret parses model replies into structured results.
//
// The upstream model is instructed to emit JSON but routinely wraps it
// in a fenced code block, adds trailing commas, or truncates mid-array
// when it hits its output-token cap. Parsing is therefore two separate
// stages:
//
//  1. Strict: strip the first ```json fence if present, then a normal
//     json.Unmarshal.
//  2. Repair: locate the "flags" array textually, parse each candidate
//     object independently and discard the trailing malformed one, and
//     scan for the score with a regex independent of JSON structure.
//
// The stages are separate functions so each is testable on its own.
// Repair only fails when no "flags" key can be located at all; every
// other malformed-but-partially-recoverable reply degrades gracefully.
package interpret
