// Package dispatch is the message boundary between the analysis core
// and an embedding UI. Every operation is a tagged request handled by a
// single typed handler; failures cross the boundary as coded responses,
// never as Go errors.
package dispatch
