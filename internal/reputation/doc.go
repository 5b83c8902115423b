// Package reputation provides SQLite-based storage for domain
// reputation and scan history.
//
// Two tables carry the reputation state:
//   - domain_scores: the running sample count and average raw score per
//     domain. This is the source of truth.
//   - unreliable_domains: the promoted 1-10 reliability tier, written
//     once a domain reaches the promotion threshold and refreshed as
//     further samples arrive.
//
// A third table, scan_history, keeps complete analysis reports keyed by
// domain and content hash for later review.
//
// Design decision: SQLite via modernc.org/sqlite because the database
// is a single local file, the driver is CGo-free, and WAL mode gives
// good concurrent read behavior. RecordSample runs its read-modify-write
// inside one transaction on a single-connection pool, which makes
// per-domain updates serializable: two near-simultaneous samples for
// the same domain accumulate instead of overwriting each other.
package reputation
