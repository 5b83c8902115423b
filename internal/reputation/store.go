package reputation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/credshield/credshield/internal/model"
)

// PromotionThreshold is the number of samples a domain must accumulate
// before its running average is promoted into a reliability tier.
const PromotionThreshold = 10

// dbFileName is the SQLite database file name inside the data directory.
const dbFileName = "credshield.db"

// Store persists domain reputation and scan history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file and directory when
	// they do not exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended; multiple open
	// tabs (or batch scans) read the store concurrently.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the reputation store in dbDir.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("reputation database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers, which is what makes the
	// RecordSample transaction a per-key serializable update.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Running per-domain score statistics; source of truth for tiers.
	CREATE TABLE IF NOT EXISTS domain_scores (
		domain TEXT PRIMARY KEY,
		sample_count INTEGER NOT NULL DEFAULT 0,
		average_score REAL NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Promoted reliability records, projected from domain_scores.
	CREATE TABLE IF NOT EXISTS unreliable_domains (
		domain TEXT PRIMARY KEY,
		reliability INTEGER NOT NULL,
		reason TEXT NOT NULL,
		promoted_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_unreliable_reliability ON unreliable_domains(reliability);

	-- Completed scans, for history and comparison.
	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		url TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		score INTEGER NOT NULL,
		flag_count INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_history_domain ON scan_history(domain);
	CREATE INDEX IF NOT EXISTS idx_history_hash ON scan_history(text_hash);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Reliability returns the promoted reputation record for a domain, or
// nil when the domain has not been promoted. The scoring path only ever
// reads; it never writes reputation state.
func (s *Store) Reliability(ctx context.Context, domain string) (*model.ReputationRecord, error) {
	query := `
	SELECT domain, reliability, reason, promoted_at
	FROM unreliable_domains
	WHERE domain = ?
	`

	var rec model.ReputationRecord
	var promotedAt string
	err := s.db.QueryRowContext(ctx, query, domain).Scan(
		&rec.Domain,
		&rec.Reliability,
		&rec.Reason,
		&promotedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation record: %w", err)
	}

	rec.PromotedAt = parseTimestamp(promotedAt)
	return &rec, nil
}

// RecordSample folds one raw score into a domain's running average and
// promotes (or refreshes) the reliability tier once the sample count
// reaches PromotionThreshold.
//
// The read-modify-write runs in a single transaction so concurrent
// samples for the same domain cannot lose updates.
func (s *Store) RecordSample(ctx context.Context, domain string, rawScore int) error {
	if domain == "" {
		return fmt.Errorf("cannot record sample: empty domain")
	}
	rawScore = model.ClampScore(rawScore)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	var average float64
	err = tx.QueryRowContext(ctx,
		`SELECT sample_count, average_score FROM domain_scores WHERE domain = ?`,
		domain,
	).Scan(&count, &average)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read domain score: %w", err)
	}

	newCount := count + 1
	newAverage := (average*float64(count) + float64(rawScore)) / float64(newCount)

	_, err = tx.ExecContext(ctx, `
	INSERT INTO domain_scores (domain, sample_count, average_score, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(domain) DO UPDATE SET
		sample_count = excluded.sample_count,
		average_score = excluded.average_score,
		updated_at = CURRENT_TIMESTAMP
	`, domain, newCount, newAverage)
	if err != nil {
		return fmt.Errorf("failed to update domain score: %w", err)
	}

	// Samples keep accumulating after promotion; the tier is re-derived
	// from the running average on every sample past the threshold.
	if newCount >= PromotionThreshold {
		reliability := model.ReliabilityFromAverage(newAverage)
		reason := fmt.Sprintf(
			"Average credibility score %.0f/100 over %d scans", newAverage, newCount)

		_, err = tx.ExecContext(ctx, `
		INSERT INTO unreliable_domains (domain, reliability, reason, promoted_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(domain) DO UPDATE SET
			reliability = excluded.reliability,
			reason = excluded.reason
		`, domain, reliability, reason)
		if err != nil {
			return fmt.Errorf("failed to promote domain: %w", err)
		}
	}

	return tx.Commit()
}

// DomainScore returns the running-average record for a domain, or nil
// when no samples have been recorded.
func (s *Store) DomainScore(ctx context.Context, domain string) (*model.DomainScore, error) {
	query := `
	SELECT domain, sample_count, average_score, updated_at
	FROM domain_scores
	WHERE domain = ?
	`

	var ds model.DomainScore
	var updatedAt string
	err := s.db.QueryRowContext(ctx, query, domain).Scan(
		&ds.Domain,
		&ds.SampleCount,
		&ds.AverageScore,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain score: %w", err)
	}

	ds.UpdatedAt = parseTimestamp(updatedAt)
	return &ds, nil
}

// ListUnreliable returns every promoted reputation record, worst tier
// first. Used by the domains listing.
func (s *Store) ListUnreliable(ctx context.Context) ([]model.ReputationRecord, error) {
	query := `
	SELECT domain, reliability, reason, promoted_at
	FROM unreliable_domains
	ORDER BY reliability ASC, domain ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreliable domains: %w", err)
	}
	defer rows.Close()

	var records []model.ReputationRecord
	for rows.Next() {
		var rec model.ReputationRecord
		var promotedAt string
		if err := rows.Scan(&rec.Domain, &rec.Reliability, &rec.Reason, &promotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reputation record: %w", err)
		}
		rec.PromotedAt = parseTimestamp(promotedAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveScan stores a completed analysis report in the scan history.
func (s *Store) SaveScan(ctx context.Context, report *model.AnalysisReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO scan_history (domain, url, text_hash, score, flag_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		report.Domain,
		report.URL,
		report.TextHash,
		report.Result.Score,
		len(report.Result.Flags),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}

	return nil
}

// ScanSummary is one scan-history row without the full report payload.
type ScanSummary struct {
	// ID is the unique history row identifier.
	ID int64

	// Domain and URL identify what was scanned.
	Domain string
	URL    string

	// TextHash identifies the exact content that was scored.
	TextHash string

	// Score and FlagCount summarize the outcome.
	Score     int
	FlagCount int

	// Timestamp is when the scan completed.
	Timestamp time.Time
}

// History returns scan summaries for a domain, newest first.
func (s *Store) History(ctx context.Context, domain string) ([]ScanSummary, error) {
	query := `
	SELECT id, domain, url, text_hash, score, flag_count, timestamp
	FROM scan_history
	WHERE domain = ?
	ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var summaries []ScanSummary
	for rows.Next() {
		var sum ScanSummary
		var ts string
		if err := rows.Scan(&sum.ID, &sum.Domain, &sum.URL, &sum.TextHash, &sum.Score, &sum.FlagCount, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		sum.Timestamp = parseTimestamp(ts)
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// timestampFormats contains the timestamp formats SQLite may return,
// most specific first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp string, returning zero time
// when no known format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
