package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger records every batch item outcome in a local SQLite database so the
// stats endpoint and the end-of-batch summary can report on past runs.
type Ledger struct {
	db *sql.DB
}

// Outcome is one recorded batch item result.
type Outcome struct {
	VideoID          string    `json:"video_id"`
	YouTubeURL       string    `json:"youtube_url"`
	Phrase           string    `json:"phrase"`
	Status           string    `json:"status"`
	TotalOccurrences int       `json:"total_occurrences"`
	DurationSeconds  float64   `json:"duration_seconds"`
	WordCount        int       `json:"word_count"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// OpenLedger opens (and if needed initializes) the outcome database.
func OpenLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id TEXT NOT NULL,
		youtube_url TEXT NOT NULL,
		phrase TEXT NOT NULL,
		status TEXT NOT NULL,
		total_occurrences INTEGER NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		word_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON outcomes(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_video_id ON outcomes(video_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &Ledger{db: db}, nil
}

// Record inserts one outcome row.
func (l *Ledger) Record(o Outcome) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO outcomes (video_id, youtube_url, phrase, status, total_occurrences, duration_seconds, word_count, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.Exec(query, o.VideoID, o.YouTubeURL, o.Phrase, o.Status,
		o.TotalOccurrences, o.DurationSeconds, o.WordCount, o.Error, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %v", err)
	}
	return nil
}

// Recent returns the most recent outcomes, newest first.
func (l *Ledger) Recent(limit int) ([]Outcome, error) {
	query := `
	SELECT video_id, youtube_url, phrase, status, total_occurrences, duration_seconds, word_count, COALESCE(error, ''), created_at
	FROM outcomes ORDER BY created_at DESC, id DESC LIMIT ?
	`

	rows, err := l.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %v", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.VideoID, &o.YouTubeURL, &o.Phrase, &o.Status,
			&o.TotalOccurrences, &o.DurationSeconds, &o.WordCount, &o.Error, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %v", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
