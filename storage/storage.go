package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"shorts-bot/video"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// ProcessedPair is the title/channel text of a prior record, used for
// the loose containment dedup check.
type ProcessedPair struct {
	VideoID string
	Title   string
	Channel string
}

// DB wraps the SQLite database connection and provides storage operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_videos (
		video_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		channel TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		processed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_processed_content_hash ON processed_videos(content_hash);

	CREATE TABLE IF NOT EXISTS published_titles (
		title_key TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		first_used_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_quotas (
		day TEXT NOT NULL,
		category TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, category)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertProcessed inserts a processed record. Inserting the same video
// ID twice is a no-op, not an error.
func (db *DB) InsertProcessed(ctx context.Context, rec *video.ProcessedRecord) error {
	query := `
	INSERT OR IGNORE INTO processed_videos (video_id, title, channel, content_hash, processed_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.conn.ExecContext(ctx, query,
		rec.VideoID, rec.Title, rec.Channel, rec.ContentHash, rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert processed record: %w", err)
	}
	return nil
}

// HasProcessedID reports whether a video ID is already recorded.
func (db *DB) HasProcessedID(ctx context.Context, videoID string) (bool, error) {
	return db.exists(ctx, `SELECT 1 FROM processed_videos WHERE video_id = ?`, videoID)
}

// HasContentHash reports whether a content fingerprint is already recorded.
func (db *DB) HasContentHash(ctx context.Context, hash string) (bool, error) {
	return db.exists(ctx, `SELECT 1 FROM processed_videos WHERE content_hash = ?`, hash)
}

func (db *DB) exists(ctx context.Context, query string, arg any) (bool, error) {
	var dummy int
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListProcessedPairs returns the title/channel text of every processed record.
func (db *DB) ListProcessedPairs(ctx context.Context) ([]ProcessedPair, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT video_id, title, channel FROM processed_videos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []ProcessedPair
	for rows.Next() {
		var p ProcessedPair
		if err := rows.Scan(&p.VideoID, &p.Title, &p.Channel); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// RecentProcessed returns the most recent processed records, newest first.
func (db *DB) RecentProcessed(ctx context.Context, limit int) ([]video.ProcessedRecord, error) {
	query := `
	SELECT video_id, title, channel, content_hash, processed_at
	FROM processed_videos ORDER BY processed_at DESC LIMIT ?
	`
	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []video.ProcessedRecord
	for rows.Next() {
		var r video.ProcessedRecord
		if err := rows.Scan(&r.VideoID, &r.Title, &r.Channel, &r.ContentHash, &r.ProcessedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// CountProcessed returns the total number of processed records.
func (db *DB) CountProcessed(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_videos`).Scan(&count)
	return count, err
}

// HasTitle reports whether a title is already registered. Matching is
// case-insensitive via the lowercased title key.
func (db *DB) HasTitle(ctx context.Context, titleKey string) (bool, error) {
	return db.exists(ctx, `SELECT 1 FROM published_titles WHERE title_key = ?`, titleKey)
}

// InsertTitle registers a published title (idempotent).
func (db *DB) InsertTitle(ctx context.Context, titleKey, title string) error {
	query := `
	INSERT OR IGNORE INTO published_titles (title_key, title, first_used_at)
	VALUES (?, ?, ?)
	`
	_, err := db.conn.ExecContext(ctx, query, titleKey, title, time.Now())
	if err != nil {
		return fmt.Errorf("insert published title: %w", err)
	}
	return nil
}

// IncrementQuota atomically bumps the counter for a day/category pair,
// creating the row on first touch.
func (db *DB) IncrementQuota(ctx context.Context, day string, category video.Category) error {
	query := `
	INSERT INTO daily_quotas (day, category, count)
	VALUES (?, ?, 1)
	ON CONFLICT(day, category) DO UPDATE SET count = count + 1
	`
	_, err := db.conn.ExecContext(ctx, query, day, string(category))
	if err != nil {
		return fmt.Errorf("increment quota: %w", err)
	}
	return nil
}

// QuotaCount returns the counter for a day/category pair, zero if absent.
func (db *DB) QuotaCount(ctx context.Context, day string, category video.Category) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count FROM daily_quotas WHERE day = ? AND category = ?`,
		day, string(category)).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// QuotaTotal returns the sum of all category counters for a day.
func (db *DB) QuotaTotal(ctx context.Context, day string) (int, error) {
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM daily_quotas WHERE day = ?`, day).Scan(&total)
	return total, err
}

// GetSetting retrieves a setting value by key.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting stores or updates a setting.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	_, err := db.conn.ExecContext(ctx, query, key, value)
	return err
}
