package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resume_positions (
		video_id TEXT PRIMARY KEY,
		position REAL NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_resume_updated ON resume_positions(updated_at DESC);

	CREATE TABLE IF NOT EXISTS stream_failures (
		video_id TEXT NOT NULL,
		content_key TEXT NOT NULL,
		bucket TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (video_id, content_key)
	);

	CREATE INDEX IF NOT EXISTS idx_failures_video ON stream_failures(video_id);

	CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_video ON session_events(video_id, id DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveResumePosition upserts the last known position for a video.
func (s *SQLiteStorage) SaveResumePosition(videoID string, position, duration float64) error {
	_, err := s.db.Exec(`
		INSERT INTO resume_positions (video_id, position, duration, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(video_id) DO UPDATE SET
			position = excluded.position,
			duration = excluded.duration,
			updated_at = CURRENT_TIMESTAMP
	`, videoID, position, duration)
	return err
}

// GetResumePosition returns the saved position for a video, or nil when
// none has been recorded.
func (s *SQLiteStorage) GetResumePosition(videoID string) (*ResumePosition, error) {
	row := s.db.QueryRow(`
		SELECT video_id, position, duration, updated_at
		FROM resume_positions WHERE video_id = ?
	`, videoID)

	var rp ResumePosition
	if err := row.Scan(&rp.VideoID, &rp.Position, &rp.Duration, &rp.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rp, nil
}

// RecordStreamFailure persists one failed stream variant. Re-recording the
// same (video, content key) pair is idempotent.
func (s *SQLiteStorage) RecordStreamFailure(videoID, contentKey, bucket string) error {
	_, err := s.db.Exec(`
		INSERT INTO stream_failures (video_id, content_key, bucket)
		VALUES (?, ?, ?)
		ON CONFLICT(video_id, content_key) DO UPDATE SET
			bucket = excluded.bucket,
			created_at = CURRENT_TIMESTAMP
	`, videoID, contentKey, bucket)
	return err
}

// GetFailedContentKeys returns content keys recorded as failed for a video
// within maxAge. Zero maxAge means no age filter.
func (s *SQLiteStorage) GetFailedContentKeys(videoID string, maxAge time.Duration) ([]string, error) {
	query := `SELECT content_key FROM stream_failures WHERE video_id = ?`
	args := []any{videoID}
	if maxAge > 0 {
		// CURRENT_TIMESTAMP stores "YYYY-MM-DD HH:MM:SS"; compare in kind.
		query += ` AND created_at >= ?`
		args = append(args, time.Now().Add(-maxAge).UTC().Format("2006-01-02 15:04:05"))
	}
	query += ` ORDER BY content_key`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RecordSessionEvent appends one diagnostics entry to the session log.
func (s *SQLiteStorage) RecordSessionEvent(videoID, kind, detail string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_events (video_id, kind, detail) VALUES (?, ?, ?)
	`, videoID, kind, detail)
	return err
}

// GetSessionEvents returns the newest diagnostics entries for a video,
// newest first.
func (s *SQLiteStorage) GetSessionEvents(videoID string, limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, video_id, kind, detail, created_at
		FROM session_events WHERE video_id = ?
		ORDER BY id DESC LIMIT ?
	`, videoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var ev SessionEvent
		if err := rows.Scan(&ev.ID, &ev.VideoID, &ev.Kind, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneSessionEvents drops diagnostics entries older than maxAge.
func (s *SQLiteStorage) PruneSessionEvents(maxAge time.Duration) error {
	_, err := s.db.Exec(`DELETE FROM session_events WHERE created_at < ?`,
		time.Now().Add(-maxAge).UTC().Format("2006-01-02 15:04:05"))
	return err
}

// DeleteStreamFailures clears the failure history for a video.
func (s *SQLiteStorage) DeleteStreamFailures(videoID string) error {
	_, err := s.db.Exec(`DELETE FROM stream_failures WHERE video_id = ?`, videoID)
	return err
}
