package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"oriontv/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS play_records (
	source         TEXT NOT NULL,
	content_id     TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	poster         TEXT NOT NULL DEFAULT '',
	episode_index  INTEGER NOT NULL DEFAULT 0,
	total_episodes INTEGER NOT NULL DEFAULT 0,
	position_sec   REAL NOT NULL DEFAULT 0,
	total_sec      REAL NOT NULL DEFAULT 0,
	intro_end_ms   INTEGER NOT NULL DEFAULT 0,
	outro_start_ms INTEGER NOT NULL DEFAULT 0,
	updated_at     INTEGER NOT NULL DEFAULT (strftime('%s','now')),
	PRIMARY KEY (source, content_id)
);`

// SQLite is the default Store, backed by a single-file database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer keeps the driver out of SQLITE_BUSY territory.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get loads the record for (source, contentID), or nil when absent.
func (s *SQLite) Get(ctx context.Context, source, contentID string) (*media.PlayRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, poster, episode_index, total_episodes,
		       position_sec, total_sec, intro_end_ms, outro_start_ms
		FROM play_records WHERE source = ? AND content_id = ?`,
		source, contentID)

	var rec media.PlayRecord
	err := row.Scan(&rec.Title, &rec.Poster, &rec.EpisodeIndex, &rec.TotalEpisodes,
		&rec.PositionSec, &rec.TotalSec, &rec.IntroEndMillis, &rec.OutroStartMillis)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading play record: %w", err)
	}
	return &rec, nil
}

// Save upserts the record; the newest snapshot wins.
func (s *SQLite) Save(ctx context.Context, source, contentID string, rec media.PlayRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO play_records
			(source, content_id, title, poster, episode_index, total_episodes,
			 position_sec, total_sec, intro_end_ms, outro_start_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))
		ON CONFLICT (source, content_id) DO UPDATE SET
			title = excluded.title,
			poster = excluded.poster,
			episode_index = excluded.episode_index,
			total_episodes = excluded.total_episodes,
			position_sec = excluded.position_sec,
			total_sec = excluded.total_sec,
			intro_end_ms = excluded.intro_end_ms,
			outro_start_ms = excluded.outro_start_ms,
			updated_at = excluded.updated_at`,
		source, contentID, rec.Title, rec.Poster, rec.EpisodeIndex, rec.TotalEpisodes,
		rec.PositionSec, rec.TotalSec, rec.IntroEndMillis, rec.OutroStartMillis)
	if err != nil {
		return fmt.Errorf("saving play record: %w", err)
	}
	return nil
}

// Remove deletes the record for (source, contentID).
func (s *SQLite) Remove(ctx context.Context, source, contentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM play_records WHERE source = ? AND content_id = ?`, source, contentID)
	if err != nil {
		return fmt.Errorf("removing play record: %w", err)
	}
	return nil
}

// List returns all records, most recently updated first.
func (s *SQLite) List(ctx context.Context) ([]ListedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, content_id, title, poster, episode_index, total_episodes,
		       position_sec, total_sec, intro_end_ms, outro_start_ms
		FROM play_records ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing play records: %w", err)
	}
	defer rows.Close()

	var out []ListedRecord
	for rows.Next() {
		var lr ListedRecord
		if err := rows.Scan(&lr.Source, &lr.ContentID,
			&lr.Record.Title, &lr.Record.Poster,
			&lr.Record.EpisodeIndex, &lr.Record.TotalEpisodes,
			&lr.Record.PositionSec, &lr.Record.TotalSec,
			&lr.Record.IntroEndMillis, &lr.Record.OutroStartMillis); err != nil {
			return nil, fmt.Errorf("scanning play record: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
