package store

import "log"

func (s *Store) migrate() error {
	query := `
    -- Completed downloads. The specs column holds the raw format-specs JSON
    -- exactly as the download manager produced it.
    CREATE TABLE IF NOT EXISTS library (
        id TEXT PRIMARY KEY,        -- download id: <video>_<quality>_<millis>
        video_id TEXT NOT NULL,
        title TEXT NOT NULL,
        thumbnail TEXT,
        quality TEXT,
        type TEXT,                  -- 'video', 'audio', 'combined'
        ext TEXT,
        size TEXT,                  -- human readable, e.g. '12.3 MB'
        size_bytes INTEGER DEFAULT 0,
        specs TEXT,                 -- JSON blob
        downloaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    -- Watched videos, newest first, bounded.
    CREATE TABLE IF NOT EXISTS history (
        id TEXT PRIMARY KEY,        -- video id
        title TEXT,
        uploader TEXT,
        thumbnail TEXT,
        watched_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    -- Subscribed channels.
    CREATE TABLE IF NOT EXISTS subscriptions (
        id TEXT PRIMARY KEY,        -- channel id
        name TEXT NOT NULL,
        avatar TEXT,
        subscribed_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    -- Small string KV for UI state (theme etc.)
    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    `

	_, err := s.db.Exec(query)
	if err != nil {
		log.Printf("ERROR: Database migration failed: %v", err)
		return err
	}

	return nil
}
