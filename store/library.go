package store

import (
	"context"
	"encoding/json"
	"log"

	"kvtube/kvtube-backend/downloader"
)

const libraryCap = 50

// AddDownload commits a finished download to the library: de-duplicated by
// id, newest first, trimmed to the cap.
func (s *Store) AddDownload(ctx context.Context, item downloader.DownloadItem) error {
	specs, err := json.Marshal(item.Specs)
	if err != nil {
		specs = []byte("{}")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Re-adding an existing id moves it to the front (fresh rowid).
	if _, err := tx.ExecContext(ctx, "DELETE FROM library WHERE id = ?", item.ID); err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO library (id, video_id, title, thumbnail, quality, type, ext, size, size_bytes, specs)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.VideoID, item.Title, item.Thumbnail, item.Quality,
		item.Type, item.Ext, item.Size, item.SizeBytes, string(specs),
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
	DELETE FROM library WHERE id NOT IN (
		SELECT id FROM library ORDER BY rowid DESC LIMIT ?
	)`, libraryCap)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetLibrary lists the library newest first.
func (s *Store) GetLibrary(ctx context.Context) ([]LibraryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, video_id, title, thumbnail, quality, type, ext, size, size_bytes, specs, downloaded_at
	FROM library ORDER BY rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]LibraryEntry, 0)
	for rows.Next() {
		var e LibraryEntry
		var specs string
		err := rows.Scan(&e.ID, &e.VideoID, &e.Title, &e.Thumbnail, &e.Quality,
			&e.Type, &e.Ext, &e.Size, &e.SizeBytes, &specs, &e.DownloadedAt)
		if err != nil {
			return nil, err
		}

		// A corrupt specs blob never fails the listing.
		if err := json.Unmarshal([]byte(specs), &e.Specs); err != nil {
			log.Printf("WARN: corrupt specs for library entry %s, resetting", e.ID)
			e.Specs = downloader.FormatSpecs{}
		}

		e.Status = downloader.StatusCompleted
		e.Progress = 100
		e.ETA = "Done"
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Store) RemoveDownload(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM library WHERE id = ?", id)
	return err
}

func (s *Store) ClearLibrary(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM library")
	return err
}
