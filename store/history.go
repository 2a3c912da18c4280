package store

import (
	"context"
)

const (
	historyCap       = 50
	subscriptionsCap = 100
)

// AddHistory records a watched video, de-duplicated to the front and
// trimmed to the cap.
func (s *Store) AddHistory(ctx context.Context, entry HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE id = ?", entry.ID); err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO history (id, title, uploader, thumbnail)
	VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Title, entry.Uploader, entry.Thumbnail,
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
	DELETE FROM history WHERE id NOT IN (
		SELECT id FROM history ORDER BY rowid DESC LIMIT ?
	)`, historyCap)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *Store) GetHistory(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, title, uploader, thumbnail, watched_at
	FROM history ORDER BY rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Uploader, &e.Thumbnail, &e.WatchedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Store) RemoveHistory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE id = ?", id)
	return err
}

func (s *Store) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

// Subscribe follows a channel. Re-subscribing an already followed channel is
// a no-op rather than a reorder.
func (s *Store) Subscribe(ctx context.Context, sub Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT OR IGNORE INTO subscriptions (id, name, avatar)
	VALUES (?, ?, ?)`,
		sub.ID, sub.Name, sub.Avatar,
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
	DELETE FROM subscriptions WHERE id NOT IN (
		SELECT id FROM subscriptions ORDER BY rowid DESC LIMIT ?
	)`, subscriptionsCap)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *Store) Unsubscribe(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	return err
}

func (s *Store) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, avatar, subscribed_at
	FROM subscriptions ORDER BY rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Avatar, &sub.SubscribedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func (s *Store) IsSubscribed(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM subscriptions WHERE id = ?", id).Scan(&n)
	return n > 0, err
}
