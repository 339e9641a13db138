package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ToggleLike likes messageID for userID, or removes the like if it already
// exists. It reports whether the message is liked afterwards.
func (s *Store) ToggleLike(ctx context.Context, userID, messageID int64) (bool, error) {
	var liked bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := s.queryRow(ctx, tx, "SELECT 1 FROM messages WHERE id = ?", messageID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("message %d: %w", messageID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		res, err := s.exec(ctx, tx, "DELETE FROM likes WHERE user_id = ? AND message_id = ?", userID, messageID)
		if err != nil {
			return fmt.Errorf("failed to remove like: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		if _, err := s.exec(ctx, tx, "INSERT INTO likes (user_id, message_id) VALUES (?, ?)", userID, messageID); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return fmt.Errorf("failed to add like: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.log.Debug("Like toggled",
		zap.Int64("user_id", userID),
		zap.Int64("message_id", messageID),
		zap.Bool("liked", liked))
	return liked, nil
}

// Likes returns the like rows owned by userID.
func (s *Store) Likes(ctx context.Context, userID int64) ([]Like, error) {
	rows, err := s.query(ctx, s.db, "SELECT id, user_id, message_id FROM likes WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var likes []Like
	for rows.Next() {
		var l Like
		if err := rows.Scan(&l.ID, &l.UserID, &l.MessageID); err != nil {
			return nil, err
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

// MessageLikeCount returns how many users like messageID.
func (s *Store) MessageLikeCount(ctx context.Context, messageID int64) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM likes WHERE message_id = ?", messageID)
}

// LikedMessageIDs returns the set of message IDs userID likes.
func (s *Store) LikedMessageIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	likes, err := s.Likes(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool, len(likes))
	for _, l := range likes {
		ids[l.MessageID] = true
	}
	return ids, nil
}

// LikedMessages returns the messages userID likes, newest first.
func (s *Store) LikedMessages(ctx context.Context, userID int64) ([]*Message, error) {
	return s.queryMessages(ctx,
		messageSelect+` JOIN likes l ON l.message_id = m.id
		WHERE l.user_id = ?
		ORDER BY m.timestamp DESC, m.id DESC`, userID)
}
