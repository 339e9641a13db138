package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const messageSelect = `
	SELECT m.id, m.text, m.timestamp, m.user_id, u.username, u.email, u.image_url
	FROM messages m JOIN users u ON u.id = m.user_id`

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	var m Message
	a := &User{}
	if err := row.Scan(&m.ID, &m.Text, &m.Timestamp, &m.UserID, &a.Username, &a.Email, &a.ImageURL); err != nil {
		return nil, err
	}
	a.ID = m.UserID
	m.Author = a
	return &m, nil
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AddMessage posts text as userID, timestamped by the store's clock.
func (s *Store) AddMessage(ctx context.Context, userID int64, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageRequired
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	m := &Message{Text: text, Timestamp: s.now(), UserID: userID}
	err := s.queryRow(ctx, s.db,
		"INSERT INTO messages (text, timestamp, user_id) VALUES (?, ?, ?) RETURNING id",
		m.Text, m.Timestamp, m.UserID).Scan(&m.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	s.log.Debug("Message added", zap.Int64("message_id", m.ID), zap.Int64("user_id", userID))
	return m, nil
}

func (s *Store) MessageByID(ctx context.Context, id int64) (*Message, error) {
	m, err := scanMessage(s.queryRow(ctx, s.db, messageSelect+" WHERE m.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	return m, err
}

// DeleteMessage removes message id if it was written by userID.
func (s *Store) DeleteMessage(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := s.queryRow(ctx, tx, "SELECT user_id FROM messages WHERE id = ?", id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("message %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if owner != userID {
			return ErrNotOwner
		}
		if _, err := s.exec(ctx, tx, "DELETE FROM messages WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete message %d: %w", id, err)
		}
		return nil
	})
}

// UserMessages returns up to limit of userID's messages, newest first.
func (s *Store) UserMessages(ctx context.Context, userID int64, limit int) ([]*Message, error) {
	return s.queryMessages(ctx,
		messageSelect+" WHERE m.user_id = ? ORDER BY m.timestamp DESC, m.id DESC LIMIT ?",
		userID, limit)
}

// HomeTimeline returns up to limit messages written by userID or by anyone
// userID follows, newest first.
func (s *Store) HomeTimeline(ctx context.Context, userID int64, limit int) ([]*Message, error) {
	return s.queryMessages(ctx,
		messageSelect+` WHERE m.user_id = ? OR m.user_id IN (
			SELECT user_being_followed_id FROM follows WHERE user_following_id = ?)
		ORDER BY m.timestamp DESC, m.id DESC LIMIT ?`,
		userID, userID, limit)
}

// AllMessages returns every message, oldest first.
func (s *Store) AllMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx, messageSelect+" ORDER BY m.id")
}
