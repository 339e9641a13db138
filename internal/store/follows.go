package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Follow makes followerID follow followedID. Following twice is a no-op.
func (s *Store) Follow(ctx context.Context, followerID, followedID int64) error {
	if followerID == followedID {
		return ErrSelfFollow
	}

	_, err := s.exec(ctx, s.db,
		`INSERT INTO follows (user_being_followed_id, user_following_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		followedID, followerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user %d: %w", followedID, ErrNotFound)
		}
		return fmt.Errorf("failed to follow user %d: %w", followedID, err)
	}

	s.log.Debug("Follow added", zap.Int64("follower_id", followerID), zap.Int64("followed_id", followedID))
	return nil
}

func (s *Store) Unfollow(ctx context.Context, followerID, followedID int64) error {
	_, err := s.exec(ctx, s.db,
		"DELETE FROM follows WHERE user_being_followed_id = ? AND user_following_id = ?",
		followedID, followerID)
	if err != nil {
		return fmt.Errorf("failed to unfollow user %d: %w", followedID, err)
	}
	return nil
}

// Following lists the users id follows.
func (s *Store) Following(ctx context.Context, id int64) ([]*User, error) {
	return s.queryUsers(ctx, `
		SELECT u.id, u.username, u.email, u.image_url, u.header_image_url, u.bio, u.location, u.password
		FROM users u JOIN follows f ON f.user_being_followed_id = u.id
		WHERE f.user_following_id = ?
		ORDER BY u.username`, id)
}

// Followers lists the users following id.
func (s *Store) Followers(ctx context.Context, id int64) ([]*User, error) {
	return s.queryUsers(ctx, `
		SELECT u.id, u.username, u.email, u.image_url, u.header_image_url, u.bio, u.location, u.password
		FROM users u JOIN follows f ON f.user_following_id = u.id
		WHERE f.user_being_followed_id = ?
		ORDER BY u.username`, id)
}

// IsFollowing reports whether userID follows otherID.
func (s *Store) IsFollowing(ctx context.Context, userID, otherID int64) (bool, error) {
	n, err := s.count(ctx,
		"SELECT COUNT(*) FROM follows WHERE user_following_id = ? AND user_being_followed_id = ?",
		userID, otherID)
	return n > 0, err
}

// IsFollowedBy reports whether otherID follows userID.
func (s *Store) IsFollowedBy(ctx context.Context, userID, otherID int64) (bool, error) {
	return s.IsFollowing(ctx, otherID, userID)
}

// FollowingIDs returns the set of user IDs that id follows.
func (s *Store) FollowingIDs(ctx context.Context, id int64) (map[int64]bool, error) {
	rows, err := s.query(ctx, s.db, "SELECT user_being_followed_id FROM follows WHERE user_following_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var fid int64
		if err := rows.Scan(&fid); err != nil {
			return nil, err
		}
		ids[fid] = true
	}
	return ids, rows.Err()
}
